// Package sys provides process- and host-level utilities (free-memory
// probing and the memory-ballooning facility).
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package sys

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/NVIDIA/mdbench/cmn/cos"
	"github.com/NVIDIA/mdbench/cmn/nlog"

	"github.com/pkg/errors"
)

const meminfoPath = "/proc/meminfo"

// Balloon pins memory to push the host's free memory down to a target,
// emulating a loaded system. Chunks are touched page by page so they
// are actually backed.
type Balloon struct {
	chunks [][]byte
}

const balloonChunk = cos.MiB

// FreeMemMiB returns the host's available memory in MiB.
func FreeMemMiB() (int, error) {
	fh, err := os.Open(meminfoPath)
	if err != nil {
		return 0, errors.Wrap(err, "meminfo")
	}
	defer fh.Close()
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, errors.Wrap(err, "meminfo: MemAvailable")
		}
		return kb / 1024, nil
	}
	return 0, errors.New("meminfo: no MemAvailable")
}

// Inflate allocates until free memory drops to `limitMiB`. A zero limit
// is a no-op. Failures here are logged by the caller, never fatal.
func Inflate(limitMiB int, verbose bool) (*Balloon, error) {
	if limitMiB <= 0 {
		return nil, nil
	}
	free, err := FreeMemMiB()
	if err != nil {
		return nil, err
	}
	b := &Balloon{}
	for free > limitMiB {
		chunk := make([]byte, balloonChunk)
		for i := 0; i < len(chunk); i += os.Getpagesize() {
			chunk[i] = 1
		}
		b.chunks = append(b.chunks, chunk)
		if free, err = FreeMemMiB(); err != nil {
			b.Free()
			return nil, err
		}
	}
	if verbose {
		nlog.Infof("balloon: pinned %d MiB (free now %d MiB)", len(b.chunks), free)
	}
	return b, nil
}

// Free releases the balloon; the memory returns to the OS on the next GC
// cycles.
func (b *Balloon) Free() {
	if b != nil {
		b.chunks = nil
	}
}
