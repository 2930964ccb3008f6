// Package core implements the three-phase engine and the driver.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package core

import (
	"fmt"
	"os"
	"strconv"

	"github.com/NVIDIA/mdbench/cohort"

	"github.com/pkg/errors"
)

// The run-info (checkpoint) file is a single ASCII line `pos: <N>`
// holding the benchmark's rolling index base. Only rank 0 touches the
// file, and only outside any timed phase; the value is broadcast to the
// cohort over p2p.

const tagRunInfo = 4712

func loadPosition(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "could not open %s for restart", path)
	}
	var pos int
	if _, err := fmt.Sscanf(string(b), "pos: %d", &pos); err != nil {
		return 0, errors.Wrapf(err, "could not read position from %s for restart", path)
	}
	return pos, nil
}

func storePosition(path string, pos int) error {
	return errors.Wrapf(os.WriteFile(path, []byte(fmt.Sprintf("pos: %d\n", pos)), 0o644),
		"could not open %s for saving position", path)
}

// rank 0 reads (or fails fatally) and distributes; everyone else waits
func restorePosition(path string, ch cohort.Cohort) (int, error) {
	if ch.Rank() == 0 {
		pos, err := loadPosition(path)
		if err != nil {
			return 0, err
		}
		payload := []byte(strconv.Itoa(pos))
		for dst := 1; dst < ch.Size(); dst++ {
			if err := ch.Send(dst, tagRunInfo, payload); err != nil {
				return 0, err
			}
		}
		return pos, nil
	}
	b, err := ch.Recv(0, tagRunInfo)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(b))
}
