// Package cmn provides common constants, types, and utilities for the
// mdbench benchmark and its modules.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"github.com/pkg/errors"
)

// Bench is the immutable benchmark configuration constructed once from
// CLI parsing and passed explicitly to every component - there are no
// process-wide singletons.
type Bench struct {
	Interface string // plug-in name ("list" prints available plug-ins)

	Num       int // benchmark I/O operations per dataset (N)
	Precreate int // objects to precreate per dataset (P)
	DsetCount int // datasets per worker (D)

	Offset     int // peer offset in ranks between writers and readers (O)
	Iterations int // benchmark phase repetitions (R)
	ObjectSize int // payload bytes per object (S)

	StonewallTimer   int  // seconds per benchmark iteration, 0 disables
	StonewallWearOut bool // equalize iteration counts after the first crossing

	ReadOnly              bool
	IgnorePrecreateErrors bool

	LatencyPrefix  string // when set, capture per-op latency to CSV
	LatencyKeepAll bool   // keep latency files from every rank (not just rank 0)

	PhasePrecreate bool
	PhaseBenchmark bool
	PhaseCleanup   bool

	LimitMemory        int // MiB, balloon at startup
	LimitMemoryBetween int // MiB, balloon between phases (excluded from phase time)

	Verbosity          int
	Quiet              bool
	ProcessReport      bool
	PrintDetailedStats bool

	RunInfoFile string // checkpoint path

	StatsFile  string // optional jsoniter dump of the global per-phase stats
	PromPort   int    // optional Prometheus exposition port (0 disables)
	VerifyRead bool   // xxhash payload verification on benchmark reads
}

// defaults as documented in the CLI surface
func DefaultBench() *Bench {
	return &Bench{
		Interface:   "posix",
		Num:         1000,
		Precreate:   3000,
		DsetCount:   10,
		Offset:      1,
		Iterations:  3,
		ObjectSize:  3901,
		RunInfoFile: "mdbench.status",
	}
}

// Validate normalizes phase selection and rejects invalid combinations.
// Mutates only the Phase* booleans; everything else is read-only.
func (b *Bench) Validate() error {
	if !(b.PhaseCleanup || b.PhasePrecreate || b.PhaseBenchmark) {
		b.PhaseCleanup, b.PhasePrecreate, b.PhaseBenchmark = true, true, true
	}
	if !b.PhasePrecreate && b.PhaseBenchmark && b.StonewallTimer > 0 && !b.StonewallWearOut {
		return errors.New("invalid options: running only the benchmark phase (-2) with a stonewall timer requires stonewall wear-out (-W)")
	}
	if b.Num < 0 || b.Precreate < 0 || b.DsetCount <= 0 || b.ObjectSize < 0 {
		return errors.Errorf("invalid options: num=%d precreate=%d data-sets=%d object-size=%d",
			b.Num, b.Precreate, b.DsetCount, b.ObjectSize)
	}
	if b.Offset < 1 {
		return errors.Errorf("invalid options: offset must be >= 1, got %d", b.Offset)
	}
	if b.Iterations < 1 {
		return errors.Errorf("invalid options: iterations must be >= 1, got %d", b.Iterations)
	}
	return nil
}

// TotalObjCount is the upper bound on distinct objects named during a
// full run across the entire cohort.
func (b *Bench) TotalObjCount(size int) uint64 {
	return uint64(b.DsetCount) * uint64(b.Num*b.Iterations+b.Precreate) * uint64(size)
}

// WorkingSetMiB is the precreated working set size across the cohort.
func (b *Bench) WorkingSetMiB(size int) float64 {
	return float64(size) * float64(b.DsetCount) * float64(b.Precreate) * float64(b.ObjectSize) / 1024.0 / 1024.0
}
