// Package core implements the three-phase engine and the driver.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NVIDIA/mdbench/cmn"
	"github.com/NVIDIA/mdbench/cohort"
	"github.com/NVIDIA/mdbench/tools/tassert"
)

func TestRunFullCycle(t *testing.T) {
	be, root := newPosixBE(t)
	cfg := &cmn.Bench{
		Num: 2, Precreate: 3, DsetCount: 2, Offset: 1, ObjectSize: 128, Iterations: 1,
		Quiet:       true,
		RunInfoFile: filepath.Join(t.TempDir(), "mdbench.status"),
	}
	tassert.CheckFatal(t, cfg.Validate()) // enables all three phases

	handles := cohort.NewInProcGroup(2)
	err := cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		return Run(cfg, c, be)
	})
	tassert.CheckFatal(t, err)

	// cleanup + purge returned the backend to its initial contents
	_, err = os.Stat(root)
	tassert.Errorf(t, os.IsNotExist(err), "backend root %q must be gone", root)
	// with cleanup enabled no checkpoint is written
	_, err = os.Stat(cfg.RunInfoFile)
	tassert.Errorf(t, os.IsNotExist(err), "run-info file must not be written when cleanup runs")
}

func TestRunCheckpointAcrossInvocations(t *testing.T) {
	be, root := newPosixBE(t)
	info := filepath.Join(t.TempDir(), "mdbench.status")

	// precreate only
	cfg := &cmn.Bench{
		Num: 2, Precreate: 3, DsetCount: 1, Offset: 1, ObjectSize: 32, Iterations: 1,
		Quiet: true, RunInfoFile: info, PhasePrecreate: true,
	}
	tassert.CheckFatal(t, cfg.Validate())
	handles := cohort.NewInProcGroup(2)
	err := cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		return Run(cfg, c, be)
	})
	tassert.CheckFatal(t, err)

	b, err := os.ReadFile(info)
	tassert.CheckFatal(t, err)
	tassert.Errorf(t, string(b) == "pos: 0\n", "checkpoint = %q", b)

	// cleanup only, resuming from the stored position
	cfg2 := &cmn.Bench{
		Num: 2, Precreate: 3, DsetCount: 1, Offset: 1, ObjectSize: 32, Iterations: 1,
		Quiet: true, RunInfoFile: info, PhaseCleanup: true,
	}
	tassert.CheckFatal(t, cfg2.Validate())
	handles = cohort.NewInProcGroup(2)
	err = cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		return Run(cfg2, c, be)
	})
	tassert.CheckFatal(t, err)

	_, err = os.Stat(root)
	tassert.Errorf(t, os.IsNotExist(err), "backend root %q must be gone after cleanup", root)
}
