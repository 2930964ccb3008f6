// Package core implements the three-phase engine and the driver.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NVIDIA/mdbench/cohort"
	"github.com/NVIDIA/mdbench/tools/tassert"
)

func TestRunInfoRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.status")

	tassert.CheckFatal(t, storePosition(path, 4711))
	b, err := os.ReadFile(path)
	tassert.CheckFatal(t, err)
	tassert.Errorf(t, string(b) == "pos: 4711\n", "stored %q", b)

	pos, err := loadPosition(path)
	tassert.CheckFatal(t, err)
	tassert.Errorf(t, pos == 4711, "loaded %d", pos)

	_, err = loadPosition(filepath.Join(t.TempDir(), "missing"))
	tassert.Errorf(t, err != nil, "expected an error for a missing run-info file")
}

func TestRunInfoGarbled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.status")
	tassert.CheckFatal(t, os.WriteFile(path, []byte("position 12\n"), 0o644))
	_, err := loadPosition(path)
	tassert.Errorf(t, err != nil, "expected an error for a garbled run-info file")
}

// rank 0 reads the file, everyone receives the position over p2p
func TestRestorePositionBroadcast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.status")
	tassert.CheckFatal(t, storePosition(path, 33))

	const size = 3
	handles := cohort.NewInProcGroup(size)
	err := cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		pos, err := restorePosition(path, c)
		if err != nil {
			return err
		}
		tassert.Errorf(t, pos == 33, "rank %d: pos = %d", c.Rank(), pos)
		return nil
	})
	tassert.CheckFatal(t, err)
}
