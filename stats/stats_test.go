// Package stats tracks per-phase operation counters and latencies and
// reduces them across the cohort into a single authoritative report.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NVIDIA/mdbench/cmn"
	"github.com/NVIDIA/mdbench/cohort"
	"github.com/NVIDIA/mdbench/tools/tassert"
)

func TestRenderSummary(t *testing.T) {
	cfg := &cmn.Bench{ObjectSize: 1024}
	p := &Phase{
		DsetCreate: OpStat{Suc: 10},
		ObjCreate:  OpStat{Suc: 100},
		ObjRead:    OpStat{Suc: 100},
		T:          2.0,
		TAll:       []float64{1.0, 2.0},
		MaxOpTime:  0.25,
	}

	line := Render(PhaseBenchmark, p, 2.0, cfg, true)
	for _, want := range []string{"benchmark process max:2.0s", "min:1.0s", "balance:50.0",
		"objects:100", "iops/s", "op-max:", "(0 errs)"} {
		tassert.Errorf(t, strings.Contains(line, want), "benchmark line %q missing %q", line, want)
	}

	line = Render(PhasePrecreate, p, 2.0, cfg, false)
	tassert.Errorf(t, strings.Contains(line, "dsets: 10"), "precreate line %q", line)
	tassert.Errorf(t, !strings.Contains(line, "min:"), "non-root line %q must omit the balance block", line)

	line = Render(PhaseCleanup, p, 2.0, cfg, true)
	tassert.Errorf(t, strings.Contains(line, "dset/s"), "cleanup line %q", line)
}

func TestRenderErrorsAndStonewall(t *testing.T) {
	cfg := &cmn.Bench{ObjectSize: 1, Quiet: true}
	p := &Phase{ObjRead: OpStat{Suc: 5, Err: 2}, T: 1, Repeats: 7, StonewallHit: true}

	// errors punch through --quiet
	line := Render(PhaseBenchmark, p, 1.0, cfg, false)
	tassert.Errorf(t, strings.Contains(line, "(2 errs!!!)"), "line %q", line)
	// but stonewall-iter does not
	tassert.Errorf(t, !strings.Contains(line, "stonewall-iter"), "line %q", line)

	cfg.Quiet = false
	line = Render(PhaseBenchmark, p, 1.0, cfg, false)
	tassert.Errorf(t, strings.Contains(line, "stonewall-iter:7"), "line %q", line)
}

func TestRenderDetailed(t *testing.T) {
	cfg := &cmn.Bench{ObjectSize: 1024, PrintDetailedStats: true}
	p := &Phase{ObjCreate: OpStat{Suc: 4}, ObjRead: OpStat{Suc: 4}, T: 1}
	line := Render(PhaseBenchmark, p, 1.0, cfg, true)
	tassert.Errorf(t, strings.Contains(line, "\t"), "detailed line %q must be tab separated", line)
	tassert.Errorf(t, strings.Contains(line, "MiB/s"), "detailed line %q", line)

	p.ObjRead.Err = 1
	line = Render(PhaseBenchmark, p, 1.0, cfg, true)
	tassert.Errorf(t, strings.Contains(line, "benchmark err"), "error row %q", line)
}

func TestCounterVecRoundTrip(t *testing.T) {
	p := &Phase{
		DsetName: OpStat{Suc: 1, Err: 2}, DsetCreate: OpStat{Suc: 3, Err: 4},
		DsetDelete: OpStat{Suc: 5, Err: 6}, ObjName: OpStat{Suc: 7, Err: 8},
		ObjCreate: OpStat{Suc: 9, Err: 10}, ObjRead: OpStat{Suc: 11, Err: 12},
		ObjStat: OpStat{Suc: 13, Err: 14}, ObjDelete: OpStat{Suc: 15, Err: 16},
	}
	vec := p.counterVec()
	tassert.Fatalf(t, len(vec) == numCounters, "vector length %d", len(vec))
	var q Phase
	q.setCounterVec(vec)
	tassert.Errorf(t, q.DsetName == p.DsetName && q.DsetCreate == p.DsetCreate && q.DsetDelete == p.DsetDelete,
		"dataset counters mismatch: %+v", q)
	tassert.Errorf(t, q.ObjName == p.ObjName && q.ObjCreate == p.ObjCreate && q.ObjRead == p.ObjRead &&
		q.ObjStat == p.ObjStat && q.ObjDelete == p.ObjDelete, "object counters mismatch: %+v", q)
	tassert.Errorf(t, p.SumErr() == 2+4+6+8+10+12+14+16, "sum_err = %d", p.SumErr())
}

func TestEndPhaseReduction(t *testing.T) {
	cfg := &cmn.Bench{ObjectSize: 8, Quiet: true}
	const size = 3
	globals := make([]*Phase, size)

	handles := cohort.NewInProcGroup(size)
	err := cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		rank := c.Rank()
		p := NewPhase(4, false)
		p.Start()
		p.ObjRead = OpStat{Suc: int64(rank + 1)}
		p.ObjCreate = OpStat{Err: 1}
		p.MaxOpTime = float64(rank)
		p.StonewallHit = true
		p.Repeats = int64(10 - rank)

		g, err := EndPhase(PhaseBenchmark, p, cfg, c, 0)
		if err != nil {
			return err
		}
		globals[rank] = g
		return nil
	})
	tassert.CheckFatal(t, err)

	tassert.Fatalf(t, globals[0] != nil, "rank 0 got no global stats")
	for rank := 1; rank < size; rank++ {
		tassert.Errorf(t, globals[rank] == nil, "rank %d must not receive global stats", rank)
	}
	g := globals[0]
	tassert.Errorf(t, g.ObjRead.Suc == 1+2+3, "obj_read = %+v", g.ObjRead)
	tassert.Errorf(t, g.ObjCreate.Err == size, "obj_create = %+v", g.ObjCreate)
	tassert.Errorf(t, g.MaxOpTime == size-1, "max_op_time = %v", g.MaxOpTime)
	tassert.Errorf(t, len(g.TAll) == size, "t_all = %v", g.TAll)
	tassert.Errorf(t, g.StonewallHit, "stonewall not reduced")
	tassert.Errorf(t, g.Repeats == 10-(size-1), "repeats = %d (MIN-reduce)", g.Repeats)
	tassert.Errorf(t, g.TInclBarrier >= g.T && g.T >= 0, "t=%v t_incl=%v", g.T, g.TInclBarrier)
}

func TestStoreHistogram(t *testing.T) {
	dir := t.TempDir()
	cfg := &cmn.Bench{LatencyPrefix: filepath.Join(dir, "lat")}
	times := []TimeResult{
		{TimeSinceStart: 0.5, Runtime: 0.001},
		{TimeSinceStart: 1.0, Runtime: 0.002},
	}
	storeHistogram(cfg, 0, "read", 0, times, 2)

	b, err := os.ReadFile(filepath.Join(dir, "lat-0-read-0.csv"))
	tassert.CheckFatal(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	tassert.Fatalf(t, len(lines) == 3, "csv: %q", b)
	tassert.Errorf(t, lines[0] == "time,runtime", "header %q", lines[0])
	tassert.Errorf(t, lines[1] == "0.5000000,1.0000e-03", "row %q", lines[1])

	// non-zero ranks keep nothing unless --latency-all
	storeHistogram(cfg, 0, "read", 1, times, 2)
	_, err = os.Stat(filepath.Join(dir, "lat-0-read-1.csv"))
	tassert.Errorf(t, os.IsNotExist(err), "rank 1 csv must not exist")

	cfg.LatencyKeepAll = true
	storeHistogram(cfg, 0, "read", 1, times, 2)
	_, err = os.Stat(filepath.Join(dir, "lat-0-read-1.csv"))
	tassert.CheckFatal(t, err)
}
