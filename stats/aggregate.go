// Package stats tracks per-phase operation counters and latencies and
// reduces them across the cohort into a single authoritative report.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"fmt"

	"github.com/NVIDIA/mdbench/cmn"
	"github.com/NVIDIA/mdbench/cmn/mono"
	"github.com/NVIDIA/mdbench/cmn/nlog"
	"github.com/NVIDIA/mdbench/cohort"
)

// p2p tag for the per-process report relay
const tagProcessReport = 4711

// Report is one phase's reduced (global) statistics, as dumped to the
// optional stats file.
type Report struct {
	Phase     string `json:"phase"`
	Iteration int    `json:"iteration"`
	Global    *Phase `json:"global"`
}

// EndPhase closes the timed phase: samples `t`, crosses the end-of-phase
// barrier, samples `t_incl_barrier`, reduces everything to rank 0,
// prints the report(s), and persists the latency histograms. Returns
// the reduced global statistics at rank 0 and nil everywhere else.
//
// The conditional `repeats` reduction relies on `stonewall_hit` being
// cohort-uniform, which the benchmark phase guarantees with its final
// all-reduce.
func EndPhase(name string, p *Phase, cfg *cmn.Bench, ch cohort.Cohort, globalIter int) (*Phase, error) {
	p.T = mono.SinceSeconds(p.PhaseStart)
	ch.Barrier()
	p.TInclBarrier = mono.SinceSeconds(p.PhaseStart)

	var (
		g    *Phase
		rank = ch.Rank()
	)
	tv, err := ch.ReduceFloats([]float64{p.T, p.TInclBarrier}, cohort.OpMax, 0)
	if err != nil {
		return nil, err
	}
	tall, err := ch.GatherFloat(p.T, 0)
	if err != nil {
		return nil, err
	}
	counters, err := ch.ReduceInts(p.counterVec(), cohort.OpSum, 0)
	if err != nil {
		return nil, err
	}
	maxOp, err := ch.ReduceFloats([]float64{p.MaxOpTime}, cohort.OpMax, 0)
	if err != nil {
		return nil, err
	}
	if rank == 0 {
		g = &Phase{T: tv[0], TInclBarrier: tv[1], TAll: tall, MaxOpTime: maxOp[0]}
		g.setCounterVec(counters)
	}
	if p.StonewallHit {
		repeats, err := ch.ReduceInts([]int64{p.Repeats}, cohort.OpMin, 0)
		if err != nil {
			return nil, err
		}
		if rank == 0 {
			g.Repeats = repeats[0]
			g.StonewallHit = true
		}
	}

	if rank == 0 {
		fmt.Println(Render(name, g, g.TInclBarrier, cfg, true))
	}

	if cfg.ProcessReport {
		if rank == 0 {
			fmt.Printf("0: %s\n", Render(name, p, p.T, cfg, false))
			for i := 1; i < ch.Size(); i++ {
				line, err := ch.Recv(i, tagProcessReport)
				if err != nil {
					return nil, err
				}
				fmt.Printf("%d: %s\n", i, string(line))
			}
		} else {
			line := Render(name, p, p.T, cfg, false)
			if err := ch.Send(0, tagProcessReport, []byte(line)); err != nil {
				return nil, err
			}
		}
	}

	if p.TimeCreate != nil {
		writeHistograms(name, p, cfg, rank, globalIter)
	}
	return g, nil
}

func writeHistograms(name string, p *Phase, cfg *cmn.Bench, rank, globalIter int) {
	switch name {
	case PhasePrecreate:
		storeHistogram(cfg, globalIter, "precreate", rank, p.TimeCreate, p.Repeats)
	case PhaseCleanup:
		storeHistogram(cfg, globalIter, "cleanup", rank, p.TimeDelete, p.Repeats)
	case PhaseBenchmark:
		storeHistogram(cfg, globalIter, "create", rank, p.TimeCreate, p.Repeats)
		storeHistogram(cfg, globalIter, "read", rank, p.TimeRead, p.Repeats)
		storeHistogram(cfg, globalIter, "stat", rank, p.TimeStat, p.Repeats)
		storeHistogram(cfg, globalIter, "delete", rank, p.TimeDelete, p.Repeats)
	default:
		nlog.Errorf("unknown phase %q, skipping latency histograms", name)
	}
}
