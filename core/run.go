// Package core implements the three-phase engine and the driver.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package core

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/NVIDIA/mdbench/backend"
	"github.com/NVIDIA/mdbench/cmn"
	"github.com/NVIDIA/mdbench/cmn/mono"
	"github.com/NVIDIA/mdbench/cmn/nlog"
	"github.com/NVIDIA/mdbench/cohort"
	"github.com/NVIDIA/mdbench/stats"
	"github.com/NVIDIA/mdbench/sys"

	jsoniter "github.com/json-iterator/go"
)

// Run executes the configured phases for one worker. Every rank of the
// cohort calls Run with the same configuration and a process-shared
// backend (already initialized); rank 0 additionally owns the banner,
// the run-info file, the global report, and prepare/purge-global.
func Run(cfg *cmn.Bench, ch cohort.Cohort, be backend.Backend) error {
	w := &worker{
		cfg:  cfg,
		ch:   ch,
		be:   be,
		ctx:  context.Background(),
		rank: ch.Rank(),
		size: ch.Size(),
	}
	var (
		isRoot  = w.rank == 0
		reports []*stats.Report
		prom    *stats.PromExporter
	)

	if isRoot && !cfg.Quiet {
		fmt.Printf("MD-BENCH total objects: %d workingset size: %.3f MiB (version: %s) time: %s\n",
			cfg.TotalObjCount(w.size), cfg.WorkingSetMiB(w.size), cmn.VersionMDBench, wallClock())
		if cfg.Num > cfg.Precreate {
			nlog.Warningln("num > precreate, this may cause the situation that no objects are available to read")
		}
	}

	if isRoot && cfg.PromPort > 0 {
		var err error
		if prom, err = stats.NewPromExporter(cfg.PromPort); err != nil {
			nlog.Errorf("could not start the prometheus exporter: %v", err)
		}
	}

	// preallocate memory if requested (failures logged, not fatal)
	balloon, err := sys.Inflate(cfg.LimitMemory, nlog.V(3))
	if err != nil {
		nlog.Errorf("%d: error allocating memory: %v", w.rank, err)
	}

	if (cfg.PhaseCleanup || cfg.PhaseBenchmark) && !cfg.PhasePrecreate {
		pos, err := restorePosition(cfg.RunInfoFile, ch)
		if err != nil {
			nlog.Errorf("%d: %v", w.rank, err)
			w.abort()
		}
		w.currentIndex = pos
	}

	benchStart := mono.NanoTime()

	if isRoot && cfg.PrintDetailedStats && !cfg.Quiet {
		fmt.Println(stats.DetailedHeader())
	}

	capture := cfg.LatencyPrefix != ""

	if cfg.PhasePrecreate {
		if isRoot {
			if ret := be.PrepareGlobal(w.ctx); ret.IsErr() {
				nlog.Errorln("rank 0 could not prepare the run, aborting")
				w.abort()
			}
		}
		s := stats.NewPhase(cfg.Precreate*cfg.DsetCount, capture)
		ch.Barrier()
		s.Start()
		w.runPrecreate(s)
		g, err := stats.EndPhase(stats.PhasePrecreate, s, cfg, ch, 0)
		if err != nil {
			return err
		}
		reports = afterPhase(stats.PhasePrecreate, 0, g, reports, prom, cfg)
	}

	if cfg.PhaseBenchmark {
		for iter := 0; iter < cfg.Iterations; iter++ {
			s := stats.NewPhase(cfg.Num*cfg.DsetCount, capture)
			s.Start()
			w.runBenchmark(s)
			g, err := stats.EndPhase(stats.PhaseBenchmark, s, cfg, ch, iter)
			if err != nil {
				return err
			}
			reports = afterPhase(stats.PhaseBenchmark, iter, g, reports, prom, cfg)
		}
	}

	if cfg.PhaseCleanup {
		s := stats.NewPhase(cfg.Precreate*cfg.DsetCount, capture)
		s.Start()
		w.runCleanup(s, w.currentIndex)
		g, err := stats.EndPhase(stats.PhaseCleanup, s, cfg, ch, 0)
		if err != nil {
			return err
		}
		reports = afterPhase(stats.PhaseCleanup, 0, g, reports, prom, cfg)

		if isRoot {
			if ret := be.PurgeGlobal(w.ctx); ret.IsErr() {
				nlog.Errorln("rank 0: error purging the global environment")
			}
		}
	} else if isRoot {
		if err := storePosition(cfg.RunInfoFile, w.currentIndex); err != nil {
			nlog.Errorf("%v", err)
			w.abort()
		}
	}

	totalRuntime := mono.SinceSeconds(benchStart)
	balloon.Free()

	if isRoot {
		if cfg.StatsFile != "" {
			if err := dumpReports(cfg.StatsFile, reports); err != nil {
				nlog.Errorf("could not write %s: %v", cfg.StatsFile, err)
			}
		}
		if !cfg.Quiet {
			fmt.Printf("Total runtime: %.0fs time: %s\n", totalRuntime, wallClock())
		}
	}
	return nil
}

// post-phase chores: rank 0 records and exports the global report;
// every rank runs the between-phases balloon (excluded from phase time)
func afterPhase(name string, iter int, g *stats.Phase, reports []*stats.Report, prom *stats.PromExporter, cfg *cmn.Bench) []*stats.Report {
	if g != nil {
		if prom != nil {
			prom.Observe(name, g)
		}
		reports = append(reports, &stats.Report{Phase: name, Iteration: iter, Global: g})
	}
	if cfg.LimitMemoryBetween > 0 {
		b, err := sys.Inflate(cfg.LimitMemoryBetween, nlog.V(3))
		if err != nil {
			nlog.Errorf("error allocating memory between phases: %v", err)
		}
		b.Free()
	}
	return reports
}

func dumpReports(path string, reports []*stats.Report) error {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// wall-clock printing (reports aside, the engine itself runs on the
// monotonic clock only)
func wallClock() string { return time.Now().Format("2006-01-02 15:04:05") }
