// Package stats tracks per-phase operation counters and latencies and
// reduces them across the cohort into a single authoritative report.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"fmt"
	"strings"

	"github.com/NVIDIA/mdbench/cmn"
)

// phase names as printed (and as matched by the report renderer)
const (
	PhasePrecreate = "precreate"
	PhaseBenchmark = "benchmark"
	PhaseCleanup   = "cleanup"
)

const detailedHeader = "phase\t\td name\tcreate\tdelete\tob nam\tcreate\tread\tstat\tdelete\tt_inc_b\tt_no_bar\tthp\tmax_t"

func DetailedHeader() string { return detailedHeader }

// Render formats one phase report line: either the machine-parsable
// detailed row (followed by an error row when any operation failed) or
// the human summary. `t` is the wall time used for the
// rate denominators (the reduced t_incl_barrier for the global report,
// the worker's own `t` for per-process reports); `isRoot` adds the
// rank-0-only load-balance block.
func Render(name string, p *Phase, t float64, cfg *cmn.Bench, isRoot bool) string {
	tp := throughputMiB(p, t, cfg.ObjectSize)
	errs := p.SumErr()

	if cfg.PrintDetailedStats {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s \t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.3fs\t%.3fs\t%.2f MiB/s %.4e",
			name,
			p.DsetName.Suc, p.DsetCreate.Suc, p.DsetDelete.Suc,
			p.ObjName.Suc, p.ObjCreate.Suc, p.ObjRead.Suc, p.ObjStat.Suc, p.ObjDelete.Suc,
			t, p.T, tp, p.MaxOpTime)
		if errs > 0 {
			sb.WriteByte('\n')
			fmt.Fprintf(&sb, "%s err\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d",
				name,
				p.DsetName.Err, p.DsetCreate.Err, p.DsetDelete.Err,
				p.ObjName.Err, p.ObjCreate.Err, p.ObjRead.Err, p.ObjStat.Err, p.ObjDelete.Err)
		}
		return sb.String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s process max:%.1fs ", name, t)
	if isRoot && len(p.TAll) > 0 {
		mn, mx := minMax(p.TAll)
		balance := 0.0
		if mx > 0 {
			balance = mn / mx * 100.0
		}
		fmt.Fprintf(&sb, "min:%.1fs mean: %.1fs balance:%.1f stddev:%.1f ", mn, mean(p.TAll), balance, stdDev(p.TAll))
	}

	switch name {
	case PhaseBenchmark:
		// one benchmark iteration performs write, stat, read, delete
		fmt.Fprintf(&sb, "rate:%.1f iops/s objects:%d rate:%.1f obj/s tp:%.1f Mib/s op-max:%.4es",
			float64(p.ObjRead.Suc*4)/t,
			p.ObjRead.Suc,
			float64(p.ObjRead.Suc)/t,
			tp,
			p.MaxOpTime)
	case PhasePrecreate:
		fmt.Fprintf(&sb, "rate:%.1f iops/s dsets: %d objects:%d rate:%.3f dset/s rate:%.1f obj/s tp:%.1f Mib/s op-max:%.4es",
			float64(p.DsetCreate.Suc+p.ObjCreate.Suc)/t,
			p.DsetCreate.Suc,
			p.ObjCreate.Suc,
			float64(p.DsetCreate.Suc)/t,
			float64(p.ObjCreate.Suc)/t,
			tp,
			p.MaxOpTime)
	case PhaseCleanup:
		fmt.Fprintf(&sb, "rate:%.1f iops/s objects:%d dsets: %d rate:%.1f obj/s rate:%.3f dset/s op-max:%.4es",
			float64(p.ObjDelete.Suc+p.DsetDelete.Suc)/t,
			p.ObjDelete.Suc,
			p.DsetDelete.Suc,
			float64(p.ObjDelete.Suc)/t,
			float64(p.DsetDelete.Suc)/t,
			p.MaxOpTime)
	default:
		return name + ": unknown phase"
	}

	// error count: shown even under --quiet when non-zero
	if !cfg.Quiet || errs > 0 {
		if errs > 0 {
			fmt.Fprintf(&sb, " (%d errs!!!)", errs)
		} else {
			fmt.Fprintf(&sb, " (%d errs)", errs)
		}
	}
	if !cfg.Quiet && p.StonewallHit {
		fmt.Fprintf(&sb, " stonewall-iter:%d", p.Repeats)
	}
	return sb.String()
}

func throughputMiB(p *Phase, t float64, objSize int) float64 {
	if t <= 0 {
		return 0
	}
	return float64(p.ObjCreate.Suc+p.ObjRead.Suc) * float64(objSize) / t / 1024 / 1024
}
