// Package stats tracks per-phase operation counters and latencies and
// reduces them across the cohort into a single authoritative report.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"bufio"
	"fmt"
	"os"

	"github.com/NVIDIA/mdbench/cmn"
	"github.com/NVIDIA/mdbench/cmn/nlog"
)

// storeHistogram writes one `<prefix>-<iteration>-<kind>-<rank>.csv`
// with a `time,runtime` header. Unless --latency-all is set only rank 0
// keeps its files.
func storeHistogram(cfg *cmn.Bench, globalIter int, kind string, rank int, times []TimeResult, repeats int64) {
	if rank != 0 && !cfg.LatencyKeepAll {
		return
	}
	fname := fmt.Sprintf("%s-%d-%s-%d.csv", cfg.LatencyPrefix, globalIter, kind, rank)
	fh, err := os.Create(fname)
	if err != nil {
		nlog.Errorf("%d: error writing to latency file %s: %v", rank, fname, err)
		return
	}
	w := bufio.NewWriter(fh)
	fmt.Fprintln(w, "time,runtime")
	for i := int64(0); i < repeats; i++ {
		fmt.Fprintf(w, "%.7f,%.4e\n", times[i].TimeSinceStart, times[i].Runtime)
	}
	if err := w.Flush(); err != nil {
		nlog.Errorf("%d: error flushing latency file %s: %v", rank, fname, err)
	}
	fh.Close()
}
