// Package stats tracks per-phase operation counters and latencies and
// reduces them across the cohort into a single authoritative report.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"fmt"
	"net/http"

	"github.com/NVIDIA/mdbench/cmn/nlog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exposition of the reduced (rank 0) counters, updated at the
// end of every phase while the run is in flight. Scrapers see the run
// progress phase by phase; the exporter dies with the process.
type PromExporter struct {
	ops       *prometheus.CounterVec
	phaseTime *prometheus.GaugeVec
}

func NewPromExporter(port int) (*PromExporter, error) {
	e := &PromExporter{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mdbench",
			Name:      "ops_total",
			Help:      "per-operation success/error totals, summed over the cohort",
		}, []string{"phase", "op", "status"}),
		phaseTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mdbench",
			Name:      "phase_seconds",
			Help:      "cohort-max phase time including the end-of-phase barrier",
		}, []string{"phase"}),
	}
	reg := prometheus.NewRegistry()
	if err := reg.Register(e.ops); err != nil {
		return nil, err
	}
	if err := reg.Register(e.phaseTime); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			nlog.Errorf("prometheus exporter: %v", err)
		}
	}()
	return e, nil
}

// Observe adds one phase's reduced statistics.
func (e *PromExporter) Observe(name string, g *Phase) {
	for op, st := range map[string]OpStat{
		"dset_name": g.DsetName, "dset_create": g.DsetCreate, "dset_delete": g.DsetDelete,
		"obj_name": g.ObjName, "obj_create": g.ObjCreate, "obj_read": g.ObjRead,
		"obj_stat": g.ObjStat, "obj_delete": g.ObjDelete,
	} {
		e.ops.WithLabelValues(name, op, "suc").Add(float64(st.Suc))
		e.ops.WithLabelValues(name, op, "err").Add(float64(st.Err))
	}
	e.phaseTime.WithLabelValues(name).Set(g.TInclBarrier)
}
