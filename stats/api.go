// Package stats tracks per-phase operation counters and latencies and
// reduces them across the cohort into a single authoritative report.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"math"

	"github.com/NVIDIA/mdbench/cmn/debug"
	"github.com/NVIDIA/mdbench/cmn/mono"
)

// operation kinds with individually recorded latencies
type Kind int

const (
	KindCreate Kind = iota
	KindRead
	KindStat
	KindDelete
)

type (
	// successes and errors for one operation type
	OpStat struct {
		Suc int64 `json:"suc"`
		Err int64 `json:"err"`
	}

	// a runtime for an operation and when the operation was started,
	// both relative to phase start
	TimeResult struct {
		TimeSinceStart float64 `json:"time"`
		Runtime        float64 `json:"runtime"`
	}

	// statistics for running a single phase (one worker's view; the
	// reduced rank-0 view reuses the same type)
	Phase struct {
		DsetName   OpStat `json:"dset_name"`
		DsetCreate OpStat `json:"dset_create"`
		DsetDelete OpStat `json:"dset_delete"`

		ObjName   OpStat `json:"obj_name"`
		ObjCreate OpStat `json:"obj_create"`
		ObjRead   OpStat `json:"obj_read"`
		ObjStat   OpStat `json:"obj_stat"`
		ObjDelete OpStat `json:"obj_delete"`

		T            float64   `json:"t"`              // elapsed before the end-of-phase barrier
		TInclBarrier float64   `json:"t_incl_barrier"` // elapsed after it
		TAll         []float64 `json:"t_all,omitempty"`

		// time measurements of individual operations (latency capture only)
		Repeats    int64        `json:"repeats"`
		TimeCreate []TimeResult `json:"-"`
		TimeRead   []TimeResult `json:"-"`
		TimeStat   []TimeResult `json:"-"`
		TimeDelete []TimeResult `json:"-"`

		// the maximum time for any single operation
		MaxOpTime float64 `json:"max_op_time"`

		PhaseStart   int64 `json:"-"` // mono.NanoTime sample
		StonewallHit bool  `json:"stonewall_hit"`
	}
)

// NewPhase preallocates the latency arrays to `expected` slots when
// capture is on; `repeats` starts at `expected` and is lowered by the
// benchmark phase on stonewall.
func NewPhase(expected int, capture bool) *Phase {
	p := &Phase{Repeats: int64(expected)}
	if capture && expected > 0 {
		p.TimeCreate = make([]TimeResult, expected)
		p.TimeRead = make([]TimeResult, expected)
		p.TimeStat = make([]TimeResult, expected)
		p.TimeDelete = make([]TimeResult, expected)
	}
	return p
}

func (p *Phase) Start() { p.PhaseStart = mono.NanoTime() }

// AddTimed closes the measurement that began at `opStart`, recording it
// at slot `pos` of the given kind. Returns the time since phase start
// sampled at the *start* of the operation (the stonewall clock).
func (p *Phase) AddTimed(kind Kind, opStart int64, pos int) float64 {
	curtime := mono.SubSeconds(p.PhaseStart, opStart)
	opTime := mono.SinceSeconds(opStart)
	if arr := p.times(kind); arr != nil {
		arr[pos].TimeSinceStart = curtime
		arr[pos].Runtime = opTime
	}
	if opTime > p.MaxOpTime {
		p.MaxOpTime = opTime
	}
	return curtime
}

func (p *Phase) times(kind Kind) []TimeResult {
	switch kind {
	case KindCreate:
		return p.TimeCreate
	case KindRead:
		return p.TimeRead
	case KindStat:
		return p.TimeStat
	default:
		return p.TimeDelete
	}
}

func (p *Phase) SumErr() int64 {
	return p.DsetName.Err + p.DsetCreate.Err + p.DsetDelete.Err +
		p.ObjName.Err + p.ObjCreate.Err + p.ObjRead.Err + p.ObjStat.Err + p.ObjDelete.Err
}

//
// counters as a plain numeric vector for elementwise reduction (do not
// rely on struct layout)
//

const numCounters = 16 // 8 op-stat pairs

func (p *Phase) counterVec() []int64 {
	return []int64{
		p.DsetName.Suc, p.DsetName.Err,
		p.DsetCreate.Suc, p.DsetCreate.Err,
		p.DsetDelete.Suc, p.DsetDelete.Err,
		p.ObjName.Suc, p.ObjName.Err,
		p.ObjCreate.Suc, p.ObjCreate.Err,
		p.ObjRead.Suc, p.ObjRead.Err,
		p.ObjStat.Suc, p.ObjStat.Err,
		p.ObjDelete.Suc, p.ObjDelete.Err,
	}
}

func (p *Phase) setCounterVec(v []int64) {
	debug.Assert(len(v) == numCounters, len(v))
	p.DsetName = OpStat{Suc: v[0], Err: v[1]}
	p.DsetCreate = OpStat{Suc: v[2], Err: v[3]}
	p.DsetDelete = OpStat{Suc: v[4], Err: v[5]}
	p.ObjName = OpStat{Suc: v[6], Err: v[7]}
	p.ObjCreate = OpStat{Suc: v[8], Err: v[9]}
	p.ObjRead = OpStat{Suc: v[10], Err: v[11]}
	p.ObjStat = OpStat{Suc: v[12], Err: v[13]}
	p.ObjDelete = OpStat{Suc: v[14], Err: v[15]}
}

//
// derived statistics over the gathered per-worker `t` vector
//

func mean(arr []float64) float64 {
	var sum float64
	for _, v := range arr {
		sum += v
	}
	return sum / float64(len(arr))
}

func stdDev(arr []float64) float64 {
	if len(arr) < 2 {
		return 0
	}
	var (
		m   = mean(arr)
		sum float64
	)
	for _, v := range arr {
		sum += (m - v) * (m - v)
	}
	return math.Sqrt(sum / float64(len(arr)-1))
}

func minMax(arr []float64) (mn, mx float64) {
	mn, mx = arr[0], arr[0]
	for _, v := range arr[1:] {
		mn = math.Min(mn, v)
		mx = math.Max(mx, v)
	}
	return mn, mx
}
