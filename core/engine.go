// Package core implements the three-phase engine (precreate, benchmark,
// cleanup) and the driver composing workload generation, stonewalling,
// and statistics reduction.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package core

import (
	"context"

	"github.com/NVIDIA/mdbench/backend"
	"github.com/NVIDIA/mdbench/cmn"
	"github.com/NVIDIA/mdbench/cmn/mono"
	"github.com/NVIDIA/mdbench/cmn/nlog"
	"github.com/NVIDIA/mdbench/cohort"
	"github.com/NVIDIA/mdbench/stats"

	"github.com/OneOfOne/xxhash"
)

// worker is one rank's engine state; single-threaded, I/O calls are
// synchronous and blocking.
type worker struct {
	cfg *cmn.Bench
	ch  cohort.Cohort
	be  backend.Backend
	ctx context.Context

	rank, size int

	// rolling base of the FIFO window; survives across invocations via
	// the run-info file
	currentIndex int

	buf        []byte
	verifySums map[byte]uint64 // per-fill-byte payload checksums (--verify-read)
}

// payload is filled with the worker's own rank, mod 256
func (w *worker) fillByte() byte { return byte(w.rank % 256) }

func (w *worker) newPayload() []byte {
	buf := make([]byte, w.cfg.ObjectSize)
	for i := range buf {
		buf[i] = w.fillByte()
	}
	return buf
}

func (w *worker) abort() {
	w.ch.Abort(1)
}

//
// precreate: populate D datasets with P objects each, all owned by this
// worker
//

func (w *worker) runPrecreate(s *stats.Phase) {
	cfg := w.cfg
	for d := 0; d < cfg.DsetCount; d++ {
		dset, err := w.be.DefDsetName(w.rank, d)
		if err != nil {
			if !cfg.IgnorePrecreateErrors {
				nlog.Errorf("%d: error defining the dataset name: %v", w.rank, err)
				w.abort()
			}
			s.DsetName.Err++
			continue
		}
		s.DsetName.Suc++
		switch ret := w.be.CreateDset(w.ctx, dset); {
		case ret == backend.NOOP:
			// do not increment any counter
		case ret == backend.OK:
			s.DsetCreate.Suc++
		default:
			s.DsetCreate.Err++
			if !cfg.IgnorePrecreateErrors {
				nlog.Errorf("%d: error while creating the dset: %s", w.rank, dset)
				w.abort()
			}
		}
	}

	w.buf = w.newPayload()
	pos := -1
	for f := 0; f < cfg.Precreate; f++ {
		for d := 0; d < cfg.DsetCount; d++ {
			dset, _ := w.be.DefDsetName(w.rank, d)
			pos++
			obj, err := w.be.DefObjName(w.rank, d, f)
			if err != nil {
				s.ObjName.Err++
				if !cfg.IgnorePrecreateErrors {
					nlog.Errorf("%d: error while creating the obj name: %v", w.rank, err)
					w.abort()
				}
				continue
			}

			opStart := mono.NanoTime()
			ret := w.be.WriteObj(w.ctx, dset, obj, w.buf)
			s.AddTimed(stats.KindCreate, opStart, pos)

			if nlog.V(2) {
				nlog.Infof("%d: write %s:%s (%s)", w.rank, dset, obj, ret)
			}

			switch {
			case ret == backend.NOOP:
				// do not increment any counter
			case ret == backend.OK:
				s.ObjCreate.Suc++
			default:
				s.ObjCreate.Err++
				if !cfg.IgnorePrecreateErrors {
					nlog.Errorf("%d: error while creating the obj: %s", w.rank, obj)
					w.abort()
				}
			}
		}
	}
	w.buf = nil
}

//
// benchmark: FIFO - stat/read/delete the oldest objects of one peer
// while creating new objects for another
//

func (w *worker) runBenchmark(s *stats.Phase) {
	var (
		cfg        = w.cfg
		pos        = -1
		startIndex = w.currentIndex
		totalNum   = cfg.Num
		armed      = cfg.StonewallTimer > 0
		f          int
	)
	w.buf = w.newPayload()

	for f = 0; f < totalNum; f++ {
		var benchRuntime float64 // time since phase start, sampled during the last op
		for d := 0; d < cfg.DsetCount; d++ {
			pos++
			prev := f + startIndex

			readRank := (w.rank - cfg.Offset*(d+1)) % w.size
			if readRank < 0 {
				readRank += w.size
			}
			obj, err := w.be.DefObjName(readRank, d, prev)
			if err != nil {
				s.ObjName.Err++
				continue
			}
			dset, _ := w.be.DefDsetName(readRank, d)

			opStart := mono.NanoTime()
			ret := w.be.StatObj(w.ctx, dset, obj, cfg.ObjectSize)
			s.AddTimed(stats.KindStat, opStart, pos)

			if nlog.V(2) {
				nlog.Infof("%d: stat %s:%s (%s)", w.rank, dset, obj, ret)
			}

			if ret.IsErr() {
				if nlog.V(1) {
					nlog.Errorf("%d: error while stating the obj: %s:%s", w.rank, dset, obj)
				}
				s.ObjStat.Err++
				continue
			}
			if ret == backend.OK {
				s.ObjStat.Suc++
			}

			if nlog.V(2) {
				nlog.Infof("%d: read %s:%s", w.rank, dset, obj)
			}

			opStart = mono.NanoTime()
			ret = w.be.ReadObj(w.ctx, dset, obj, w.buf)
			benchRuntime = s.AddTimed(stats.KindRead, opStart, pos)

			switch ret {
			case backend.OK:
				if cfg.VerifyRead && !w.verifyPayload() {
					nlog.Errorf("%d: payload verification failed: %s:%s", w.rank, dset, obj)
					s.ObjRead.Err++
				} else {
					s.ObjRead.Suc++
				}
			case backend.NOOP:
				// nothing to do
			case backend.ErrFind:
				if nlog.V(1) {
					nlog.Errorf("%d: error while accessing the obj: %s:%s", w.rank, dset, obj)
				}
				s.ObjRead.Err++
			default:
				if nlog.V(1) {
					nlog.Errorf("%d: error while reading the obj: %s:%s", w.rank, dset, obj)
				}
				s.ObjRead.Err++
			}

			if cfg.ReadOnly {
				continue
			}

			opStart = mono.NanoTime()
			ret = w.be.DeleteObj(w.ctx, dset, obj)
			s.AddTimed(stats.KindDelete, opStart, pos)

			if nlog.V(2) {
				nlog.Infof("%d: delete %s:%s (%s)", w.rank, dset, obj, ret)
			}

			switch {
			case ret == backend.NOOP:
				// nothing to do
			case ret == backend.OK:
				s.ObjDelete.Suc++
			default:
				if nlog.V(1) {
					nlog.Errorf("%d: error while deleting the obj: %s:%s", w.rank, dset, obj)
				}
				s.ObjDelete.Err++
			}

			writeRank := (w.rank + cfg.Offset*(d+1)) % w.size
			obj, err = w.be.DefObjName(writeRank, d, prev+cfg.Precreate)
			if err != nil {
				s.ObjName.Err++
				continue
			}
			dset, _ = w.be.DefDsetName(writeRank, d)

			opStart = mono.NanoTime()
			ret = w.be.WriteObj(w.ctx, dset, obj, w.buf)
			benchRuntime = s.AddTimed(stats.KindCreate, opStart, pos)

			if nlog.V(2) {
				nlog.Infof("%d: write %s:%s (%s)", w.rank, dset, obj, ret)
			}

			switch ret {
			case backend.OK:
				s.ObjCreate.Suc++
			case backend.ErrCreate:
				if nlog.V(1) {
					nlog.Errorf("%d: error while creating the obj: %s:%s", w.rank, dset, obj)
				}
				s.ObjCreate.Err++
			case backend.NOOP:
				// do not increment any counter
			default:
				if nlog.V(1) {
					nlog.Errorf("%d: error while writing the obj: %s:%s", w.rank, dset, obj)
				}
				s.ObjCreate.Err++
			}
		}

		if armed && benchRuntime >= float64(cfg.StonewallTimer) {
			if nlog.V(1) {
				nlog.Infof("%d: stonewall runtime %fs (%ds)", w.rank, benchRuntime, cfg.StonewallTimer)
			}
			s.StonewallHit = true
			if !cfg.StonewallWearOut {
				break
			}
			armed = false
			// wear-out mode: agree on the cohort-wide maximum and keep
			// iterating up to it
			total, err := w.ch.AllReduceMax(int64(f))
			if err != nil {
				nlog.Errorf("%d: stonewall all-reduce: %v", w.rank, err)
			} else {
				totalNum = int(total)
			}
			if w.rank == 0 {
				nlog.Infof("stonewall wear out %fs (%d iter)", benchRuntime, totalNum)
			}
		}
	}

	// workers that completed the loop without crossing still owe the
	// cohort their wear-out all-reduce; also re-synchronizes workers
	// that finished exactly at the boundary
	if armed && cfg.StonewallWearOut {
		if _, err := w.ch.AllReduceMax(int64(totalNum)); err != nil {
			nlog.Errorf("%d: stonewall all-reduce: %v", w.rank, err)
		}
		s.StonewallHit = true
	}
	if cfg.StonewallTimer > 0 && !cfg.StonewallWearOut {
		// make stonewall_hit cohort-uniform
		var sh int64
		if s.StonewallHit {
			sh = 1
		}
		hit, err := w.ch.AllReduceMax(sh)
		if err != nil {
			nlog.Errorf("%d: stonewall all-reduce: %v", w.rank, err)
		} else {
			s.StonewallHit = hit > 0
		}
	}

	if !cfg.ReadOnly {
		w.currentIndex += f
	}
	s.Repeats = int64(pos + 1)
	w.buf = nil
}

//
// cleanup: remove this worker's objects (from the current rolling base)
// and datasets
//

func (w *worker) runCleanup(s *stats.Phase, startIndex int) {
	cfg := w.cfg
	pos := -1
	for d := 0; d < cfg.DsetCount; d++ {
		dset, _ := w.be.DefDsetName(w.rank, d)

		for f := 0; f < cfg.Precreate; f++ {
			pos++
			obj, err := w.be.DefObjName(w.rank, d, f+startIndex)
			if err != nil {
				s.ObjName.Err++
				continue
			}

			opStart := mono.NanoTime()
			ret := w.be.DeleteObj(w.ctx, dset, obj)
			s.AddTimed(stats.KindDelete, opStart, pos)

			if nlog.V(2) {
				nlog.Infof("%d: delete %s:%s (%s)", w.rank, dset, obj, ret)
			}

			switch {
			case ret == backend.NOOP:
				// nothing to do
			case ret == backend.OK:
				s.ObjDelete.Suc++
			default:
				if nlog.V(1) {
					nlog.Errorf("%d: error while deleting the obj: %s:%s", w.rank, dset, obj)
				}
				s.ObjDelete.Err++
			}
		}

		ret := w.be.RmDset(w.ctx, dset)
		if nlog.V(2) {
			nlog.Infof("%d: delete dset %s (%s)", w.rank, dset, ret)
		}
		switch {
		case ret == backend.OK:
			s.DsetDelete.Suc++
		case ret != backend.NOOP:
			s.DsetDelete.Err++
		}
	}
}

// a read payload is valid when it is uniformly filled with its leading
// byte (whoever created the object filled it with their own rank)
func (w *worker) verifyPayload() bool {
	if len(w.buf) == 0 {
		return true
	}
	if w.verifySums == nil {
		w.verifySums = make(map[byte]uint64, 4)
	}
	lead := w.buf[0]
	want, ok := w.verifySums[lead]
	if !ok {
		uniform := make([]byte, len(w.buf))
		for i := range uniform {
			uniform[i] = lead
		}
		want = xxhash.Checksum64(uniform)
		w.verifySums[lead] = want
	}
	return xxhash.Checksum64(w.buf) == want
}
