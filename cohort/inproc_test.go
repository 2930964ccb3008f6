// Package cohort provides the collective transport for the benchmark.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package cohort_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/NVIDIA/mdbench/cohort"
	"github.com/NVIDIA/mdbench/tools/tassert"
)

func TestInProcReduce(t *testing.T) {
	const size = 5
	handles := cohort.NewInProcGroup(size)
	err := cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		rank := int64(c.Rank())

		sum, err := c.ReduceInts([]int64{rank, 1}, cohort.OpSum, 0)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			if sum[0] != 0+1+2+3+4 || sum[1] != size {
				return fmt.Errorf("bad sum: %v", sum)
			}
		} else if sum != nil {
			return fmt.Errorf("non-root got a reduction: %v", sum)
		}

		mx, err := c.ReduceFloats([]float64{float64(rank)}, cohort.OpMax, 0)
		if err != nil {
			return err
		}
		if c.Rank() == 0 && mx[0] != size-1 {
			return fmt.Errorf("bad max: %v", mx)
		}

		mn, err := c.ReduceInts([]int64{rank + 10}, cohort.OpMin, 0)
		if err != nil {
			return err
		}
		if c.Rank() == 0 && mn[0] != 10 {
			return fmt.Errorf("bad min: %v", mn)
		}
		return nil
	})
	tassert.CheckFatal(t, err)
}

func TestInProcGatherAllReduce(t *testing.T) {
	const size = 4
	handles := cohort.NewInProcGroup(size)
	err := cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		vec, err := c.GatherFloat(float64(c.Rank())*2, 0)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			for r, v := range vec {
				if v != float64(r)*2 {
					return fmt.Errorf("gather[%d] = %v", r, v)
				}
			}
		}

		// every rank must see the cohort-wide maximum
		got, err := c.AllReduceMax(int64(c.Rank()))
		if err != nil {
			return err
		}
		if got != size-1 {
			return fmt.Errorf("rank %d: allreduce max = %d", c.Rank(), got)
		}
		return nil
	})
	tassert.CheckFatal(t, err)
}

func TestInProcBarrierOrdering(t *testing.T) {
	const size = 8
	var before, after atomic.Int32
	handles := cohort.NewInProcGroup(size)
	err := cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		before.Add(1)
		c.Barrier()
		if n := before.Load(); n != size {
			return fmt.Errorf("rank %d passed the barrier with only %d arrivals", c.Rank(), n)
		}
		after.Add(1)
		return nil
	})
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, after.Load() == size, "only %d workers finished", after.Load())
}

func TestInProcSendRecv(t *testing.T) {
	const (
		size = 3
		tag  = 4711
	)
	handles := cohort.NewInProcGroup(size)
	err := cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		if c.Rank() == 0 {
			for src := 1; src < size; src++ {
				b, err := c.Recv(src, tag)
				if err != nil {
					return err
				}
				want := fmt.Sprintf("hello from %d", src)
				if string(b) != want {
					return fmt.Errorf("got %q, want %q", b, want)
				}
			}
			return nil
		}
		return c.Send(0, tag, []byte(fmt.Sprintf("hello from %d", c.Rank())))
	})
	tassert.CheckFatal(t, err)
}

func TestInProcAbort(t *testing.T) {
	const size = 4
	handles := cohort.NewInProcGroup(size)
	err := cohort.RunWorkers(handles, func(c cohort.Cohort) error {
		if c.Rank() == 2 {
			c.Abort(7)
		}
		c.Barrier() // everyone else is woken out of the barrier
		return nil
	})
	ea, ok := err.(*cohort.ErrAbort)
	tassert.Fatalf(t, ok, "expected *ErrAbort, got %v", err)
	tassert.Errorf(t, ea.Code == 7, "code = %d", ea.Code)
	tassert.Errorf(t, ea.Rank == 2, "rank = %d", ea.Rank)
}
