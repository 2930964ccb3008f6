// Package cohort provides the collective transport for the benchmark.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package cohort_test

import (
	"fmt"
	"net"
	"testing"

	"github.com/NVIDIA/mdbench/cohort"
	"github.com/NVIDIA/mdbench/tools/tassert"

	"golang.org/x/sync/errgroup"
)

// reserve a localhost port for the coordinator
func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	tassert.CheckFatal(t, err)
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestTCPCollectives(t *testing.T) {
	const size = 3
	addr := freeAddr(t)

	var g errgroup.Group
	for rank := range size {
		g.Go(func() error {
			c, err := cohort.NewTCP(&cohort.TCPConf{Addr: addr, Rank: rank, Size: size})
			if err != nil {
				return err
			}
			if c.Rank() != rank || c.Size() != size {
				return fmt.Errorf("bad identity: %d/%d", c.Rank(), c.Size())
			}

			c.Barrier()

			sum, err := c.ReduceInts([]int64{int64(rank), 1}, cohort.OpSum, 0)
			if err != nil {
				return err
			}
			if rank == 0 && (sum[0] != 0+1+2 || sum[1] != size) {
				return fmt.Errorf("bad sum: %v", sum)
			}

			vec, err := c.GatherFloat(float64(rank)+0.5, 0)
			if err != nil {
				return err
			}
			if rank == 0 {
				for r, v := range vec {
					if v != float64(r)+0.5 {
						return fmt.Errorf("gather[%d] = %v", r, v)
					}
				}
			}

			mx, err := c.AllReduceMax(int64(rank * 10))
			if err != nil {
				return err
			}
			if mx != (size-1)*10 {
				return fmt.Errorf("rank %d: allreduce max = %d", rank, mx)
			}

			// p2p: everyone reports to rank 0, rank 0 replies to rank 1
			const tag = 4711
			if rank == 0 {
				for src := 1; src < size; src++ {
					b, err := c.Recv(src, tag)
					if err != nil {
						return err
					}
					if string(b) != fmt.Sprintf("report %d", src) {
						return fmt.Errorf("got %q", b)
					}
				}
				if err := c.Send(1, tag, []byte("ack")); err != nil {
					return err
				}
			} else {
				if err := c.Send(0, tag, fmt.Appendf(nil, "report %d", rank)); err != nil {
					return err
				}
				if rank == 1 {
					b, err := c.Recv(0, tag)
					if err != nil {
						return err
					}
					if string(b) != "ack" {
						return fmt.Errorf("got %q", b)
					}
				}
			}

			c.Barrier()
			return nil
		})
	}
	tassert.CheckFatal(t, g.Wait())
}

func TestTCPReduceMaxFloats(t *testing.T) {
	const size = 2
	addr := freeAddr(t)

	var g errgroup.Group
	for rank := range size {
		g.Go(func() error {
			c, err := cohort.NewTCP(&cohort.TCPConf{Addr: addr, Rank: rank, Size: size})
			if err != nil {
				return err
			}
			mx, err := c.ReduceFloats([]float64{float64(rank), -float64(rank)}, cohort.OpMax, 0)
			if err != nil {
				return err
			}
			if rank == 0 && (mx[0] != 1 || mx[1] != 0) {
				return fmt.Errorf("bad max: %v", mx)
			}
			mn, err := c.ReduceFloats([]float64{float64(rank)}, cohort.OpMin, 0)
			if err != nil {
				return err
			}
			if rank == 0 && mn[0] != 0 {
				return fmt.Errorf("bad min: %v", mn)
			}
			return nil
		})
	}
	tassert.CheckFatal(t, g.Wait())
}
