// Package cohort provides the collective transport for the benchmark.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package cohort

import (
	"golang.org/x/sync/errgroup"
)

// RunWorkers drives one goroutine per in-proc rank and waits for the
// cohort to finish. An Abort panic is converted back to its *ErrAbort;
// any other panic is a bug and propagates.
func RunWorkers(handles []*InProc, fn func(Cohort) error) error {
	var g errgroup.Group
	for _, h := range handles {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					ea, ok := r.(*ErrAbort)
					if !ok {
						panic(r)
					}
					err = ea
				}
			}()
			return fn(h)
		})
	}
	return g.Wait()
}
