// Package debug provides assertions and helpers for debug builds
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import "fmt"

func Assert(cond bool, a ...any) {
	if !cond {
		if len(a) > 0 {
			panic("assertion failed: " + fmt.Sprint(a...))
		}
		panic("assertion failed")
	}
}

func Assertf(cond bool, f string, a ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(f, a...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
