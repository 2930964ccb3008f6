// Package backend contains the storage plug-in contract and the plug-ins
// implementing it (dummy, posix, bunt, s3).
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package backend

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Result is the closed set of plug-in outcomes. NOOP means the call is
// meaningful for the plug-in taxonomy but there is nothing to do (e.g. a
// flat namespace has no dataset concept) - the engine counts it neither
// as success nor as failure.
type Result int

const (
	OK Result = iota
	NOOP
	ErrOther
	ErrCreate
	ErrFind
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case NOOP:
		return "NOOP"
	case ErrCreate:
		return "ERROR_CREATE"
	case ErrFind:
		return "ERROR_FIND"
	default:
		return "ERROR"
	}
}

// IsErr is true for every member of the taxonomy except OK and NOOP.
func (r Result) IsErr() bool { return r != OK && r != NOOP }

// Backend is the capability bundle every storage plug-in provides.
//
// One instance is created per process; worker goroutines of the in-proc
// cohort share it, so implementations must be safe for concurrent use.
// Init and Fini are invoked exactly once per process by the driver,
// PrepareGlobal/PurgeGlobal only on rank 0 (before precreate and after
// cleanup, respectively).
//
// Dataset and object names must be pure functions of their arguments:
// the peer-routing invariant of the benchmark relies on any two workers
// deriving identical names for the same (owner, dataset, sequence).
type Backend interface {
	Name() string
	GetOptions() []cli.Flag

	Init() error
	Fini() error

	PrepareGlobal(ctx context.Context) Result
	PurgeGlobal(ctx context.Context) Result

	DefDsetName(rank, dset int) (string, error)
	DefObjName(rank, dset, seq int) (string, error)

	CreateDset(ctx context.Context, dset string) Result
	RmDset(ctx context.Context, dset string) Result

	WriteObj(ctx context.Context, dset, obj string, buf []byte) Result
	ReadObj(ctx context.Context, dset, obj string, buf []byte) Result
	StatObj(ctx context.Context, dset, obj string, size int) Result
	DeleteObj(ctx context.Context, dset, obj string) Result
}

// compile-time registry, in listing order
var registry = []func() Backend{
	NewDummy,
	NewPosix,
	NewBunt,
	NewS3,
}

// New returns a fresh instance of the named plug-in.
func New(name string) (Backend, error) {
	for _, ctor := range registry {
		if be := ctor(); be.Name() == name {
			return be, nil
		}
	}
	return nil, errors.Errorf("could not find plugin for interface: %s (available: %v)", name, Names())
}

func Names() (names []string) {
	names = make([]string, 0, len(registry))
	for _, ctor := range registry {
		names = append(names, ctor().Name())
	}
	return names
}

// namespaced plug-in flag, e.g. "posix.root"
func flagName(plugin, opt string) string { return fmt.Sprintf("%s.%s", plugin, opt) }
