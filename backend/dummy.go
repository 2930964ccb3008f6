// Package backend contains the storage plug-in contract and the plug-ins
// implementing it (dummy, posix, bunt, s3).
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package backend

import (
	"context"
	"fmt"

	"github.com/urfave/cli"
)

// dummy measures pure benchmark overhead: every operation succeeds
// without touching any storage.
type dummybp struct {
	noopDsets bool
}

// interface guard
var _ Backend = (*dummybp)(nil)

func NewDummy() Backend { return &dummybp{} }

func (*dummybp) Name() string { return "dummy" }

func (bp *dummybp) GetOptions() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:        flagName(bp.Name(), "noop-dsets"),
			Usage:       "report NOOP for dataset create/remove (flat-namespace emulation)",
			Destination: &bp.noopDsets,
		},
	}
}

func (*dummybp) Init() error { return nil }
func (*dummybp) Fini() error { return nil }

func (*dummybp) PrepareGlobal(context.Context) Result { return NOOP }
func (*dummybp) PurgeGlobal(context.Context) Result   { return NOOP }

func (*dummybp) DefDsetName(rank, dset int) (string, error) {
	return fmt.Sprintf("%d_%d", rank, dset), nil
}

func (*dummybp) DefObjName(rank, dset, seq int) (string, error) {
	return fmt.Sprintf("%d_%d_%d", rank, dset, seq), nil
}

func (bp *dummybp) CreateDset(context.Context, string) Result {
	if bp.noopDsets {
		return NOOP
	}
	return OK
}

func (bp *dummybp) RmDset(context.Context, string) Result {
	if bp.noopDsets {
		return NOOP
	}
	return OK
}

func (*dummybp) WriteObj(_ context.Context, _, _ string, _ []byte) Result { return OK }
func (*dummybp) ReadObj(_ context.Context, _, _ string, _ []byte) Result  { return OK }
func (*dummybp) StatObj(_ context.Context, _, _ string, _ int) Result     { return OK }
func (*dummybp) DeleteObj(_ context.Context, _, _ string) Result          { return OK }
