// Package backend contains the storage plug-in contract and the plug-ins
// implementing it.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package backend_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/NVIDIA/mdbench/backend"
	"github.com/NVIDIA/mdbench/tools/tassert"
)

func TestBuntRoundTrip(t *testing.T) {
	be, err := backend.New("bunt")
	tassert.CheckFatal(t, err)
	tassert.CheckFatal(t, be.Init())
	defer be.Fini()

	ctx := context.Background()
	tassert.Fatalf(t, !be.PrepareGlobal(ctx).IsErr(), "prepare failed")

	dset, err := be.DefDsetName(2, 1)
	tassert.CheckFatal(t, err)
	obj, err := be.DefObjName(2, 1, 0)
	tassert.CheckFatal(t, err)

	payload := bytes.Repeat([]byte{2}, 64)

	// writing into a dataset that does not exist yet
	tassert.Errorf(t, be.WriteObj(ctx, dset, obj, payload) == backend.ErrCreate, "expected ERROR_CREATE without the dataset")

	tassert.Fatalf(t, be.CreateDset(ctx, dset) == backend.OK, "create dset")
	tassert.Fatalf(t, be.WriteObj(ctx, dset, obj, payload) == backend.OK, "write")

	tassert.Errorf(t, be.StatObj(ctx, dset, obj, 64) == backend.OK, "stat")
	tassert.Errorf(t, be.StatObj(ctx, dset, obj, 63) == backend.ErrOther, "stat with wrong size must fail")
	tassert.Errorf(t, be.StatObj(ctx, dset, "obj-404", 64) == backend.ErrFind, "stat of a missing object")

	buf := make([]byte, 64)
	tassert.Fatalf(t, be.ReadObj(ctx, dset, obj, buf) == backend.OK, "read")
	tassert.Errorf(t, bytes.Equal(buf, payload), "payload mismatch")
	tassert.Errorf(t, be.ReadObj(ctx, dset, "obj-404", buf) == backend.ErrFind, "read of a missing object")

	tassert.Errorf(t, be.DeleteObj(ctx, dset, obj) == backend.OK, "delete")
	tassert.Errorf(t, be.DeleteObj(ctx, dset, obj) == backend.ErrFind, "double delete")

	tassert.Errorf(t, be.RmDset(ctx, dset) == backend.OK, "rm dset")
	tassert.Fatalf(t, !be.PurgeGlobal(ctx).IsErr(), "purge failed")
}
