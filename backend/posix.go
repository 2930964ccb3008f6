// Package backend contains the storage plug-in contract and the plug-ins
// implementing it (dummy, posix, bunt, s3).
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/NVIDIA/mdbench/cmn/cos"
	"github.com/NVIDIA/mdbench/cmn/nlog"

	"github.com/urfave/cli"
)

// posix: dataset = directory `<root>/<rank>_<dset>`, object = regular
// file `file-<seq>` within it.
type posixbp struct {
	root string
}

// interface guard
var _ Backend = (*posixbp)(nil)

func NewPosix() Backend { return &posixbp{} }

func (*posixbp) Name() string { return "posix" }

func (bp *posixbp) GetOptions() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:        flagName(bp.Name(), "root"),
			Usage:       "directory under which datasets and objects are created",
			Value:       "out",
			Destination: &bp.root,
		},
	}
}

func (bp *posixbp) Init() error {
	bp.root = cos.Right("out", bp.root)
	return nil
}

func (*posixbp) Fini() error { return nil }

func (bp *posixbp) PrepareGlobal(context.Context) Result {
	if err := os.MkdirAll(bp.root, 0o755); err != nil {
		nlog.Errorf("posix: create root %q: %v", bp.root, err)
		return ErrOther
	}
	return OK
}

func (bp *posixbp) PurgeGlobal(context.Context) Result {
	if err := os.Remove(bp.root); err != nil {
		nlog.Errorf("posix: remove root %q: %v", bp.root, err)
		return ErrOther
	}
	return OK
}

func (bp *posixbp) DefDsetName(rank, dset int) (string, error) {
	return filepath.Join(bp.root, fmt.Sprintf("%d_%d", rank, dset)), nil
}

func (*posixbp) DefObjName(_, _, seq int) (string, error) {
	return fmt.Sprintf("file-%d", seq), nil
}

func (*posixbp) CreateDset(_ context.Context, dset string) Result {
	if err := os.Mkdir(dset, 0o755); err != nil {
		return ErrOther
	}
	return OK
}

func (*posixbp) RmDset(_ context.Context, dset string) Result {
	if err := os.Remove(dset); err != nil {
		return ErrOther
	}
	return OK
}

func (*posixbp) WriteObj(_ context.Context, dset, obj string, buf []byte) Result {
	fh, err := os.OpenFile(filepath.Join(dset, obj), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return ErrCreate
	}
	_, err = fh.Write(buf)
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return ErrOther
	}
	return OK
}

func (*posixbp) ReadObj(_ context.Context, dset, obj string, buf []byte) Result {
	fh, err := os.Open(filepath.Join(dset, obj))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrFind
		}
		return ErrOther
	}
	_, err = io.ReadFull(fh, buf)
	fh.Close()
	if err != nil {
		return ErrOther
	}
	return OK
}

func (*posixbp) StatObj(_ context.Context, dset, obj string, size int) Result {
	finfo, err := os.Stat(filepath.Join(dset, obj))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrFind
		}
		return ErrOther
	}
	if finfo.Size() != int64(size) {
		return ErrOther
	}
	return OK
}

func (*posixbp) DeleteObj(_ context.Context, dset, obj string) Result {
	if err := os.Remove(filepath.Join(dset, obj)); err != nil {
		if os.IsNotExist(err) {
			return ErrFind
		}
		return ErrOther
	}
	return OK
}
