// Package backend contains the storage plug-in contract and the plug-ins
// implementing it (dummy, posix, bunt, s3).
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package backend

import (
	"context"
	"fmt"

	"github.com/NVIDIA/mdbench/cmn/nlog"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/buntdb"
	"github.com/urfave/cli"
)

// bunt: embedded key/value database backend (tidwall/buntdb); dataset =
// key prefix, object = JSON-encoded record under `o:<dset>:<obj>`.
type (
	buntbp struct {
		db   *buntdb.DB
		path string
	}
	buntRec struct {
		Size int    `json:"size"`
		Data []byte `json:"data"`
	}
)

// interface guard
var _ Backend = (*buntbp)(nil)

var bjson = jsoniter.ConfigCompatibleWithStandardLibrary

func NewBunt() Backend { return &buntbp{} }

func (*buntbp) Name() string { return "bunt" }

func (bp *buntbp) GetOptions() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:        flagName(bp.Name(), "path"),
			Usage:       "database file (`:memory:` for a non-persistent run)",
			Value:       ":memory:",
			Destination: &bp.path,
		},
	}
}

func (bp *buntbp) Init() (err error) {
	if bp.path == "" {
		bp.path = ":memory:"
	}
	bp.db, err = buntdb.Open(bp.path)
	return err
}

func (bp *buntbp) Fini() error {
	if bp.db == nil {
		return nil
	}
	return bp.db.Close()
}

func (*buntbp) PrepareGlobal(context.Context) Result { return NOOP }

func (bp *buntbp) PurgeGlobal(context.Context) Result {
	err := bp.db.Update(func(tx *buntdb.Tx) error { return tx.DeleteAll() })
	if err != nil {
		nlog.Errorf("bunt: purge: %v", err)
		return ErrOther
	}
	return OK
}

func (*buntbp) DefDsetName(rank, dset int) (string, error) {
	return fmt.Sprintf("%d_%d", rank, dset), nil
}

func (*buntbp) DefObjName(_, _, seq int) (string, error) {
	return fmt.Sprintf("obj-%d", seq), nil
}

func dsetKey(dset string) string     { return "d:" + dset }
func objKey(dset, obj string) string { return "o:" + dset + ":" + obj }

func (bp *buntbp) CreateDset(_ context.Context, dset string) Result {
	err := bp.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(dsetKey(dset), "1", nil)
		return err
	})
	if err != nil {
		return ErrOther
	}
	return OK
}

func (bp *buntbp) RmDset(_ context.Context, dset string) Result {
	err := bp.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(dsetKey(dset))
		return err
	})
	if err != nil {
		return ErrOther
	}
	return OK
}

func (bp *buntbp) WriteObj(_ context.Context, dset, obj string, buf []byte) Result {
	val, err := bjson.Marshal(&buntRec{Size: len(buf), Data: buf})
	if err != nil {
		return ErrOther
	}
	err = bp.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(dsetKey(dset)); err != nil {
			return err
		}
		_, _, err := tx.Set(objKey(dset, obj), string(val), nil)
		return err
	})
	if err == buntdb.ErrNotFound {
		return ErrCreate // dataset missing
	}
	if err != nil {
		return ErrOther
	}
	return OK
}

func (bp *buntbp) ReadObj(_ context.Context, dset, obj string, buf []byte) Result {
	var rec buntRec
	err := bp.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(objKey(dset, obj))
		if err != nil {
			return err
		}
		return bjson.Unmarshal([]byte(val), &rec)
	})
	if err == buntdb.ErrNotFound {
		return ErrFind
	}
	if err != nil || rec.Size != len(buf) {
		return ErrOther
	}
	copy(buf, rec.Data)
	return OK
}

func (bp *buntbp) StatObj(_ context.Context, dset, obj string, size int) Result {
	var rec buntRec
	err := bp.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(objKey(dset, obj))
		if err != nil {
			return err
		}
		return bjson.Unmarshal([]byte(val), &rec)
	})
	if err == buntdb.ErrNotFound {
		return ErrFind
	}
	if err != nil || rec.Size != size {
		return ErrOther
	}
	return OK
}

func (bp *buntbp) DeleteObj(_ context.Context, dset, obj string) Result {
	err := bp.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(objKey(dset, obj))
		return err
	})
	if err == buntdb.ErrNotFound {
		return ErrFind
	}
	if err != nil {
		return ErrOther
	}
	return OK
}
