// Package backend contains the storage plug-in contract and the plug-ins
// implementing it (dummy, posix, bunt, s3).
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/NVIDIA/mdbench/cmn/nlog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/urfave/cli"
)

// s3: dataset = key prefix under a single bucket, object = key
// `<dset>/obj-<seq>`. The namespace is flat - dataset create/remove are
// NOOP; the bucket itself is created by rank 0 in PrepareGlobal and
// removed in PurgeGlobal.
type s3bp struct {
	client    *s3.Client
	bucket    string
	endpoint  string
	region    string
	pathStyle bool
}

// interface guard
var _ Backend = (*s3bp)(nil)

func NewS3() Backend { return &s3bp{} }

func (*s3bp) Name() string { return "s3" }

func (bp *s3bp) GetOptions() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:        flagName(bp.Name(), "bucket"),
			Usage:       "bucket holding all datasets and objects",
			Value:       "mdbench",
			Destination: &bp.bucket,
		},
		cli.StringFlag{
			Name:        flagName(bp.Name(), "endpoint"),
			Usage:       "custom S3 endpoint (e.g. a local minio)",
			Destination: &bp.endpoint,
		},
		cli.StringFlag{
			Name:        flagName(bp.Name(), "region"),
			Usage:       "bucket region",
			Value:       "us-east-1",
			Destination: &bp.region,
		},
		cli.BoolFlag{
			Name:        flagName(bp.Name(), "path-style"),
			Usage:       "use path-style addressing (required by most non-AWS endpoints)",
			Destination: &bp.pathStyle,
		},
	}
}

func (bp *s3bp) Init() error {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(bp.region))
	if err != nil {
		return err
	}
	bp.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if bp.endpoint != "" {
			o.BaseEndpoint = aws.String(bp.endpoint)
		}
		o.UsePathStyle = bp.pathStyle
	})
	return nil
}

func (*s3bp) Fini() error { return nil }

// map (and log) s3 errors; `notFound` is the Result to use for 404s
func s3ErrToResult(err error, notFound Result) Result {
	var aerr smithy.APIError
	if errors.As(err, &aerr) {
		switch aerr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return notFound
		}
	}
	var rerr smithyhttpResponseError
	if errors.As(err, &rerr) && rerr.HTTPStatusCode() == http.StatusNotFound {
		return notFound
	}
	if nlog.V(1) {
		nlog.Errorf("s3-error[%v]", err)
	}
	return ErrOther
}

// the subset of smithy's http.ResponseError we rely on (avoids importing
// transport/http just for the status code)
type smithyhttpResponseError interface {
	error
	HTTPStatusCode() int
}

func (bp *s3bp) PrepareGlobal(ctx context.Context) Result {
	_, err := bp.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bp.bucket)})
	if err != nil {
		var aerr smithy.APIError
		if errors.As(err, &aerr) {
			switch aerr.ErrorCode() {
			case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
				return NOOP
			}
		}
		nlog.Errorf("s3: create bucket %q: %v", bp.bucket, err)
		return ErrOther
	}
	return OK
}

func (bp *s3bp) PurgeGlobal(ctx context.Context) Result {
	_, err := bp.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bp.bucket)})
	if err != nil {
		nlog.Errorf("s3: delete bucket %q: %v", bp.bucket, err)
		return ErrOther
	}
	return OK
}

func (*s3bp) DefDsetName(rank, dset int) (string, error) {
	return fmt.Sprintf("%d_%d", rank, dset), nil
}

func (*s3bp) DefObjName(_, _, seq int) (string, error) {
	return fmt.Sprintf("obj-%d", seq), nil
}

// flat namespace
func (*s3bp) CreateDset(context.Context, string) Result { return NOOP }
func (*s3bp) RmDset(context.Context, string) Result     { return NOOP }

func s3Key(dset, obj string) string { return dset + "/" + obj }

func (bp *s3bp) WriteObj(ctx context.Context, dset, obj string, buf []byte) Result {
	_, err := bp.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bp.bucket),
		Key:           aws.String(s3Key(dset, obj)),
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(int64(len(buf))),
	})
	if err != nil {
		return s3ErrToResult(err, ErrCreate)
	}
	return OK
}

func (bp *s3bp) ReadObj(ctx context.Context, dset, obj string, buf []byte) Result {
	out, err := bp.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bp.bucket),
		Key:    aws.String(s3Key(dset, obj)),
	})
	if err != nil {
		return s3ErrToResult(err, ErrFind)
	}
	_, err = io.ReadFull(out.Body, buf)
	out.Body.Close()
	if err != nil {
		return ErrOther
	}
	return OK
}

func (bp *s3bp) StatObj(ctx context.Context, dset, obj string, size int) Result {
	out, err := bp.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bp.bucket),
		Key:    aws.String(s3Key(dset, obj)),
	})
	if err != nil {
		return s3ErrToResult(err, ErrFind)
	}
	if out.ContentLength != nil && *out.ContentLength != int64(size) {
		return ErrOther
	}
	return OK
}

func (bp *s3bp) DeleteObj(ctx context.Context, dset, obj string) Result {
	_, err := bp.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bp.bucket),
		Key:    aws.String(s3Key(dset, obj)),
	})
	if err != nil {
		return s3ErrToResult(err, ErrFind)
	}
	return OK
}
