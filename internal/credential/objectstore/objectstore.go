// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package objectstore persists credentials as a single object in an
// S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/credential"
)

// minioAPI is the part of *minio.Client the backend calls.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

type clientWrapper struct{ c *minio.Client }

func (w clientWrapper) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return w.c.BucketExists(ctx, bucket) //nolint:wrapcheck // thin adapter
}

func (w clientWrapper) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucket, opts) //nolint:wrapcheck // thin adapter
}

func (w clientWrapper) PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucket, object, r, size, opts) //nolint:wrapcheck // thin adapter
}

func (w clientWrapper) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucket, object, opts)
	if err != nil {
		return nil, err //nolint:wrapcheck // thin adapter
	}
	return obj, nil
}

func (w clientWrapper) StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return w.c.StatObject(ctx, bucket, object, opts) //nolint:wrapcheck // thin adapter
}

// Config locates the credentials object.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	Object        string
	CreateMissing bool
}

// Backend stores the whole table in one object.
type Backend struct {
	api           minioAPI
	bucket        string
	object        string
	format        credential.Format
	createMissing bool
}

// Connect builds a minio client for cfg and makes sure the bucket exists.
func Connect(ctx context.Context, cfg Config) (*Backend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, oops.Code("CREDENTIAL_CONNECT_FAILED").With("endpoint", cfg.Endpoint).Wrap(err)
	}
	return NewWithAPI(ctx, clientWrapper{c: client}, cfg)
}

// NewWithAPI builds a Backend over api.
func NewWithAPI(ctx context.Context, api minioAPI, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" || cfg.Object == "" {
		return nil, oops.Code("CREDENTIAL_INVALID_OBJECT").Errorf("bucket and object name are required")
	}
	b := &Backend{
		api:           api,
		bucket:        cfg.Bucket,
		object:        cfg.Object,
		format:        credential.FormatForPath(cfg.Object),
		createMissing: cfg.CreateMissing,
	}
	if err := b.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) ensureBucket(ctx context.Context) error {
	exists, err := b.api.BucketExists(ctx, b.bucket)
	if err != nil {
		return oops.Code("CREDENTIAL_CONNECT_FAILED").With("bucket", b.bucket).With("operation", "bucket exists").Wrap(err)
	}
	if exists {
		return nil
	}
	if err := b.api.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
		return oops.Code("CREDENTIAL_CONNECT_FAILED").With("bucket", b.bucket).With("operation", "make bucket").Wrap(err)
	}
	return nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

// Load downloads and decodes the credentials object.
func (b *Backend) Load(ctx context.Context) (credential.Credentials, error) {
	if _, err := b.api.StatObject(ctx, b.bucket, b.object, minio.StatObjectOptions{}); err != nil {
		if !isNotFound(err) {
			return nil, oops.Code(credential.CodeLoadFailed).With("object", b.object).With("operation", "stat").Wrap(err)
		}
		if !b.createMissing {
			return nil, oops.Code(credential.CodeMissing).With("bucket", b.bucket).With("object", b.object).Wrap(err)
		}
		if err := b.Save(ctx, credential.Credentials{}); err != nil {
			return nil, err
		}
		return credential.Credentials{}, nil
	}

	obj, err := b.api.GetObject(ctx, b.bucket, b.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, oops.Code(credential.CodeLoadFailed).With("object", b.object).With("operation", "get").Wrap(err)
	}
	defer func() { _ = obj.Close() }() //nolint:errcheck // read-only

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, oops.Code(credential.CodeLoadFailed).With("object", b.object).With("operation", "read").Wrap(err)
	}
	creds, err := credential.Decode(b.format, data)
	if err != nil {
		return nil, oops.With("object", b.object).Wrap(err)
	}
	return creds, nil
}

// Save uploads creds, replacing the object.
func (b *Backend) Save(ctx context.Context, creds credential.Credentials) error {
	data, err := credential.Encode(b.format, creds)
	if err != nil {
		return err
	}
	contentType := "application/json"
	if b.format == credential.FormatYAML {
		contentType = "application/yaml"
	}
	_, err = b.api.PutObject(ctx, b.bucket, b.object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return oops.Code(credential.CodeSaveFailed).With("object", b.object).Wrap(err)
	}
	return nil
}
