// Package storage persists processed tables. Writers are atomic: an
// artifact is either absent or complete, so an existence check is enough to
// decide whether a table still needs processing.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var ErrNotFound = errors.New("artifact not found")

// Driver identifies a concrete backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Store holds finalized output artifacts addressed by slash-separated keys.
type Store interface {
	// Exists reports whether a finalized artifact is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Put streams an artifact through write and publishes it only if write
	// and the upload both succeed.
	Put(ctx context.Context, key string, write func(io.Writer) error) error
	// Get returns the artifact content or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Location renders a key for logs.
	Location(key string) string
	Driver() Driver
}

// Open picks a backend from the output location: s3://bucket/prefix or a
// local directory.
func Open(ctx context.Context, location string, s3cfg S3Config) (Store, error) {
	if strings.HasPrefix(location, "s3://") {
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
		s3cfg.Bucket = bucket
		s3cfg.Prefix = prefix
		return NewS3Store(ctx, s3cfg)
	}
	return NewFileStore(location)
}
