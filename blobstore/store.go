// Package blobstore abstracts where persisted pileups live: local files,
// memory, or S3-compatible object storage.
//
// Persisted pileups are immutable whole blobs, so the interface is a
// plain put/get rather than a random-access reader.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store reads and writes named immutable blobs.
type Store interface {
	// Put writes a blob atomically under name, replacing any previous
	// content.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the full content of the named blob, or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes the named blob. Deleting a missing blob is not an
	// error.
	Delete(ctx context.Context, name string) error
}
