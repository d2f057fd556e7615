package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// DocumentStore persists rendered contract documents.
// Implementations: local filesystem (mock) and S3 compatible buckets.
type DocumentStore interface {
	// Put stores data under key and returns a durable URL for it
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Open returns the stored object. Returns ErrNotFound for unknown keys.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Name identifies the backend in logs
	Name() string
}
