package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"
)

// DefaultFallbackPrefix marks documents that landed on the secondary store
const DefaultFallbackPrefix = "fallback"

// FallbackStore writes to the primary store and, when that fails, to the
// secondary store under a separate prefix so misplaced documents are easy to find.
type FallbackStore struct {
	primary   DocumentStore
	secondary DocumentStore
	prefix    string
	log       *slog.Logger
}

func NewFallbackStore(primary, secondary DocumentStore, prefix string, log *slog.Logger) *FallbackStore {
	if log == nil {
		log = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultFallbackPrefix
	}
	return &FallbackStore{primary: primary, secondary: secondary, prefix: prefix, log: log}
}

func (f *FallbackStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	start := time.Now()
	url, err := f.primary.Put(ctx, key, data, contentType)
	if err == nil {
		return url, nil
	}
	f.log.Warn("Primary document store failed, trying fallback",
		slog.String("backend_name", f.primary.Name()),
		slog.String("key", key),
		"err", err)

	url, ferr := f.secondary.Put(ctx, path.Join(f.prefix, key), data, contentType)
	if ferr != nil {
		f.log.Error("All document stores failed",
			slog.String("key", key),
			slog.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("all document stores failed: %w", errors.Join(err, ferr))
	}

	f.log.Info("Stored document in fallback store",
		slog.String("backend_name", f.secondary.Name()),
		slog.String("key", key),
		slog.Duration("duration", time.Since(start)))
	return url, nil
}

// Open looks up the key on the primary and then on the fallback path
func (f *FallbackStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := f.primary.Open(ctx, key)
	if err == nil {
		return rc, nil
	}
	rc, ferr := f.secondary.Open(ctx, path.Join(f.prefix, key))
	if ferr == nil {
		return rc, nil
	}
	if errors.Is(err, ErrNotFound) && errors.Is(ferr, ErrNotFound) {
		return nil, ErrNotFound
	}
	return nil, errors.Join(err, ferr)
}

func (f *FallbackStore) Name() string {
	return fmt.Sprintf("fallback[%s,%s]", f.primary.Name(), f.secondary.Name())
}
