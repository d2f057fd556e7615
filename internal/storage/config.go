package storage

import (
	"fmt"
	"log/slog"

	"fleet-erp-backend/internal/config"
)

// New builds the document store described by the storage config section
func New(cfg config.StorageConfig, log *slog.Logger) (DocumentStore, error) {
	switch cfg.Type {
	case "mock", "":
		mock, err := NewMockStorageService(cfg.BaseURL, cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return mock, nil
	case "s3":
		primary, err := newFromS3Config(cfg.Primary, log)
		if err != nil {
			return nil, fmt.Errorf("primary storage: %w", err)
		}
		if !cfg.Fallback.Enabled() {
			return primary, nil
		}
		secondary, err := newFromS3Config(cfg.Fallback, log)
		if err != nil {
			return nil, fmt.Errorf("fallback storage: %w", err)
		}
		return NewFallbackStore(primary, secondary, DefaultFallbackPrefix, log), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func newFromS3Config(c config.S3Config, log *slog.Logger) (*S3Backend, error) {
	return NewS3Backend(c.Bucket, c.Prefix, c.Region, c.Endpoint, c.AccessKey, c.SecretKey, c.PublicURL, log)
}
