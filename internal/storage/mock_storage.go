package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MockStorageService implements document storage using the local filesystem.
// Files are served back by the API server under /files/{key}.
type MockStorageService struct {
	baseURL    string // Server URL (e.g., "http://localhost:8080")
	uploadsDir string // Local directory for uploads (e.g., "./uploads")
}

// NewMockStorageService creates a new mock storage service
func NewMockStorageService(baseURL, uploadsDir string) (*MockStorageService, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	return &MockStorageService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		uploadsDir: uploadsDir,
	}, nil
}

// Put writes the document to disk and returns its download URL
func (m *MockStorageService) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullPath, err := m.localPath(key)
	if err != nil {
		return "", err
	}

	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	// Write to a temp file first so readers never observe partial documents
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return m.URL(key), nil
}

// Open reads a file from the local filesystem
func (m *MockStorageService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := m.localPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (m *MockStorageService) Name() string {
	return "mock-fs"
}

// URL returns the download URL for a key
func (m *MockStorageService) URL(key string) string {
	escaped := make([]string, 0, 4)
	for _, part := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return fmt.Sprintf("%s/files/%s", m.baseURL, strings.Join(escaped, "/"))
}

// localPath maps a key to a path inside uploadsDir, rejecting traversal
func (m *MockStorageService) localPath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(m.uploadsDir, filepath.FromSlash(key)), nil
}

// ValidateKey rejects empty, absolute and parent-relative keys
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
