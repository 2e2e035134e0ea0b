package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore writes uploads to a directory served by the HTTP layer under
// /uploads. Used when S3 is not configured.
type LocalStore struct {
	dir       string
	publicURL string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("uploads directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalStore{dir: dir, publicURL: "/uploads"}, nil
}

// Dir returns the directory the HTTP layer should serve.
func (l *LocalStore) Dir() string { return l.dir }

func (l *LocalStore) Save(_ context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("no data to upload")
	}
	name := uuid.NewString() + extensionFromContentType(contentType)
	if err := os.WriteFile(filepath.Join(l.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return strings.TrimRight(l.publicURL, "/") + "/" + name, nil
}
