package images

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// PublicUploadPrefix is the URL prefix the server serves local uploads under.
const PublicUploadPrefix = "/uploads"

// LocalUploader writes images to durable local storage. Locators are paths
// under PublicUploadPrefix.
type LocalUploader struct {
	dir string
}

func NewLocalUploader(dir string) *LocalUploader {
	return &LocalUploader{dir: dir}
}

func (u *LocalUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path := filepath.Join(u.dir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}

	return PublicUploadPrefix + "/" + key, nil
}
