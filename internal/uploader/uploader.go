// Package uploader copies finished run directories to object storage.
package uploader

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"schemaanalyst/internal/config"

	"github.com/pkg/errors"
)

// Uploader copies a run directory and returns the location it was copied to.
type Uploader interface {
	Enabled() bool
	UploadDir(ctx context.Context, dir string) (string, error)
}

// NoopUploader is used when no storage backend is configured.
type NoopUploader struct{}

// Enabled implements Uploader.
func (NoopUploader) Enabled() bool { return false }

// UploadDir implements Uploader.
func (NoopUploader) UploadDir(context.Context, string) (string, error) { return "", nil }

// New returns the uploader for the first enabled backend, GCS before S3.
func New(ctx context.Context, storage config.StorageConfig) (Uploader, error) {
	switch {
	case storage.GCS.Enabled:
		return NewGCS(ctx, storage.GCS)
	case storage.S3.Enabled:
		return NewS3(ctx, storage.S3)
	default:
		return NoopUploader{}, nil
	}
}

// putFunc stores the file at path under key.
type putFunc func(ctx context.Context, path, key string) error

// uploadTree stores every file below dir under <prefix>/<base of dir>/ and
// returns that object prefix.
func uploadTree(ctx context.Context, dir, prefix string, put putFunc) (string, error) {
	root := objectRoot(prefix, dir)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := root + filepath.ToSlash(rel)
		return errors.Wrapf(put(ctx, path, key), "upload %s", key)
	})
	if err != nil {
		return "", err
	}
	return root, nil
}

// contentType maps report artifacts to the MIME type stored with the object.
func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".sql":
		return "application/sql"
	case ".json":
		return "application/json"
	case ".zst":
		return "application/zstd"
	case ".prom", ".txt", ".log":
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}

func objectRoot(prefix, dir string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return prefix + filepath.Base(dir) + "/"
}
