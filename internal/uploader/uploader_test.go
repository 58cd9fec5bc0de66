package uploader

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"schemaanalyst/internal/config"

	"github.com/pkg/errors"
)

func TestUploadTreeKeys(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run_abc")
	for _, name := range []string{"summary.json", "goals/goal_01.sql"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	var keys []string
	root, err := uploadTree(context.Background(), dir, "/nightly/", func(_ context.Context, _, key string) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if root != "nightly/run_abc/" {
		t.Fatalf("root=%q", root)
	}
	sort.Strings(keys)
	if strings.Join(keys, ",") != "nightly/run_abc/goals/goal_01.sql,nightly/run_abc/summary.json" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestUploadTreeStopsOnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.sql"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	boom := errors.New("boom")
	_, err := uploadTree(context.Background(), dir, "", func(context.Context, string, string) error { return boom })
	if errors.Cause(err) != boom {
		t.Fatalf("expected put error, got %v", err)
	}
}

func TestNewWithoutBackend(t *testing.T) {
	u, err := New(context.Background(), config.StorageConfig{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if u.Enabled() {
		t.Fatalf("noop uploader should be disabled")
	}
	loc, err := u.UploadDir(context.Background(), t.TempDir())
	if err != nil || loc != "" {
		t.Fatalf("noop upload returned %q, %v", loc, err)
	}
	s3u, err := NewS3(context.Background(), config.S3Config{})
	if err != nil || s3u.Enabled() {
		t.Fatalf("disabled s3 uploader: %v", err)
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"run/goal_01_satisfy_all.sql": "application/sql",
		"run/summary.json":            "application/json",
		"run/run.tar.zst":             "application/zstd",
		"run/metrics.prom":            "text/plain; charset=utf-8",
		"run/blob":                    "application/octet-stream",
	}
	for path, want := range cases {
		if got := contentType(path); got != want {
			t.Fatalf("contentType(%s)=%s, want %s", path, got, want)
		}
	}
}
