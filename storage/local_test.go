package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func newTestLocalStorage(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	baseDir := t.TempDir()
	storage, err := NewLocalStorage(baseDir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage, baseDir
}

func TestNewLocalStorage(t *testing.T) {
	tests := []struct {
		name      string
		baseDir   string
		wantError bool
	}{
		{name: "valid base directory", baseDir: t.TempDir()},
		{name: "creates non-existent directory", baseDir: filepath.Join(t.TempDir(), "reports", "store")},
		{name: "empty base directory", baseDir: "", wantError: true},
		{name: "blank base directory", baseDir: "   ", wantError: true},
		{name: "dot as base directory", baseDir: ".", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := NewLocalStorage(tt.baseDir)
			if tt.wantError {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info, err := os.Stat(tt.baseDir); err != nil || !info.IsDir() {
				t.Errorf("base directory was not created: %v", err)
			}
			if storage == nil {
				t.Fatal("expected storage but got nil")
			}
		})
	}
}

func TestLocalStorage_UploadAndDownload(t *testing.T) {
	ctx := context.Background()
	storage, baseDir := newTestLocalStorage(t)

	tests := []struct {
		name      string
		key       string
		content   string
		wantError bool
	}{
		{name: "top level report", key: "report.json", content: `{"ok":true}`},
		{name: "nested report", key: "reports/2026/run.json", content: "nested"},
		{name: "redundant segments are cleaned", key: "reports/./x/../y.json", content: "clean"},
		{name: "empty key", key: "", wantError: true},
		{name: "absolute key", key: "/etc/passwd", wantError: true},
		{name: "path traversal attempt", key: "../outside.json", wantError: true},
		{name: "nested traversal attempt", key: "reports/../../outside.json", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storage.Upload(ctx, tt.key, strings.NewReader(tt.content))
			if tt.wantError {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			rc, err := storage.Download(ctx, tt.key)
			if err != nil {
				t.Fatalf("download failed: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if string(got) != tt.content {
				t.Errorf("content mismatch: got %q, want %q", got, tt.content)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(baseDir, "reports", "y.json")); err != nil {
		t.Errorf("cleaned key was not stored at its canonical path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(baseDir), "outside.json")); !os.IsNotExist(err) {
		t.Error("traversal upload escaped the base directory")
	}
}

func TestLocalStorage_UploadOverwrites(t *testing.T) {
	ctx := context.Background()
	storage, baseDir := newTestLocalStorage(t)

	for _, content := range []string{"first version", "second"} {
		if err := storage.Upload(ctx, "run.json", strings.NewReader(content)); err != nil {
			t.Fatalf("upload failed: %v", err)
		}
	}

	got, err := os.ReadFile(filepath.Join(baseDir, "run.json"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("got %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the stored file, found %d entries", len(entries))
	}
}

func TestLocalStorage_DownloadMissing(t *testing.T) {
	storage, _ := newTestLocalStorage(t)

	_, err := storage.Download(context.Background(), "missing.json")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestLocalStorage_DeleteAndExists(t *testing.T) {
	ctx := context.Background()
	storage, _ := newTestLocalStorage(t)

	if err := storage.Upload(ctx, "reports/a.json", strings.NewReader("a")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	exists, err := storage.Exists(ctx, "reports/a.json")
	if err != nil || !exists {
		t.Fatalf("expected file to exist, got %v, %v", exists, err)
	}

	exists, err = storage.Exists(ctx, "reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("a directory should not count as an existing key")
	}

	if err := storage.Delete(ctx, "reports/a.json"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	exists, err = storage.Exists(ctx, "reports/a.json")
	if err != nil || exists {
		t.Errorf("expected file to be gone, got %v, %v", exists, err)
	}

	if err := storage.Delete(ctx, "reports/a.json"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound on second delete, got %v", err)
	}
	if _, err := storage.Exists(ctx, "../a.json"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

func TestLocalStorage_List(t *testing.T) {
	ctx := context.Background()
	storage, _ := newTestLocalStorage(t)

	for _, key := range []string{"reports/b.json", "reports/a.json", "other/c.json", "reports-old/d.json"} {
		if err := storage.Upload(ctx, key, strings.NewReader(key)); err != nil {
			t.Fatalf("upload %s failed: %v", key, err)
		}
	}

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{name: "everything", prefix: "", want: []string{"other/c.json", "reports-old/d.json", "reports/a.json", "reports/b.json"}},
		{name: "directory prefix", prefix: "reports/", want: []string{"reports/a.json", "reports/b.json"}},
		{name: "bare prefix matches siblings", prefix: "reports", want: []string{"reports-old/d.json", "reports/a.json", "reports/b.json"}},
		{name: "no match", prefix: "missing/", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.List(ctx, tt.prefix)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("List(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}

	if _, err := storage.List(ctx, "../"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

func TestLocalStorage_GetURL(t *testing.T) {
	ctx := context.Background()
	storage, baseDir := newTestLocalStorage(t)

	if err := storage.Upload(ctx, "reports/run.json", strings.NewReader("{}")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	url, err := storage.GetURL(ctx, "reports/run.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(baseDir, "reports", "run.json"); url != want {
		t.Errorf("got %q, want %q", url, want)
	}

	if _, err := storage.GetURL(ctx, "reports/missing.json"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	storage, _ := newTestLocalStorage(t)

	type report struct {
		RunID  string `json:"run_id"`
		Passed int    `json:"passed"`
	}

	in := report{RunID: "abc", Passed: 15}
	if err := PutJSON(ctx, storage, "reports/abc.json", in); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}

	var out report
	if err := GetJSON(ctx, storage, "reports/abc.json", &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	if err := storage.Upload(ctx, "reports/bad.json", strings.NewReader("not json")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if err := GetJSON(ctx, storage, "reports/bad.json", &out); err == nil {
		t.Error("expected decode error but got none")
	}
	if err := GetJSON(ctx, storage, "reports/none.json", &out); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
	if err := PutJSON(ctx, storage, "reports/chan.json", make(chan int)); err == nil {
		t.Error("expected encode error but got none")
	}
}
