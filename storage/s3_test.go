package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/smithy-go"
)

func TestNewS3Storage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		opts      S3Options
		wantError bool
	}{
		{name: "valid configuration", opts: S3Options{Bucket: "mcp-reports", Region: "us-east-1"}},
		{name: "custom endpoint", opts: S3Options{Bucket: "mcp-reports", Region: "us-east-1", Endpoint: "http://localhost:9000"}},
		{name: "empty bucket", opts: S3Options{Region: "us-east-1"}, wantError: true},
		{name: "empty region", opts: S3Options{Bucket: "mcp-reports"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := NewS3Storage(ctx, tt.opts)
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if storage.bucket != tt.opts.Bucket {
				t.Errorf("bucket = %q, want %q", storage.bucket, tt.opts.Bucket)
			}
			if storage.presignExpiration != 15*time.Minute {
				t.Errorf("presignExpiration = %v, want 15m", storage.presignExpiration)
			}
		})
	}
}

func TestS3Storage_KeyValidation(t *testing.T) {
	ctx := context.Background()
	storage, err := NewS3Storage(ctx, S3Options{Bucket: "mcp-reports", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	// Invalid keys must be rejected before any request is made.
	for _, key := range []string{"", "/abs.json", "../up.json"} {
		if err := storage.Upload(ctx, key, nil); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Upload(%q): expected ErrInvalidPath, got %v", key, err)
		}
		if _, err := storage.Download(ctx, key); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Download(%q): expected ErrInvalidPath, got %v", key, err)
		}
		if err := storage.Delete(ctx, key); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Delete(%q): expected ErrInvalidPath, got %v", key, err)
		}
		if _, err := storage.Exists(ctx, key); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Exists(%q): expected ErrInvalidPath, got %v", key, err)
		}
		if _, err := storage.GetURL(ctx, key); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("GetURL(%q): expected ErrInvalidPath, got %v", key, err)
		}
	}
	if _, err := storage.List(ctx, "../"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("List: expected ErrInvalidPath, got %v", err)
	}
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key       string
		want      string
		wantError bool
	}{
		{key: "reports/run.json", want: "reports/run.json"},
		{key: "reports//run.json", want: "reports/run.json"},
		{key: `reports\run.json`, want: "reports/run.json"},
		{key: "a/../b.json", want: "b.json"},
		{key: "", wantError: true},
		{key: ".", wantError: true},
		{key: "..", wantError: true},
		{key: "/root.json", wantError: true},
		{key: "a/../../b.json", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cleanKey(tt.key)
			if tt.wantError {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("cleanKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestNewBlobStorage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		cfg       Config
		wantType  string
		wantError bool
	}{
		{name: "local storage", cfg: Config{Type: TypeLocal, BaseDir: t.TempDir()}, wantType: "*storage.LocalStorage"},
		{name: "default type is local", cfg: Config{BaseDir: t.TempDir()}, wantType: "*storage.LocalStorage"},
		{name: "type is case insensitive", cfg: Config{Type: "S3", Bucket: "b", Region: "eu-west-1"}, wantType: "*storage.S3Storage"},
		{name: "local without base dir", cfg: Config{Type: TypeLocal}, wantError: true},
		{name: "s3 without bucket", cfg: Config{Type: TypeS3, Region: "eu-west-1"}, wantError: true},
		{name: "unsupported type", cfg: Config{Type: "gcs"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := NewBlobStorage(ctx, tt.cfg)
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := fmt.Sprintf("%T", storage); got != tt.wantType {
				t.Errorf("got %s, want %s", got, tt.wantType)
			}
		})
	}
}

func TestNewBlobStorage_PresignExpiry(t *testing.T) {
	storage, err := NewBlobStorage(context.Background(), Config{
		Type:          TypeS3,
		Bucket:        "mcp-reports",
		Region:        "us-east-1",
		PresignExpiry: time.Hour,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := storage.(*S3Storage).presignExpiration; got != time.Hour {
		t.Errorf("presignExpiration = %v, want 1h", got)
	}
}

func TestIsS3NotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "generic error", err: context.Canceled, want: false},
		{name: "no such key", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, want: true},
		{name: "head not found", err: &smithy.GenericAPIError{Code: "NotFound"}, want: true},
		{name: "wrapped not found", err: fmt.Errorf("get: %w", &smithy.GenericAPIError{Code: "NoSuchKey"}), want: true},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isS3NotFoundError(tt.err); got != tt.want {
				t.Errorf("isS3NotFoundError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
