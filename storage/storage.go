// Package storage keeps run reports in a blob store: a local directory for
// single-machine use or an S3 bucket shared with the history server.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Storage types.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// BlobStorage defines the interface for storing and retrieving binary data.
type BlobStorage interface {
	// Upload stores data from the reader at the specified key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download retrieves data from the specified key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the data at the specified key.
	Delete(ctx context.Context, key string) error

	// Exists checks if data exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// GetURL returns a URL for accessing the data at the specified key.
	// For local storage, this is the file path.
	GetURL(ctx context.Context, key string) (string, error)
}

// Config selects and configures a BlobStorage.
type Config struct {
	Type    string `mapstructure:"type"`
	BaseDir string `mapstructure:"base_dir"`
	Bucket  string `mapstructure:"bucket"`
	Region  string `mapstructure:"region"`
	// Endpoint points the S3 client at an S3-compatible service.
	Endpoint      string        `mapstructure:"endpoint"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// NewBlobStorage creates a BlobStorage implementation based on configuration.
func NewBlobStorage(ctx context.Context, cfg Config) (BlobStorage, error) {
	switch strings.ToLower(cfg.Type) {
	case TypeLocal, "":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("base_dir is required for local storage")
		}
		return NewLocalStorage(cfg.BaseDir)

	case TypeS3:
		s3Storage, err := NewS3Storage(ctx, S3Options{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		if cfg.PresignExpiry > 0 {
			s3Storage.presignExpiration = cfg.PresignExpiry
		}
		return s3Storage, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// PutJSON stores v as indented JSON at key.
func PutJSON(ctx context.Context, store BlobStorage, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return store.Upload(ctx, key, bytes.NewReader(data))
}

// GetJSON decodes the JSON document at key into v.
func GetJSON(ctx context.Context, store BlobStorage, key string, v interface{}) error {
	rc, err := store.Download(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// cleanKey validates a storage key and returns its canonical slash form.
// Keys are relative; traversal out of the store root is rejected.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: key cannot be empty", ErrInvalidPath)
	}
	slashed := strings.ReplaceAll(key, "\\", "/")
	if strings.HasPrefix(slashed, "/") {
		return "", fmt.Errorf("%w: absolute keys not allowed", ErrInvalidPath)
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidPath)
	}
	return cleaned, nil
}

// cleanPrefix is cleanKey for List prefixes, where empty means everything.
func cleanPrefix(prefix string) (string, error) {
	if prefix == "" {
		return "", nil
	}
	cleaned, err := cleanKey(prefix)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(prefix, "/") {
		cleaned += "/"
	}
	return cleaned, nil
}
