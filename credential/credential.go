// Package credential supplies the Dropbox access token handed to the server.
package credential

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultTokenFile is the token file looked up in the project root.
const DefaultTokenFile = "token"

// ErrTokenUnavailable is returned when no usable token can be read. A run
// cannot continue without one.
var ErrTokenUnavailable = errors.New("access token unavailable")

// Source yields the current access token.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// FileSource reads the token from a plain-text file on every call so that a
// token refreshed on disk is picked up by the next retry.
type FileSource struct {
	path string
}

// NewFileSource returns a Source backed by path.
func NewFileSource(path string) *FileSource {
	if path == "" {
		path = DefaultTokenFile
	}
	return &FileSource{path: path}
}

// Path returns the token file location.
func (s *FileSource) Path() string {
	return s.path
}

// Token reads and trims the token file.
func (s *FileSource) Token(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrTokenUnavailable, s.path)
	}
	return token, nil
}

// StaticSource always returns the same token.
type StaticSource string

// Token returns the static token.
func (s StaticSource) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty static token", ErrTokenUnavailable)
	}
	return string(s), nil
}

// Fingerprint returns a short SHA-256 digest of token, safe to log.
func Fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)[:12]
}

// Mask keeps the first and last four characters of long tokens.
func Mask(token string) string {
	switch {
	case token == "":
		return "(not set)"
	case len(token) > 8:
		return token[:4] + "..." + token[len(token)-4:]
	default:
		return "****"
	}
}
