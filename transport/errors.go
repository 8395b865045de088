package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingCommand is returned when no server command is configured.
	ErrMissingCommand = errors.New("server command is required")
)

// ServerProcessError is returned when the server process exits with a non-zero code.
type ServerProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ServerProcessError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("server process exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("server process exited with code %d: %s", e.ExitCode, stderr)
}

// ResponseParseError is returned when the server's output is not a single JSON document.
type ResponseParseError struct {
	Raw string
	Err error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse server response: %v (raw output: %q)", e.Err, e.Raw)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when the server process did not exit within the
// per-call timeout and was killed.
type TimeoutError struct {
	Timeout time.Duration
	Stderr  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("server process did not exit within %s and was killed", e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}
