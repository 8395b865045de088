// Package transport runs one JSON-RPC exchange per server process: spawn,
// write the request, close stdin, wait for exit and parse the output.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/mcp"
)

const (
	// DefaultTimeout bounds a single server invocation.
	DefaultTimeout = 60 * time.Second

	// waitDelay is how long Wait keeps reading pipes after the process was killed.
	waitDelay = 2 * time.Second
)

// Transport sends a single request and returns the matching response.
type Transport interface {
	Exchange(ctx context.Context, req *mcp.Request) (*mcp.Response, error)
}

// Config describes how to launch the server.
type Config struct {
	Command string
	Args    []string
	// Env is appended to the current process environment.
	Env []string
	Dir string
	// Timeout bounds each call; zero means DefaultTimeout.
	Timeout time.Duration
}

// ProcessTransport starts a fresh server process for every exchange.
type ProcessTransport struct {
	cfg    Config
	logger logger.Logger
}

// NewProcessTransport validates cfg and returns a transport for it.
func NewProcessTransport(cfg Config, log logger.Logger) (*ProcessTransport, error) {
	if cfg.Command == "" {
		return nil, ErrMissingCommand
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &ProcessTransport{cfg: cfg, logger: log}, nil
}

// Exchange writes req to a new server process and returns its response.
func (t *ProcessTransport) Exchange(ctx context.Context, req *mcp.Request) (*mcp.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	payload = append(payload, '\n')

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, t.cfg.Command, t.cfg.Args...)
	cmd.Dir = t.cfg.Dir
	if len(t.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), t.cfg.Env...)
	}
	// exec closes the child's stdin once the reader is drained.
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	started := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(started)

	fields := map[string]interface{}{
		"command":     t.cfg.Command,
		"tool":        req.Params.Name,
		"request_id":  req.ID,
		"duration_ms": elapsed.Milliseconds(),
	}
	if cmd.ProcessState != nil {
		fields["exit_code"] = cmd.ProcessState.ExitCode()
	}
	t.logger.Debug(ctx, "server process finished", fields)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("server call cancelled: %w", ctx.Err())
	}
	if callCtx.Err() != nil {
		return nil, &TimeoutError{Timeout: t.cfg.Timeout, Stderr: stderr.String()}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, &ServerProcessError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return nil, fmt.Errorf("failed to run server process %s: %w", t.cfg.Command, runErr)
	}

	var resp mcp.Response
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return nil, &ResponseParseError{Raw: stdout.String(), Err: err}
	}

	return &resp, nil
}
