package transport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script acting as a server.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.sh")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755)
	require.NoError(t, err, "failed to write server script")
	return path
}

func newTransport(t *testing.T, script string, timeout time.Duration) *ProcessTransport {
	t.Helper()
	tr, err := NewProcessTransport(Config{Command: script, Timeout: timeout}, logger.NewTestLogger())
	require.NoError(t, err)
	return tr
}

func TestNewProcessTransport(t *testing.T) {
	_, err := NewProcessTransport(Config{}, logger.NewTestLogger())
	assert.ErrorIs(t, err, ErrMissingCommand)

	tr, err := NewProcessTransport(Config{Command: "node"}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, tr.cfg.Timeout)
}

func TestProcessTransport_Exchange(t *testing.T) {
	ctx := context.Background()

	t.Run("request reaches stdin and stdin is closed", func(t *testing.T) {
		// cat only exits once stdin is closed; its output is the request itself.
		tr := newTransport(t, writeScript(t, "exec cat\n"), 5*time.Second)
		req := mcp.NewToolCallRequest("list_files", map[string]interface{}{"path": ""})

		resp, err := tr.Exchange(ctx, req)
		require.NoError(t, err)
		assert.JSONEq(t, `"`+req.ID+`"`, string(resp.ID))
	})

	t.Run("parses a result", func(t *testing.T) {
		tr := newTransport(t, writeScript(t, `cat >/dev/null
echo '{"jsonrpc":"2.0","id":"1","result":{"content":[{"type":"text","text":"ok"}]}}'
`), 5*time.Second)

		resp, err := tr.Exchange(ctx, mcp.NewToolCallRequest("get_account_info", nil))
		require.NoError(t, err)
		result, ok := resp.ToolResult()
		require.True(t, ok)
		assert.Equal(t, "ok", result.Content[0].Text)
	})

	t.Run("non-zero exit carries stderr", func(t *testing.T) {
		tr := newTransport(t, writeScript(t, `cat >/dev/null
echo "token rejected" >&2
exit 3
`), 5*time.Second)

		_, err := tr.Exchange(ctx, mcp.NewToolCallRequest("get_account_info", nil))
		var procErr *ServerProcessError
		require.ErrorAs(t, err, &procErr)
		assert.Equal(t, 3, procErr.ExitCode)
		assert.Contains(t, procErr.Stderr, "token rejected")
	})

	t.Run("malformed output", func(t *testing.T) {
		tr := newTransport(t, writeScript(t, `cat >/dev/null
echo "Server started"
echo '{"result":{}}'
`), 5*time.Second)

		_, err := tr.Exchange(ctx, mcp.NewToolCallRequest("get_account_info", nil))
		var parseErr *ResponseParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, parseErr.Raw, "Server started")
	})

	t.Run("empty output", func(t *testing.T) {
		tr := newTransport(t, writeScript(t, "cat >/dev/null\n"), 5*time.Second)

		_, err := tr.Exchange(ctx, mcp.NewToolCallRequest("get_account_info", nil))
		var parseErr *ResponseParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("hung server is killed", func(t *testing.T) {
		tr := newTransport(t, writeScript(t, "exec sleep 30\n"), 200*time.Millisecond)

		started := time.Now()
		_, err := tr.Exchange(ctx, mcp.NewToolCallRequest("get_account_info", nil))
		var timeoutErr *TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Less(t, time.Since(started), 10*time.Second)
	})

	t.Run("cancelled context", func(t *testing.T) {
		tr := newTransport(t, writeScript(t, "exec sleep 30\n"), 30*time.Second)
		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		_, err := tr.Exchange(cctx, mcp.NewToolCallRequest("get_account_info", nil))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("missing executable", func(t *testing.T) {
		tr := newTransport(t, filepath.Join(t.TempDir(), "does-not-exist"), time.Second)

		_, err := tr.Exchange(ctx, mcp.NewToolCallRequest("get_account_info", nil))
		require.Error(t, err)
		var procErr *ServerProcessError
		assert.False(t, errors.As(err, &procErr))
	})
}
