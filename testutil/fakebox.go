package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/fakebox"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/transport"
)

// helperEnv marks a re-executed test binary that should act as the server.
const helperEnv = "FAKEBOX_HELPER_PROCESS"

// RunFakeboxIfHelper serves one request and exits when the test binary was
// started by FakeboxTransportConfig. Call it first in TestMain.
func RunFakeboxIfHelper() {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	server, err := fakebox.NewServer(fakebox.ConfigFromEnv(), logger.NewTestLogger())
	if err == nil {
		err = server.ServeOnce(context.Background(), os.Stdin, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fakebox: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// FakeboxTransportConfig returns a transport configuration that re-executes
// the current test binary as a fakebox server rooted at root. An empty token
// makes the server accept any token. extraEnv entries are KEY=VALUE pairs.
func FakeboxTransportConfig(t *testing.T, root, token string, extraEnv ...string) transport.Config {
	t.Helper()
	env := []string{
		helperEnv + "=1",
		fakebox.EnvRoot + "=" + root,
		fakebox.EnvToken + "=" + token,
	}
	return transport.Config{
		Command: os.Args[0],
		Args:    []string{"-test.run=^$"},
		Env:     append(env, extraEnv...),
		Timeout: 30 * time.Second,
	}
}

// FakeboxTransport is FakeboxTransportConfig wrapped in a process transport.
func FakeboxTransport(t *testing.T, root, token string, extraEnv ...string) *transport.ProcessTransport {
	t.Helper()
	tr, err := transport.NewProcessTransport(FakeboxTransportConfig(t, root, token, extraEnv...), logger.NewTestLogger())
	if err != nil {
		t.Fatalf("failed to create fakebox transport: %v", err)
	}
	return tr
}
