package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/credential"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/toolclient"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/transport"
)

// serverFlags are the run/call overrides for how the server is launched.
type serverFlags struct {
	command   string
	args      []string
	tokenFile string
	timeout   string
}

func (f serverFlags) apply() error {
	if f.command != "" {
		cfg.Set("server.command", f.command)
	}
	if len(f.args) > 0 {
		cfg.Set("server.args", f.args)
	}
	if f.tokenFile != "" {
		cfg.Set("token_file", f.tokenFile)
	}
	if f.timeout != "" {
		cfg.Set("server.timeout", f.timeout)
		if cfg.GetDuration("server.timeout") <= 0 {
			return fmt.Errorf("invalid --timeout %q", f.timeout)
		}
	}
	return nil
}

func newLogger() logger.Logger {
	return logger.NewLogrusLogger(logger.Options{
		Level:  cfg.GetString("log.level"),
		Format: cfg.GetString("log.format"),
		Output: os.Stderr,
	})
}

// harness bundles what every server-facing command needs.
type harness struct {
	log       logger.Logger
	tokens    *credential.FileSource
	client    *toolclient.Client
	serverCmd string
}

func newHarness() (*harness, error) {
	log := newLogger()

	tc := transportConfig(cfg)
	t, err := transport.NewProcessTransport(tc, log)
	if err != nil {
		return nil, err
	}

	tokens := credential.NewFileSource(cfg.GetString("token_file"))
	client := toolclient.NewClient(t, tokens, log,
		toolclient.WithAuthMarkers(cfg.GetStringSlice("auth.markers")),
	)

	return &harness{
		log:       log,
		tokens:    tokens,
		client:    client,
		serverCmd: strings.TrimSpace(tc.Command + " " + strings.Join(tc.Args, " ")),
	}, nil
}
