// Command fakebox answers one MCP tools/call request from stdin against a
// local directory, standing in for the Dropbox MCP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/fakebox"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := fakebox.ConfigFromEnv()
	log := logger.NewLogrusLogger(logger.Options{Level: cfg.LogLevel, Output: os.Stderr})

	server, err := fakebox.NewServer(cfg, log)
	if err != nil {
		return err
	}
	return server.ServeOnce(context.Background(), os.Stdin, os.Stdout)
}
