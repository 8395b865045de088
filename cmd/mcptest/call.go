package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/toolclient"
	"github.com/spf13/cobra"
)

func newCallCmd() *cobra.Command {
	var server serverFlags
	var pairs []string
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a single tool",
		Long: "Invokes one tool through the same client the scenario uses, including the " +
			"token refresh on authentication failures.\n\n" +
			"Argument values given with --arg are parsed as JSON when possible, so " +
			"--arg max_results=5 sends a number and --arg path=/a sends a string.",
		Example: "  mcptest call list_files --arg path=\"\"\n" +
			"  mcptest call search_files --args-json '{\"query\":\"test\",\"max_results\":5}'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := server.apply(); err != nil {
				return err
			}

			toolArgs, err := parseToolArgs(argsJSON, pairs)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h, err := newHarness()
			if err != nil {
				return err
			}

			result, err := h.client.CallTool(ctx, args[0], toolArgs)
			if err != nil {
				return err
			}

			printResult(result)
			return nil
		},
	}

	addServerFlags(cmd, &server)
	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "Tool argument as key=value, repeatable")
	cmd.Flags().StringVar(&argsJSON, "args-json", "", "Tool arguments as a JSON object")
	return cmd
}

// parseToolArgs merges a JSON object with key=value pairs; pairs win.
func parseToolArgs(argsJSON string, pairs []string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, fmt.Errorf("invalid --args-json: %w", err)
		}
		if args == nil {
			return nil, fmt.Errorf("invalid --args-json: expected an object")
		}
	}

	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q: expected key=value", pair)
		}
		args[key] = parseArgValue(raw)
	}
	return args, nil
}

// parseArgValue decodes raw as a single JSON value, falling back to the
// literal string. Numbers keep their exact text.
func parseArgValue(raw string) interface{} {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

func printResult(result toolclient.Result) {
	if flagJSON {
		printJSON(struct {
			Kind  toolclient.Kind `json:"kind"`
			Text  string          `json:"text,omitempty"`
			Value json.RawMessage `json:"value,omitempty"`
		}{result.Kind, result.Text, result.Value})
		return
	}

	if result.IsText() {
		printMessage(result.Text)
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result.Value, "", "  "); err != nil {
		printMessage(string(result.Value))
		return
	}
	printMessage(buf.String())
}
