// Package toolclient calls MCP tools through a transport, unwraps the content
// envelope and refreshes the access token once when the server rejects it.
package toolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/credential"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/mcp"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/transport"
)

// UpdateTokenTool replaces the access token held by the server.
const UpdateTokenTool = "update_access_token"

// maxAuthRetries bounds re-invocations after a token refresh.
const maxAuthRetries = 1

// DefaultAuthMarkers are substrings of Dropbox error summaries that mean the
// access token was rejected.
var DefaultAuthMarkers = []string{"invalid_access_token", "expired_access_token"}

// Caller is the tool-calling surface used by the scenario and the CLI.
type Caller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (Result, error)
}

// Option configures a Client.
type Option func(*Client)

// WithAuthMarkers replaces the authentication failure markers.
func WithAuthMarkers(markers []string) Option {
	return func(c *Client) {
		var kept []string
		for _, m := range markers {
			if m = strings.TrimSpace(m); m != "" {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			c.markers = kept
		}
	}
}

// Client is a tool-calling client.
type Client struct {
	transport transport.Transport
	tokens    credential.Source
	markers   []string
	logger    logger.Logger
}

// NewClient creates a client sending requests through t and refreshing
// tokens from tokens.
func NewClient(t transport.Transport, tokens credential.Source, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		transport: t,
		tokens:    tokens,
		markers:   DefaultAuthMarkers,
		logger:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallTool invokes the named tool.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (Result, error) {
	return c.callTool(ctx, name, args, 0)
}

// UpdateAccessToken hands token to the server.
func (c *Client) UpdateAccessToken(ctx context.Context, token string) error {
	_, err := c.CallTool(ctx, UpdateTokenTool, map[string]interface{}{"token": token})
	return err
}

// callTool refreshes the token and repeats the call once when the server
// reports an auth failure. An auth failure on update_access_token itself, or
// one that survives the retry, is returned as *AuthenticationError rather
// than as a text result.
func (c *Client) callTool(ctx context.Context, name string, args map[string]interface{}, depth int) (Result, error) {
	resp, err := c.transport.Exchange(ctx, mcp.NewToolCallRequest(name, args))
	if err != nil {
		return Result{}, err
	}

	result, err := c.unwrap(name, resp)
	if err != nil {
		return Result{}, err
	}
	if result.Kind != KindAuthRequired {
		return result, nil
	}

	if name == UpdateTokenTool || depth >= maxAuthRetries {
		return Result{}, &AuthenticationError{Tool: name, Text: result.Text, Retried: depth > 0}
	}

	c.logger.Warn(ctx, "access token rejected, refreshing", map[string]interface{}{
		"tool": name,
	})
	if err := c.refreshToken(ctx); err != nil {
		return Result{}, err
	}
	return c.callTool(ctx, name, args, depth+1)
}

func (c *Client) refreshToken(ctx context.Context) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if _, err := c.callTool(ctx, UpdateTokenTool, map[string]interface{}{"token": token}, maxAuthRetries); err != nil {
		return fmt.Errorf("failed to refresh access token: %w", err)
	}
	c.logger.Info(ctx, "access token refreshed", map[string]interface{}{
		"fingerprint": credential.Fingerprint(token),
	})
	return nil
}

// unwrap turns a response into a Result or a ToolError.
func (c *Client) unwrap(name string, resp *mcp.Response) (Result, error) {
	if resp.HasError() {
		rpcErr := resp.RPCError()
		return Result{}, &ToolError{
			Tool:    name,
			Code:    rpcErr.Code,
			Message: rpcErr.Message,
			Data:    rpcErr.Data,
		}
	}

	envelope, ok := resp.ToolResult()
	if !ok || len(envelope.Content) == 0 {
		return Result{Kind: KindEmpty, Value: resp.Result}, nil
	}

	item := envelope.Content[0]
	if item.Type != mcp.ContentTypeText {
		raw, err := json.Marshal(item)
		if err != nil {
			return Result{}, fmt.Errorf("failed to re-encode %s content: %w", item.Type, err)
		}
		return Result{Kind: KindStructured, Value: raw}, nil
	}

	if c.isAuthFailure(item.Text) {
		return Result{Kind: KindAuthRequired, Text: item.Text}, nil
	}
	if envelope.IsError {
		return Result{}, &ToolError{Tool: name, Message: item.Text}
	}

	trimmed := bytes.TrimSpace([]byte(item.Text))
	if json.Valid(trimmed) {
		return Result{Kind: KindStructured, Text: item.Text, Value: json.RawMessage(trimmed)}, nil
	}
	return Result{Kind: KindText, Text: item.Text}, nil
}

func (c *Client) isAuthFailure(text string) bool {
	for _, marker := range c.markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
