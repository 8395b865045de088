// Package fakebox is a filesystem-backed stand-in for the Dropbox MCP server.
// It answers one tools/call request per invocation, like the real server
// driven by the harness, and keeps its state in a directory so that
// consecutive processes see each other's changes.
package fakebox

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/mcp"
	"github.com/spf13/viper"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvRoot        = "FAKEBOX_ROOT"
	EnvToken       = "FAKEBOX_TOKEN"
	EnvDenySharing = "FAKEBOX_DENY_SHARING"
	EnvLogLevel    = "FAKEBOX_LOG_LEVEL"
)

// maxRequestSize bounds a single request line.
const maxRequestSize = 16 << 20

var (
	// ErrMissingRoot is returned when no state directory is configured.
	ErrMissingRoot = errors.New("fakebox root directory is required")

	// ErrNoRequest is returned by ServeOnce when the input holds no request.
	ErrNoRequest = errors.New("no request on input")
)

// Config configures the stand-in server.
type Config struct {
	// Root holds the file tree under files/ and server state under .fakebox/.
	Root string
	// Token is the only accepted access token. Empty accepts any token.
	Token string
	// DenySharing makes get_sharing_link fail with missing_scope.
	DenySharing bool
	// LogLevel is the level for cmd/fakebox's stderr log.
	LogLevel string
}

// ConfigFromEnv reads the configuration from the FAKEBOX_* variables.
func ConfigFromEnv() Config {
	v := viper.New()
	v.SetEnvPrefix("FAKEBOX")
	v.AutomaticEnv()

	v.SetDefault("root", "")
	v.SetDefault("token", "")
	v.SetDefault("deny_sharing", false)
	v.SetDefault("log_level", "warn")

	return Config{
		Root:        v.GetString("root"),
		Token:       v.GetString("token"),
		DenySharing: v.GetBool("deny_sharing"),
		LogLevel:    v.GetString("log_level"),
	}
}

type toolFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Server handles tools/call requests against the directory tree.
type Server struct {
	cfg    Config
	files  string
	state  string
	logger logger.Logger
	tools  map[string]toolFunc
}

// NewServer prepares the state directory and returns a server.
func NewServer(cfg Config, log logger.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, ErrMissingRoot
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		files:  filepath.Join(root, "files"),
		state:  filepath.Join(root, ".fakebox"),
		logger: log,
	}
	for _, dir := range []string{s.files, s.state} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	s.tools = map[string]toolFunc{
		"update_access_token": s.updateAccessToken,
		"get_account_info":    s.authenticated(s.getAccountInfo),
		"list_files":          s.authenticated(s.listFiles),
		"create_folder":       s.authenticated(s.createFolder),
		"upload_file":         s.authenticated(s.uploadFile),
		"get_file_metadata":   s.authenticated(s.getFileMetadata),
		"download_file":       s.authenticated(s.downloadFile),
		"get_sharing_link":    s.authenticated(s.getSharingLink),
		"search_files":        s.authenticated(s.searchFiles),
		"copy_item":           s.authenticated(s.copyItem),
		"move_item":           s.authenticated(s.moveItem),
		"delete_item":         s.authenticated(s.deleteItem),
	}
	return s, nil
}

// FilesDir is the directory that backs the Dropbox namespace.
func (s *Server) FilesDir() string {
	return s.files
}

// SetToken replaces the stored access token, as update_access_token does.
func (s *Server) SetToken(token string) error {
	return os.WriteFile(s.tokenFile(), []byte(token), 0600)
}

// ServeOnce reads one newline-terminated request from r and writes the
// response to w.
func (s *Server) ServeOnce(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	line, err := readLine(reader)
	if err != nil {
		return err
	}

	resp := s.Handle(ctx, line)
	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxRequestSize {
			return nil, fmt.Errorf("request exceeds %d bytes", maxRequestSize)
		}
		if err == nil || errors.Is(err, io.EOF) {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
	if len(strings.TrimSpace(string(line))) == 0 {
		return nil, ErrNoRequest
	}
	return line, nil
}

type wireRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Handle answers one raw JSON-RPC request.
func (s *Server) Handle(ctx context.Context, raw []byte) *mcp.Response {
	var req wireRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return mcp.NewErrorResponse(nil, mcp.CodeParseError, fmt.Sprintf("Parse error: %v", err))
	}
	if req.Method != mcp.MethodToolsCall {
		return mcp.NewErrorResponse(req.ID, mcp.CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}

	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.CodeInvalidParams, fmt.Sprintf("Invalid params: %v", err))
	}
	tool, ok := s.tools[params.Name]
	if !ok {
		return mcp.NewErrorResponse(req.ID, mcp.CodeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name))
	}
	if params.Arguments == nil {
		params.Arguments = map[string]interface{}{}
	}

	result, err := tool(ctx, params.Arguments)
	if err != nil {
		var authErr *authError
		if errors.As(err, &authErr) {
			return s.result(ctx, req.ID, mcp.NewTextResult(authErr.Error(), true))
		}
		code := mcp.CodeInternalError
		var argErr *argumentError
		if errors.As(err, &argErr) {
			code = mcp.CodeInvalidParams
		}
		s.logger.Debug(ctx, "tool call failed", map[string]interface{}{
			"tool":  params.Name,
			"error": err.Error(),
		})
		return mcp.NewErrorResponse(req.ID, code, err.Error())
	}

	if text, ok := result.(string); ok {
		return s.result(ctx, req.ID, mcp.NewTextResult(text, false))
	}
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.CodeInternalError, fmt.Sprintf("Error marshaling result: %v", err))
	}
	return s.result(ctx, req.ID, mcp.NewTextResult(string(body), false))
}

// Exchange serves an in-memory request, so a Server can stand in for a
// transport in tests.
func (s *Server) Exchange(ctx context.Context, req *mcp.Request) (*mcp.Response, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return s.Handle(ctx, raw), nil
}

func (s *Server) result(ctx context.Context, id json.RawMessage, result *mcp.CallToolResult) *mcp.Response {
	resp, err := mcp.NewResultResponse(id, result)
	if err != nil {
		return mcp.NewErrorResponse(id, mcp.CodeInternalError, err.Error())
	}
	return resp
}

func (s *Server) tokenFile() string {
	return filepath.Join(s.state, "token")
}

func (s *Server) currentToken() string {
	data, err := os.ReadFile(s.tokenFile())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// authenticated rejects calls unless the stored token is the accepted one.
func (s *Server) authenticated(fn toolFunc) toolFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if s.cfg.Token != "" && s.currentToken() != s.cfg.Token {
			return nil, &authError{}
		}
		return fn(ctx, args)
	}
}
