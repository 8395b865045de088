// Package mcp holds the JSON-RPC envelope types exchanged with an MCP server
// over a single tools/call round trip.
package mcp

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

const (
	// JSONRPCVersion is the only protocol version this harness speaks.
	JSONRPCVersion = "2.0"

	// MethodToolsCall invokes a named tool.
	MethodToolsCall = "tools/call"

	// ContentTypeText marks a text content item.
	ContentTypeText = "text"
)

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a tools/call request.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  CallToolParams `json:"params"`
}

// CallToolParams names the tool and carries its arguments.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// NewToolCallRequest builds a tools/call request whose id is derived from the
// current time. Each request runs in its own process, so that is unique enough.
func NewToolCallRequest(name string, args map[string]interface{}) *Request {
	if args == nil {
		args = map[string]interface{}{}
	}
	return &Request{
		JSONRPC: JSONRPCVersion,
		ID:      strconv.FormatInt(time.Now().UnixNano(), 10),
		Method:  MethodToolsCall,
		Params: CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// Response is a JSON-RPC response. Result and Error are kept raw so that the
// caller decides how to interpret them.
type Response struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// RPCError is the conventional shape of a JSON-RPC error member.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CallToolResult is the MCP content envelope of a tools/call result.
type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ContentItem is one unit of tool output.
type ContentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// HasError reports whether the response carries a non-null error member.
func (r *Response) HasError() bool {
	return !isNull(r.Error)
}

// RPCError decodes the error member. Errors that are not objects are kept
// verbatim in Message.
func (r *Response) RPCError() *RPCError {
	if !r.HasError() {
		return nil
	}
	var e RPCError
	if err := json.Unmarshal(r.Error, &e); err != nil || (e.Code == 0 && e.Message == "" && e.Data == nil) {
		var s string
		if json.Unmarshal(r.Error, &s) == nil {
			return &RPCError{Message: s}
		}
		return &RPCError{Message: string(r.Error)}
	}
	return &e
}

// ToolResult decodes the result member as an MCP content envelope. ok is false
// when the result is missing or is not an envelope.
func (r *Response) ToolResult() (result *CallToolResult, ok bool) {
	if isNull(r.Result) {
		return nil, false
	}
	var tr CallToolResult
	if err := json.Unmarshal(r.Result, &tr); err != nil {
		return nil, false
	}
	return &tr, true
}

// NewTextResult wraps text in a single-item content envelope.
func NewTextResult(text string, isError bool) *CallToolResult {
	return &CallToolResult{
		Content: []ContentItem{{Type: ContentTypeText, Text: text}},
		IsError: isError,
	}
}

// NewResultResponse builds a success response for the request id.
func NewResultResponse(id json.RawMessage, result interface{}) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Result: raw}, nil
}

// NewErrorResponse builds an error response for the request id.
func NewErrorResponse(id json.RawMessage, code int, message string) *Response {
	raw, _ := json.Marshal(RPCError{Code: code, Message: message})
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Error: raw}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
