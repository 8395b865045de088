package toolclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToolError is returned when the server reports that the tool call failed.
type ToolError struct {
	Tool    string
	Code    int
	Message string
	Data    interface{}
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tool %s failed", e.Tool)
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Data != nil {
		if data, err := json.Marshal(e.Data); err == nil {
			b.WriteString(": ")
			b.Write(data)
		}
	}
	return b.String()
}

// Contains reports whether the marker appears in the message or the data.
func (e *ToolError) Contains(marker string) bool {
	return strings.Contains(e.Error(), marker)
}

// AuthenticationError is returned when the server keeps rejecting the access
// token after the single refresh attempt, or when the token update tool
// itself reports an authentication failure.
type AuthenticationError struct {
	Tool    string
	Text    string
	Retried bool
}

func (e *AuthenticationError) Error() string {
	if e.Retried {
		return fmt.Sprintf("tool %s: authentication failed after refreshing the access token: %s", e.Tool, e.Text)
	}
	return fmt.Sprintf("tool %s: authentication failed: %s", e.Tool, e.Text)
}
