package toolclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotStructured is returned by Result.Decode for plain-text results.
var ErrNotStructured = errors.New("tool result is plain text, not JSON")

// Kind classifies a tool result. It is decided once, when the response is
// unwrapped, so callers never re-parse the text.
type Kind string

const (
	// KindStructured is content text that parsed as JSON.
	KindStructured Kind = "structured"

	// KindText is content text that is not JSON.
	KindText Kind = "text"

	// KindEmpty is a result without any content item. Value holds the raw result.
	KindEmpty Kind = "empty"

	// KindAuthRequired is content text carrying an authentication failure
	// marker. The client handles it and never returns it as a success.
	KindAuthRequired Kind = "auth_required"
)

// Result is the unwrapped output of a tool call.
type Result struct {
	Kind  Kind
	Text  string
	Value json.RawMessage
}

// IsText reports whether the result is plain text.
func (r Result) IsText() bool {
	return r.Kind == KindText
}

// String returns the text of a text result, the unquoted value of a JSON
// string, or the raw JSON otherwise.
func (r Result) String() string {
	switch r.Kind {
	case KindText, KindAuthRequired:
		return r.Text
	}
	var s string
	if json.Unmarshal(r.Value, &s) == nil {
		return s
	}
	return string(r.Value)
}

// Decode unmarshals a structured or empty result into v.
func (r Result) Decode(v interface{}) error {
	switch r.Kind {
	case KindStructured, KindEmpty:
		if len(bytes.TrimSpace(r.Value)) == 0 {
			return fmt.Errorf("decode %s result: no value", r.Kind)
		}
		return json.Unmarshal(r.Value, v)
	default:
		return ErrNotStructured
	}
}
