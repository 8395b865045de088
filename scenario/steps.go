package scenario

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/toolclient"
)

// conflictMarker is the Dropbox error summary for an existing folder.
const conflictMarker = "path/conflict"

var (
	// ErrContentMismatch is returned when the downloaded bytes differ from the upload.
	ErrContentMismatch = errors.New("downloaded content does not match uploaded content")

	// ErrMissingSharingURL is returned when the sharing link response has no url.
	ErrMissingSharingURL = errors.New("sharing link response has no url")

	// ErrStillPresent is returned when a deleted file still shows in the listing.
	ErrStillPresent = errors.New("deleted file is still listed")
)

func (d *Driver) call(ctx context.Context, tool string, args map[string]interface{}) (toolclient.Result, error) {
	return d.client.CallTool(ctx, tool, args)
}

func (d *Driver) updateToken(ctx context.Context) error {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return err
	}
	_, err = d.call(ctx, toolclient.UpdateTokenTool, map[string]interface{}{"token": token})
	return err
}

func (d *Driver) getAccountInfo(ctx context.Context) error {
	_, err := d.call(ctx, "get_account_info", map[string]interface{}{})
	return err
}

func (d *Driver) listRoot(ctx context.Context) error {
	_, err := d.call(ctx, "list_files", map[string]interface{}{"path": ""})
	return err
}

func (d *Driver) createFolder(ctx context.Context) error {
	_, err := d.call(ctx, "create_folder", map[string]interface{}{"path": d.cfg.Folder})
	if err == nil || isConflict(err) {
		return nil
	}
	return err
}

func (d *Driver) uploadFile(ctx context.Context) error {
	_, err := d.call(ctx, "upload_file", map[string]interface{}{
		"path":    d.cfg.FilePath(),
		"content": base64.StdEncoding.EncodeToString([]byte(d.cfg.Content)),
	})
	return err
}

func (d *Driver) getMetadata(ctx context.Context) error {
	_, err := d.call(ctx, "get_file_metadata", map[string]interface{}{"path": d.cfg.FilePath()})
	return err
}

func (d *Driver) downloadFile(ctx context.Context) error {
	result, err := d.call(ctx, "download_file", map[string]interface{}{"path": d.cfg.FilePath()})
	if err != nil {
		return err
	}
	encoded, err := base64Payload(result)
	if err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode downloaded content: %w", err)
	}
	if !bytes.Equal(data, []byte(d.cfg.Content)) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrContentMismatch, len(data), len(d.cfg.Content))
	}
	return nil
}

func (d *Driver) createSharingLink(ctx context.Context) error {
	result, err := d.call(ctx, "get_sharing_link", map[string]interface{}{"path": d.cfg.FilePath()})
	if err != nil {
		return err
	}
	if result.IsText() {
		if strings.HasPrefix(strings.TrimSpace(result.Text), "http") {
			return nil
		}
		return ErrMissingSharingURL
	}
	var link struct {
		URL string `json:"url"`
	}
	if err := result.Decode(&link); err != nil {
		return fmt.Errorf("failed to decode sharing link: %w", err)
	}
	if link.URL == "" {
		return ErrMissingSharingURL
	}
	return nil
}

func (d *Driver) listFolder(ctx context.Context) error {
	_, err := d.call(ctx, "list_files", map[string]interface{}{"path": d.cfg.Folder})
	return err
}

func (d *Driver) searchFiles(ctx context.Context) error {
	_, err := d.call(ctx, "search_files", map[string]interface{}{
		"query":       d.cfg.SearchQuery,
		"path":        d.cfg.Folder,
		"max_results": d.cfg.MaxResults,
	})
	return err
}

func (d *Driver) copyFile(ctx context.Context) error {
	_, err := d.call(ctx, "copy_item", map[string]interface{}{
		"from_path": d.cfg.FilePath(),
		"to_path":   d.cfg.CopyPath(),
	})
	return err
}

func (d *Driver) moveFile(ctx context.Context) error {
	_, err := d.call(ctx, "move_item", map[string]interface{}{
		"from_path": d.cfg.CopyPath(),
		"to_path":   d.cfg.RenamedPath(),
	})
	return err
}

func (d *Driver) deleteFile(ctx context.Context) error {
	_, err := d.call(ctx, "delete_item", map[string]interface{}{"path": d.cfg.RenamedPath()})
	return err
}

func (d *Driver) verifyDeletion(ctx context.Context) error {
	result, err := d.call(ctx, "list_files", map[string]interface{}{"path": d.cfg.Folder})
	if err != nil {
		return err
	}
	if listingContains(result, d.cfg.RenamedName()) {
		return fmt.Errorf("%w: %s", ErrStillPresent, d.cfg.RenamedPath())
	}
	return nil
}

func isConflict(err error) bool {
	var toolErr *toolclient.ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Contains(conflictMarker)
	}
	return strings.Contains(err.Error(), conflictMarker)
}

// base64Payload extracts the encoded file body from a download result: plain
// text, a JSON string, or an object with a content field.
func base64Payload(r toolclient.Result) (string, error) {
	switch r.Kind {
	case toolclient.KindText:
		return strings.TrimSpace(r.Text), nil
	case toolclient.KindStructured, toolclient.KindEmpty:
		var s string
		if err := json.Unmarshal(r.Value, &s); err == nil {
			return strings.TrimSpace(s), nil
		}
		var body struct {
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(r.Value, &body); err == nil && body.Content != nil {
			return strings.TrimSpace(*body.Content), nil
		}
	}
	return "", fmt.Errorf("unexpected download result: %s", r.String())
}

// listingContains reports whether name appears as an entry of a listing.
// Structured listings are walked for a string equal to name or ending in
// "/"+name; text listings match name only as a whole word.
func listingContains(r toolclient.Result, name string) bool {
	if r.IsText() {
		return containsEntry(r.Text, name)
	}
	var doc interface{}
	if err := json.Unmarshal(r.Value, &doc); err != nil {
		return containsEntry(string(r.Value), name)
	}
	return walkStrings(doc, func(s string) bool {
		return strings.EqualFold(s, name) || strings.HasSuffix(strings.ToLower(s), "/"+strings.ToLower(name))
	})
}

// containsEntry finds name in text with no file name character directly
// before or after it, so "old_x.txt" does not match "x.txt".
func containsEntry(text, name string) bool {
	text, name = strings.ToLower(text), strings.ToLower(name)
	if name == "" {
		return false
	}
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], name)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(name)
		if (start == 0 || !isNameByte(text[start-1])) && entryEndsAt(text, end) {
			return true
		}
		from = start + 1
	}
	return false
}

// entryEndsAt reports whether a match ending at end is a whole entry. A
// trailing full stop counts as punctuation.
func entryEndsAt(text string, end int) bool {
	if end < len(text) && text[end] == '.' {
		end++
	}
	return end == len(text) || !isNameByte(text[end])
}

func isNameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '_', b == '-', b == '.', b >= 0x80:
		return true
	}
	return false
}

func walkStrings(v interface{}, match func(string) bool) bool {
	switch t := v.(type) {
	case string:
		return match(t)
	case []interface{}:
		for _, item := range t {
			if walkStrings(item, match) {
				return true
			}
		}
	case map[string]interface{}:
		for _, item := range t {
			if walkStrings(item, match) {
				return true
			}
		}
	}
	return false
}
