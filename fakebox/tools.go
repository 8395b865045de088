package fakebox

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Metadata is the Dropbox-style description of a file or folder.
type Metadata struct {
	Tag         string `json:".tag"`
	Name        string `json:"name"`
	PathLower   string `json:"path_lower"`
	PathDisplay string `json:"path_display"`
	Size        int64  `json:"size,omitempty"`
}

type pathArgs struct {
	Path string `json:"path"`
}

type relocationArgs struct {
	FromPath string `json:"from_path"`
	ToPath   string `json:"to_path"`
}

type uploadArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type searchArgs struct {
	Query      string `json:"query"`
	Path       string `json:"path"`
	MaxResults int    `json:"max_results"`
}

type tokenArgs struct {
	Token string `json:"token"`
}

func decodeArgs(in map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(in); err != nil {
		return &argumentError{Msg: fmt.Sprintf("Invalid arguments: %v", err)}
	}
	return nil
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return &argumentError{Msg: fmt.Sprintf("Invalid arguments: %s is required", name)}
	}
	return nil
}

func (s *Server) updateAccessToken(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	var args tokenArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := required("token", args.Token); err != nil {
		return nil, err
	}
	if err := s.SetToken(strings.TrimSpace(args.Token)); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	return "Access token updated successfully", nil
}

func (s *Server) getAccountInfo(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"account_id": "dbid:fakebox",
		"name": map[string]string{
			"display_name": "Fakebox User",
		},
		"email":          "fakebox@example.com",
		"email_verified": true,
		"country":        "US",
	}, nil
}

func (s *Server) listFiles(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	dir, display, err := s.resolve(args.Path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, notFound(display)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Metadata, 0, len(dirEntries))
	for _, e := range dirEntries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		entries = append(entries, metadataFor(path.Join(display, e.Name()), info))
	}
	return map[string]interface{}{
		"entries":  entries,
		"has_more": false,
	}, nil
}

func (s *Server) createFolder(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	dir, display, err := s.resolveItem(args.Path)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err == nil {
		if info.IsDir() {
			return nil, conflict("folder", display)
		}
		return nil, conflict("file", display)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"metadata": metadataFor(display, info)}, nil
}

func (s *Server) uploadFile(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	var args uploadArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	file, display, err := s.resolveItem(args.Path)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(args.Content)
	if err != nil {
		return nil, &argumentError{Msg: fmt.Sprintf("Invalid arguments: content is not base64: %v", err)}
	}
	if info, err := os.Stat(file); err == nil && info.IsDir() {
		return nil, conflict("folder", display)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return nil, err
	}
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	return metadataFor(display, info), nil
}

func (s *Server) getFileMetadata(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	item, display, err := s.resolveItem(args.Path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(item)
	if err != nil {
		return nil, notFound(display)
	}
	return metadataFor(display, info), nil
}

// downloadFile returns the file body as bare base64 text.
func (s *Server) downloadFile(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	file, display, err := s.resolveItem(args.Path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(file)
	if err != nil {
		return nil, notFound(display)
	}
	if info.IsDir() {
		return nil, &apiError{Summary: "path/not_file/", Path: display}
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (s *Server) getSharingLink(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if s.cfg.DenySharing {
		return nil, &apiError{Summary: "missing_scope/sharing.write", Path: args.Path}
	}
	item, display, err := s.resolveItem(args.Path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(item); err != nil {
		return nil, notFound(display)
	}
	sum := sha256.Sum256([]byte(strings.ToLower(display)))
	return map[string]interface{}{
		"url":  fmt.Sprintf("https://fakebox.local/s/%s/%s?dl=0", hex.EncodeToString(sum[:8]), path.Base(display)),
		"path": display,
	}, nil
}

func (s *Server) searchFiles(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	var args searchArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := required("query", args.Query); err != nil {
		return nil, err
	}
	if args.MaxResults <= 0 {
		args.MaxResults = 100
	}
	dir, display, err := s.resolve(args.Path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, notFound(display)
	}

	query := strings.ToLower(args.Query)
	matches := []map[string]interface{}{}
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir || !strings.Contains(strings.ToLower(d.Name()), query) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.files, p)
		if err != nil {
			return err
		}
		matches = append(matches, map[string]interface{}{
			"metadata": metadataFor("/"+filepath.ToSlash(rel), info),
		})
		if len(matches) >= args.MaxResults {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i]["metadata"].(Metadata).PathLower < matches[j]["metadata"].(Metadata).PathLower
	})
	return map[string]interface{}{
		"matches":  matches,
		"has_more": false,
	}, nil
}

func (s *Server) copyItem(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	from, to, toDisplay, err := s.relocation(raw)
	if err != nil {
		return nil, err
	}
	if err := copyTree(from, to); err != nil {
		return nil, err
	}
	info, err := os.Stat(to)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"metadata": metadataFor(toDisplay, info)}, nil
}

func (s *Server) moveItem(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	from, to, toDisplay, err := s.relocation(raw)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return nil, err
	}
	if err := os.Rename(from, to); err != nil {
		return nil, err
	}
	info, err := os.Stat(to)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"metadata": metadataFor(toDisplay, info)}, nil
}

func (s *Server) deleteItem(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	item, display, err := s.resolveItem(args.Path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(item)
	if err != nil {
		return nil, notFound(display)
	}
	meta := metadataFor(display, info)
	if err := os.RemoveAll(item); err != nil {
		return nil, err
	}
	return map[string]interface{}{"metadata": meta}, nil
}

// relocation validates copy and move arguments.
func (s *Server) relocation(raw map[string]interface{}) (from, to, toDisplay string, err error) {
	var args relocationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", "", "", err
	}
	from, fromDisplay, err := s.resolveItem(args.FromPath)
	if err != nil {
		return "", "", "", err
	}
	to, toDisplay, err = s.resolveItem(args.ToPath)
	if err != nil {
		return "", "", "", err
	}
	if _, err := os.Stat(from); err != nil {
		return "", "", "", notFound(fromDisplay)
	}
	if _, err := os.Stat(to); err == nil {
		return "", "", "", conflict("file", toDisplay)
	}
	if strings.HasPrefix(to+string(filepath.Separator), from+string(filepath.Separator)) {
		return "", "", "", &apiError{Summary: "to/cant_nest_shared_folder/", Path: toDisplay}
	}
	return from, to, toDisplay, nil
}

// resolve maps a Dropbox path ("" or "/" is the root) onto the files directory.
func (s *Server) resolve(p string) (local, display string, err error) {
	if strings.ContainsRune(p, 0) {
		return "", "", malformedPath(p)
	}
	display = path.Clean("/" + strings.TrimSpace(p))
	local = filepath.Join(s.files, filepath.FromSlash(display))
	rel, err := filepath.Rel(s.files, local)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", malformedPath(p)
	}
	if display == "/" {
		display = ""
	}
	return local, display, nil
}

// resolveItem is resolve for arguments that must name an item, not the root.
func (s *Server) resolveItem(p string) (local, display string, err error) {
	local, display, err = s.resolve(p)
	if err != nil {
		return "", "", err
	}
	if display == "" {
		return "", "", malformedPath(p)
	}
	return local, display, nil
}

func metadataFor(display string, info os.FileInfo) Metadata {
	m := Metadata{
		Tag:         "file",
		Name:        path.Base(display),
		PathLower:   strings.ToLower(display),
		PathDisplay: display,
	}
	if info.IsDir() {
		m.Tag = "folder"
		return m
	}
	m.Size = info.Size()
	return m
}

func copyTree(from, to string) error {
	return filepath.WalkDir(from, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, p)
		if err != nil {
			return err
		}
		target := filepath.Join(to, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
