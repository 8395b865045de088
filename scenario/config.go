// Package scenario drives the fixed end-to-end Dropbox workflow against an
// MCP server and records one result per step.
package scenario

import (
	"path"
	"strings"
)

// Default scenario values.
const (
	DefaultFolder      = "/MCP Test Folder"
	DefaultFileName    = "test_file.txt"
	DefaultContent     = "Hello, this is a test file created by the Dropbox MCP test suite."
	DefaultSearchQuery = "test_file"
	DefaultMaxResults  = 10
)

// Config holds the folder, file and search parameters used by the steps.
type Config struct {
	Folder      string `mapstructure:"folder"`
	FileName    string `mapstructure:"file_name"`
	Content     string `mapstructure:"content"`
	SearchQuery string `mapstructure:"search_query"`
	MaxResults  int    `mapstructure:"max_results"`
}

// DefaultConfig returns the stock scenario parameters.
func DefaultConfig() Config {
	return Config{
		Folder:      DefaultFolder,
		FileName:    DefaultFileName,
		Content:     DefaultContent,
		SearchQuery: DefaultSearchQuery,
		MaxResults:  DefaultMaxResults,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.Folder) == "" {
		c.Folder = d.Folder
	}
	if !strings.HasPrefix(c.Folder, "/") {
		c.Folder = "/" + c.Folder
	}
	c.Folder = strings.TrimSuffix(c.Folder, "/")
	if c.Folder == "" {
		c.Folder = d.Folder
	}
	if c.FileName == "" {
		c.FileName = d.FileName
	}
	if c.Content == "" {
		c.Content = d.Content
	}
	if c.SearchQuery == "" {
		c.SearchQuery = d.SearchQuery
	}
	if c.MaxResults <= 0 {
		c.MaxResults = d.MaxResults
	}
	return c
}

// FilePath is the path of the uploaded file.
func (c Config) FilePath() string {
	return path.Join(c.Folder, c.FileName)
}

// CopyName is the file name of the copy made in step 11.
func (c Config) CopyName() string {
	return suffixed(c.FileName, "_copy")
}

// CopyPath is the path of the copy made in step 11.
func (c Config) CopyPath() string {
	return path.Join(c.Folder, c.CopyName())
}

// RenamedName is the file name the copy is moved to in step 12.
func (c Config) RenamedName() string {
	return suffixed(c.FileName, "_renamed")
}

// RenamedPath is the path the copy is moved to in step 12.
func (c Config) RenamedPath() string {
	return path.Join(c.Folder, c.RenamedName())
}

func suffixed(name, suffix string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}
