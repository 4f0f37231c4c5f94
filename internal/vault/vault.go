// Package vault reads and writes the Markdown documents that hold tasks and
// maintains a per-file outline of list items and sections.
package vault

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrStaleCache reports an outline that refers to lines past the end of the
// current file content.
var ErrStaleCache = errors.New("structural cache is out of date")

// Vault is the document store. Paths are vault relative and use forward
// slashes.
type Vault interface {
	// Read returns the current content of path.
	Read(ctx context.Context, path string) (string, error)
	// CachedRead may return content cached from an earlier read when the file
	// is unchanged.
	CachedRead(ctx context.Context, path string) (string, error)
	// Write replaces the content of path.
	Write(ctx context.Context, path, content string) error
	// Exists reports whether path names an existing file.
	Exists(path string) bool
	// List returns every supported document in the vault.
	List(ctx context.Context) ([]string, error)
}

// ListItemCache describes one list item line.
type ListItemCache struct {
	Line int `json:"line" yaml:"line"`
	// Parent is the line of the parent list item, or negative for a top
	// level item.
	Parent int  `json:"parent" yaml:"parent"`
	Task   bool `json:"task" yaml:"task"`
}

// SectionCache is an inclusive range of lines forming one block.
type SectionCache struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// FileCache is the structural outline of one file.
type FileCache struct {
	ListItems []ListItemCache `json:"list_items" yaml:"list_items"`
	Sections  []SectionCache  `json:"sections" yaml:"sections"`
}

// MetadataCache provides per-file outlines.
type MetadataCache interface {
	// FileCache returns the outline of path, or false if none is cached.
	FileCache(path string) (*FileCache, bool)
}

// Refresher is a MetadataCache that can rebuild an outline on demand.
type Refresher interface {
	MetadataCache
	Refresh(ctx context.Context, path string) (*FileCache, error)
}

// DefaultExtensions lists the file extensions scanned for tasks.
var DefaultExtensions = []string{"md"}

// Supported reports whether path has one of the extensions (without dots,
// case insensitive).
func Supported(p string, extensions []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ext == "" {
		return false
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// SectionAt returns the section containing line, or nil.
func SectionAt(line int, sections []SectionCache) *SectionCache {
	for i := range sections {
		if sections[i].Start <= line && line <= sections[i].End {
			return &sections[i]
		}
	}
	return nil
}
