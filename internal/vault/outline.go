package vault

import (
	"context"
	"regexp"
	"strings"
	"sync"
)

var (
	outlineListItemRegex = regexp.MustCompile(`^([ \t>]*)([-*+]|[0-9]+[.)])(\s|$)`)
	outlineTaskRegex     = regexp.MustCompile(`^[ \t>]*([-*+]|[0-9]+[.)])\s+\[.\]`)
	headingRegex         = regexp.MustCompile(`^#{1,6}(\s|$)`)
)

// Outline is a MetadataCache built from file content. Outlines are only
// rebuilt by Refresh, so a cached outline may lag behind the file.
type Outline struct {
	vault Vault

	mu      sync.RWMutex
	entries map[string]*FileCache
}

// NewOutline returns an empty outline cache reading through v.
func NewOutline(v Vault) *Outline {
	return &Outline{vault: v, entries: make(map[string]*FileCache)}
}

// FileCache returns the last outline built for path.
func (o *Outline) FileCache(path string) (*FileCache, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	fc, ok := o.entries[path]
	return fc, ok
}

// Refresh rebuilds the outline of path from its current content.
func (o *Outline) Refresh(ctx context.Context, path string) (*FileCache, error) {
	content, err := o.vault.CachedRead(ctx, path)
	if err != nil {
		return nil, err
	}
	fc := BuildFileCache(content)

	o.mu.Lock()
	o.entries[path] = fc
	o.mu.Unlock()
	return fc, nil
}

// Invalidate drops the outline of path.
func (o *Outline) Invalidate(path string) {
	o.mu.Lock()
	delete(o.entries, path)
	o.mu.Unlock()
}

// Rename moves a cached outline to a new path.
func (o *Outline) Rename(oldPath, newPath string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if fc, ok := o.entries[oldPath]; ok {
		o.entries[newPath] = fc
		delete(o.entries, oldPath)
	}
}

type listFrame struct {
	indent int
	line   int
}

// BuildFileCache derives list items and sections from Markdown content.
//
// A section is a heading line, a fenced code block, or a run of non-blank
// lines. List item parents come from indentation; top level items have
// Parent -1. Lines inside code fences are never list items.
func BuildFileCache(content string) *FileCache {
	lines := strings.Split(content, "\n")
	fc := &FileCache{}

	start := -1
	fence := ""
	var stack []listFrame

	closeSection := func(end int) {
		if start >= 0 && end >= start {
			fc.Sections = append(fc.Sections, SectionCache{Start: start, End: end})
		}
		start = -1
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
				closeSection(i)
			}
			continue
		}
		if f := fenceMarker(trimmed); f != "" {
			closeSection(i - 1)
			start = i
			fence = f
			stack = nil
			continue
		}
		if trimmed == "" {
			closeSection(i - 1)
			continue
		}
		if headingRegex.MatchString(trimmed) && indentWidth(line) < 4 {
			closeSection(i - 1)
			fc.Sections = append(fc.Sections, SectionCache{Start: i, End: i})
			stack = nil
			continue
		}
		if start < 0 {
			start = i
		}

		m := outlineListItemRegex.FindStringSubmatch(line)
		if m == nil {
			if indentWidth(line) == 0 {
				stack = nil
			}
			continue
		}

		indent := indentWidth(m[1])
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1].line
		}
		fc.ListItems = append(fc.ListItems, ListItemCache{
			Line:   i,
			Parent: parent,
			Task:   outlineTaskRegex.MatchString(line),
		})
		stack = append(stack, listFrame{indent: indent, line: i})
	}
	closeSection(len(lines) - 1)

	return fc
}

func fenceMarker(trimmed string) string {
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "```"
	case strings.HasPrefix(trimmed, "~~~"):
		return "~~~"
	}
	return ""
}

// indentWidth measures leading whitespace, counting a tab as four columns.
func indentWidth(s string) int {
	width := 0
	for _, r := range s {
		switch r {
		case ' ', '>':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}
