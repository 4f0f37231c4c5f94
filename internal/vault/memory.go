package vault

import (
	"context"
	"io/fs"
	"sort"
	"sync"
)

// Memory is an in-memory Vault, used by tests and dry runs.
type Memory struct {
	mu     sync.Mutex
	files  map[string]string
	writes int

	// WriteErr, when set, is returned by every Write.
	WriteErr error
	// Extensions limits List; nil means DefaultExtensions.
	Extensions []string
}

// NewMemory returns a vault holding a copy of files.
func NewMemory(files map[string]string) *Memory {
	m := &Memory{files: make(map[string]string, len(files))}
	for p, c := range files {
		m.files[p] = c
	}
	return m
}

// Read returns the content of p.
func (m *Memory) Read(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[p]
	if !ok {
		return "", &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	return content, nil
}

// CachedRead is Read.
func (m *Memory) CachedRead(ctx context.Context, p string) (string, error) {
	return m.Read(ctx, p)
}

// Write stores content at p.
func (m *Memory) Write(ctx context.Context, p, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.files[p] = content
	m.writes++
	return nil
}

// Set replaces content without counting as a write.
func (m *Memory) Set(p, content string) {
	m.mu.Lock()
	m.files[p] = content
	m.mu.Unlock()
}

// Delete removes p.
func (m *Memory) Delete(p string) {
	m.mu.Lock()
	delete(m.files, p)
	m.mu.Unlock()
}

// Writes returns how many successful writes happened.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Exists reports whether p is stored.
func (m *Memory) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[p]
	return ok
}

// List returns the stored paths with supported extensions, sorted.
func (m *Memory) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var paths []string
	for p := range m.files {
		if Supported(p, m.Extensions) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// StaticCache is a MetadataCache backed by a fixed map.
type StaticCache map[string]*FileCache

// FileCache returns the entry for path.
func (c StaticCache) FileCache(path string) (*FileCache, bool) {
	fc, ok := c[path]
	return fc, ok
}
