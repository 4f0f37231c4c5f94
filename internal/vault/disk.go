package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

// Disk is a Vault rooted at a directory.
type Disk struct {
	root       string
	extensions []string

	mu    sync.Mutex
	cache map[string]cachedFile
}

type cachedFile struct {
	modTime time.Time
	size    int64
	content string
}

// NewDisk returns a vault rooted at root. Only files with one of the
// extensions are listed.
func NewDisk(root string, extensions []string) (*Disk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault %s is not a directory", abs)
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Disk{
		root:       abs,
		extensions: extensions,
		cache:      make(map[string]cachedFile),
	}, nil
}

// Root returns the absolute vault directory.
func (d *Disk) Root() string { return d.root }

// Extensions returns the supported file extensions.
func (d *Disk) Extensions() []string { return d.extensions }

// Abs returns the filesystem path for a vault path.
func (d *Disk) Abs(p string) string {
	return filepath.Join(d.root, filepath.FromSlash(p))
}

// Rel converts a filesystem path into a vault path. Relative inputs are
// resolved against the working directory.
func (d *Disk) Rel(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(d.root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside vault %s", p, d.root)
	}
	return filepath.ToSlash(rel), nil
}

// Read returns the content of p and refreshes the read cache.
func (d *Disk) Read(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs := d.Abs(p)
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	content := string(data)

	d.mu.Lock()
	d.cache[p] = cachedFile{modTime: info.ModTime(), size: info.Size(), content: content}
	d.mu.Unlock()
	return content, nil
}

// CachedRead returns cached content while the file's size and modification
// time are unchanged.
func (d *Disk) CachedRead(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(d.Abs(p))
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	cached, ok := d.cache[p]
	d.mu.Unlock()
	if ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.content, nil
	}
	return d.Read(ctx, p)
}

// Write atomically replaces the content of p.
func (d *Disk) Write(ctx context.Context, p, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs := d.Abs(p)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	if err := atomic.WriteFile(abs, strings.NewReader(content)); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	d.mu.Lock()
	delete(d.cache, p)
	d.mu.Unlock()
	return nil
}

// Exists reports whether p is an existing regular file.
func (d *Disk) Exists(p string) bool {
	info, err := os.Stat(d.Abs(p))
	return err == nil && info.Mode().IsRegular()
}

// Forget drops any cached content for p.
func (d *Disk) Forget(p string) {
	d.mu.Lock()
	delete(d.cache, p)
	d.mu.Unlock()
}

// List walks the vault and returns every supported file, sorted. Hidden
// directories are skipped.
func (d *Disk) List(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if p != d.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || !Supported(entry.Name(), d.extensions) {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list vault: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
