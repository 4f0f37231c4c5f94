// Package logging provides the console logger, user notices, and the JSONL
// edit log with its tail output.
package logging

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EditLog records index updates and edit attempts as JSON lines, one file
// per process under <base>/<vault-slug>/<run-id>.jsonl.
type EditLog struct {
	Dir     string
	RunID   string
	LogPath string

	file   *os.File
	logger zerolog.Logger
}

// NewEditLog creates the per-vault log directory and a fresh JSONL file.
func NewEditLog(baseDir, vaultDir string) (*EditLog, error) {
	logDir, err := FindLogDir(baseDir, vaultDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	id := runID()
	logPath := filepath.Join(logDir, id+".jsonl")
	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	return &EditLog{
		Dir:     logDir,
		RunID:   id,
		LogPath: logPath,
		file:    file,
		logger:  newJSONLogger(file, id),
	}, nil
}

// NewEditLogWriter returns an edit log writing to w, without a file.
func NewEditLogWriter(w io.Writer) *EditLog {
	id := runID()
	return &EditLog{RunID: id, logger: newJSONLogger(w, id)}
}

func newJSONLogger(w io.Writer, id string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("run_id", id).Logger()
}

// Close closes the log file.
func (e *EditLog) Close() error {
	if e == nil || e.file == nil {
		return nil
	}
	return e.file.Close()
}

func resolveBaseDir(baseDir, workDir string) string {
	if strings.HasPrefix(baseDir, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			baseDir = filepath.Join(home, strings.TrimPrefix(baseDir, "~"))
		}
	}
	if filepath.IsAbs(baseDir) {
		return filepath.Clean(baseDir)
	}
	return filepath.Clean(filepath.Join(workDir, baseDir))
}

// resolveProjectRoot prefers the enclosing git work tree so that every vault
// subdirectory shares one log directory.
func resolveProjectRoot(workDir string) string {
	if workDir == "" {
		return "."
	}
	if _, err := exec.LookPath("git"); err == nil {
		cmd := exec.Command("git", "-C", workDir, "rev-parse", "--show-toplevel")
		if output, err := cmd.Output(); err == nil {
			if root := strings.TrimSpace(string(output)); root != "" {
				return root
			}
		}
	}
	return workDir
}

func projectSlug(projectRoot string) string {
	return fmt.Sprintf("%s-%s", slugify(filepath.Base(projectRoot)), hashPath(projectRoot))
}

func slugify(input string) string {
	if strings.TrimSpace(input) == "" {
		return "vault"
	}

	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "vault"
	}
	return slug
}

func hashPath(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}

func runID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}

// FindLogDir returns the log directory used for a vault.
func FindLogDir(baseDir, vaultDir string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("log base dir is empty")
	}

	resolved := vaultDir
	if resolved == "" {
		resolved = "."
	}
	if abs, err := filepath.Abs(resolved); err == nil {
		resolved = abs
	}

	base := resolveBaseDir(baseDir, resolved)
	return filepath.Join(base, projectSlug(resolveProjectRoot(resolved))), nil
}

// FindLatestLog returns the most recently modified JSONL file in logDir, or
// "" when there is none.
func FindLatestLog(logDir string) (string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read log dir: %w", err)
	}

	var latest string
	var latestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latest = filepath.Join(logDir, entry.Name())
		}
	}
	return latest, nil
}

// TailLog copies the last n lines of path to w (all of it when n <= 0) and
// keeps following the file when follow is set.
func TailLog(w io.Writer, path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n > 0 {
		if err := tailSeek(file, n); err != nil {
			return fmt.Errorf("seek to tail position: %w", err)
		}
	}

	if follow {
		return tailFollow(w, file)
	}
	_, err = io.Copy(w, file)
	return err
}

// tailSeek positions file roughly n lines before the end.
func tailSeek(file *os.File, n int) error {
	const avgLineLength = 160

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	offset := stat.Size() - int64(n*avgLineLength)
	if offset <= 0 {
		_, err = file.Seek(0, io.SeekStart)
		return err
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	// drop the partial first line
	buf := make([]byte, 1)
	for {
		if _, err := file.Read(buf); err != nil || buf[0] == '\n' {
			return nil
		}
	}
}

func tailFollow(w io.Writer, file *os.File) error {
	for {
		if _, err := io.Copy(w, file); err != nil {
			return err
		}
		time.Sleep(100 * time.Millisecond)
	}
}
