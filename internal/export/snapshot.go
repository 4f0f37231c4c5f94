// Package export writes read-only JSON and YAML reports of the task index.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/nibzard/incrtask/internal/task"
	"github.com/nibzard/incrtask/internal/utils"
)

// SchemaVersion is the version written to every snapshot.
const SchemaVersion = 1

//go:embed schema.json
var bundledSchema []byte

const bundledSchemaURL = "https://github.com/nibzard/incrtask/schema/snapshot.json"

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned by Write for formats other than json and yaml.
var ErrUnknownFormat = errors.New("unknown export format")

// Entry is one task in a snapshot.
type Entry struct {
	Path         string   `json:"path" yaml:"path"`
	Line         int      `json:"line" yaml:"line"`
	SectionStart int      `json:"section_start" yaml:"section_start"`
	SectionIndex int      `json:"section_index" yaml:"section_index"`
	ParentLine   int      `json:"parent_line" yaml:"parent_line"`
	Checked      bool     `json:"checked" yaml:"checked"`
	Description  string   `json:"description" yaml:"description"`
	Unit         string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Current      int      `json:"current" yaml:"current"`
	Total        int      `json:"total" yaml:"total"`
	ID           string   `json:"id,omitempty" yaml:"id,omitempty"`
	DependsOn    []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Blocked      bool     `json:"blocked" yaml:"blocked"`
}

// Snapshot is the exported state of the index.
type Snapshot struct {
	SchemaVersion int       `json:"schema_version" yaml:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at" yaml:"generated_at"`
	State         string    `json:"state" yaml:"state"`
	Tasks         []Entry   `json:"tasks" yaml:"tasks"`
}

// Build converts tasks into a snapshot ordered by path and line.
func Build(tasks []task.Task, state string) *Snapshot {
	entries := make([]Entry, 0, len(tasks))
	for _, t := range tasks {
		entries = append(entries, Entry{
			Path:         t.Path(),
			Line:         t.LineNumber(),
			SectionStart: t.Location.SectionStart(),
			SectionIndex: t.Location.SectionIndex(),
			ParentLine:   t.ParentLine,
			Checked:      t.Checked,
			Description:  t.Description,
			Unit:         t.IncrementUnit,
			Current:      t.Current,
			Total:        t.Total,
			ID:           t.ID,
			DependsOn:    t.DependsOn,
			Tags:         t.Tags,
			Blocked:      t.IsBlocked(tasks),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Path != entries[j].Path {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].Line < entries[j].Line
	})
	return &Snapshot{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   time.Now().UTC().Truncate(time.Second),
		State:         state,
		Tasks:         entries,
	}
}

// Write encodes s in format.
func (s *Snapshot) Write(w io.Writer, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return s.WriteJSON(w)
	case FormatYAML, "yml":
		return s.WriteYAML(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteJSON writes s with 2-space indentation and a trailing newline.
func (s *Snapshot) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// WriteYAML writes s as YAML.
func (s *Snapshot) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}

// ValidationError is a schema violation at a location in the snapshot.
type ValidationError struct {
	Path string // dot path to the offending value
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid    bool
	Errors   []error
	Warnings []string
	// Schema names the schema used: "bundled" or the path of a user schema.
	Schema string
}

// Validate checks s against the schema at schemaPath, or the bundled schema
// when schemaPath is empty or cannot be used.
func (s *Snapshot) Validate(schemaPath string) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}

	schema, name, warning := compileSchema(schemaPath)
	if warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}
	result.Schema = name

	data, err := json.Marshal(s)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{Err: fmt.Errorf("marshal snapshot for validation: %w", err)})
		return result
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{Err: fmt.Errorf("unmarshal snapshot for validation: %w", err)})
		return result
	}

	if err := schema.Validate(doc); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}
	return result
}

// compileSchema loads the user schema, falling back to the bundled one with
// a warning.
func compileSchema(schemaPath string) (*jsonschema.Schema, string, string) {
	warning := ""
	if schemaPath != "" {
		schema, err := compileFile(schemaPath)
		if err == nil {
			return schema, schemaPath, ""
		}
		warning = fmt.Sprintf("%v; using bundled schema", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(bundledSchemaURL, bytes.NewReader(bundledSchema)); err != nil {
		panic(fmt.Sprintf("bundled schema: %v", err))
	}
	return compiler.MustCompile(bundledSchemaURL), "bundled", warning
}

func compileFile(schemaPath string) (*jsonschema.Schema, error) {
	absPath, err := filepath.Abs(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("invalid schema path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("schema file not found: %s", absPath)
		}
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(absPath)
	if err != nil {
		return nil, fmt.Errorf("invalid schema file: %w", err)
	}
	return schema, nil
}

func appendSchemaErrors(result *ValidationResult, err error) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		result.Errors = append(result.Errors, err)
		return
	}
	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: utils.JSONPointerToPath(err.InstanceLocation),
			Err:  errors.New(err.Message),
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}
