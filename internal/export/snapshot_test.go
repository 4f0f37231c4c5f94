package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nibzard/incrtask/internal/task"
)

func sampleTasks(t *testing.T) []task.Task {
	t.Helper()
	p := task.NewParser("", "")
	lines := []struct {
		path string
		line int
		text string
	}{
		{"b.md", 4, "- [ ] #task/incr Run 🔁 km 1/3 ⛔ run001 🆔 read01 #health"},
		{"a.md", 2, "- [ ] #task/incr Read book 🔁 chapters 0/5 ⛔ read01"},
	}
	var tasks []task.Task
	for _, l := range lines {
		parsed, ok := p.FromLine(l.text, task.NewLocation(l.path, l.line, l.line, 0))
		require.True(t, ok)
		tasks = append(tasks, *parsed)
	}
	return tasks
}

func TestBuildOrdersAndMarksBlocked(t *testing.T) {
	s := Build(sampleTasks(t), "warm")

	assert.Equal(t, SchemaVersion, s.SchemaVersion)
	assert.Equal(t, "warm", s.State)
	require.Len(t, s.Tasks, 2)
	assert.Equal(t, "a.md", s.Tasks[0].Path)
	assert.False(t, s.Tasks[0].Blocked)

	run := s.Tasks[1]
	assert.Equal(t, "Run", run.Description)
	assert.Equal(t, "km", run.Unit)
	assert.Equal(t, []string{"read01"}, run.DependsOn)
	assert.Equal(t, []string{"#health"}, run.Tags)
	assert.Equal(t, -1, run.ParentLine)
	assert.True(t, run.Blocked, "depends on an unchecked task")
}

func TestValidateBundledSchema(t *testing.T) {
	s := Build(sampleTasks(t), "warm")

	result := s.Validate("")
	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Equal(t, "bundled", result.Schema)
	assert.Empty(t, result.Warnings)
}

func TestValidateReportsPaths(t *testing.T) {
	s := Build(sampleTasks(t), "warm")
	s.SchemaVersion = 2
	s.Tasks[1].ID = "not valid"

	result := s.Validate("")
	require.False(t, result.Valid)

	var paths []string
	for _, err := range result.Errors {
		var ve *ValidationError
		if assert.ErrorAs(t, err, &ve) {
			paths = append(paths, ve.Path)
		}
	}
	assert.Contains(t, paths, "schema_version")
	assert.Contains(t, paths, "tasks[1].id")
}

func TestValidateUserSchema(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "strict.json")
	schema := `{"type": "object", "properties": {"tasks": {"maxItems": 1}}}`
	require.NoError(t, os.WriteFile(schemaPath, []byte(schema), 0644))

	result := Build(sampleTasks(t), "warm").Validate(schemaPath)
	assert.Equal(t, schemaPath, result.Schema)
	assert.False(t, result.Valid)
}

func TestValidateMissingSchemaFallsBack(t *testing.T) {
	result := Build(sampleTasks(t), "warm").Validate(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, result.Valid)
	assert.Equal(t, "bundled", result.Schema)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "schema file not found")
}

func TestWriteFormats(t *testing.T) {
	s := Build(sampleTasks(t), "initializing")

	var jsonOut bytes.Buffer
	require.NoError(t, s.Write(&jsonOut, "json"))
	assert.True(t, strings.HasSuffix(jsonOut.String(), "}\n"))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &decoded))
	assert.Equal(t, "initializing", decoded["state"])
	assert.Len(t, decoded["tasks"], 2)

	var yamlOut bytes.Buffer
	require.NoError(t, s.Write(&yamlOut, "YAML"))
	assert.Contains(t, yamlOut.String(), "schema_version: 1")
	var fromYAML map[string]interface{}
	require.NoError(t, yaml.Unmarshal(yamlOut.Bytes(), &fromYAML))
	assert.Equal(t, "initializing", fromYAML["state"])

	assert.ErrorIs(t, s.Write(&bytes.Buffer{}, "xml"), ErrUnknownFormat)
}
