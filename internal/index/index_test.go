package index

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibzard/incrtask/internal/logging"
	"github.com/nibzard/incrtask/internal/metrics"
	"github.com/nibzard/incrtask/internal/task"
	"github.com/nibzard/incrtask/internal/vault"
)

const booksDoc = "# Books\n" +
	"\n" +
	"- [ ] #task/incr Read book 🔁 chapters 0/5 ⛔ abc123\n" +
	"\t- [ ] #task Read book - chapters 1 🆔 abc123\n" +
	"- [ ] plain checkbox\n" +
	"- notes\n" +
	"\t- [x] #task/incr Nested 🔁 pages 2/2 ⛔ nest01\n" +
	"\n" +
	"- [ ] #task/incr Second section 🔁 km 1/3\n"

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) add(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder) last() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func newTestIndex(files map[string]string) (*Index, *vault.Memory, *vault.Outline) {
	mem := vault.NewMemory(files)
	outline := vault.NewOutline(mem)
	idx := New(mem, outline, Options{Metrics: metrics.New()})
	return idx, mem, outline
}

func TestTasksFromContent(t *testing.T) {
	fc := vault.BuildFileCache(booksDoc)
	tasks, err := TasksFromContent("books.md", booksDoc, fc, task.NewParser("", ""), nil)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	first := tasks[0]
	assert.Equal(t, "Read book", first.Description)
	assert.Equal(t, 2, first.LineNumber())
	assert.Equal(t, 2, first.Location.SectionStart())
	assert.Equal(t, 0, first.Location.SectionIndex())
	assert.Equal(t, -1, first.ParentLine)

	nested := tasks[1]
	assert.Equal(t, "Nested", nested.Description)
	assert.Equal(t, 1, nested.Location.SectionIndex())
	assert.Equal(t, 5, nested.ParentLine, "parent is the plain list item above")
	assert.True(t, nested.Checked)

	second := tasks[2]
	assert.Equal(t, 8, second.Location.SectionStart())
	assert.Equal(t, 0, second.Location.SectionIndex(), "ordinal resets in a new section")
}

func TestTasksFromContentStaleCache(t *testing.T) {
	fc := vault.BuildFileCache(booksDoc)
	tasks, err := TasksFromContent("books.md", "# Books\n", fc, task.NewParser("", ""), nil)
	assert.ErrorIs(t, err, vault.ErrStaleCache)
	assert.Empty(t, tasks)
}

func TestTasksFromContentSkipsItemsOutsideSections(t *testing.T) {
	content := "- [ ] #task/incr A 🔁 u 0/1\n- [ ] #task/incr B 🔁 u 0/1\n"
	fc := &vault.FileCache{
		ListItems: []vault.ListItemCache{{Line: 0, Parent: -1, Task: true}, {Line: 1, Parent: -1, Task: true}},
		Sections:  []vault.SectionCache{{Start: 1, End: 1}},
	}
	tasks, err := TasksFromContent("a.md", content, fc, task.NewParser("", ""), nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "B", tasks[0].Description)
}

func TestIndexAllAndState(t *testing.T) {
	idx, _, _ := newTestIndex(map[string]string{
		"books.md": booksDoc,
		"empty.md": "nothing here\n",
		"skip.txt": "- [ ] #task/incr Ignored 🔁 u 0/1\n",
	})
	rec := &recorder{}
	idx.Subscribe(rec.add)

	assert.Equal(t, StateCold, idx.State())
	require.NoError(t, idx.IndexAll(context.Background()))
	assert.Equal(t, StateWarm, idx.State())

	assert.Len(t, idx.Tasks(), 3)
	assert.ElementsMatch(t, []string{"abc123", "nest01"}, idx.IDs())
	require.Equal(t, 1, rec.count())
	assert.Equal(t, StateWarm, rec.last().State)
	assert.Len(t, rec.last().Tasks, 3)
}

func TestIndexFileDiffSuppression(t *testing.T) {
	idx, mem, outline := newTestIndex(map[string]string{"books.md": booksDoc})
	ctx := context.Background()
	require.NoError(t, idx.IndexAll(ctx))

	rec := &recorder{}
	idx.Subscribe(rec.add)

	// unchanged content: no notification
	require.NoError(t, idx.IndexFile(ctx, "books.md"))
	assert.Equal(t, 0, rec.count())

	// toggled checkbox: published
	mem.Set("books.md", replaceLine(booksDoc, 2, "- [x] #task/incr Read book 🔁 chapters 0/5 ⛔ abc123"))
	_, err := outline.Refresh(ctx, "books.md")
	require.NoError(t, err)
	require.NoError(t, idx.IndexFile(ctx, "books.md"))
	require.Equal(t, 1, rec.count())
	assert.True(t, rec.last().Tasks[0].Checked)

	// description change: published
	mem.Set("books.md", replaceLine(booksDoc, 2, "- [x] #task/incr Read novel 🔁 chapters 0/5 ⛔ abc123"))
	_, err = outline.Refresh(ctx, "books.md")
	require.NoError(t, err)
	require.NoError(t, idx.IndexFile(ctx, "books.md"))
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, "Read novel", idx.TasksIn("books.md")[0].Description)
}

func TestIndexFileReplacesOnlyThatFile(t *testing.T) {
	idx, mem, outline := newTestIndex(map[string]string{
		"a.md": "- [ ] #task/incr A 🔁 u 0/2 ⛔ aaaaaa\n",
		"b.md": "- [ ] #task/incr B 🔁 u 0/2 ⛔ bbbbbb\n",
	})
	ctx := context.Background()
	require.NoError(t, idx.IndexAll(ctx))

	mem.Set("a.md", "no tasks any more\n")
	_, err := outline.Refresh(ctx, "a.md")
	require.NoError(t, err)
	require.NoError(t, idx.IndexFile(ctx, "a.md"))

	tasks := idx.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "b.md", tasks[0].Path())
}

func TestIndexFileWithoutOutline(t *testing.T) {
	mem := vault.NewMemory(map[string]string{"a.md": "- [ ] #task/incr A 🔁 u 0/1\n"})
	idx := New(mem, vault.StaticCache{}, Options{})

	require.NoError(t, idx.IndexFile(context.Background(), "a.md"))
	assert.Empty(t, idx.Tasks())
	assert.Equal(t, StateInitializing, idx.State())
}

func TestIndexFileStaleOutlineYieldsZeroTasks(t *testing.T) {
	idx, mem, _ := newTestIndex(map[string]string{"books.md": booksDoc})
	ctx := context.Background()
	require.NoError(t, idx.IndexAll(ctx))
	require.NotEmpty(t, idx.Tasks())

	// file shrinks but the outline is not refreshed
	mem.Set("books.md", "# Books\n")
	require.NoError(t, idx.IndexFile(ctx, "books.md"))
	assert.Empty(t, idx.Tasks())
}

func TestRemoveAndRename(t *testing.T) {
	idx, _, _ := newTestIndex(map[string]string{
		"a.md": "- [ ] #task/incr A 🔁 u 0/2 ⛔ aaaaaa\n",
		"b.md": "- [ ] #task/incr B 🔁 u 0/2 ⛔ bbbbbb\n",
	})
	require.NoError(t, idx.IndexAll(context.Background()))

	rec := &recorder{}
	unsubscribe := idx.Subscribe(rec.add)

	idx.Rename("a.md", "archive/a.md")
	assert.Len(t, idx.TasksIn("archive/a.md"), 1)
	assert.Empty(t, idx.TasksIn("a.md"))
	assert.Equal(t, 1, rec.count())

	idx.RemoveFile("b.md")
	assert.Len(t, idx.Tasks(), 1)
	assert.Equal(t, 2, rec.count())

	// removing an unknown file publishes nothing
	idx.RemoveFile("nope.md")
	assert.Equal(t, 2, rec.count())

	unsubscribe()
	idx.RemoveFile("archive/a.md")
	assert.Equal(t, 2, rec.count())
	assert.Empty(t, idx.Tasks())
}

// failingVault makes CachedRead fail for one path.
type failingVault struct {
	*vault.Memory
	fail string
}

func (f failingVault) CachedRead(ctx context.Context, p string) (string, error) {
	if p == f.fail {
		return "", errors.New("permission denied")
	}
	return f.Memory.CachedRead(ctx, p)
}

func TestIndexAllContinuesPastUnreadableFiles(t *testing.T) {
	mem := vault.NewMemory(map[string]string{
		"good.md": "- [ ] #task/incr Good 🔁 u 0/1\n",
		"bad.md":  "- [ ] #task/incr Bad 🔁 u 0/1\n",
	})
	fv := failingVault{Memory: mem, fail: "bad.md"}
	cache := vault.StaticCache{
		"good.md": vault.BuildFileCache("- [ ] #task/incr Good 🔁 u 0/1\n"),
		"bad.md":  vault.BuildFileCache("- [ ] #task/incr Bad 🔁 u 0/1\n"),
	}
	idx := New(fv, cache, Options{Workers: 1})

	require.NoError(t, idx.IndexAll(context.Background()))
	tasks := idx.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Good", tasks[0].Description)
}

func TestReportIsLoudOnlyWhileInitializing(t *testing.T) {
	notices := &logging.Recorder{}
	idx := New(vault.NewMemory(nil), vault.StaticCache{}, Options{Notifier: notices})
	item := vault.ListItemCache{Line: 4, Task: true}

	idx.report("a.md", item, "- [ ] bad", errors.New("boom"))
	assert.Equal(t, 0, notices.Count(logging.LevelWarn), "cold index stays quiet")

	idx.begin()
	idx.report("a.md", item, "- [ ] bad", errors.New("boom"))
	require.Equal(t, 1, notices.Count(logging.LevelWarn))
	assert.Contains(t, notices.Notices()[0].Message, "a.md line 5")

	idx.mu.Lock()
	idx.state = StateWarm
	idx.mu.Unlock()
	idx.report("a.md", item, "- [ ] bad", errors.New("boom"))
	assert.Equal(t, 1, notices.Count(logging.LevelWarn), "warm index stays quiet")
}

func replaceLine(content string, n int, line string) string {
	lines := strings.Split(content, "\n")
	lines[n] = line
	return strings.Join(lines, "\n")
}
