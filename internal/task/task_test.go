package task

import "testing"

func sampleTask() Task {
	return Task{
		Details: Details{
			Description: "Read book",
			ID:          "abc123",
			DependsOn:   []string{"dep1"},
			Tags:        []string{"#a", "#b"},
		},
		Indentation: "\t",
		ListMarker:  "-",
		Location:    NewLocation("notes.md", 3, 0, 0),
	}
}

func TestIdenticalTo(t *testing.T) {
	base := sampleTask()

	other := base
	other.Checked = true
	other.Current = 4
	other.OriginalMarkdown = "changed"
	other.Location = NewLocation("elsewhere.md", 3, 9, 9)
	if !base.IdenticalTo(other) {
		t.Error("fields outside the identity tuple should not affect equality")
	}

	mutations := map[string]func(*Task){
		"description": func(t *Task) { t.Description = "Read paper" },
		"indentation": func(t *Task) { t.Indentation = "" },
		"list marker": func(t *Task) { t.ListMarker = "*" },
		"line number": func(t *Task) { t.Location = NewLocation("notes.md", 4, 0, 0) },
		"id":          func(t *Task) { t.ID = "zzz999" },
		"depends on":  func(t *Task) { t.DependsOn = []string{"dep2"} },
		"tag order":   func(t *Task) { t.Tags = []string{"#b", "#a"} },
		"tag count":   func(t *Task) { t.Tags = []string{"#a"} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			changed := sampleTask()
			mutate(&changed)
			if base.IdenticalTo(changed) {
				t.Errorf("changing %s should break equality", name)
			}
		})
	}
}

func TestListsIdentical(t *testing.T) {
	a := []Task{sampleTask(), sampleTask()}
	b := []Task{sampleTask(), sampleTask()}
	if !ListsIdentical(a, b) {
		t.Error("equal lists reported different")
	}
	if ListsIdentical(a, b[:1]) {
		t.Error("lists of different length reported identical")
	}
	b[1].ID = "other"
	if ListsIdentical(a, b) {
		t.Error("lists with a differing task reported identical")
	}
	if !ListsIdentical(nil, []Task{}) {
		t.Error("empty lists should be identical")
	}
}

func TestIsBlocked(t *testing.T) {
	open := Task{Details: Details{ID: "p1"}}
	done := Task{Details: Details{ID: "p2", Checked: true}}
	all := []Task{open, done}

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"no dependencies", Task{}, false},
		{"depends on open task", Task{Details: Details{DependsOn: []string{"p1"}}}, true},
		{"depends on done task", Task{Details: Details{DependsOn: []string{"p2"}}}, false},
		{"depends on unknown id", Task{Details: Details{DependsOn: []string{"zz"}}}, false},
		{"checked task never blocked", Task{Details: Details{Checked: true, DependsOn: []string{"p1"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsBlocked(all); got != tt.want {
				t.Errorf("IsBlocked: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocationRenamed(t *testing.T) {
	loc := NewLocation("old.md", 7, 5, 2)
	moved := loc.Renamed("new.md")

	if loc.Path() != "old.md" {
		t.Errorf("original location mutated: %q", loc.Path())
	}
	if moved.Path() != "new.md" || moved.LineNumber() != 7 || moved.SectionStart() != 5 || moved.SectionIndex() != 2 {
		t.Errorf("Renamed: got %+v", moved)
	}
	if !moved.HasKnownPath() || (Location{}).HasKnownPath() {
		t.Error("HasKnownPath mismatch")
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		current, total int
		want           float64
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 4, 0.25},
		{4, 4, 1},
		{9, 4, 1},
	}
	for _, tt := range tests {
		tk := Task{Details: Details{Current: tt.current, Total: tt.total}}
		if got := tk.Progress(); got != tt.want {
			t.Errorf("Progress(%d/%d): got %v, want %v", tt.current, tt.total, got, tt.want)
		}
	}
}

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	var existing []string
	for i := 0; i < 200; i++ {
		id := GenerateID(existing)
		if len(id) != idLength {
			t.Fatalf("id %q: got length %d, want %d", id, len(id), idLength)
		}
		for _, c := range id {
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z') {
				t.Fatalf("id %q contains non base36 rune %q", id, c)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		existing = append(existing, id)
	}
}
