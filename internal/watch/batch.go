package watch

import "github.com/nibzard/incrtask/internal/vault"

// Op is the kind of change reported for a document.
type Op int

const (
	OpWrite Op = iota + 1
	OpCreate
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a change to one document. Paths are vault relative.
type Event struct {
	Op   Op
	Path string
	// OldPath is set for OpRename.
	OldPath string
}

// batcher coalesces raw events between flushes. A rename arrives as the
// old name going away followed by a create of the new name; the two are
// paired into one OpRename.
type batcher struct {
	exts    []string
	pending map[string]Event
	order   []string
	// renamed is the old name of a rename waiting for its create.
	renamed string
}

func newBatcher(exts []string) *batcher {
	return &batcher{exts: exts, pending: make(map[string]Event)}
}

func (b *batcher) add(op Op, path string) {
	switch op {
	case OpRename:
		b.closeRename()
		if vault.Supported(path, b.exts) {
			b.renamed = path
		}
		return
	case OpCreate:
		if b.renamed != "" && vault.Supported(path, b.exts) {
			old := b.renamed
			b.renamed = ""
			b.drop(old)
			b.put(Event{Op: OpRename, Path: path, OldPath: old})
			return
		}
		// a temp file renamed over a document also lands here
		b.closeRename()
	}
	if !vault.Supported(path, b.exts) {
		return
	}

	prev, seen := b.pending[path]
	if !seen {
		b.put(Event{Op: op, Path: path})
		return
	}
	switch {
	case op == OpRemove:
		b.pending[path] = Event{Op: OpRemove, Path: path}
	case prev.Op == OpRemove:
		// removed and recreated: the content changed
		b.pending[path] = Event{Op: OpWrite, Path: path}
	case prev.Op == OpCreate || prev.Op == OpRename:
		// keep the stronger event
	default:
		b.pending[path] = Event{Op: op, Path: path}
	}
}

// flush returns the coalesced events in arrival order and resets the batch.
// An unpaired rename is reported as a removal.
func (b *batcher) flush() []Event {
	b.closeRename()
	events := make([]Event, 0, len(b.order))
	for _, p := range b.order {
		if ev, ok := b.pending[p]; ok {
			events = append(events, ev)
		}
	}
	b.pending = make(map[string]Event)
	b.order = b.order[:0]
	return events
}

func (b *batcher) empty() bool {
	return len(b.pending) == 0 && b.renamed == ""
}

func (b *batcher) closeRename() {
	if b.renamed == "" {
		return
	}
	old := b.renamed
	b.renamed = ""
	b.drop(old)
	b.put(Event{Op: OpRemove, Path: old})
}

func (b *batcher) put(ev Event) {
	if _, ok := b.pending[ev.Path]; !ok {
		b.order = append(b.order, ev.Path)
	}
	b.pending[ev.Path] = ev
}

func (b *batcher) drop(path string) {
	if _, ok := b.pending[path]; !ok {
		return
	}
	delete(b.pending, path)
	for i, p := range b.order {
		if p == path {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
