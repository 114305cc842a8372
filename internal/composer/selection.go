package composer

import (
	"sort"
	"strings"

	"podcast-studio-be/pkg/contentapi"
)

// NotebookSelection holds the per-item inclusion choices for one notebook.
// An item set to ModeOff keeps its slot.
type NotebookSelection struct {
	Sources map[string]InclusionMode `json:"sources"`
	Notes   map[string]InclusionMode `json:"notes"`
}

func newNotebookSelection() *NotebookSelection {
	return &NotebookSelection{
		Sources: make(map[string]InclusionMode),
		Notes:   make(map[string]InclusionMode),
	}
}

func (s *NotebookSelection) clone() *NotebookSelection {
	c := &NotebookSelection{
		Sources: make(map[string]InclusionMode, len(s.Sources)),
		Notes:   make(map[string]InclusionMode, len(s.Notes)),
	}
	for id, m := range s.Sources {
		c.Sources[id] = m
	}
	for id, m := range s.Notes {
		c.Notes[id] = m
	}
	return c
}

func (s *NotebookSelection) SelectedSources() int { return countActive(s.Sources) }
func (s *NotebookSelection) SelectedNotes() int   { return countActive(s.Notes) }

func (s *NotebookSelection) HasSelections() bool {
	return s.SelectedSources() > 0 || s.SelectedNotes() > 0
}

// Config builds the context-build configuration, dropping items that are off.
// Ids are sent without their "source:" / "note:" table prefix.
func (s *NotebookSelection) Config() contentapi.ContextConfig {
	cfg := contentapi.ContextConfig{
		Sources: make(map[string]string),
		Notes:   make(map[string]string),
	}
	for id, mode := range s.Sources {
		if mode.Active() {
			cfg.Sources[strings.TrimPrefix(id, "source:")] = mode.label()
		}
	}
	for id, mode := range s.Notes {
		if mode.Active() {
			cfg.Notes[strings.TrimPrefix(id, "note:")] = labelFullContent
		}
	}
	return cfg
}

func countActive(items map[string]InclusionMode) int {
	n := 0
	for _, m := range items {
		if m.Active() {
			n++
		}
	}
	return n
}

type CheckState string

const (
	CheckUnchecked     CheckState = "unchecked"
	CheckIndeterminate CheckState = "indeterminate"
	CheckChecked       CheckState = "checked"
)

type NotebookSummary struct {
	NotebookId      string     `json:"notebook_id"`
	SourcesSelected int        `json:"sources_selected"`
	NotesSelected   int        `json:"notes_selected"`
	TotalKnown      int        `json:"total_known"`
	State           CheckState `json:"check_state"`
}

// SelectionTree maps notebook id to its selection. Records are created on
// first load or first write; insertion order is kept so iteration is
// deterministic. Every effective mutation bumps the version.
type SelectionTree struct {
	order     []string
	notebooks map[string]*NotebookSelection
	version   uint64
}

func NewSelectionTree() *SelectionTree {
	return &SelectionTree{notebooks: make(map[string]*NotebookSelection)}
}

func (t *SelectionTree) Version() uint64 { return t.version }

func (t *SelectionTree) Has(notebookId string) bool {
	_, ok := t.notebooks[notebookId]
	return ok
}

// SourceMode returns the recorded mode of a source.
func (t *SelectionTree) SourceMode(notebookId, sourceId string) (InclusionMode, bool) {
	sel, ok := t.notebooks[notebookId]
	if !ok {
		return "", false
	}
	m, ok := sel.Sources[sourceId]
	return m, ok
}

func (t *SelectionTree) NoteMode(notebookId, noteId string) (InclusionMode, bool) {
	sel, ok := t.notebooks[notebookId]
	if !ok {
		return "", false
	}
	m, ok := sel.Notes[noteId]
	return m, ok
}

func (t *SelectionTree) entry(notebookId string) *NotebookSelection {
	sel, ok := t.notebooks[notebookId]
	if !ok {
		sel = newNotebookSelection()
		t.notebooks[notebookId] = sel
		t.order = append(t.order, notebookId)
		t.version++
	}
	return sel
}

// Seed records the default mode for every item not yet observed in the
// notebook, creating the notebook record if needed. Existing choices,
// including explicit offs, are never touched. Returns true when anything
// was added.
func (t *SelectionTree) Seed(notebookId string, sources []contentapi.Source, notes []contentapi.Note) bool {
	before := t.version
	sel := t.entry(notebookId)
	added := false
	for _, src := range sources {
		if _, seen := sel.Sources[src.Id]; !seen {
			sel.Sources[src.Id] = DefaultSourceMode(src)
			added = true
		}
	}
	for _, note := range notes {
		if _, seen := sel.Notes[note.Id]; !seen {
			sel.Notes[note.Id] = DefaultNoteMode(note)
			added = true
		}
	}
	if added {
		t.version++
	}
	return t.version != before
}

// ToggleNotebook rewrites the notebook record from the currently known items:
// checked restores every item's default, unchecked turns every item off.
func (t *SelectionTree) ToggleNotebook(notebookId string, checked bool, sources []contentapi.Source, notes []contentapi.Note) {
	next := newNotebookSelection()
	for _, src := range sources {
		if checked {
			next.Sources[src.Id] = DefaultSourceMode(src)
		} else {
			next.Sources[src.Id] = ModeOff
		}
	}
	for _, note := range notes {
		if checked {
			next.Notes[note.Id] = DefaultNoteMode(note)
		} else {
			next.Notes[note.Id] = ModeOff
		}
	}
	t.entry(notebookId)
	t.notebooks[notebookId] = next
	t.version++
}

func (t *SelectionTree) SetSourceMode(notebookId, sourceId string, mode InclusionMode) {
	sel := t.entry(notebookId)
	if cur, ok := sel.Sources[sourceId]; ok && cur == mode {
		return
	}
	sel.Sources[sourceId] = mode
	t.version++
}

func (t *SelectionTree) ToggleNote(notebookId, noteId string, checked bool) {
	mode := ModeOff
	if checked {
		mode = ModeFull
	}
	sel := t.entry(notebookId)
	if cur, ok := sel.Notes[noteId]; ok && cur == mode {
		return
	}
	sel.Notes[noteId] = mode
	t.version++
}

func (t *SelectionTree) HasSelections(notebookId string) bool {
	sel, ok := t.notebooks[notebookId]
	return ok && sel.HasSelections()
}

func (t *SelectionTree) Summary(notebookId string) NotebookSummary {
	sum := NotebookSummary{NotebookId: notebookId, State: CheckUnchecked}
	sel, ok := t.notebooks[notebookId]
	if !ok {
		return sum
	}
	sum.SourcesSelected = sel.SelectedSources()
	sum.NotesSelected = sel.SelectedNotes()
	sum.TotalKnown = len(sel.Sources) + len(sel.Notes)

	selected := sum.SourcesSelected + sum.NotesSelected
	switch {
	case selected == 0:
		sum.State = CheckUnchecked
	case selected < sum.TotalKnown:
		sum.State = CheckIndeterminate
	default:
		sum.State = CheckChecked
	}
	return sum
}

func (t *SelectionTree) TotalSelected() int {
	total := 0
	for _, sel := range t.notebooks {
		total += sel.SelectedSources() + sel.SelectedNotes()
	}
	return total
}

func (t *SelectionTree) Snapshot() Snapshot {
	snap := Snapshot{
		Version:   t.version,
		Notebooks: make([]NotebookSnapshot, 0, len(t.order)),
	}
	for _, id := range t.order {
		snap.Notebooks = append(snap.Notebooks, NotebookSnapshot{
			NotebookId: id,
			Selection:  t.notebooks[id].clone(),
		})
	}
	return snap
}

// Reset drops every record. The version keeps increasing so results computed
// against the old tree can still be told apart.
func (t *SelectionTree) Reset() {
	t.order = nil
	t.notebooks = make(map[string]*NotebookSelection)
	t.version++
}

type NotebookSnapshot struct {
	NotebookId string
	Selection  *NotebookSelection
}

// Snapshot is an immutable copy of the tree stamped with its version.
type Snapshot struct {
	Version   uint64
	Notebooks []NotebookSnapshot
}

// Requests returns one context-build request per notebook with at least one
// active item, in snapshot order.
func (s Snapshot) Requests() []contentapi.BuildContextRequest {
	out := make([]contentapi.BuildContextRequest, 0, len(s.Notebooks))
	for _, nb := range s.Notebooks {
		cfg := nb.Selection.Config()
		if len(cfg.Sources) == 0 && len(cfg.Notes) == 0 {
			continue
		}
		out = append(out, contentapi.BuildContextRequest{
			NotebookId:    nb.NotebookId,
			ContextConfig: cfg,
		})
	}
	return out
}

// OrderedBy returns a copy with notebooks listed in the given order first;
// notebooks missing from order keep their relative position at the end.
func (s Snapshot) OrderedBy(order []string) Snapshot {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	out := Snapshot{Version: s.Version, Notebooks: make([]NotebookSnapshot, len(s.Notebooks))}
	copy(out.Notebooks, s.Notebooks)
	sort.SliceStable(out.Notebooks, func(i, j int) bool {
		ri, iok := rank[out.Notebooks[i].NotebookId]
		rj, jok := rank[out.Notebooks[j].NotebookId]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}
