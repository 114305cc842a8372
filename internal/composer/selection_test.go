package composer

import (
	"errors"
	"math/rand"
	"testing"

	"podcast-studio-be/pkg/contentapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultModes(t *testing.T) {
	assert.Equal(t, ModeInsights, DefaultSourceMode(src("s1", 2)))
	assert.Equal(t, ModeFull, DefaultSourceMode(src("s2", 0)))
	assert.Equal(t, ModeFull, DefaultNoteMode(note("n1")))
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"off", "insights", "full"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, InclusionMode(s), m)
	}
	_, err := ParseMode("summary")
	assert.True(t, errors.Is(err, ErrInvalidMode))
}

func TestSeedNeverOverwritesExplicitChoices(t *testing.T) {
	tree := NewSelectionTree()
	sources := []contentapi.Source{src("s1", 2), src("s2", 0)}
	notes := []contentapi.Note{note("n1")}

	assert.True(t, tree.Seed("A", sources, notes))
	tree.SetSourceMode("A", "s1", ModeOff)
	tree.ToggleNote("A", "n1", false)

	version := tree.Version()
	assert.False(t, tree.Seed("A", sources, notes), "second seed must be a no-op")
	assert.Equal(t, version, tree.Version())

	m, _ := tree.SourceMode("A", "s1")
	assert.Equal(t, ModeOff, m)
	m, _ = tree.NoteMode("A", "n1")
	assert.Equal(t, ModeOff, m)

	// A newly observed item still gets its default.
	assert.True(t, tree.Seed("A", append(sources, src("s3", 1)), notes))
	m, _ = tree.SourceMode("A", "s3")
	assert.Equal(t, ModeInsights, m)
}

func TestToggleNotebookOffThenOnRestoresDefaults(t *testing.T) {
	tree := NewSelectionTree()
	sources := []contentapi.Source{src("s1", 2), src("s2", 0)}
	notes := []contentapi.Note{note("n1")}
	tree.Seed("A", sources, notes)

	tree.SetSourceMode("A", "s1", ModeFull)
	tree.ToggleNotebook("A", false, sources, notes)
	assert.Equal(t, CheckUnchecked, tree.Summary("A").State)
	assert.Equal(t, 3, tree.Summary("A").TotalKnown, "off entries keep their slot")

	tree.ToggleNotebook("A", true, sources, notes)
	m, _ := tree.SourceMode("A", "s1")
	assert.Equal(t, ModeInsights, m, "custom full mode is not remembered")
	m, _ = tree.SourceMode("A", "s2")
	assert.Equal(t, ModeFull, m)
	m, _ = tree.NoteMode("A", "n1")
	assert.Equal(t, ModeFull, m)
	assert.Equal(t, CheckChecked, tree.Summary("A").State)
}

func TestCheckStateFollowsKnownItems(t *testing.T) {
	sources := []contentapi.Source{src("s1", 2), src("s2", 0), src("s3", 1)}
	notes := []contentapi.Note{note("n1"), note("n2")}
	modes := []InclusionMode{ModeOff, ModeFull, ModeInsights}
	rng := rand.New(rand.NewSource(42))

	tree := NewSelectionTree()
	tree.Seed("A", sources, notes)

	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0:
			tree.ToggleNotebook("A", rng.Intn(2) == 0, sources, notes)
		case 1:
			s := sources[rng.Intn(len(sources))]
			m := modes[rng.Intn(len(modes))]
			if m == ModeInsights && s.InsightsCount == 0 {
				m = ModeFull
			}
			tree.SetSourceMode("A", s.Id, m)
		case 2:
			tree.ToggleNote("A", notes[rng.Intn(len(notes))].Id, rng.Intn(2) == 0)
		}

		active, known := 0, 0
		for _, s := range sources {
			m, _ := tree.SourceMode("A", s.Id)
			known++
			if m != ModeOff {
				active++
			}
		}
		for _, n := range notes {
			m, _ := tree.NoteMode("A", n.Id)
			known++
			if m != ModeOff {
				active++
			}
		}

		want := CheckIndeterminate
		switch active {
		case 0:
			want = CheckUnchecked
		case known:
			want = CheckChecked
		}
		sum := tree.Summary("A")
		require.Equal(t, want, sum.State, "step %d", i)
		require.Equal(t, active, sum.SourcesSelected+sum.NotesSelected)
	}
}

func TestSummaryOfUnknownNotebook(t *testing.T) {
	tree := NewSelectionTree()
	sum := tree.Summary("missing")
	assert.Equal(t, CheckUnchecked, sum.State)
	assert.Zero(t, sum.TotalKnown)
	assert.False(t, tree.Has("missing"))
}

func TestConfigStripsPrefixesAndDropsOff(t *testing.T) {
	sel := &NotebookSelection{
		Sources: map[string]InclusionMode{
			"source:s1": ModeInsights,
			"source:s2": ModeFull,
			"source:s3": ModeOff,
		},
		Notes: map[string]InclusionMode{
			"note:n1": ModeFull,
			"n2":      ModeOff,
		},
	}
	cfg := sel.Config()
	assert.Equal(t, map[string]string{"s1": "insights", "s2": "full content"}, cfg.Sources)
	assert.Equal(t, map[string]string{"n1": "full content"}, cfg.Notes)
}

func TestSnapshotRequestsSkipEmptyNotebooks(t *testing.T) {
	tree := NewSelectionTree()
	tree.Seed("A", []contentapi.Source{src("s1", 2)}, []contentapi.Note{note("n1")})
	tree.Seed("B", []contentapi.Source{src("s2", 0)}, nil)
	tree.ToggleNotebook("B", false, []contentapi.Source{src("s2", 0)}, nil)

	snap := tree.Snapshot()
	assert.Equal(t, tree.Version(), snap.Version)
	require.Len(t, snap.Notebooks, 2)

	reqs := snap.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "A", reqs[0].NotebookId)

	// The snapshot is a copy.
	tree.ToggleNote("A", "n1", false)
	assert.Equal(t, ModeFull, snap.Notebooks[0].Selection.Notes["n1"])
}

func TestSnapshotOrderedBy(t *testing.T) {
	tree := NewSelectionTree()
	for _, id := range []string{"C", "X", "A", "B"} {
		tree.ToggleNote(id, "n", true)
	}
	snap := tree.Snapshot().OrderedBy([]string{"A", "B", "C"})

	ids := make([]string, 0, len(snap.Notebooks))
	for _, nb := range snap.Notebooks {
		ids = append(ids, nb.NotebookId)
	}
	assert.Equal(t, []string{"A", "B", "C", "X"}, ids)
}

func TestResetKeepsVersionMonotonic(t *testing.T) {
	tree := NewSelectionTree()
	tree.ToggleNote("A", "n1", true)
	before := tree.Version()
	tree.Reset()
	assert.Greater(t, tree.Version(), before)
	assert.Zero(t, tree.TotalSelected())
	assert.Empty(t, tree.Snapshot().Notebooks)
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1234, "1.2K"},
		{1_500_000, "1.5M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCount(tt.in))
	}
}
