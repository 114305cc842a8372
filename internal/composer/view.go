package composer

import (
	"podcast-studio-be/pkg/contentapi"
)

type SourceView struct {
	Source contentapi.Source
	Mode   InclusionMode
}

type NoteView struct {
	Note contentapi.Note
	Mode InclusionMode
}

type NotebookView struct {
	Notebook contentapi.Notebook
	Expanded bool
	Loaded   bool
	Err      error
	Sources  []SourceView
	Notes    []NoteView
	Summary  NotebookSummary
}

// SessionView is a consistent read of the session for rendering.
type SessionView struct {
	SessionId     string
	Notebooks     []NotebookView
	TotalSelected int
	Counts        AggregateCounts
	Version       uint64
	Submitting    bool
}

func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{
		SessionId:     s.Id,
		Notebooks:     make([]NotebookView, 0, len(s.notebooks)),
		TotalSelected: s.tree.TotalSelected(),
		Version:       s.tree.Version(),
		Submitting:    s.submitting,
	}
	view.Counts, _ = s.aggregator.Counts()

	for _, nb := range s.notebooks {
		nv := NotebookView{
			Notebook: nb,
			Expanded: s.expanded[nb.Id],
			Summary:  s.tree.Summary(nb.Id),
		}
		if c, ok := s.loader.Get(nb.Id); ok {
			nv.Loaded = c.Loaded()
			nv.Err = c.Err
			for _, src := range c.Sources {
				mode, seen := s.tree.SourceMode(nb.Id, src.Id)
				if !seen {
					mode = ModeOff
				}
				nv.Sources = append(nv.Sources, SourceView{Source: src, Mode: mode})
			}
			for _, note := range c.Notes {
				mode, seen := s.tree.NoteMode(nb.Id, note.Id)
				if !seen {
					mode = ModeOff
				}
				nv.Notes = append(nv.Notes, NoteView{Note: note, Mode: mode})
			}
		}
		view.Notebooks = append(view.Notebooks, nv)
	}
	return view
}
