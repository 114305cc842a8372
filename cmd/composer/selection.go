package main

import (
	"context"
	"fmt"
	"strings"

	"podcast-studio-be/internal/composer"
)

type sourceOverride struct {
	notebookID string
	sourceID   string
	mode       composer.InclusionMode
}

type noteRef struct {
	notebookID string
	noteID     string
}

type selectionFlags struct {
	notebooks    []string
	sourceModes  []string
	excludeNotes []string
}

// parseSourceOverride reads NOTEBOOK/SOURCE=MODE.
func parseSourceOverride(s string) (sourceOverride, error) {
	ref, modeStr, ok := strings.Cut(s, "=")
	if !ok {
		return sourceOverride{}, fmt.Errorf("source override %q: expected NOTEBOOK/SOURCE=MODE", s)
	}
	nb, src, ok := strings.Cut(ref, "/")
	if !ok || nb == "" || src == "" {
		return sourceOverride{}, fmt.Errorf("source override %q: expected NOTEBOOK/SOURCE=MODE", s)
	}
	mode, err := composer.ParseMode(strings.TrimSpace(modeStr))
	if err != nil {
		return sourceOverride{}, fmt.Errorf("source override %q: %w", s, err)
	}
	return sourceOverride{notebookID: nb, sourceID: src, mode: mode}, nil
}

// parseNoteRef reads NOTEBOOK/NOTE.
func parseNoteRef(s string) (noteRef, error) {
	nb, note, ok := strings.Cut(s, "/")
	if !ok || nb == "" || note == "" {
		return noteRef{}, fmt.Errorf("note %q: expected NOTEBOOK/NOTE", s)
	}
	return noteRef{notebookID: nb, noteID: note}, nil
}

// apply selects every listed notebook with its defaults, then applies the
// per-item overrides, and waits for the aggregate to settle.
func (f selectionFlags) apply(ctx context.Context, s *composer.Session) error {
	overrides := make([]sourceOverride, 0, len(f.sourceModes))
	for _, raw := range f.sourceModes {
		o, err := parseSourceOverride(raw)
		if err != nil {
			return err
		}
		overrides = append(overrides, o)
	}
	excludes := make([]noteRef, 0, len(f.excludeNotes))
	for _, raw := range f.excludeNotes {
		n, err := parseNoteRef(raw)
		if err != nil {
			return err
		}
		excludes = append(excludes, n)
	}

	for _, nb := range f.notebooks {
		if err := s.ToggleNotebook(ctx, nb, true); err != nil {
			return err
		}
	}
	for _, o := range overrides {
		if err := s.SetSourceMode(ctx, o.notebookID, o.sourceID, o.mode); err != nil {
			return err
		}
	}
	for _, n := range excludes {
		if err := s.ToggleNote(ctx, n.notebookID, n.noteID, false); err != nil {
			return err
		}
	}
	s.Wait()
	return nil
}
