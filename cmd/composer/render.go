package main

import (
	"fmt"
	"io"

	"podcast-studio-be/internal/composer"

	"github.com/fatih/color"
)

func modeColor(m composer.InclusionMode) string {
	switch m {
	case composer.ModeInsights:
		return color.YellowString("%-8s", m)
	case composer.ModeFull:
		return color.GreenString("%-8s", m)
	}
	return color.HiBlackString("%-8s", m)
}

func renderSession(out io.Writer, view composer.SessionView, notebookID string) {
	for _, nb := range view.Notebooks {
		if nb.Notebook.Id != notebookID {
			continue
		}
		color.New(color.Bold).Fprintf(out, "%s (%s)\n", nb.Notebook.Name, nb.Summary.State)
		if nb.Err != nil {
			color.New(color.FgRed).Fprintf(out, "  load failed: %v\n", nb.Err)
		}
		for _, s := range nb.Sources {
			fmt.Fprintf(out, "  source  %s %s  %s\n", modeColor(s.Mode), s.Source.Id, s.Source.Title)
		}
		for _, n := range nb.Notes {
			fmt.Fprintf(out, "  note    %s %s  %s\n", modeColor(n.Mode), n.Note.Id, n.Note.Title)
		}
		return
	}
	color.New(color.FgRed).Fprintf(out, "Notebook %s not found\n", notebookID)
}

func renderCounts(out io.Writer, view composer.SessionView) {
	fmt.Fprintf(out, "%d item(s) selected, ~%s tokens, %s chars\n",
		view.TotalSelected,
		composer.FormatCount(view.Counts.TokenCount),
		composer.FormatCount(view.Counts.CharCount))
}
