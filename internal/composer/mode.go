package composer

import (
	"podcast-studio-be/pkg/contentapi"
)

// InclusionMode says how much of an item goes into the episode content.
type InclusionMode string

const (
	ModeOff      InclusionMode = "off"
	ModeInsights InclusionMode = "insights" // summary-only, sources with insights
	ModeFull     InclusionMode = "full"
)

// Labels sent to the context builder.
const (
	labelInsights    = "insights"
	labelFullContent = "full content"
)

func ParseMode(s string) (InclusionMode, error) {
	switch m := InclusionMode(s); m {
	case ModeOff, ModeInsights, ModeFull:
		return m, nil
	}
	return "", wrap(ErrInvalidMode, "", s, nil)
}

// Active reports whether the item will be included.
func (m InclusionMode) Active() bool {
	return m == ModeInsights || m == ModeFull
}

func (m InclusionMode) label() string {
	if m == ModeInsights {
		return labelInsights
	}
	return labelFullContent
}

// DefaultSourceMode picks the mode a source gets the first time it is seen.
func DefaultSourceMode(source contentapi.Source) InclusionMode {
	if source.InsightsCount > 0 {
		return ModeInsights
	}
	return ModeFull
}

// DefaultNoteMode picks the mode a note gets the first time it is seen.
func DefaultNoteMode(contentapi.Note) InclusionMode {
	return ModeFull
}
