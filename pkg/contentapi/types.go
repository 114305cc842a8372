package contentapi

import (
	"encoding/json"
	"time"
)

// Notebook is a notebook as listed by the content API.
type Notebook struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Archived    bool   `json:"archived,omitempty"`
}

// SourceAsset points at the original file or URL behind a source.
type SourceAsset struct {
	FilePath string `json:"file_path,omitempty"`
	Url      string `json:"url,omitempty"`
}

// Source is a content item that may carry precomputed insights.
type Source struct {
	Id            string       `json:"id"`
	Title         string       `json:"title"`
	InsightsCount int          `json:"insights_count"`
	Embedded      bool         `json:"embedded"`
	Asset         *SourceAsset `json:"asset,omitempty"`
}

// AssetURL returns the asset URL, or "" when the source has none.
func (s Source) AssetURL() string {
	if s.Asset == nil {
		return ""
	}
	return s.Asset.Url
}

type Note struct {
	Id      string     `json:"id"`
	Title   string     `json:"title"`
	Updated *time.Time `json:"updated,omitempty"`
}

// ContextConfig maps item ids to inclusion labels ("insights" / "full content").
type ContextConfig struct {
	Sources map[string]string `json:"sources"`
	Notes   map[string]string `json:"notes"`
}

type BuildContextRequest struct {
	NotebookId    string        `json:"notebook_id"`
	ContextConfig ContextConfig `json:"context_config"`
}

type BuildContextResponse struct {
	Context    json.RawMessage `json:"context"`
	TokenCount int             `json:"token_count"`
	CharCount  int             `json:"char_count"`
}

// EpisodeProfile is a reusable generation template; SpeakerConfig names the
// speaker profile it is paired with.
type EpisodeProfile struct {
	Id                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	SpeakerConfig      string `json:"speaker_config"`
	NumSegments        int    `json:"num_segments,omitempty"`
	DefaultBriefing    string `json:"default_briefing,omitempty"`
	OutlineProvider    string `json:"outline_provider,omitempty"`
	TranscriptProvider string `json:"transcript_provider,omitempty"`
}

type PodcastGenerationRequest struct {
	EpisodeProfile string `json:"episode_profile"`
	SpeakerProfile string `json:"speaker_profile"`
	EpisodeName    string `json:"episode_name"`
	Content        string `json:"content"`
	BriefingSuffix string `json:"briefing_suffix,omitempty"`
}

// GenerationJob is the acknowledgment returned when a generation job is queued.
type GenerationJob struct {
	JobId          string `json:"job_id"`
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	EpisodeProfile string `json:"episode_profile,omitempty"`
	EpisodeName    string `json:"episode_name,omitempty"`
}
