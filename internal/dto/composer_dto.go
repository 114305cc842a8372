package dto

import (
	"time"

	"github.com/google/uuid"
)

type SourceResponse struct {
	Id            string `json:"id"`
	Title         string `json:"title"`
	InsightsCount int    `json:"insights_count"`
	Embedded      bool   `json:"embedded"`
	AssetUrl      string `json:"asset_url,omitempty"`
	Mode          string `json:"mode"`
}

type NoteResponse struct {
	Id        string     `json:"id"`
	Title     string     `json:"title"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	Mode      string     `json:"mode"`
}

type ComposerNotebookResponse struct {
	Id              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Expanded        bool              `json:"expanded"`
	Loaded          bool              `json:"loaded"`
	Error           string            `json:"error,omitempty"`
	SourcesSelected int               `json:"sources_selected"`
	NotesSelected   int               `json:"notes_selected"`
	TotalKnown      int               `json:"total_known"`
	CheckState      string            `json:"check_state"`
	Sources         []*SourceResponse `json:"sources"`
	Notes           []*NoteResponse   `json:"notes"`
}

type AggregateResponse struct {
	SessionId       string `json:"session_id"`
	Version         uint64 `json:"version"`
	TokenCount      int    `json:"token_count"`
	CharCount       int    `json:"char_count"`
	TokenCountLabel string `json:"token_count_label"`
	CharCountLabel  string `json:"char_count_label"`
}

type ComposerSessionResponse struct {
	SessionId     string                      `json:"session_id"`
	CreatedAt     time.Time                   `json:"created_at"`
	Notebooks     []*ComposerNotebookResponse `json:"notebooks"`
	TotalSelected int                         `json:"total_selected"`
	Aggregate     AggregateResponse           `json:"aggregate"`
	Submitting    bool                        `json:"submitting"`
}

type SetExpandedRequest struct {
	Expanded *bool `json:"expanded" validate:"required"`
}

type ToggleSelectionRequest struct {
	Checked *bool `json:"checked" validate:"required"`
}

type SetSourceModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=off insights full"`
}

type EpisodeProfileResponse struct {
	Id              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	SpeakerConfig   string `json:"speaker_config"`
	NumSegments     int    `json:"num_segments,omitempty"`
	DefaultBriefing string `json:"default_briefing,omitempty"`
}

// SubmitPodcastRequest leaves presence checks to the session so that a
// missing profile or name reports the same error on every surface.
type SubmitPodcastRequest struct {
	EpisodeProfileId string `json:"episode_profile_id" validate:"max=128"`
	EpisodeName      string `json:"episode_name" validate:"max=300"`
	BriefingSuffix   string `json:"briefing_suffix" validate:"max=4000"`
}

type SubmitPodcastResponse struct {
	SubmissionId   uuid.UUID `json:"submission_id"`
	JobId          string    `json:"job_id"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	EpisodeProfile string    `json:"episode_profile"`
	EpisodeName    string    `json:"episode_name"`
	NotebookCount  int       `json:"notebook_count"`
}

type PodcastSubmissionResponse struct {
	Id             uuid.UUID `json:"id"`
	SessionId      string    `json:"session_id"`
	JobId          string    `json:"job_id,omitempty"`
	Status         string    `json:"status"`
	EpisodeProfile string    `json:"episode_profile"`
	EpisodeName    string    `json:"episode_name"`
	NotebookCount  int       `json:"notebook_count"`
	ContentChars   int       `json:"content_chars"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListPodcastSubmissionsResponse struct {
	Items  []*PodcastSubmissionResponse `json:"items"`
	Total  int64                        `json:"total"`
	Limit  int                          `json:"limit"`
	Offset int                          `json:"offset"`
}
