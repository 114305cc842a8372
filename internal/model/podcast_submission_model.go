package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SubmissionStatusSubmitted = "SUBMITTED"
	SubmissionStatusFailed    = "FAILED"
)

// PodcastSubmission is one generation request sent from a composer session.
// Selection holds the per-notebook context configuration that was compiled.
type PodcastSubmission struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string         `gorm:"type:varchar(64);not null;index:idx_podcast_submissions_user_created,priority:1" json:"user_id"`
	SessionID      string         `gorm:"type:varchar(64);not null" json:"session_id"`
	JobID          string         `gorm:"type:varchar(128);index" json:"job_id,omitempty"`
	Status         string         `gorm:"type:varchar(20);not null" json:"status"`
	EpisodeProfile string         `gorm:"type:varchar(200);not null" json:"episode_profile"`
	SpeakerProfile string         `gorm:"type:varchar(200)" json:"speaker_profile"`
	EpisodeName    string         `gorm:"type:varchar(300);not null" json:"episode_name"`
	BriefingSuffix string         `gorm:"type:text" json:"briefing_suffix,omitempty"`
	NotebookCount  int            `gorm:"not null;default:0" json:"notebook_count"`
	ContentChars   int            `gorm:"not null;default:0" json:"content_chars"`
	Selection      datatypes.JSON `gorm:"type:jsonb" json:"selection,omitempty"`
	Error          string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP;index:idx_podcast_submissions_user_created,priority:2" json:"created_at"`
}

func (PodcastSubmission) TableName() string {
	return "podcast_submissions"
}
