package repository

import (
	"context"

	"podcast-studio-be/internal/model"
)

type PodcastSubmissionRepository interface {
	// Create inserts the submission; a row with the same id is left untouched
	// so redelivered events are harmless.
	Create(ctx context.Context, submission *model.PodcastSubmission) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.PodcastSubmission, int64, error)
}
