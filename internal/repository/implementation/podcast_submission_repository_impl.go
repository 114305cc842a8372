package implementation

import (
	"context"

	"podcast-studio-be/internal/model"
	"podcast-studio-be/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PodcastSubmissionRepositoryImpl struct {
	db *gorm.DB
}

func NewPodcastSubmissionRepository(db *gorm.DB) repository.PodcastSubmissionRepository {
	return &PodcastSubmissionRepositoryImpl{db: db}
}

func (r *PodcastSubmissionRepositoryImpl) Create(ctx context.Context, submission *model.PodcastSubmission) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(submission).Error
}

func (r *PodcastSubmissionRepositoryImpl) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.PodcastSubmission, int64, error) {
	var submissions []model.PodcastSubmission
	var total int64

	db := r.db.WithContext(ctx).Model(&model.PodcastSubmission{}).Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&submissions).Error

	return submissions, total, err
}
