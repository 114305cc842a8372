package service

import (
	"context"
	"encoding/json"
	"fmt"

	"podcast-studio-be/internal/model"
	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/internal/repository"
	"podcast-studio-be/pkg/events"
	pktNats "podcast-studio-be/pkg/nats"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"gorm.io/datatypes"
)

// IPodcastLedgerService persists the outcome of every submission. Events
// normally arrive through NATS; Record is also called directly when the bus
// is unavailable.
type IPodcastLedgerService interface {
	Start(ctx context.Context) error
	Stop()
	Record(ctx context.Context, event events.Event) error
	List(ctx context.Context, userId string, limit, offset int) ([]model.PodcastSubmission, int64, error)
}

type podcastLedgerService struct {
	repo       repository.PodcastSubmissionRepository
	subscriber *pktNats.Subscriber
	consumer   jetstream.ConsumeContext
	logger     logger.ILogger
}

func NewPodcastLedgerService(repo repository.PodcastSubmissionRepository, sub *pktNats.Subscriber, log logger.ILogger) IPodcastLedgerService {
	return &podcastLedgerService{
		repo:       repo,
		subscriber: sub,
		logger:     log,
	}
}

func (s *podcastLedgerService) Start(ctx context.Context) error {
	if s.subscriber == nil {
		return fmt.Errorf("podcast ledger: no NATS subscriber configured")
	}
	cc, err := s.subscriber.Subscribe(ctx, events.SubjectPrefix+">", "podcast-ledger-worker", s.Record)
	if err != nil {
		return err
	}
	s.consumer = cc
	s.logger.Info("PodcastLedger", "Podcast ledger listening to events.>", nil)
	return nil
}

func (s *podcastLedgerService) Stop() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
}

func (s *podcastLedgerService) Record(ctx context.Context, event events.Event) error {
	var status string
	switch event.EventType() {
	case events.PodcastGenerationSubmitted:
		status = model.SubmissionStatusSubmitted
	case events.PodcastGenerationFailed:
		status = model.SubmissionStatusFailed
	default:
		return nil
	}

	submission, err := submissionFromPayload(event.Payload(), status)
	if err != nil {
		// Malformed events will never succeed; drop them.
		s.logger.Warn("PodcastLedger", "Dropping malformed submission event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return nil
	}
	submission.CreatedAt = event.Timestamp()

	if err := s.repo.Create(ctx, submission); err != nil {
		s.logger.Error("PodcastLedger", "Failed to record submission", map[string]interface{}{
			"submission_id": submission.ID,
			"error":         err.Error(),
		})
		return err
	}

	s.logger.Info("PodcastLedger", "Submission recorded", map[string]interface{}{
		"submission_id": submission.ID,
		"status":        status,
	})
	return nil
}

func (s *podcastLedgerService) List(ctx context.Context, userId string, limit, offset int) ([]model.PodcastSubmission, int64, error) {
	return s.repo.ListByUser(ctx, userId, limit, offset)
}

func submissionFromPayload(p map[string]interface{}, status string) (*model.PodcastSubmission, error) {
	id, err := uuid.Parse(events.String(p, "submission_id"))
	if err != nil {
		return nil, fmt.Errorf("submission_id: %w", err)
	}
	userId := events.String(p, "user_id")
	if userId == "" {
		return nil, fmt.Errorf("user_id is missing")
	}

	var selection datatypes.JSON
	if raw, ok := p["selection"]; ok && raw != nil {
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("selection: %w", err)
		}
		selection = datatypes.JSON(b)
	}

	return &model.PodcastSubmission{
		ID:             id,
		UserID:         userId,
		SessionID:      events.String(p, "session_id"),
		JobID:          events.String(p, "job_id"),
		Status:         status,
		EpisodeProfile: events.String(p, "episode_profile"),
		SpeakerProfile: events.String(p, "speaker_profile"),
		EpisodeName:    events.String(p, "episode_name"),
		BriefingSuffix: events.String(p, "briefing_suffix"),
		NotebookCount:  intField(p, "notebook_count"),
		ContentChars:   intField(p, "content_chars"),
		Selection:      selection,
		Error:          events.String(p, "error"),
	}, nil
}

// intField reads a count that is an int when published in-process and a
// float64 after a JSON round trip.
func intField(p map[string]interface{}, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
