package service

import (
	"context"
	"errors"
	"fmt"

	"podcast-studio-be/internal/composer"
	"podcast-studio-be/internal/config"
	"podcast-studio-be/internal/dto"
	"podcast-studio-be/internal/mapper"
	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/internal/repository/memory"
	"podcast-studio-be/pkg/contentapi"
	"podcast-studio-be/pkg/events"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("composer session not found")
	ErrTooManySessions = errors.New("too many open composer sessions")
)

type IComposerService interface {
	Open(ctx context.Context, userId string) (*dto.ComposerSessionResponse, error)
	Show(ctx context.Context, userId, sessionId string) (*dto.ComposerSessionResponse, error)
	Close(ctx context.Context, userId, sessionId string) error
	Authorize(userId, sessionId string) error
	SetExpanded(ctx context.Context, userId, sessionId, notebookId string, expanded bool) (*dto.ComposerSessionResponse, error)
	Retry(ctx context.Context, userId, sessionId, notebookId string) (*dto.ComposerSessionResponse, error)
	ToggleNotebook(ctx context.Context, userId, sessionId, notebookId string, checked bool) (*dto.ComposerSessionResponse, error)
	SetSourceMode(ctx context.Context, userId, sessionId, notebookId, sourceId, mode string) (*dto.ComposerSessionResponse, error)
	ToggleNote(ctx context.Context, userId, sessionId, notebookId, noteId string, checked bool) (*dto.ComposerSessionResponse, error)
	ListProfiles(ctx context.Context, userId, sessionId string) ([]*dto.EpisodeProfileResponse, error)
	Submit(ctx context.Context, userId, sessionId string, req *dto.SubmitPodcastRequest) (*dto.SubmitPodcastResponse, error)
	ListSubmissions(ctx context.Context, userId string, limit, offset int) (*dto.ListPodcastSubmissionsResponse, error)
}

type composerService struct {
	api       composer.ContentAPI
	sessions  *memory.SessionRepository
	relay     IAggregateRelayService
	publisher events.Publisher
	ledger    IPodcastLedgerService
	cfg       config.ComposerConfig
	mapper    *mapper.ComposerMapper
	logger    logger.ILogger
}

// NewComposerService wires the session lifecycle. relay and publisher may be
// nil; without a publisher submissions are recorded in the ledger directly.
func NewComposerService(
	api composer.ContentAPI,
	sessions *memory.SessionRepository,
	relay IAggregateRelayService,
	publisher events.Publisher,
	ledger IPodcastLedgerService,
	cfg config.ComposerConfig,
	log logger.ILogger,
) IComposerService {
	return &composerService{
		api:       api,
		sessions:  sessions,
		relay:     relay,
		publisher: publisher,
		ledger:    ledger,
		cfg:       cfg,
		mapper:    mapper.NewComposerMapper(),
		logger:    log,
	}
}

func (c *composerService) Open(ctx context.Context, userId string) (*dto.ComposerSessionResponse, error) {
	if c.cfg.MaxSessions > 0 && c.sessions.CountByUser(userId) >= c.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	opts := composer.SessionOptions{Concurrency: c.cfg.Concurrency}
	if c.relay != nil {
		opts.OnAggregate = c.relay.Publish
	}
	session := composer.NewSession(uuid.NewString(), userId, c.api, c.logger, opts)
	if err := session.Open(ctx); err != nil {
		session.Close()
		return nil, err
	}
	c.sessions.Save(session)

	c.logger.Info("ComposerService", "Composer session opened", map[string]interface{}{
		"session_id": session.Id,
		"user_id":    userId,
	})
	return c.view(session), nil
}

func (c *composerService) Show(ctx context.Context, userId, sessionId string) (*dto.ComposerSessionResponse, error) {
	session, err := c.session(userId, sessionId)
	if err != nil {
		return nil, err
	}
	return c.view(session), nil
}

func (c *composerService) Close(ctx context.Context, userId, sessionId string) error {
	session, err := c.session(userId, sessionId)
	if err != nil {
		return err
	}
	c.sessions.Delete(session.Id)
	c.publish(ctx, events.New(events.ComposerSessionClosed, map[string]interface{}{
		"session_id": session.Id,
		"user_id":    userId,
	}))
	return nil
}

func (c *composerService) Authorize(userId, sessionId string) error {
	_, err := c.session(userId, sessionId)
	return err
}

func (c *composerService) SetExpanded(ctx context.Context, userId, sessionId, notebookId string, expanded bool) (*dto.ComposerSessionResponse, error) {
	return c.apply(userId, sessionId, func(s *composer.Session) error {
		return s.SetExpanded(ctx, notebookId, expanded)
	})
}

func (c *composerService) Retry(ctx context.Context, userId, sessionId, notebookId string) (*dto.ComposerSessionResponse, error) {
	return c.apply(userId, sessionId, func(s *composer.Session) error {
		return s.Retry(ctx, notebookId)
	})
}

func (c *composerService) ToggleNotebook(ctx context.Context, userId, sessionId, notebookId string, checked bool) (*dto.ComposerSessionResponse, error) {
	return c.apply(userId, sessionId, func(s *composer.Session) error {
		return s.ToggleNotebook(ctx, notebookId, checked)
	})
}

func (c *composerService) SetSourceMode(ctx context.Context, userId, sessionId, notebookId, sourceId, mode string) (*dto.ComposerSessionResponse, error) {
	m, err := composer.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return c.apply(userId, sessionId, func(s *composer.Session) error {
		return s.SetSourceMode(ctx, notebookId, sourceId, m)
	})
}

func (c *composerService) ToggleNote(ctx context.Context, userId, sessionId, notebookId, noteId string, checked bool) (*dto.ComposerSessionResponse, error) {
	return c.apply(userId, sessionId, func(s *composer.Session) error {
		return s.ToggleNote(ctx, notebookId, noteId, checked)
	})
}

func (c *composerService) ListProfiles(ctx context.Context, userId, sessionId string) ([]*dto.EpisodeProfileResponse, error) {
	session, err := c.session(userId, sessionId)
	if err != nil {
		return nil, err
	}
	profiles, err := session.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	return c.mapper.ToProfileResponses(profiles), nil
}

func (c *composerService) Submit(ctx context.Context, userId, sessionId string, req *dto.SubmitPodcastRequest) (*dto.SubmitPodcastResponse, error) {
	session, err := c.session(userId, sessionId)
	if err != nil {
		return nil, err
	}

	submissionId := uuid.New()
	res, err := session.Submit(ctx, composer.SubmitRequest{
		EpisodeProfileId: req.EpisodeProfileId,
		EpisodeName:      req.EpisodeName,
		BriefingSuffix:   req.BriefingSuffix,
	})
	if err != nil {
		if errors.Is(err, composer.ErrGenerationSubmit) {
			c.record(ctx, events.New(events.PodcastGenerationFailed, map[string]interface{}{
				"submission_id":   submissionId.String(),
				"user_id":         userId,
				"session_id":      session.Id,
				"episode_profile": req.EpisodeProfileId,
				"episode_name":    req.EpisodeName,
				"error":           err.Error(),
			}))
		}
		return nil, err
	}

	c.record(ctx, events.New(events.PodcastGenerationSubmitted, map[string]interface{}{
		"submission_id":   submissionId.String(),
		"user_id":         userId,
		"session_id":      session.Id,
		"job_id":          res.Job.JobId,
		"episode_profile": res.Payload.EpisodeProfile,
		"speaker_profile": res.Payload.SpeakerProfile,
		"episode_name":    res.Payload.EpisodeName,
		"briefing_suffix": res.Payload.BriefingSuffix,
		"notebook_count":  len(res.Requests),
		"content_chars":   len(res.Payload.Content),
		"selection":       selectionPayload(res.Requests),
	}))

	return &dto.SubmitPodcastResponse{
		SubmissionId:   submissionId,
		JobId:          res.Job.JobId,
		Status:         res.Job.Status,
		Message:        res.Job.Message,
		EpisodeProfile: res.Payload.EpisodeProfile,
		EpisodeName:    res.Payload.EpisodeName,
		NotebookCount:  len(res.Requests),
	}, nil
}

func (c *composerService) ListSubmissions(ctx context.Context, userId string, limit, offset int) (*dto.ListPodcastSubmissionsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, total, err := c.ledger.List(ctx, userId, limit, offset)
	if err != nil {
		return nil, err
	}
	res := &dto.ListPodcastSubmissionsResponse{
		Items:  make([]*dto.PodcastSubmissionResponse, 0, len(rows)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i := range rows {
		res.Items = append(res.Items, c.mapper.ToSubmissionResponse(&rows[i]))
	}
	return res, nil
}

// session looks up a session owned by userId. Sessions of other users are
// reported as missing.
func (c *composerService) session(userId, sessionId string) (*composer.Session, error) {
	session, ok := c.sessions.Get(sessionId)
	if !ok || session.UserId != userId {
		return nil, ErrSessionNotFound
	}
	if session.Closed() {
		return nil, composer.ErrSessionClosed
	}
	return session, nil
}

func (c *composerService) apply(userId, sessionId string, fn func(*composer.Session) error) (*dto.ComposerSessionResponse, error) {
	session, err := c.session(userId, sessionId)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	return c.view(session), nil
}

func (c *composerService) view(s *composer.Session) *dto.ComposerSessionResponse {
	return c.mapper.ToSessionResponse(s, s.View())
}

// record publishes a submission event, falling back to writing the ledger
// directly when the bus is missing or rejects it. Ledger failures never fail
// the submission itself.
func (c *composerService) record(ctx context.Context, event events.Event) {
	if c.publish(ctx, event) {
		return
	}
	if c.ledger == nil {
		return
	}
	if err := c.ledger.Record(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Error("ComposerService", "Failed to record submission", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

func (c *composerService) publish(ctx context.Context, event events.Event) bool {
	if c.publisher == nil {
		return false
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("ComposerService", fmt.Sprintf("Failed to publish %s", event.EventType()), map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return true
}

func selectionPayload(reqs []contentapi.BuildContextRequest) map[string]interface{} {
	out := make(map[string]interface{}, len(reqs))
	for _, r := range reqs {
		out[r.NotebookId] = r.ContextConfig
	}
	return out
}
