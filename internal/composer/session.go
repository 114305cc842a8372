package composer

import (
	"context"
	"strings"
	"sync"
	"time"

	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/pkg/contentapi"
)

// ContentAPI is the upstream surface a session drives.
type ContentAPI interface {
	CollectionSource
	ContextBuilder
	ListNotebooks(ctx context.Context) ([]contentapi.Notebook, error)
	ListEpisodeProfiles(ctx context.Context) ([]contentapi.EpisodeProfile, error)
	GeneratePodcast(ctx context.Context, req contentapi.PodcastGenerationRequest) (*contentapi.GenerationJob, error)
}

type SessionOptions struct {
	// Concurrency bounds parallel context-build calls per pass.
	Concurrency int
	// OnAggregate is called with every published aggregate.
	OnAggregate func(sessionId string, version uint64, counts AggregateCounts)
}

type SubmitRequest struct {
	EpisodeProfileId string
	EpisodeName      string
	BriefingSuffix   string
}

type SubmitResult struct {
	Job     *contentapi.GenerationJob
	Payload *CompiledPayload
	// Requests are the per-notebook configurations the content was built from.
	Requests []contentapi.BuildContextRequest
}

// Session is one content-selection dialog: it owns the selection tree, the
// collections loaded for it and the live aggregate. Everything is discarded
// on Close.
type Session struct {
	Id        string
	UserId    string
	CreatedAt time.Time

	api        ContentAPI
	logger     logger.ILogger
	loader     *CollectionLoader
	aggregator *Aggregator
	compiler   *Compiler

	mu             sync.Mutex
	notebooks      []contentapi.Notebook
	profiles       []contentapi.EpisodeProfile
	profilesLoaded bool
	expanded       map[string]bool
	tree           *SelectionTree
	closed         bool
	submitting     bool
}

func NewSession(id, userId string, api ContentAPI, log logger.ILogger, opts SessionOptions) *Session {
	s := &Session{
		Id:        id,
		UserId:    userId,
		CreatedAt: time.Now(),
		api:       api,
		logger:    log,
		loader:    NewCollectionLoader(api, log),
		compiler:  NewCompiler(api, log, opts.Concurrency),
		expanded:  make(map[string]bool),
		tree:      NewSelectionTree(),
	}
	var listener AggregateListener
	if opts.OnAggregate != nil {
		listener = func(version uint64, counts AggregateCounts) {
			opts.OnAggregate(id, version, counts)
		}
	}
	s.aggregator = NewAggregator(api, log, opts.Concurrency, listener)
	return s
}

// Open loads the notebook listing.
func (s *Session) Open(ctx context.Context) error {
	notebooks, err := s.api.ListNotebooks(ctx)
	if err != nil {
		return wrap(ErrFetch, "", "list notebooks", err)
	}
	s.mu.Lock()
	s.notebooks = notebooks
	s.mu.Unlock()
	return nil
}

// SetExpanded records the expand state; expanding loads the notebook.
func (s *Session) SetExpanded(ctx context.Context, notebookId string, expanded bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if expanded {
		s.expanded[notebookId] = true
	} else {
		delete(s.expanded, notebookId)
	}
	s.mu.Unlock()

	if expanded {
		s.load(ctx, notebookId, false)
	}
	return nil
}

// Retry refetches a notebook's collection, typically after a failed load.
func (s *Session) Retry(ctx context.Context, notebookId string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	s.load(ctx, notebookId, true)
	return nil
}

func (s *Session) ToggleNotebook(ctx context.Context, notebookId string, checked bool) error {
	return s.mutate(ctx, notebookId, checked, func(c Collection) {
		s.tree.ToggleNotebook(notebookId, checked, c.Sources, c.Notes)
	})
}

// SetSourceMode overwrites a source's mode. Insights are only kept for
// sources known to have at least one.
func (s *Session) SetSourceMode(ctx context.Context, notebookId, sourceId string, mode InclusionMode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	return s.mutate(ctx, notebookId, false, func(c Collection) {
		if mode == ModeInsights {
			if src, ok := c.FindSource(sourceId); ok && src.InsightsCount == 0 {
				mode = ModeFull
			}
		}
		s.tree.SetSourceMode(notebookId, sourceId, mode)
	})
}

func (s *Session) ToggleNote(ctx context.Context, notebookId, noteId string, checked bool) error {
	return s.mutate(ctx, notebookId, false, func(Collection) {
		s.tree.ToggleNote(notebookId, noteId, checked)
	})
}

// mutate applies fn under the session lock, then re-aggregates and, when the
// notebook became relevant, loads its collection.
func (s *Session) mutate(ctx context.Context, notebookId string, wantsLoad bool, fn func(Collection)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	c, loaded := s.loader.Get(notebookId)
	before := s.tree.Version()
	if loaded && c.Loaded() && !s.tree.Has(notebookId) {
		// A reset dropped the record of a collection that is still cached.
		s.tree.Seed(notebookId, c.Sources, c.Notes)
	}
	fn(c)
	changed := s.tree.Version() != before
	needLoad := !loaded && (wantsLoad || s.expanded[notebookId] || s.tree.HasSelections(notebookId))
	snap := s.tree.Snapshot()
	s.mu.Unlock()

	if changed {
		s.aggregator.Trigger(ctx, snap)
	}
	if needLoad {
		s.load(ctx, notebookId, false)
	}
	return nil
}

func (s *Session) load(ctx context.Context, notebookId string, retry bool) {
	var c Collection
	if retry {
		c = s.loader.Retry(ctx, notebookId)
	} else {
		c = s.loader.Ensure(ctx, notebookId)
	}
	s.reconcile(ctx, c)
}

// reconcile seeds defaults for items seen for the first time.
func (s *Session) reconcile(ctx context.Context, c Collection) {
	if !c.Loaded() {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	changed := s.tree.Seed(c.NotebookId, c.Sources, c.Notes)
	snap := s.tree.Snapshot()
	s.mu.Unlock()

	if changed {
		s.aggregator.Trigger(ctx, snap)
	}
}

// Counts returns the last published aggregate.
func (s *Session) Counts() AggregateCounts {
	counts, _ := s.aggregator.Counts()
	return counts
}

// Profiles lists the episode profiles, fetched once per session.
func (s *Session) Profiles(ctx context.Context) ([]contentapi.EpisodeProfile, error) {
	s.mu.Lock()
	if s.profilesLoaded {
		profiles := s.profiles
		s.mu.Unlock()
		return profiles, nil
	}
	s.mu.Unlock()

	profiles, err := s.api.ListEpisodeProfiles(ctx)
	if err != nil {
		return nil, wrap(ErrFetch, "", "list episode profiles", err)
	}
	s.mu.Lock()
	s.profiles, s.profilesLoaded = profiles, true
	s.mu.Unlock()
	return profiles, nil
}

// Submit compiles the current selection and starts a generation job. On
// success the selection is reset; on failure it is kept for a retry.
func (s *Session) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if strings.TrimSpace(req.EpisodeProfileId) == "" {
		return nil, ErrMissingProfile
	}
	if strings.TrimSpace(req.EpisodeName) == "" {
		return nil, ErrMissingName
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	s.submitting = true
	order, names := s.notebookOrder()
	snap := s.tree.Snapshot().OrderedBy(order)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	profile, err := s.findProfile(ctx, req.EpisodeProfileId)
	if err != nil {
		return nil, err
	}

	payload, err := s.compiler.Compile(ctx, snap, names, CompileOptions{
		Profile:        profile,
		EpisodeName:    req.EpisodeName,
		BriefingSuffix: req.BriefingSuffix,
	})
	if err != nil {
		return nil, err
	}

	job, err := s.api.GeneratePodcast(ctx, payload.Request())
	if err != nil {
		s.logger.Error("Session", "Podcast generation submit failed", map[string]interface{}{
			"session_id": s.Id,
			"error":      err.Error(),
		})
		return nil, wrap(ErrGenerationSubmit, "", "", err)
	}

	s.logger.Info("Session", "Podcast generation submitted", map[string]interface{}{
		"session_id":   s.Id,
		"episode_name": payload.EpisodeName,
		"job_id":       job.JobId,
	})

	s.mu.Lock()
	s.tree.Reset()
	s.expanded = make(map[string]bool)
	reset := s.tree.Snapshot()
	s.mu.Unlock()
	s.aggregator.Trigger(ctx, reset)

	return &SubmitResult{
		Job:      job,
		Payload:  payload,
		Requests: snap.Requests(),
	}, nil
}

func (s *Session) findProfile(ctx context.Context, id string) (*contentapi.EpisodeProfile, error) {
	profiles, err := s.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].Id == id {
			return &profiles[i], nil
		}
	}
	return nil, wrap(ErrMissingProfile, "", "unknown episode profile "+id, nil)
}

// notebookOrder must be called with s.mu held.
func (s *Session) notebookOrder() ([]string, map[string]string) {
	order := make([]string, 0, len(s.notebooks))
	names := make(map[string]string, len(s.notebooks))
	for _, nb := range s.notebooks {
		order = append(order, nb.Id)
		names[nb.Id] = nb.Name
	}
	return order, names
}

// Close discards the selection and ignores any in-flight aggregation.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.tree.Reset()
	s.expanded = make(map[string]bool)
	s.mu.Unlock()

	s.aggregator.Close()
	s.loader.Reset()
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Wait blocks until background aggregation passes have returned.
func (s *Session) Wait() {
	s.aggregator.Wait()
}
