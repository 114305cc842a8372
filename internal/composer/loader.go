package composer

import (
	"context"
	"errors"
	"sync"
	"time"

	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/pkg/contentapi"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// CollectionSource lists the items of a notebook.
type CollectionSource interface {
	ListSources(ctx context.Context, notebookId string) ([]contentapi.Source, error)
	ListNotes(ctx context.Context, notebookId string) ([]contentapi.Note, error)
}

// Collection is the loaded item list of one notebook. A list that failed to
// load is empty and Err carries the failure.
type Collection struct {
	NotebookId    string
	Sources       []contentapi.Source
	Notes         []contentapi.Note
	SourcesLoaded bool
	NotesLoaded   bool
	Err           error
	LoadedAt      time.Time
}

// Loaded reports whether at least one of the two lists arrived.
func (c Collection) Loaded() bool {
	return c.SourcesLoaded || c.NotesLoaded
}

func (c Collection) FindSource(sourceId string) (contentapi.Source, bool) {
	for _, s := range c.Sources {
		if s.Id == sourceId {
			return s, true
		}
	}
	return contentapi.Source{}, false
}

// CollectionLoader fetches each notebook's sources and notes at most once per
// session. Concurrent callers for the same notebook share one fetch. Failures
// are cached too and only refetched through Retry.
type CollectionLoader struct {
	api    CollectionSource
	logger logger.ILogger
	cache  *cache.Cache
	group  singleflight.Group

	mu          sync.Mutex
	epoch       uint64            // bumped by Reset
	generations map[string]uint64 // bumped by Retry
}

// fetchStamp identifies the cache state a fetch started from. A fetch whose
// stamp is outdated when it completes is returned but not cached.
type fetchStamp struct {
	epoch, generation uint64
}

func NewCollectionLoader(api CollectionSource, log logger.ILogger) *CollectionLoader {
	return &CollectionLoader{
		api:    api,
		logger: log,
		cache:  cache.New(cache.NoExpiration, 0),

		generations: make(map[string]uint64),
	}
}

// Get returns the cached collection, if a fetch has completed.
func (l *CollectionLoader) Get(notebookId string) (Collection, bool) {
	if x, found := l.cache.Get(notebookId); found {
		return x.(Collection), true
	}
	return Collection{NotebookId: notebookId}, false
}

// Ensure returns the notebook's collection, fetching it on first use.
func (l *CollectionLoader) Ensure(ctx context.Context, notebookId string) Collection {
	if c, ok := l.Get(notebookId); ok {
		return c
	}
	v, _, _ := l.group.Do(notebookId, func() (interface{}, error) {
		if c, ok := l.Get(notebookId); ok {
			return c, nil
		}
		stamp := l.stamp(notebookId)
		// The fetch outlives the request that triggered it; the result is shared.
		c := l.fetch(context.WithoutCancel(ctx), notebookId)
		l.mu.Lock()
		if l.stampLocked(notebookId) == stamp {
			l.cache.Set(notebookId, c, cache.NoExpiration)
		}
		l.mu.Unlock()
		return c, nil
	})
	return v.(Collection)
}

// Retry drops the cached collection and fetches it again. A fetch still in
// flight is not joined and its result is not cached.
func (l *CollectionLoader) Retry(ctx context.Context, notebookId string) Collection {
	l.mu.Lock()
	l.generations[notebookId]++
	l.cache.Delete(notebookId)
	l.mu.Unlock()
	l.group.Forget(notebookId)
	return l.Ensure(ctx, notebookId)
}

func (l *CollectionLoader) stamp(notebookId string) fetchStamp {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stampLocked(notebookId)
}

func (l *CollectionLoader) stampLocked(notebookId string) fetchStamp {
	return fetchStamp{epoch: l.epoch, generation: l.generations[notebookId]}
}

func (l *CollectionLoader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch++
	l.cache.Flush()
}

func (l *CollectionLoader) fetch(ctx context.Context, notebookId string) Collection {
	ctx, span := tracer.Start(ctx, "composer.LoadCollection")
	span.SetAttributes(attribute.String("notebook.id", notebookId))
	defer span.End()

	var (
		c                    = Collection{NotebookId: notebookId}
		sourcesErr, notesErr error
		g                    errgroup.Group
	)
	g.Go(func() error {
		sources, err := l.api.ListSources(ctx, notebookId)
		if err != nil {
			sourcesErr = err
			return nil
		}
		c.Sources, c.SourcesLoaded = sources, true
		return nil
	})
	g.Go(func() error {
		notes, err := l.api.ListNotes(ctx, notebookId)
		if err != nil {
			notesErr = err
			return nil
		}
		c.Notes, c.NotesLoaded = notes, true
		return nil
	})
	_ = g.Wait()
	c.LoadedAt = time.Now()

	switch {
	case sourcesErr != nil && notesErr != nil:
		c.Err = wrap(ErrFetch, notebookId, "list sources and notes", errors.Join(sourcesErr, notesErr))
	case sourcesErr != nil:
		c.Err = wrap(ErrFetch, notebookId, "list sources", sourcesErr)
	case notesErr != nil:
		c.Err = wrap(ErrFetch, notebookId, "list notes", notesErr)
	}

	if c.Err != nil {
		span.RecordError(c.Err)
		l.logger.Warn("CollectionLoader", "Failed to load notebook collection", map[string]interface{}{
			"notebook_id": notebookId,
			"error":       c.Err.Error(),
		})
	} else {
		l.logger.Debug("CollectionLoader", "Notebook collection loaded", map[string]interface{}{
			"notebook_id": notebookId,
			"sources":     len(c.Sources),
			"notes":       len(c.Notes),
		})
	}
	return c
}
