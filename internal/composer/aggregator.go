package composer

import (
	"context"
	"errors"
	"sync"

	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/pkg/contentapi"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ContextBuilder turns a notebook selection into serialized context plus its
// size.
type ContextBuilder interface {
	BuildContext(ctx context.Context, req contentapi.BuildContextRequest) (*contentapi.BuildContextResponse, error)
}

type AggregateCounts struct {
	TokenCount int `json:"token_count"`
	CharCount  int `json:"char_count"`
}

// AggregateListener receives every aggregate that gets published.
type AggregateListener func(version uint64, counts AggregateCounts)

const defaultConcurrency = 4

// Aggregator keeps a running token/char estimate of the current selection.
//
// Each pass is stamped with the snapshot version it was started for. Only the
// pass for the newest started version may publish; older completions are
// dropped with ErrStaleAggregation. A failed pass leaves the previous counts
// in place.
type Aggregator struct {
	api         ContextBuilder
	logger      logger.ILogger
	concurrency int
	listener    AggregateListener

	mu      sync.Mutex
	latest  uint64
	applied uint64
	counts  AggregateCounts
	closed  bool

	wg sync.WaitGroup
}

func NewAggregator(api ContextBuilder, log logger.ILogger, concurrency int, listener AggregateListener) *Aggregator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Aggregator{
		api:         api,
		logger:      log,
		concurrency: concurrency,
		listener:    listener,
	}
}

// Counts returns the last published aggregate and the version it belongs to.
func (a *Aggregator) Counts() (AggregateCounts, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts, a.applied
}

// Trigger starts a pass for snap in the background.
func (a *Aggregator) Trigger(ctx context.Context, snap Snapshot) {
	if err := a.begin(snap.Version); err != nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_, _ = a.run(context.WithoutCancel(ctx), snap)
	}()
}

// Refresh runs a pass for snap and waits for it.
func (a *Aggregator) Refresh(ctx context.Context, snap Snapshot) (AggregateCounts, error) {
	if err := a.begin(snap.Version); err != nil {
		return AggregateCounts{}, err
	}
	return a.run(ctx, snap)
}

// Wait blocks until every background pass has returned.
func (a *Aggregator) Wait() {
	a.wg.Wait()
}

// Close stops publishing. In-flight passes finish but their results are
// ignored.
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

func (a *Aggregator) begin(version uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrSessionClosed
	}
	if version < a.latest {
		return ErrStaleAggregation
	}
	a.latest = version
	return nil
}

func (a *Aggregator) run(ctx context.Context, snap Snapshot) (AggregateCounts, error) {
	ctx, span := tracer.Start(ctx, "composer.Aggregate")
	defer span.End()

	reqs := snap.Requests()
	span.SetAttributes(
		attribute.Int64("selection.version", int64(snap.Version)),
		attribute.Int("selection.notebooks", len(reqs)),
	)

	var total AggregateCounts
	if len(reqs) > 0 {
		results := make([]*contentapi.BuildContextResponse, len(reqs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.concurrency)
		for i, req := range reqs {
			g.Go(func() error {
				res, err := a.api.BuildContext(gctx, req)
				if err != nil {
					return wrap(ErrFetch, req.NotebookId, "build context", err)
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			span.RecordError(err)
			a.logger.Warn("Aggregator", "Context aggregation failed, keeping previous counts", map[string]interface{}{
				"version": snap.Version,
				"error":   err.Error(),
			})
			return AggregateCounts{}, err
		}
		for _, res := range results {
			total.TokenCount += res.TokenCount
			total.CharCount += res.CharCount
		}
	}

	if err := a.apply(snap.Version, total); err != nil {
		if errors.Is(err, ErrStaleAggregation) {
			a.logger.Debug("Aggregator", "Dropped stale aggregation result", map[string]interface{}{
				"version": snap.Version,
			})
		}
		return AggregateCounts{}, err
	}
	return total, nil
}

func (a *Aggregator) apply(version uint64, counts AggregateCounts) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrSessionClosed
	}
	if version != a.latest {
		a.mu.Unlock()
		return ErrStaleAggregation
	}
	a.counts = counts
	a.applied = version
	listener := a.listener
	a.mu.Unlock()

	if listener != nil {
		listener(version, counts)
	}
	return nil
}
