package composer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/pkg/contentapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type publishLog struct {
	mu       sync.Mutex
	versions []uint64
	counts   []AggregateCounts
}

func (p *publishLog) listener(version uint64, counts AggregateCounts) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions = append(p.versions, version)
	p.counts = append(p.counts, counts)
}

func (p *publishLog) published() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint64(nil), p.versions...)
}

func TestAggregatorSumsNotebooks(t *testing.T) {
	api := newFakeAPI()
	pub := &publishLog{}
	agg := NewAggregator(api, logger.NewNopLogger(), 2, pub.listener)

	tree := NewSelectionTree()
	tree.Seed("A", []contentapi.Source{src("s1", 2), src("s2", 0)}, []contentapi.Note{note("n1")})
	tree.Seed("B", nil, []contentapi.Note{note("n2")})

	counts, err := agg.Refresh(context.Background(), tree.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, AggregateCounts{TokenCount: 220, CharCount: 880}, counts)

	got, version := agg.Counts()
	assert.Equal(t, counts, got)
	assert.Equal(t, tree.Version(), version)
	assert.Equal(t, []uint64{tree.Version()}, pub.published())
}

func TestAggregatorLatestSnapshotWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	api.buildHook = func(ctx context.Context, req contentapi.BuildContextRequest) {
		if req.NotebookId == "A" {
			close(started)
			<-release
		}
	}
	pub := &publishLog{}
	agg := NewAggregator(api, logger.NewNopLogger(), 0, pub.listener)

	tree := NewSelectionTree()
	tree.ToggleNote("A", "n1", true)
	s1 := tree.Snapshot()
	tree.ToggleNote("A", "n1", false)
	tree.SetSourceMode("B", "s1", ModeFull)
	s2 := tree.Snapshot()

	agg.Trigger(context.Background(), s1)
	<-started

	counts, err := agg.Refresh(context.Background(), s2)
	require.NoError(t, err)
	assert.Equal(t, AggregateCounts{TokenCount: 100, CharCount: 400}, counts)

	close(release)
	agg.Wait()

	got, version := agg.Counts()
	assert.Equal(t, AggregateCounts{TokenCount: 100, CharCount: 400}, got)
	assert.Equal(t, s2.Version, version)
	assert.Equal(t, []uint64{s2.Version}, pub.published(), "stale pass must not publish")
}

func TestAggregatorRejectsOlderSnapshot(t *testing.T) {
	agg := NewAggregator(newFakeAPI(), logger.NewNopLogger(), 0, nil)

	tree := NewSelectionTree()
	tree.ToggleNote("A", "n1", true)
	older := tree.Snapshot()
	tree.ToggleNote("A", "n2", true)
	newer := tree.Snapshot()

	_, err := agg.Refresh(context.Background(), newer)
	require.NoError(t, err)

	_, err = agg.Refresh(context.Background(), older)
	assert.True(t, errors.Is(err, ErrStaleAggregation))

	got, _ := agg.Counts()
	assert.Equal(t, 20, got.TokenCount)
}

func TestAggregatorFailureKeepsPreviousCounts(t *testing.T) {
	api := newFakeAPI()
	agg := NewAggregator(api, logger.NewNopLogger(), 0, nil)

	tree := NewSelectionTree()
	tree.ToggleNote("A", "n1", true)
	_, err := agg.Refresh(context.Background(), tree.Snapshot())
	require.NoError(t, err)

	api.buildErr["B"] = errors.New("upstream unavailable")
	tree.ToggleNote("B", "n2", true)
	_, err = agg.Refresh(context.Background(), tree.Snapshot())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))
	assert.Contains(t, err.Error(), "notebook B")

	got, _ := agg.Counts()
	assert.Equal(t, AggregateCounts{TokenCount: 10, CharCount: 40}, got)
}

func TestAggregatorEmptySelectionIsZeroWithoutCalls(t *testing.T) {
	api := newFakeAPI()
	agg := NewAggregator(api, logger.NewNopLogger(), 0, nil)

	tree := NewSelectionTree()
	tree.ToggleNote("A", "n1", true)
	_, err := agg.Refresh(context.Background(), tree.Snapshot())
	require.NoError(t, err)
	calls := len(api.builds())

	tree.ToggleNote("A", "n1", false)
	counts, err := agg.Refresh(context.Background(), tree.Snapshot())
	require.NoError(t, err)
	assert.Zero(t, counts)
	assert.Len(t, api.builds(), calls)

	got, _ := agg.Counts()
	assert.Zero(t, got)
}

func TestAggregatorIgnoresResultsAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	api.buildHook = func(ctx context.Context, req contentapi.BuildContextRequest) {
		close(started)
		<-release
	}
	pub := &publishLog{}
	agg := NewAggregator(api, logger.NewNopLogger(), 0, pub.listener)

	tree := NewSelectionTree()
	tree.ToggleNote("A", "n1", true)
	agg.Trigger(context.Background(), tree.Snapshot())
	<-started

	agg.Close()
	close(release)
	agg.Wait()

	got, _ := agg.Counts()
	assert.Zero(t, got)
	assert.Empty(t, pub.published())

	_, err := agg.Refresh(context.Background(), tree.Snapshot())
	assert.True(t, errors.Is(err, ErrSessionClosed))
}
