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
)

func newTestAPI() *fakeAPI {
	api := newFakeAPI()
	api.addNotebook("A", "Alpha",
		[]contentapi.Source{src("s1", 3), src("s2", 0)},
		[]contentapi.Note{note("n1")})
	api.addNotebook("B", "Beta", nil, []contentapi.Note{note("n2")})
	api.profiles = []contentapi.EpisodeProfile{*deepDive}
	return api
}

func openSession(t *testing.T, api *fakeAPI, opts SessionOptions) *Session {
	t.Helper()
	s := NewSession("sess-1", "user-1", api, logger.NewNopLogger(), opts)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() {
		s.Close()
		s.Wait()
	})
	return s
}

func modesOf(view SessionView, notebookId string) map[string]InclusionMode {
	out := make(map[string]InclusionMode)
	for _, nb := range view.Notebooks {
		if nb.Notebook.Id != notebookId {
			continue
		}
		for _, sv := range nb.Sources {
			out[sv.Source.Id] = sv.Mode
		}
		for _, nv := range nb.Notes {
			out[nv.Note.Id] = nv.Mode
		}
	}
	return out
}

func TestSessionExpandSeedsDefaults(t *testing.T) {
	api := newTestAPI()
	s := openSession(t, api, SessionOptions{})

	require.NoError(t, s.SetExpanded(context.Background(), "A", true))
	s.Wait()

	view := s.View()
	assert.Equal(t, map[string]InclusionMode{"s1": ModeInsights, "s2": ModeFull, "n1": ModeFull}, modesOf(view, "A"))
	assert.True(t, view.Notebooks[0].Expanded)
	assert.True(t, view.Notebooks[0].Loaded)
	assert.Equal(t, CheckChecked, view.Notebooks[0].Summary.State)
	assert.Equal(t, 3, view.TotalSelected)
	assert.Equal(t, AggregateCounts{TokenCount: 210, CharCount: 840}, s.Counts())

	// Collapsing and expanding again neither refetches nor reseeds.
	require.NoError(t, s.SetSourceMode(context.Background(), "A", "s1", ModeOff))
	require.NoError(t, s.SetExpanded(context.Background(), "A", false))
	require.NoError(t, s.SetExpanded(context.Background(), "A", true))
	s.Wait()
	assert.Equal(t, ModeOff, modesOf(s.View(), "A")["s1"])
	assert.Equal(t, 1, api.sourceCalls["A"])
}

func TestSessionToggleUnloadedNotebookSelectsDefaults(t *testing.T) {
	api := newTestAPI()
	s := openSession(t, api, SessionOptions{})

	require.NoError(t, s.ToggleNotebook(context.Background(), "A", true))
	s.Wait()

	view := s.View()
	assert.Equal(t, map[string]InclusionMode{"s1": ModeInsights, "s2": ModeFull, "n1": ModeFull}, modesOf(view, "A"))
	assert.Equal(t, CheckChecked, view.Notebooks[0].Summary.State)

	require.NoError(t, s.ToggleNotebook(context.Background(), "A", false))
	s.Wait()
	view = s.View()
	assert.Equal(t, CheckUnchecked, view.Notebooks[0].Summary.State)
	assert.Zero(t, view.TotalSelected)
	assert.Zero(t, s.Counts())
}

func TestSessionInsightsFallBackToFull(t *testing.T) {
	s := openSession(t, newTestAPI(), SessionOptions{})
	ctx := context.Background()

	require.NoError(t, s.SetExpanded(ctx, "A", true))
	require.NoError(t, s.SetSourceMode(ctx, "A", "s2", ModeInsights))
	require.NoError(t, s.SetSourceMode(ctx, "A", "s1", ModeFull))

	modes := modesOf(s.View(), "A")
	assert.Equal(t, ModeFull, modes["s2"])
	assert.Equal(t, ModeFull, modes["s1"])

	err := s.SetSourceMode(ctx, "A", "s1", InclusionMode("everything"))
	assert.True(t, errors.Is(err, ErrInvalidMode))
}

func TestSessionLoadFailureIsIsolated(t *testing.T) {
	api := newTestAPI()
	api.sourcesErr["A"] = errors.New("upstream down")
	api.notesErr["A"] = errors.New("upstream down")
	s := openSession(t, api, SessionOptions{})
	ctx := context.Background()

	require.NoError(t, s.SetExpanded(ctx, "A", true))
	require.NoError(t, s.SetExpanded(ctx, "B", true))
	s.Wait()

	view := s.View()
	assert.False(t, view.Notebooks[0].Loaded)
	assert.True(t, errors.Is(view.Notebooks[0].Err, ErrFetch))
	assert.True(t, view.Notebooks[1].Loaded)
	assert.NoError(t, view.Notebooks[1].Err)
	assert.Equal(t, ModeFull, modesOf(view, "B")["n2"])

	delete(api.sourcesErr, "A")
	delete(api.notesErr, "A")
	require.NoError(t, s.Retry(ctx, "A"))
	s.Wait()

	view = s.View()
	assert.True(t, view.Notebooks[0].Loaded)
	assert.Equal(t, ModeInsights, modesOf(view, "A")["s1"])
}

func TestSessionPublishesAggregates(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	s := openSession(t, newTestAPI(), SessionOptions{
		OnAggregate: func(sessionId string, version uint64, counts AggregateCounts) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, sessionId)
		},
	})

	require.NoError(t, s.ToggleNote(context.Background(), "B", "n2", true))
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, "sess-1", seen[len(seen)-1])
}

func TestSessionSubmitWithNothingSelected(t *testing.T) {
	api := newTestAPI()
	s := openSession(t, api, SessionOptions{})

	_, err := s.Submit(context.Background(), SubmitRequest{EpisodeProfileId: "p1", EpisodeName: "Episode"})
	assert.True(t, errors.Is(err, ErrNoContentSelected))
	assert.Zero(t, api.generateCount())
}

func TestSessionSubmitPreflight(t *testing.T) {
	api := newTestAPI()
	s := openSession(t, api, SessionOptions{})
	require.NoError(t, s.ToggleNote(context.Background(), "B", "n2", true))
	s.Wait()
	builds := len(api.builds())

	_, err := s.Submit(context.Background(), SubmitRequest{EpisodeName: "Episode"})
	assert.True(t, errors.Is(err, ErrMissingProfile))
	_, err = s.Submit(context.Background(), SubmitRequest{EpisodeProfileId: "p1", EpisodeName: " "})
	assert.True(t, errors.Is(err, ErrMissingName))
	_, err = s.Submit(context.Background(), SubmitRequest{EpisodeProfileId: "missing", EpisodeName: "Episode"})
	assert.True(t, errors.Is(err, ErrMissingProfile))

	assert.Len(t, api.builds(), builds)
	assert.Zero(t, api.generateCount())
}

func TestSessionSubmitCompilesInListingOrderAndResets(t *testing.T) {
	api := newTestAPI()
	s := openSession(t, api, SessionOptions{})
	ctx := context.Background()

	// Touch B before A; content still follows the notebook listing.
	require.NoError(t, s.SetExpanded(ctx, "B", true))
	require.NoError(t, s.SetExpanded(ctx, "A", true))
	require.NoError(t, s.SetSourceMode(ctx, "A", "s2", ModeOff))
	require.NoError(t, s.ToggleNote(ctx, "A", "n1", false))
	s.Wait()

	res, err := s.Submit(ctx, SubmitRequest{
		EpisodeProfileId: "p1",
		EpisodeName:      "Episode 7",
		BriefingSuffix:   " focus on results ",
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", res.Job.JobId)
	require.Len(t, res.Requests, 2)
	assert.Equal(t, "A", res.Requests[0].NotebookId)

	want := "Alpha\n" + expectedContext("A", map[string]string{"s1": "insights"}, map[string]string{}) +
		"\n\n" +
		"Beta\n" + expectedContext("B", map[string]string{}, map[string]string{"n2": "full content"})

	require.Equal(t, 1, api.generateCount())
	sent := api.generated[0]
	assert.Equal(t, want, sent.Content)
	assert.Equal(t, "deep_dive", sent.EpisodeProfile)
	assert.Equal(t, "two_hosts", sent.SpeakerProfile)
	assert.Equal(t, "Episode 7", sent.EpisodeName)
	assert.Equal(t, "focus on results", sent.BriefingSuffix)

	s.Wait()
	view := s.View()
	assert.Zero(t, view.TotalSelected)
	assert.False(t, view.Notebooks[0].Expanded)
	assert.Zero(t, s.Counts())
}

func TestSessionToggleAfterSubmitReseedsLoadedNotebook(t *testing.T) {
	api := newTestAPI()
	s := openSession(t, api, SessionOptions{})
	ctx := context.Background()

	require.NoError(t, s.SetExpanded(ctx, "A", true))
	s.Wait()
	_, err := s.Submit(ctx, SubmitRequest{EpisodeProfileId: "p1", EpisodeName: "Episode"})
	require.NoError(t, err)
	s.Wait()

	require.NoError(t, s.ToggleNote(ctx, "A", "n1", false))
	s.Wait()

	view := s.View()
	assert.Equal(t, map[string]InclusionMode{"s1": ModeInsights, "s2": ModeFull, "n1": ModeOff}, modesOf(view, "A"))
	sum := view.Notebooks[0].Summary
	assert.Equal(t, 3, sum.TotalKnown)
	assert.Equal(t, CheckIndeterminate, sum.State)
	assert.Equal(t, 1, api.sourceCalls["A"], "the cached collection is reused")

	require.NoError(t, s.ToggleNote(ctx, "A", "n1", true))
	s.Wait()
	assert.Equal(t, CheckChecked, s.View().Notebooks[0].Summary.State)
	assert.Equal(t, AggregateCounts{TokenCount: 210, CharCount: 840}, s.Counts())
}

func TestSessionSubmitFailureKeepsSelection(t *testing.T) {
	api := newTestAPI()
	api.generateErr = &contentapi.APIError{Method: "POST", Path: "/api/podcasts/generate", StatusCode: 503}
	s := openSession(t, api, SessionOptions{})
	ctx := context.Background()

	require.NoError(t, s.ToggleNotebook(ctx, "A", true))
	s.Wait()
	before := s.View().TotalSelected

	_, err := s.Submit(ctx, SubmitRequest{EpisodeProfileId: "p1", EpisodeName: "Episode"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationSubmit))

	assert.Equal(t, before, s.View().TotalSelected)
	assert.False(t, s.View().Submitting)
}

func TestSessionSubmitContextFailure(t *testing.T) {
	api := newTestAPI()
	s := openSession(t, api, SessionOptions{})
	ctx := context.Background()

	require.NoError(t, s.ToggleNote(ctx, "B", "n2", true))
	s.Wait()
	api.mu.Lock()
	api.buildErr["B"] = errors.New("context service error")
	api.mu.Unlock()

	_, err := s.Submit(ctx, SubmitRequest{EpisodeProfileId: "p1", EpisodeName: "Episode"})
	assert.True(t, errors.Is(err, ErrContextBuild))
	assert.Zero(t, api.generateCount())
	assert.Equal(t, 1, s.View().TotalSelected)
}

func TestSessionClosed(t *testing.T) {
	api := newTestAPI()
	s := NewSession("sess-2", "user-1", api, logger.NewNopLogger(), SessionOptions{})
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.ToggleNote(context.Background(), "B", "n2", true))
	s.Wait()

	s.Close()
	s.Close()
	assert.True(t, s.Closed())
	assert.Zero(t, s.View().TotalSelected)

	ctx := context.Background()
	assert.True(t, errors.Is(s.ToggleNote(ctx, "B", "n2", false), ErrSessionClosed))
	assert.True(t, errors.Is(s.SetExpanded(ctx, "A", true), ErrSessionClosed))
	assert.True(t, errors.Is(s.Retry(ctx, "A"), ErrSessionClosed))
	_, err := s.Submit(ctx, SubmitRequest{EpisodeProfileId: "p1", EpisodeName: "Episode"})
	assert.True(t, errors.Is(err, ErrSessionClosed))
}
