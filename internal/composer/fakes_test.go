package composer

import (
	"context"
	"encoding/json"
	"sync"

	"podcast-studio-be/pkg/contentapi"
)

// fakeAPI is an in-memory content API. Token counts are 100 per source and
// 10 per note; char counts are four times that.
type fakeAPI struct {
	mu sync.Mutex

	notebooks  []contentapi.Notebook
	sources    map[string][]contentapi.Source
	notes      map[string][]contentapi.Note
	profiles   []contentapi.EpisodeProfile
	sourcesErr map[string]error
	notesErr   map[string]error
	buildErr   map[string]error

	// sourcesHook, when set, runs outside the lock with the call number and
	// may replace the reply with an error.
	sourcesHook func(notebookId string, call int) error

	// buildHook, when set, runs before the default BuildContext reply.
	buildHook   func(ctx context.Context, req contentapi.BuildContextRequest)
	generateErr error

	sourceCalls map[string]int
	noteCalls   map[string]int
	buildCalls  []contentapi.BuildContextRequest
	generated   []contentapi.PodcastGenerationRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		sources:     make(map[string][]contentapi.Source),
		notes:       make(map[string][]contentapi.Note),
		sourcesErr:  make(map[string]error),
		notesErr:    make(map[string]error),
		buildErr:    make(map[string]error),
		sourceCalls: make(map[string]int),
		noteCalls:   make(map[string]int),
	}
}

func (f *fakeAPI) addNotebook(id, name string, sources []contentapi.Source, notes []contentapi.Note) {
	f.notebooks = append(f.notebooks, contentapi.Notebook{Id: id, Name: name})
	f.sources[id] = sources
	f.notes[id] = notes
}

func (f *fakeAPI) ListNotebooks(ctx context.Context) ([]contentapi.Notebook, error) {
	return f.notebooks, nil
}

func (f *fakeAPI) ListSources(ctx context.Context, notebookId string) ([]contentapi.Source, error) {
	f.mu.Lock()
	f.sourceCalls[notebookId]++
	call, hook := f.sourceCalls[notebookId], f.sourcesHook
	err, sources := f.sourcesErr[notebookId], f.sources[notebookId]
	f.mu.Unlock()

	if hook != nil {
		if herr := hook(notebookId, call); herr != nil {
			return nil, herr
		}
	}
	if err != nil {
		return nil, err
	}
	return sources, nil
}

func (f *fakeAPI) ListNotes(ctx context.Context, notebookId string) ([]contentapi.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noteCalls[notebookId]++
	if err := f.notesErr[notebookId]; err != nil {
		return nil, err
	}
	return f.notes[notebookId], nil
}

func (f *fakeAPI) BuildContext(ctx context.Context, req contentapi.BuildContextRequest) (*contentapi.BuildContextResponse, error) {
	f.mu.Lock()
	f.buildCalls = append(f.buildCalls, req)
	hook := f.buildHook
	err := f.buildErr[req.NotebookId]
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(map[string]interface{}{
		"notebook_id": req.NotebookId,
		"sources":     req.ContextConfig.Sources,
		"notes":       req.ContextConfig.Notes,
	})
	tokens := 100*len(req.ContextConfig.Sources) + 10*len(req.ContextConfig.Notes)
	return &contentapi.BuildContextResponse{
		Context:    raw,
		TokenCount: tokens,
		CharCount:  tokens * 4,
	}, nil
}

func (f *fakeAPI) ListEpisodeProfiles(ctx context.Context) ([]contentapi.EpisodeProfile, error) {
	return f.profiles, nil
}

func (f *fakeAPI) GeneratePodcast(ctx context.Context, req contentapi.PodcastGenerationRequest) (*contentapi.GenerationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	f.generated = append(f.generated, req)
	return &contentapi.GenerationJob{JobId: "job-1", Status: "submitted", EpisodeName: req.EpisodeName}, nil
}

func (f *fakeAPI) builds() []contentapi.BuildContextRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]contentapi.BuildContextRequest, len(f.buildCalls))
	copy(out, f.buildCalls)
	return out
}

func (f *fakeAPI) generateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.generated)
}

// expectedContext mirrors the fake's serialized context for one notebook.
func expectedContext(notebookId string, sources, notes map[string]string) string {
	raw, _ := json.Marshal(map[string]interface{}{
		"notebook_id": notebookId,
		"sources":     sources,
		"notes":       notes,
	})
	body, _ := serializeContext(raw)
	return body
}

func src(id string, insights int) contentapi.Source {
	return contentapi.Source{Id: id, Title: "Source " + id, InsightsCount: insights}
}

func note(id string) contentapi.Note {
	return contentapi.Note{Id: id, Title: "Note " + id}
}
