package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/pkg/contentapi"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// CompiledPayload is what gets handed to the generation trigger.
type CompiledPayload struct {
	EpisodeProfile string `json:"episode_profile"`
	SpeakerProfile string `json:"speaker_profile"`
	EpisodeName    string `json:"episode_name"`
	Content        string `json:"content"`
	BriefingSuffix string `json:"briefing_suffix,omitempty"`
}

func (p *CompiledPayload) Request() contentapi.PodcastGenerationRequest {
	return contentapi.PodcastGenerationRequest{
		EpisodeProfile: p.EpisodeProfile,
		SpeakerProfile: p.SpeakerProfile,
		EpisodeName:    p.EpisodeName,
		Content:        p.Content,
		BriefingSuffix: p.BriefingSuffix,
	}
}

type CompileOptions struct {
	Profile        *contentapi.EpisodeProfile
	EpisodeName    string
	BriefingSuffix string
}

// Compiler performs the authoritative aggregation at submission time. Unlike
// the Aggregator it fails on the first notebook that cannot be built.
type Compiler struct {
	api         ContextBuilder
	logger      logger.ILogger
	concurrency int
}

func NewCompiler(api ContextBuilder, log logger.ILogger, concurrency int) *Compiler {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Compiler{api: api, logger: log, concurrency: concurrency}
}

// Compile validates the episode settings before any network call, then builds
// the content from snap.
func (c *Compiler) Compile(ctx context.Context, snap Snapshot, names map[string]string, opts CompileOptions) (*CompiledPayload, error) {
	if opts.Profile == nil || strings.TrimSpace(opts.Profile.Name) == "" {
		return nil, ErrMissingProfile
	}
	episodeName := strings.TrimSpace(opts.EpisodeName)
	if episodeName == "" {
		return nil, ErrMissingName
	}

	content, err := c.BuildContent(ctx, snap, names)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrNoContentSelected
	}

	return &CompiledPayload{
		EpisodeProfile: opts.Profile.Name,
		SpeakerProfile: opts.Profile.SpeakerConfig,
		EpisodeName:    episodeName,
		Content:        content,
		BriefingSuffix: strings.TrimSpace(opts.BriefingSuffix),
	}, nil
}

// BuildContent returns one block per notebook with active items, each being
// the notebook name followed by its indented context, separated by a blank
// line. It returns "" when nothing is selected.
func (c *Compiler) BuildContent(ctx context.Context, snap Snapshot, names map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "composer.BuildContent")
	defer span.End()

	reqs := snap.Requests()
	span.SetAttributes(attribute.Int("selection.notebooks", len(reqs)))
	if len(reqs) == 0 {
		return "", nil
	}

	blocks := make([]string, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.api.BuildContext(gctx, req)
			if err != nil {
				return wrap(ErrContextBuild, req.NotebookId, "", err)
			}
			body, err := serializeContext(res.Context)
			if err != nil {
				return wrap(ErrContextBuild, req.NotebookId, "malformed context", err)
			}
			name := names[req.NotebookId]
			if name == "" {
				name = req.NotebookId
			}
			blocks[i] = name + "\n" + body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		c.logger.Error("Compiler", "Failed to build context for submission", map[string]interface{}{
			"error": err.Error(),
		})
		return "", err
	}
	return strings.Join(blocks, "\n\n"), nil
}

func serializeContext(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "null", nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
