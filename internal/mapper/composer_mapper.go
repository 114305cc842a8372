package mapper

import (
	"podcast-studio-be/internal/composer"
	"podcast-studio-be/internal/dto"
	"podcast-studio-be/internal/model"
	"podcast-studio-be/pkg/contentapi"
)

type ComposerMapper struct{}

func NewComposerMapper() *ComposerMapper {
	return &ComposerMapper{}
}

func (m *ComposerMapper) ToSessionResponse(s *composer.Session, v composer.SessionView) *dto.ComposerSessionResponse {
	res := &dto.ComposerSessionResponse{
		SessionId:     v.SessionId,
		CreatedAt:     s.CreatedAt,
		Notebooks:     make([]*dto.ComposerNotebookResponse, 0, len(v.Notebooks)),
		TotalSelected: v.TotalSelected,
		Aggregate:     *m.ToAggregateResponse(v.SessionId, v.Version, v.Counts),
		Submitting:    v.Submitting,
	}
	for _, nb := range v.Notebooks {
		res.Notebooks = append(res.Notebooks, m.toNotebookResponse(nb))
	}
	return res
}

func (m *ComposerMapper) toNotebookResponse(nb composer.NotebookView) *dto.ComposerNotebookResponse {
	name := nb.Notebook.Name
	if name == "" {
		name = nb.Notebook.Id
	}
	res := &dto.ComposerNotebookResponse{
		Id:              nb.Notebook.Id,
		Name:            name,
		Description:     nb.Notebook.Description,
		Expanded:        nb.Expanded,
		Loaded:          nb.Loaded,
		SourcesSelected: nb.Summary.SourcesSelected,
		NotesSelected:   nb.Summary.NotesSelected,
		TotalKnown:      nb.Summary.TotalKnown,
		CheckState:      string(nb.Summary.State),
		Sources:         make([]*dto.SourceResponse, 0, len(nb.Sources)),
		Notes:           make([]*dto.NoteResponse, 0, len(nb.Notes)),
	}
	if nb.Err != nil {
		res.Error = nb.Err.Error()
	}
	for _, sv := range nb.Sources {
		res.Sources = append(res.Sources, &dto.SourceResponse{
			Id:            sv.Source.Id,
			Title:         sv.Source.Title,
			InsightsCount: sv.Source.InsightsCount,
			Embedded:      sv.Source.Embedded,
			AssetUrl:      sv.Source.AssetURL(),
			Mode:          string(sv.Mode),
		})
	}
	for _, nv := range nb.Notes {
		res.Notes = append(res.Notes, &dto.NoteResponse{
			Id:        nv.Note.Id,
			Title:     nv.Note.Title,
			UpdatedAt: nv.Note.Updated,
			Mode:      string(nv.Mode),
		})
	}
	return res
}

func (m *ComposerMapper) ToAggregateResponse(sessionId string, version uint64, c composer.AggregateCounts) *dto.AggregateResponse {
	return &dto.AggregateResponse{
		SessionId:       sessionId,
		Version:         version,
		TokenCount:      c.TokenCount,
		CharCount:       c.CharCount,
		TokenCountLabel: composer.FormatCount(c.TokenCount),
		CharCountLabel:  composer.FormatCount(c.CharCount),
	}
}

func (m *ComposerMapper) ToProfileResponses(profiles []contentapi.EpisodeProfile) []*dto.EpisodeProfileResponse {
	res := make([]*dto.EpisodeProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		res = append(res, &dto.EpisodeProfileResponse{
			Id:              p.Id,
			Name:            p.Name,
			Description:     p.Description,
			SpeakerConfig:   p.SpeakerConfig,
			NumSegments:     p.NumSegments,
			DefaultBriefing: p.DefaultBriefing,
		})
	}
	return res
}

func (m *ComposerMapper) ToSubmissionResponse(s *model.PodcastSubmission) *dto.PodcastSubmissionResponse {
	if s == nil {
		return nil
	}
	return &dto.PodcastSubmissionResponse{
		Id:             s.ID,
		SessionId:      s.SessionID,
		JobId:          s.JobID,
		Status:         s.Status,
		EpisodeProfile: s.EpisodeProfile,
		EpisodeName:    s.EpisodeName,
		NotebookCount:  s.NotebookCount,
		ContentChars:   s.ContentChars,
		Error:          s.Error,
		CreatedAt:      s.CreatedAt,
	}
}
