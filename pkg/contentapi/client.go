package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is returned for any non-2xx response from the content API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("content api %s %s: status %d, body: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the upstream content API (notebooks, sources, notes,
// context building, episode profiles and podcast generation).
type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	var out []Notebook
	if err := c.do(ctx, http.MethodGet, "/api/notebooks", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListSources(ctx context.Context, notebookId string) ([]Source, error) {
	var out []Source
	q := url.Values{"notebook_id": {notebookId}}
	if err := c.do(ctx, http.MethodGet, "/api/sources", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListNotes(ctx context.Context, notebookId string) ([]Note, error) {
	var out []Note
	q := url.Values{"notebook_id": {notebookId}}
	if err := c.do(ctx, http.MethodGet, "/api/notes", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BuildContext(ctx context.Context, req BuildContextRequest) (*BuildContextResponse, error) {
	var out BuildContextResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat/context", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListEpisodeProfiles(ctx context.Context) ([]EpisodeProfile, error) {
	var out []EpisodeProfile
	if err := c.do(ctx, http.MethodGet, "/api/episode-profiles", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GeneratePodcast(ctx context.Context, req PodcastGenerationRequest) (*GenerationJob, error) {
	var out GenerationJob
	if err := c.do(ctx, http.MethodPost, "/api/podcasts/generate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		payloadBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(payloadBytes)
	}

	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("content api request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	if out == nil || len(bodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
