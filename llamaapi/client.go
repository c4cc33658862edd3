package llamaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/fwojciec/scry"
	"github.com/fwojciec/scry/wire"
)

// Interface compliance check.
var _ scry.Agent = (*Client)(nil)

// Client implements [scry.Agent] for the LlamaAI chat agent API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientLogger sets the logger, shared with the wire decoder for dropped
// lines.
func WithClientLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a new [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ask sends the streaming request and returns an event stream over the
// response body. A 403 with code USAGE_LIMIT_EXCEEDED returns a
// [scry.RateLimitError] instead of a generic HTTP error.
func (c *Client) Ask(ctx context.Context, req scry.Request) (scry.EventStream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("llamaapi: %w", err)
	}

	body, err := json.Marshal(buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("llamaapi: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+agentPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llamaapi: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llamaapi: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return wire.NewStream(ctx, resp.Body, wire.WithDecoderLogger(c.logger)), nil
}

// Stop asks the server to stop producing for the session. Fire-and-forget
// semantically; the caller does not block an abort on the result.
func (c *Client) Stop(ctx context.Context, sessionID string) error {
	body, err := json.Marshal(apiStopRequest{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("llamaapi: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stopPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("llamaapi: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("llamaapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Restore looks up a session's streaming state for the reconnect path.
func (c *Client) Restore(ctx context.Context, sessionID string) (scry.RestoreState, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+sessionsPath+url.PathEscape(sessionID), nil)
	if err != nil {
		return scry.RestoreState{}, fmt.Errorf("llamaapi: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return scry.RestoreState{}, fmt.Errorf("llamaapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return scry.RestoreState{}, parseHTTPError(resp)
	}

	var payload apiRestoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return scry.RestoreState{}, fmt.Errorf("llamaapi: failed to parse restore response: %w", err)
	}

	state := scry.RestoreState{
		Status:  payload.Streaming.Status,
		Content: payload.Streaming.Content,
	}
	if r := payload.Streaming.Result; r != nil {
		state.Result = &scry.Answer{
			SessionID: sessionID,
			Title:     r.Title,
			Content:   r.Content,
			Citations: r.Citations,
			Metadata:  r.Metadata,
			Items: []scry.Item{scry.MarkdownItem{
				ItemID:    "answer",
				Text:      r.Content,
				Citations: r.Citations,
			}},
		}
	}
	return state, nil
}

func buildRequestBody(req scry.Request) apiRequest {
	mode := req.Mode
	if mode == "" {
		mode = scry.ModeAuto
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	api := apiRequest{
		Message:           req.Question,
		Stream:            true,
		Mode:              string(mode),
		Timezone:          timezone,
		SessionID:         req.SessionID,
		CreateNewSession:  req.SessionID == "",
		Resume:            req.Resume,
		SuggestionContext: req.SuggestionContext,
		ForceIntent:       string(req.ForceIntent),
	}
	for _, e := range req.Entities {
		api.PreResolvedEntities = append(api.PreResolvedEntities, apiEntity{Term: e.Term, Slug: e.Slug})
	}
	for _, img := range req.Images {
		api.Images = append(api.Images, apiImageAttachment{
			Data:     img.Data,
			MimeType: img.MimeType,
			Filename: img.Filename,
		})
	}
	return api
}

// parseHTTPError maps a non-200 response to an error. The quota failure is
// checked first so it never falls through to the generic path.
func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("llamaapi: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return fmt.Errorf("llamaapi: HTTP %d: %s", resp.StatusCode, string(body))
	}
	if apiErr.Code == usageLimitCode {
		return &scry.RateLimitError{
			Period:    apiErr.Details.Period,
			Limit:     apiErr.Details.Limit,
			ResetTime: apiErr.Details.ResetTime,
		}
	}
	if apiErr.Message == "" {
		return fmt.Errorf("llamaapi: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("llamaapi: %s: %s", apiErr.Code, apiErr.Message)
}
