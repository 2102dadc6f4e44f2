package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"dealgraph/internal/config"
)

type RetryOptions struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

var DefaultRetry = RetryOptions{
	MaxAttempts: 3,
	InitialWait: 250 * time.Millisecond,
	MaxWait:     5 * time.Second,
}

// HTTPClient talks to the profile enrichment service over JSON.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryOptions
	logger     *log.Logger
}

type ClientOption func(*HTTPClient)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

func WithRetry(r RetryOptions) ClientOption {
	return func(h *HTTPClient) {
		if r.MaxAttempts > 0 {
			h.retry = r
		}
	}
}

func WithClientLogger(l *log.Logger) ClientOption {
	return func(h *HTTPClient) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHTTPClient(cfg config.EnrichmentConfig, opts ...ClientOption) (*HTTPClient, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("creating enrichment client: endpoint is required")
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	h := &HTTPClient{
		baseURL:    endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		retry:      DefaultRetry,
		logger:     log.Default(),
	}
	if cfg.MaxRetries > 0 {
		h.retry.MaxAttempts = cfg.MaxRetries
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (c *HTTPClient) FetchProfile(ctx context.Context, req ProfileRequest) (*Profile, error) {
	if !req.Valid() {
		return nil, fmt.Errorf("fetching profile: email or name and company required")
	}
	var profile Profile
	if err := c.post(ctx, "/profiles", req, &profile); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return &profile, nil
}

type suggestionRequest struct {
	ContactID string   `json:"contact_id"`
	Profile   *Profile `json:"profile"`
}

type suggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

func (c *HTTPClient) SuggestRelationships(ctx context.Context, contactID string, profile *Profile) ([]Suggestion, error) {
	var resp suggestionResponse
	if err := c.post(ctx, "/suggestions", suggestionRequest{ContactID: contactID, Profile: profile}, &resp); err != nil {
		return nil, fmt.Errorf("suggesting relationships: %w", err)
	}
	return resp.Suggestions, nil
}

// post sends one JSON request, retrying transport failures and temporary
// statuses with exponential backoff.
func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	wait := c.retry.InitialWait
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying enrichment request", "path", path, "attempt", attempt+1, "err", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
			if wait > c.retry.MaxWait {
				wait = c.retry.MaxWait
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		lastErr = c.do(ctx, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Temporary() {
			return lastErr
		}
	}
	return lastErr
}

func (c *HTTPClient) do(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
