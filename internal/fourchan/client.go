package fourchan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"chanmirror/internal/config"
	"chanmirror/internal/logging"
)

// ErrNotFound indicates the remote resource does not exist (HTTP 404). It is
// never retried: expired threads legitimately 404.
var ErrNotFound = errors.New("remote resource not found")

// Client talks to the remote imageboard API. All outbound requests, including
// binary downloads, pass through one shared minimum-interval rate gate.
type Client struct {
	apiBase    string
	imageBase  string
	userAgent  string
	maxRetries int
	backoff    time.Duration

	requestTimeout  time.Duration
	downloadTimeout time.Duration
	healthTimeout   time.Duration

	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a remote API client from the remote configuration section.
func New(cfg config.Remote, logger *slog.Logger, opts ...Option) (*Client, error) {
	apiBase := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if apiBase == "" {
		return nil, errors.New("api base url required")
	}
	imageBase := strings.TrimRight(strings.TrimSpace(cfg.ImageBaseURL), "/")
	if imageBase == "" {
		return nil, errors.New("image base url required")
	}

	client := &Client{
		apiBase:         apiBase,
		imageBase:       imageBase,
		userAgent:       cfg.UserAgent,
		maxRetries:      cfg.MaxRetries,
		backoff:         time.Duration(cfg.RetryBackoff) * time.Second,
		requestTimeout:  time.Duration(cfg.RequestTimeout) * time.Second,
		downloadTimeout: time.Duration(cfg.DownloadTimeout) * time.Second,
		healthTimeout:   time.Duration(cfg.HealthTimeout) * time.Second,
		limiter:         rate.NewLimiter(rate.Every(time.Duration(cfg.RateLimitInterval)*time.Second), 1),
		httpClient:      &http.Client{},
		logger:          logging.NewComponentLogger(logger, "fourchan"),
	}
	if client.maxRetries <= 0 {
		client.maxRetries = 1
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchBoards retrieves the board directory.
func (c *Client) FetchBoards(ctx context.Context) ([]Board, error) {
	var payload boardsResponse
	if err := c.fetchJSON(ctx, c.apiBase+"/boards.json", &payload); err != nil {
		return nil, err
	}
	boards := make([]Board, 0, len(payload.Boards))
	for _, b := range payload.Boards {
		boards = append(boards, Board{
			Code:     b.Board,
			Title:    b.Title,
			Worksafe: b.WsBoard != 0,
		})
	}
	return boards, nil
}

// FetchCatalog retrieves and flattens the catalog pages for a board.
func (c *Client) FetchCatalog(ctx context.Context, board string) ([]CatalogThread, error) {
	var pages []catalogPage
	if err := c.fetchJSON(ctx, fmt.Sprintf("%s/%s/catalog.json", c.apiBase, board), &pages); err != nil {
		return nil, err
	}

	var threads []CatalogThread
	for _, page := range pages {
		for _, raw := range page.Threads {
			var thread CatalogThread
			if err := json.Unmarshal(raw, &thread); err != nil {
				return nil, fmt.Errorf("parse catalog thread: %w", err)
			}
			thread.Raw = raw
			threads = append(threads, thread)
		}
	}
	return threads, nil
}

// FetchThread retrieves a full thread. Returns ErrNotFound when the thread
// has expired upstream.
func (c *Client) FetchThread(ctx context.Context, board string, threadID int64) (*Thread, error) {
	var raw json.RawMessage
	url := fmt.Sprintf("%s/%s/thread/%d.json", c.apiBase, board, threadID)
	if err := c.fetchJSON(ctx, url, &raw); err != nil {
		return nil, err
	}
	thread, err := ParseThread(raw)
	if err != nil {
		return nil, fmt.Errorf("parse thread: %w", err)
	}
	return thread, nil
}

// ThumbnailURL returns the remote URL of a post's thumbnail.
func (c *Client) ThumbnailURL(board string, tim int64) string {
	return fmt.Sprintf("%s/%s/%ds.jpg", c.imageBase, board, tim)
}

// ImageURL returns the remote URL of a post's full image.
func (c *Client) ImageURL(board string, tim int64, ext string) string {
	return fmt.Sprintf("%s/%s/%d%s", c.imageBase, board, tim, ext)
}

// CheckHealth probes the boards endpoint and reports reachability. It never
// returns an error; an unreachable upstream is simply false.
func (c *Client) CheckHealth(ctx context.Context) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/boards.json", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// fetchJSON performs a rate-limited GET with retries and decodes the response
// body into v. A 404 short-circuits to ErrNotFound without retrying.
func (c *Client) fetchJSON(ctx context.Context, url string, v any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.fetchJSONOnce(ctx, url, v)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrNotFound) {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
		c.logger.Warn("request failed",
			logging.String(logging.FieldURL, url),
			logging.Int("attempt", attempt+1),
			logging.Int("max_attempts", c.maxRetries),
			logging.Error(lastErr))
	}
	return fmt.Errorf("fetch %s after %d attempts: %w", url, c.maxRetries, lastErr)
}

func (c *Client) fetchJSONOnce(ctx context.Context, url string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
