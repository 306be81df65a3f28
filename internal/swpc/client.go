package swpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/logging"
)

// Client fetches upstream space-weather feeds (SWPC products and DONKI event
// services) with rate limiting and retried requests.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	donkiURL   string
	timeout    time.Duration
	logger     *logging.Logger
}

// NewClient creates a feed client from config.
func NewClient(cfg *config.Config, logger *logging.Logger) *Client {
	rps := cfg.SWPC.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Checker.FetchTimeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(rps)), rps),
		baseURL:    cfg.SWPC.BaseURL,
		donkiURL:   cfg.SWPC.DonkiBaseURL,
		timeout:    cfg.Checker.FetchTimeout,
		logger:     logger,
	}
}

// HTTPStatusError is returned for non-200 responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// get performs a rate-limited GET with exponential backoff, returning the
// response body. Client errors (4xx) are not retried.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.timeout
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// getJSON fetches url and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, url string, v interface{}) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s failed: %w", url, err)
	}
	return nil
}

// getText fetches url and returns the body as a string.
func (c *Client) getText(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
