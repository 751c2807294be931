package client

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"nba_priors/mining/internal/metrics"
)

// Client is the stats.nba.com API client. Requests are issued strictly
// sequentially; the service blocks clients that fetch concurrently or
// without inter-request delays.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	retryInitial time.Duration
}

// New creates a stats API client.
func New(baseURL string, timeout time.Duration, maxRetries int, retryInitial time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		maxRetries:   maxRetries,
		retryInitial: retryInitial,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Throttle sleeps for base scaled by a random factor in [1.0, 1.5). Callers
// must invoke it around every logical unit of upstream work; skipping it gets
// the client throttled mid-run.
func (c *Client) Throttle(ctx context.Context, base time.Duration) error {
	d := time.Duration(float64(base) * (1.0 + rand.Float64()*0.5))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// get performs a GET request with retry on transient failures.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s/%s", c.baseURL, endpoint)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.RandomizationFactor = 0.25
	bo.MaxElapsedTime = 0

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := bo.NextBackOff()
			log.Info().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.URL.RawQuery = params.Encode()
		setStatsHeaders(req)

		log.Debug().
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Msg("Making API request")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		metrics.UpstreamCallDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.UpstreamCallsTotal.WithLabelValues(endpoint, "network_error").Inc()
			lastErr = fmt.Errorf("API request failed: %w", err)
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			metrics.UpstreamCallsTotal.WithLabelValues(endpoint, "read_error").Inc()
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		metrics.UpstreamCallsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusOK {
			log.Debug().
				Str("endpoint", endpoint).
				Int("size", len(body)).
				Msg("API request successful")
			return body, nil
		}

		statusErr := &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
		if !statusErr.Transient() {
			return nil, statusErr
		}

		lastErr = statusErr
		if attempt < c.maxRetries {
			log.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Msg("Received retryable error, will retry")
		}
	}

	return nil, fmt.Errorf("retry budget exhausted for %s: %w", endpoint, lastErr)
}

// setStatsHeaders applies the browser identity the stats service expects.
// Requests without these headers hang or are rejected outright.
func setStatsHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Referer", "https://stats.nba.com/")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("x-nba-stats-origin", "stats")
	req.Header.Set("x-nba-stats-token", "true")
}
