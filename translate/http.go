package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Rate limit state (shared pause for concurrent renders)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return atomic.LoadInt32(&r.paused) == 1
}

func (r *rateLimitState) pause(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	end := time.Now().Add(duration)
	if end.After(r.pauseEnd) {
		r.pauseEnd = end
	}
	atomic.StoreInt32(&r.paused, 1)
}

func (r *rateLimitState) unpause() {
	atomic.StoreInt32(&r.paused, 0)
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.unpause()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(remaining, 100*time.Millisecond)):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Support both --proxy flag and HTTP_PROXY/HTTPS_PROXY env vars
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// client is the transport shared by all backends: one HTTP client, one
// rate limit state and the retry policy of the provider.
type client struct {
	prov Provider
	http *http.Client
	rl   *rateLimitState
	log  zerolog.Logger

	// backoff returns the wait before retry attempt+1 after a transport
	// error or 5xx. Tests shorten it.
	backoff func(attempt int) time.Duration
}

func newClient(prov Provider, log zerolog.Logger) *client {
	return &client{
		prov: prov,
		http: makeHTTPClient(prov.Proxy, prov.effectiveTimeout()),
		rl:   &rateLimitState{},
		log:  log.With().Str("provider", prov.ID).Logger(),
		backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt))) * time.Second
		},
	}
}

// do sends the request built by newReq, retrying transport errors, 5xx and
// 429 responses. newReq is called once per attempt because request bodies
// cannot be replayed.
func (c *client) do(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	maxRetries := c.prov.effectiveMaxRetries()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait if globally paused (rate limit hit by another render)
		if err := c.rl.waitIfPaused(ctx); err != nil {
			return nil, err
		}

		req, err := newReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		c.log.Debug().Int("attempt", attempt+1).Str("method", req.Method).Str("url", redact(req.URL)).Msg("request")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < maxRetries {
				if err := sleep(ctx, c.backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("API request failed: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryDelay := parseRetryDelay(resp.Header.Get("Retry-After"), respBody)
			c.log.Warn().Dur("wait", retryDelay).Int("attempt", attempt+1).Int("max_retries", maxRetries).Msg("rate limited")
			c.rl.pause(retryDelay)
			if attempt < maxRetries {
				if err := sleep(ctx, retryDelay); err != nil {
					return nil, err
				}
				c.rl.unpause()
				continue
			}
			return nil, fmt.Errorf("rate limited after %d retries: %s", maxRetries, truncate(string(respBody), 200))
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < maxRetries && resp.StatusCode >= 500 {
				if err := sleep(ctx, c.backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("exhausted all %d retries", maxRetries)
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ---------------------------------------------------------------------------
// Rate limit: parse 429 response for retry delay
// ---------------------------------------------------------------------------

// parseRetryDelay returns the wait after a 429 response. It honours a
// Retry-After header in seconds, then Google's RetryInfo detail in the body,
// and defaults to 60s + 5s buffer.
func parseRetryDelay(retryAfter string, body []byte) time.Duration {
	const defaultDelay = 65 * time.Second

	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			// Parse duration like "30s", "45.123s"
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}

	return defaultDelay
}

// redact hides query values that may carry text or keys.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
