// Package graphphotos implements provider.Provider against a cloud photo
// library exposed through a Graph-API-shaped REST surface: paginated
// container listing, delta queries keyed by @odata.deltaLink/@odata.nextLink,
// and pre-authenticated download URLs.
package graphphotos

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tonimelisma/photoframe/internal/provider"
)

const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "photoframed/0.1"
)

// DefaultBaseURL is the production endpoint for the photo library API.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0/me/drive/special/photos"

func init() {
	provider.Register("graphphotos", New)
}

// Client is an HTTP client for the cloud photo library API. It handles
// request construction, bearer auth, retry with exponential backoff, and
// status-code classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      provider.TokenSource
	logger     *slog.Logger

	// limiter throttles Download's streamed read rate when the engine's
	// network.download_rate_limit_kbps setting is non-zero. Metadata
	// calls (Do) are never throttled — only the photo payload stream.
	limiter *rate.Limiter

	sleepFunc func(ctx context.Context, d time.Duration) error
}

// Config is the graphphotos-specific subset of the provider's config map.
type Config struct {
	BaseURL string // defaults to DefaultBaseURL when empty
}

// New constructs a graphphotos Provider from a generic config map. Recognized
// keys: "base_url" (string, optional) and "download_rate_limit_kbps" (number,
// optional — caps sustained download throughput; the engine merges
// network.download_rate_limit_kbps into this map before calling New, see
// internal/engine/provider.go).
func New(cfg map[string]any, ts provider.TokenSource, logger *slog.Logger) (provider.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := DefaultBaseURL
	if v, ok := cfg["base_url"].(string); ok && v != "" {
		baseURL = v
	}

	return &Provider{
		client: &Client{
			baseURL:    baseURL,
			httpClient: http.DefaultClient,
			token:      ts,
			logger:     logger,
			limiter:    rateLimiterFromConfig(cfg),
			sleepFunc:  timeSleep,
		},
		logger: logger,
	}, nil
}

// rateLimiterFromConfig builds a byte-per-second rate.Limiter from the
// "download_rate_limit_kbps" config key, or nil if unset/non-positive
// (unlimited, the default). Burst is one second's worth of bytes, enough
// to avoid throttling each individual small read call.
func rateLimiterFromConfig(cfg map[string]any) *rate.Limiter {
	kbps := configInt(cfg["download_rate_limit_kbps"])
	if kbps <= 0 {
		return nil
	}

	bytesPerSecond := kbps * 1024

	// Burst must cover the largest single Read call WaitN will be asked to
	// admit (io.Copy's default 32KB buffer), or WaitN rejects it outright
	// regardless of how long the caller is willing to wait.
	burst := bytesPerSecond
	if burst < minRateLimitBurst {
		burst = minRateLimitBurst
	}

	return rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
}

// minRateLimitBurst covers io.Copy's default 32KB buffer size.
const minRateLimitBurst = 64 * 1024

// configInt extracts an int from the handful of numeric types a TOML or
// JSON decode can hand back through a map[string]any.
func configInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Do executes an authenticated request against the photo library API,
// retrying transient failures with exponential backoff and jitter. The
// caller closes the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	url := c.baseURL + path

	var attempt int

	for {
		resp, err := c.doOnce(ctx, method, url, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("graphphotos: request canceled: %w", ctx.Err())
			}

			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("graphphotos: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("graphphotos: %s %s failed after %d retries: %w", method, path, maxRetries, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		reqID := resp.Header.Get("request-id")

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("graphphotos: request canceled: %w", err)
			}

			attempt++

			continue
		}

		return nil, c.terminalError(method, path, resp.StatusCode, reqID, errBody, attempt)
	}
}

func (c *Client) doOnce(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	return c.httpClient.Do(req)
}

func (c *Client) terminalError(method, path string, statusCode int, reqID string, body []byte, attempt int) *ProviderError {
	perr := &ProviderError{
		StatusCode: statusCode,
		RequestID:  reqID,
		Message:    string(body),
		Err:        classifyStatus(statusCode),
	}

	if attempt > 0 {
		c.logger.Error("request failed after retries",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", statusCode),
			slog.Int("attempts", attempt+1),
		)
	} else {
		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", statusCode),
		)
	}

	return perr
}

// doPreAuthRetry executes a request against a pre-authenticated URL (no
// bearer header), retrying transient failures. makeReq is called fresh
// on every attempt so the request body, if any, can be re-read.
func (c *Client) doPreAuthRetry(
	ctx context.Context, desc string, makeReq func() (*http.Request, error),
) (*http.Response, error) {
	var attempt int

	for {
		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("graphphotos: %s canceled: %w", desc, ctx.Err())
			}

			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying pre-auth request after network error",
					slog.String("desc", desc),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("graphphotos: %s canceled: %w", desc, sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("graphphotos: %s failed after %d retries: %w", desc, maxRetries, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)

			if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
				return nil, fmt.Errorf("graphphotos: %s canceled: %w", desc, sleepErr)
			}

			attempt++

			continue
		}

		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
}

func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter, not a security context
	backoff += jitter

	return time.Duration(backoff)
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
