package graphphotos

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopSleep(_ context.Context, _ time.Duration) error { return nil }

type staticToken string

func (t staticToken) Token() (string, error) { return string(t), nil }

type failingToken struct{}

func (failingToken) Token() (string, error) { return "", errors.New("token error") }

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c := &Client{
		baseURL:    url,
		httpClient: http.DefaultClient,
		token:      staticToken("test-token"),
		logger:     slog.Default(),
		sleepFunc:  noopSleep,
	}

	return c
}

func TestDoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	resp, err := c.Do(context.Background(), http.MethodGet, "/items/1", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDoRetriesOnServerError(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	resp, err := c.Do(context.Background(), http.MethodGet, "/items/1", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 3, calls)
}

func TestDoTerminalErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"missing"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Do(context.Background(), http.MethodGet, "/items/missing", nil)
	require.Error(t, err)

	var perr *ProviderError

	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusNotFound, perr.StatusCode)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDoTokenError(t *testing.T) {
	c := &Client{
		baseURL:    "http://unused",
		httpClient: http.DefaultClient,
		token:      failingToken{},
		logger:     slog.Default(),
		sleepFunc:  noopSleep,
	}

	_, err := c.Do(context.Background(), http.MethodGet, "/items/1", nil)
	require.Error(t, err)
}

func TestRetryAfterHeaderHonored(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	resp, err := c.Do(context.Background(), http.MethodGet, "/items/1", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 2, calls)
}

func TestRateLimiterFromConfigUnsetIsNil(t *testing.T) {
	assert.Nil(t, rateLimiterFromConfig(nil))
	assert.Nil(t, rateLimiterFromConfig(map[string]any{"download_rate_limit_kbps": 0}))
	assert.Nil(t, rateLimiterFromConfig(map[string]any{"download_rate_limit_kbps": -5}))
}

func TestRateLimiterFromConfigBuildsLimiter(t *testing.T) {
	lim := rateLimiterFromConfig(map[string]any{"download_rate_limit_kbps": 100})
	require.NotNil(t, lim)
	assert.InDelta(t, 100*1024, float64(lim.Limit()), 1)
}

func TestConfigIntAcceptsNumericTypes(t *testing.T) {
	assert.Equal(t, 5, configInt(5))
	assert.Equal(t, 5, configInt(int64(5)))
	assert.Equal(t, 5, configInt(float64(5)))
	assert.Equal(t, 0, configInt("5"))
	assert.Equal(t, 0, configInt(nil))
}
