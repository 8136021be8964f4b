package graphphotos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoDownloadURL is returned when a photo item has no pre-authenticated
// download URL available.
var ErrNoDownloadURL = errors.New("graphphotos: item has no download URL")

// Download opens a stream of the photo's original bytes. It first fetches
// the item metadata for its pre-authenticated download URL, then streams
// directly from that URL, bypassing the authenticated API surface.
// timeout bounds only the metadata lookup; the request to the download
// URL runs under ctx alone.
func (p *Provider) Download(ctx context.Context, photoID string, timeout time.Duration) (io.ReadCloser, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.Do(lookupCtx, http.MethodGet, "/items/"+photoID, nil)
	if err != nil {
		return nil, fmt.Errorf("graphphotos: looking up item %s: %w", photoID, err)
	}
	defer resp.Body.Close()

	var it itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		return nil, fmt.Errorf("graphphotos: decoding item response: %w", err)
	}

	if it.DownloadURL == "" {
		return nil, ErrNoDownloadURL
	}

	streamResp, err := p.client.doPreAuthRetry(ctx, "download", func() (*http.Request, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, it.DownloadURL, http.NoBody)
		if reqErr != nil {
			return nil, fmt.Errorf("graphphotos: creating download request: %w", reqErr)
		}

		req.Header.Set("User-Agent", userAgent)

		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if p.client.limiter == nil {
		return streamResp.Body, nil
	}

	return &rateLimitedBody{rc: streamResp.Body, limiter: p.client.limiter, ctx: ctx}, nil
}

// rateLimitedBody throttles Read to the Client's configured download rate
// limit by waiting for enough limiter tokens after every read. Close just
// delegates to the wrapped body.
type rateLimitedBody struct {
	rc      io.ReadCloser
	limiter *rate.Limiter
	ctx     context.Context
}

func (r *rateLimitedBody) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if n > 0 {
		if waitErr := r.limiter.WaitN(r.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

func (r *rateLimitedBody) Close() error {
	return r.rc.Close()
}
