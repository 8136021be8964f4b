package graphphotos

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for status code classification. Use errors.Is to check.
var (
	ErrUnauthorized = errors.New("graphphotos: unauthorized")
	ErrForbidden    = errors.New("graphphotos: forbidden")
	ErrNotFound     = errors.New("graphphotos: not found")
	ErrThrottled    = errors.New("graphphotos: throttled")
	ErrGone         = errors.New("graphphotos: delta token expired")
	ErrServerError  = errors.New("graphphotos: server error")
)

// ProviderError wraps a sentinel error with the HTTP status, request ID
// (when present), and response body for debugging.
type ProviderError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("graphphotos: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("graphphotos: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TokenExpired reports whether this error represents an expired delta
// link (HTTP 410 Gone), per provider.ExpiredToken.
func (e *ProviderError) TokenExpired() bool {
	return e.StatusCode == http.StatusGone
}

// Permanent reports whether retrying this request would never help:
// bad credentials or a missing item (401, 403, 404). An expired delta
// token (410) is not permanent; see TokenExpired. Throttling and server
// errors are transient — the client's own retry loop already handles
// those, but a caller further up (syncctl) needs the same verdict once
// retries there are exhausted.
func (e *ProviderError) Permanent() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}

func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	case http.StatusGone:
		return ErrGone
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
