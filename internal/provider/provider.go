// Package provider defines the capability interface that every photo
// source implements, plus a small startup-time registry from provider
// key to constructor. Exactly one Provider is instantiated per
// deployment; the registry exists so main can select it by configured
// key rather than by compile-time import graph.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// TokenSource provides OAuth2 bearer tokens to a Provider's transport.
// Defined here, at the consumer, per "accept interfaces, return structs".
type TokenSource interface {
	Token() (string, error)
}

// Container identifies one traversable node in a provider's photo
// library (an album, a folder, a shared library root). Depth bounds how
// many levels of nested containers FullScan will recurse into from this
// node, guarding against cyclic container graphs.
type Container struct {
	ID    string
	Depth int
}

// PhotoMeta is the provider-agnostic metadata for one photo item,
// normalized from whatever shape the backend API returns.
type PhotoMeta struct {
	ID           string
	Filename     string
	ContainerKey string
	CreationTime time.Time
	Width        int
	Height       int
	Latitude     *float64
	Longitude    *float64
	LocationName string
}

// DeltaResult is one page (or, for providers that fetch eagerly, the
// complete set) of changes since a previous token.
type DeltaResult struct {
	AddedOrModified []PhotoMeta
	DeletedIDs      []string
	NextToken       string
}

// Provider is the minimum capability every photo source must implement.
type Provider interface {
	// Name identifies this provider instance for logging.
	Name() string

	// Init prepares the provider for use (e.g. validates credentials).
	// Called once before any other method.
	Init(ctx context.Context) error

	// FullScan enumerates every photo reachable from containers, bounded
	// by each Container's Depth. Used for initial sync and as the
	// fallback sync strategy for providers that do not implement
	// DeltaCapable.
	FullScan(ctx context.Context, containers []Container) ([]PhotoMeta, error)

	// Download opens a stream of a photo's original bytes. The caller
	// closes the returned ReadCloser. timeout bounds how long the
	// provider waits to establish the stream; it does not bound the
	// read itself.
	Download(ctx context.Context, photoID string, timeout time.Duration) (io.ReadCloser, error)
}

// DeltaCapable is implemented by providers that can report incremental
// changes against a resume token, avoiding a full re-enumeration on
// every sync cycle.
type DeltaCapable interface {
	Provider

	// DeltaStartToken returns a token representing "now", for providers
	// being synced for the first time.
	DeltaStartToken(ctx context.Context) (string, error)

	// Delta returns changes since token along with the token to resume
	// from on the next call. An expired or invalid token is reported
	// through a sentinel error the caller can recognize with errors.Is;
	// the caller's response is to fall back to FullScan.
	Delta(ctx context.Context, token string) (*DeltaResult, error)
}

// Classifiable is implemented by provider errors that know whether the
// condition they represent is permanent (retrying will never help, e.g.
// invalid credentials) or transient (retrying later may succeed, e.g. a
// throttled request). Callers that need a classification for an error
// that does not implement this interface fall back to well-known message
// substrings; see syncctl's classify.
type Classifiable interface {
	error
	Permanent() bool
}

// ExpiredToken is implemented by provider errors that represent an
// invalid or expired delta resume token. The caller's contractual
// response is to fall back to FullScan, never to classify this as a
// permanent sync failure.
type ExpiredToken interface {
	error
	TokenExpired() bool
}

// IsDeltaTokenExpired reports whether err represents an expired delta
// token per the ExpiredToken interface, walking the error's Unwrap chain.
func IsDeltaTokenExpired(err error) bool {
	var et ExpiredToken
	if errors.As(err, &et) {
		return et.TokenExpired()
	}

	return false
}

// Constructor builds a Provider from its configuration block, a token
// source for authenticated backends, and a logger.
type Constructor func(cfg map[string]any, ts TokenSource, logger *slog.Logger) (Provider, error)

var registry = map[string]Constructor{}

// Register adds a provider constructor under key. Concrete provider
// packages call this from their init() function, mirroring a plugin
// registry — callers select a backend by configured key string rather
// than by importing a concrete package directly.
func Register(key string, ctor Constructor) {
	registry[key] = ctor
}

// New instantiates the provider registered under key.
func New(key string, cfg map[string]any, ts TokenSource, logger *slog.Logger) (Provider, error) {
	ctor, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("provider: no provider registered for key %q", key)
	}

	return ctor(cfg, ts, logger)
}
