package dispatcher

import "time"

// Message is the sealed set of values a Dispatcher emits on its out
// channel. The host interface (web UI, framebuffer renderer, whatever
// consumes the channel) type-switches on the concrete type.
type Message any

// DisplayPhoto carries one photo's payload, base64-encoded for wire
// transport, plus the metadata a display surface needs to render it.
type DisplayPhoto struct {
	ID           string
	Image        string // base64-encoded
	Filename     string
	Width        int
	Height       int
	CreationTime time.Time
	LocationName string
}

// UpdateStatus is a human-readable one-liner for transient conditions
// that do not warrant a full ConnectionStatus (e.g. "waiting for photos
// to cache").
type UpdateStatus struct {
	Text string
}

// ConnectionStatusValue enumerates the connection states surfaced to the
// host, mirroring syncctl.State without importing it (the dispatcher
// should not need to know about the sync controller's internals).
type ConnectionStatusValue string

const (
	ConnectionOnline       ConnectionStatusValue = "online"
	ConnectionOffline      ConnectionStatusValue = "offline"
	ConnectionRetrying     ConnectionStatusValue = "retrying"
	ConnectionError        ConnectionStatusValue = "error"
	ConnectionInitializing ConnectionStatusValue = "initializing"
)

// ConnectionStatus reports a change in the Provider's reachability.
type ConnectionStatus struct {
	Status  ConnectionStatusValue
	Message string
}

// ErrorMsg surfaces a terminal, non-retryable failure to the host.
type ErrorMsg struct {
	Message string
	Details string
}

// CacheStats reports the cache's current occupancy and health.
type CacheStats struct {
	TotalSizeMB         float64
	MaxSizeMB           float64
	UsagePercent        float64
	CachedCount         int
	TotalCount          int
	CachePercent        float64
	ConsecutiveFailures int
	IsOffline           bool
}
