package syncctl

import (
	"errors"
	"strings"

	"github.com/tonimelisma/photoframe/internal/provider"
)

// permanentSubstrings match opaque (non-tagged) errors that should never
// be retried: bad credentials, missing resources, and similar terminal
// failures. Matched case-insensitively against err.Error().
var permanentSubstrings = []string{
	"unauthorized",
	"forbidden",
	"invalid credentials",
	"invalid_grant",
	"not found",
	"permission denied",
	"invalid folder",
}

// transientSubstrings match well-known retryable conditions: network
// blips, timeouts, and throttling, in case the error isn't tagged with
// provider.Classifiable.
var transientSubstrings = []string{
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"temporary failure",
	"throttled",
	"too many requests",
	"eof",
}

// classify reports whether err represents a permanent failure (retrying
// will never help) as opposed to a transient one (retrying later may
// succeed). It first checks for a provider.Classifiable tagged error,
// then falls back to well-known substrings in err.Error(), and defaults
// to transient for anything unrecognized — an unrecognized failure mode
// is more likely a blip than a reason to give up synchronizing entirely.
func classify(err error) bool {
	if err == nil {
		return false
	}

	var tagged provider.Classifiable
	if errors.As(err, &tagged) {
		return tagged.Permanent()
	}

	msg := strings.ToLower(err.Error())

	for _, s := range permanentSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}

	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return false
		}
	}

	return false
}
