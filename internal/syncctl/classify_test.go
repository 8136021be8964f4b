package syncctl

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/photoframe/internal/provider/graphphotos"
)

func TestClassifyTaggedPermanentError(t *testing.T) {
	err := &graphphotos.ProviderError{StatusCode: http.StatusUnauthorized, Message: "bad token"}
	require.True(t, classify(err))
}

func TestClassifyTaggedTransientError(t *testing.T) {
	err := &graphphotos.ProviderError{StatusCode: http.StatusTooManyRequests, Message: "slow down"}
	require.False(t, classify(err))
}

func TestClassifyOpaquePermanentSubstring(t *testing.T) {
	require.True(t, classify(errors.New("401 Unauthorized: invalid credentials")))
}

func TestClassifyInvalidFolderIsPermanent(t *testing.T) {
	require.True(t, classify(errors.New("sync failed: invalid folder configured for container root")))
}

func TestClassifyOpaqueTransientSubstring(t *testing.T) {
	require.False(t, classify(errors.New("dial tcp: connection refused")))
}

func TestClassifyUnknownDefaultsTransient(t *testing.T) {
	require.False(t, classify(errors.New("something weird happened")))
}

func TestClassifyNilIsNotPermanent(t *testing.T) {
	require.False(t, classify(nil))
}
