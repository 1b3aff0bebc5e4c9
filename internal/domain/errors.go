package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfigurationMissing marks a required secret or endpoint that was
	// absent before any network call was made.
	ErrConfigurationMissing = errors.New("required configuration missing")

	// ErrCredentialMissing is returned when no usable credential is stored
	// for a service and none can be obtained.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrPaginationLoop signals that a channel repeated a continuation
	// token, a contract violation on the channel side.
	ErrPaginationLoop = errors.New("pagination loop detected")

	// ErrSyncInProgress is returned when a run lease for the channel is
	// already held.
	ErrSyncInProgress = errors.New("sync already in progress")
)

const upstreamBodyLimit = 512

// UpstreamError is a non-success HTTP response from a channel API. The run
// that observes it aborts; pages already fetched are discarded.
type UpstreamError struct {
	Status int
	Body   string
}

func NewUpstreamError(status int, body []byte) *UpstreamError {
	b := string(body)
	if len(b) > upstreamBodyLimit {
		b = b[:upstreamBodyLimit]
	}
	return &UpstreamError{Status: status, Body: b}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// IsAuth reports whether the channel rejected our credential. Auth failures
// are not retried within a run; the refresh routine resolves them.
func (e *UpstreamError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}
