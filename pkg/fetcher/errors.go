package fetcher

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidLogger signals a nil logger was passed to New.
	ErrInvalidLogger = errors.New("invalid logger: must not be nil")
	// ErrInvalidPeerPool signals a nil PeerPool was passed to New.
	ErrInvalidPeerPool = errors.New("invalid peer pool: must not be nil")
	// ErrInvalidFetcher signals a nil Fetcher hook set was passed to New.
	ErrInvalidFetcher = errors.New("invalid fetcher: must not be nil")
	// ErrInvalidMaxQueue signals a non-positive MaxQueue option.
	ErrInvalidMaxQueue = errors.New("invalid max queue: must be greater than 0")

	// ErrJobExpired names the case of a request's resolution arriving for a
	// job that is no longer active. The engine drops such a resolution
	// silently and does not return this error.
	ErrJobExpired = errors.New("job expired before reply arrived")

	// ErrEmptyOrMissingReply classifies a request that resolved with no reply
	// or zero items. Recoverable: the job is re-enqueued.
	ErrEmptyOrMissingReply = errors.New("empty or missing reply")

	// ErrMalformedReply classifies a reply that Process rejected outright.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrParentHeaderMissing is the typed reorg signal a Chain implementation returns,
	// in place of sniffing an error message substring. Chain collaborators
	// should wrap this sentinel when storage fails because the parent of the
	// first header in a batch cannot be found locally.
	ErrParentHeaderMissing = errors.New("parent header not found")

	// ErrInternalInvariantViolation is the sentinel for an inconsistent
	// engine state. The engine performs no such check and does not return it.
	ErrInternalInvariantViolation = errors.New("internal invariant violation")
)

// reorgMessageFallback is the string-match fallback used for
// collaborators that cannot be adapted to return ErrParentHeaderMissing
// directly (e.g. a raw driver error that only carries a message).
const reorgMessageFallback = "parent header not found"

// looksLikeReorg reports whether err should be treated as a reorg hint,
// preferring errors.Is against the typed sentinel and falling back to a
// substring match only when the typed check fails.
func looksLikeReorg(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrParentHeaderMissing) {
		return true
	}
	return strings.Contains(err.Error(), reorgMessageFallback)
}
