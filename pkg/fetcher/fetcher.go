package fetcher

import "context"

// Fetcher is the capability set a concrete specialization (header fetch,
// body fetch, …) must implement. The engine is generic over the task type T
// and the raw reply type R; storage items flow through as the opaque Item
// type. This is the Go rendering of a "subclass contract via
// inheritance → capability set" design note.
type Fetcher[T Task, R any] interface {
	// Request issues one sub-request to peer for job. Returning
	// ErrEmptyOrMissingReply (or wrapping it) re-queues the job and releases
	// peer only after one Interval. A nil error hands the reply, even a
	// zero-value R, to Process; if Process then returns (nil, nil) the job
	// is re-queued without that delay.
	Request(ctx context.Context, job *Job[T], peer Peer) (R, error)

	// Process normalizes a resolved reply into storage items. Returning
	// (nil, nil) means re-queue the job, optionally after mutating
	// job.PartialResult. Returning ErrMalformedReply (or wrapping it) means
	// re-queue without touching PartialResult.
	Process(job *Job[T], reply R) ([]Item, error)

	// Store persists a contiguous, in-order batch of items. A returned
	// error wrapping ErrParentHeaderMissing is treated as a reorg hint;
	// any other error is irrecoverable.
	Store(ctx context.Context, items []Item) error

	// Peer selects an idle peer for dispatch. The default implementation
	// used by concrete fetchers is pool.Idle(nil); specializations override
	// it to filter by capability.
	Peer(pool PeerPool) (Peer, bool)

	// NextTasks lazily produces more tasks to enqueue on every scheduling
	// tick. Returns nil when the fetcher has no more work to generate.
	NextTasks() []T
}

// FetchStats is a read-only snapshot of engine progress, for metrics and
// logging. It is not part of the core state machine.
type FetchStats struct {
	Total     uint64
	Processed uint64
	Finished  uint64
	Pending   int
	InFlight  int
}
