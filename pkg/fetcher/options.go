package fetcher

import "time"

// Options configures an Engine. Field names mirror the
// configuration table.
type Options struct {
	// Timeout is the per-request deadline before a job is expired.
	Timeout time.Duration
	// Interval is the idle-poll and post-failure release delay.
	Interval time.Duration
	// BanTime is the duration passed to PeerPool.Ban on irrecoverable errors
	// and timeouts.
	BanTime time.Duration
	// MaxQueue bounds the in-flight window (processed+MaxQueue), the emit
	// pipeline's buffered length, and the number of concurrent dispatched
	// requests (Engine.dispatchSem's weight).
	MaxQueue int
	// DestroyWhenDone tears the engine down once Finished == Total.
	DestroyWhenDone bool
	// SafeReorgDistance bounds how far back a reorg rewrite may rewind a
	// block-range task.
	SafeReorgDistance uint64
}

// DefaultOptions returns the engine's option defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:           8000 * time.Millisecond,
		Interval:          1000 * time.Millisecond,
		BanTime:           60000 * time.Millisecond,
		MaxQueue:          4,
		DestroyWhenDone:   true,
		SafeReorgDistance: 64,
	}
}

func (o Options) validate() error {
	if o.MaxQueue <= 0 {
		return ErrInvalidMaxQueue
	}
	return nil
}
