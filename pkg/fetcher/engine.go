// Package fetcher implements a pipelined, multi-peer, strictly-ordered
// fetch engine: callers enqueue tasks, the engine dispatches them to idle
// peers from a pool, reassembles replies in ascending job index regardless
// of peer reply order, and hands contiguous results to a storage sink with
// bounded memory.
//
// The engine owns all of its mutable state (queues, counters, peer
// bookkeeping) on a single goroutine; concurrency comes only from
// overlapping peer requests running in detached goroutines that report
// their outcome back over a channel, mirroring the teacher's
// single-dispatcher-goroutine pattern (see internal/block-fetcher/manager).
package fetcher

import (
	"context"
	"sync"
	"time"

	fetchmetrics "github.com/blockrelay/peerfetch/pkg/fetcher/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// requestOutcome is what a detached request goroutine reports back to the
// scheduling goroutine once Request resolves.
type requestOutcome[T Task, R any] struct {
	index   JobIndex
	attempt uint64
	reply   R
	err     error
}

// timeoutEvent is what an engine-owned timer reports when a job's deadline
// elapses, independent of whether the underlying Request call ever returns.
type timeoutEvent struct {
	index   JobIndex
	attempt uint64
}

// Engine is the generic pipelined peer-fetch engine. T is the task
// descriptor type, R is the raw reply type a Fetcher's Request returns.
type Engine[T Task, R any] struct {
	log     *zap.SugaredLogger
	metrics *fetchmetrics.Metrics
	events  Events
	pool    PeerPool
	fetcher Fetcher[T, R]
	opts    Options

	inbound  *jobQueue[T]
	outbound *jobQueue[T]
	inFlight map[JobIndex]*Job[T]
	cancels  map[JobIndex]context.CancelFunc
	timers   map[JobIndex]*time.Timer

	// dispatchSem bounds the number of concurrent in-flight peer requests to
	// opts.MaxQueue, mirroring manager.go's workerSem/backfillSem
	// semaphore.Weighted admission control.
	dispatchSem *semaphore.Weighted

	nextIndex JobIndex

	mu        sync.Mutex
	total     uint64
	processed uint64
	finished  uint64
	running   bool
	errored   error

	resultCh  chan requestOutcome[T, R]
	timeoutCh chan timeoutEvent
	enqueueCh chan T
	wake      chan struct{}
	doneCh    chan struct{}
	doneOnce  sync.Once
}

// New constructs an Engine. log, pool and fetcher must be non-nil; metrics
// and events may be nil (metrics is nil-receiver-safe; pass NoopEvents{} or
// nil for events, both are treated as a no-op bus).
func New[T Task, R any](
	log *zap.SugaredLogger,
	pool PeerPool,
	f Fetcher[T, R],
	opts Options,
	events Events,
	m *fetchmetrics.Metrics,
) (*Engine[T, R], error) {
	if log == nil {
		return nil, ErrInvalidLogger
	}
	if pool == nil {
		return nil, ErrInvalidPeerPool
	}
	if f == nil {
		return nil, ErrInvalidFetcher
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if events == nil {
		events = NoopEvents{}
	}

	return &Engine[T, R]{
		log:         log,
		metrics:     m,
		events:      events,
		pool:        pool,
		fetcher:     f,
		opts:        opts,
		inbound:     newJobQueue[T](),
		outbound:    newJobQueue[T](),
		inFlight:    make(map[JobIndex]*Job[T]),
		cancels:     make(map[JobIndex]context.CancelFunc),
		timers:      make(map[JobIndex]*time.Timer),
		dispatchSem: semaphore.NewWeighted(int64(opts.MaxQueue)),
		resultCh:    make(chan requestOutcome[T, R], 1),
		timeoutCh:   make(chan timeoutEvent, 1),
		enqueueCh:   make(chan T, 1),
		wake:        make(chan struct{}, 1),
		doneCh:      make(chan struct{}),
	}, nil
}

// EnqueueTask adds one task to the inbound queue. Safe to call from any
// goroutine, including concurrently with Fetch.
func (e *Engine[T, R]) EnqueueTask(task T) {
	select {
	case e.enqueueCh <- task:
	case <-e.doneCh:
	}
	e.wakeUp()
}

// Stats returns a read-only snapshot of engine progress.
func (e *Engine[T, R]) Stats() FetchStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return FetchStats{
		Total:     e.total,
		Processed: e.processed,
		Finished:  e.finished,
		Pending:   e.inbound.Len() + e.outbound.Len(),
		InFlight:  len(e.inFlight),
	}
}

func (e *Engine[T, R]) wakeUp() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Fetch runs the engine to completion: dispatches inbound jobs, reassembles
// replies, and drains completed jobs to the storage sink in order, until
// every job has finished or an irrecoverable error occurs. It returns that
// error, or nil on a clean finish. Cancelling ctx stops the engine as an
// irrecoverable failure, so Fetch then returns ctx.Err().
func (e *Engine[T, R]) Fetch(ctx context.Context) error {
	e.setRunning(true)
	defer e.closeDone()

	for e.isRunning() {
		// Aggressive non-blocking dispatch: drain every job the scheduler
		// can currently justify dispatching before yielding.
		for e.trySchedule(ctx) {
		}
		if !e.isRunning() {
			break
		}

		select {
		case <-ctx.Done():
			e.handleFailure(failureInput[T]{err: ctx.Err(), irrecoverable: true})

		case task := <-e.enqueueCh:
			e.enqueueOne(task)

		case out := <-e.resultCh:
			e.handleResult(ctx, out)

		case te := <-e.timeoutCh:
			e.handleTimeout(te)

		case <-e.wake:
			// A dispatch/result/timeout changed state; loop restarts.

		case <-time.After(e.opts.Interval):
			// Nothing dispatchable; retry on the next tick.
		}
	}

	return e.Err()
}

// Err returns the irrecoverable error that stopped the engine, if any.
func (e *Engine[T, R]) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errored
}

func (e *Engine[T, R]) closeDone() {
	e.doneOnce.Do(func() { close(e.doneCh) })
}

func (e *Engine[T, R]) setRunning(v bool) {
	e.mu.Lock()
	e.running = v
	e.mu.Unlock()
}

func (e *Engine[T, R]) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine[T, R]) enqueueOne(task T) {
	job := newJob[T](e.nextIndex, task)
	e.nextIndex++
	e.mu.Lock()
	e.total++
	e.mu.Unlock()
	e.inbound.Push(job)
	e.metrics.SetQueueDepth("inbound", e.inbound.Len())
}
