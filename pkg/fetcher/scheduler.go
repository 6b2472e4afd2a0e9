package fetcher

import (
	"context"
	"time"
)

// trySchedule attempts to advance one job from inbound to in-flight. It
// returns true if it dispatched a job (the caller should call it again
// immediately), false if nothing was dispatchable right now (the caller
// should yield).
func (e *Engine[T, R]) trySchedule(ctx context.Context) bool {
	// 1. Subclass may lazily enqueue more work on every tick.
	for _, t := range e.fetcher.NextTasks() {
		e.enqueueOne(t)
	}

	// 2. Peek the lowest-index inbound job.
	job, ok := e.inbound.Peek()
	if !ok {
		if e.allFinished() {
			e.finish()
		}
		return false
	}

	// 3. Backpressure: the emit pipeline's buffered length must not exceed
	// max_queue.
	if e.outbound.Len() > e.opts.MaxQueue {
		return false
	}

	// 4. Window check: bound the in-flight window.
	e.mu.Lock()
	processed := e.processed
	e.mu.Unlock()
	if uint64(job.Index) > processed+uint64(e.opts.MaxQueue) {
		return false
	}

	// 5. Peer acquisition.
	peer, ok := e.fetcher.Peer(e.pool)
	if !ok {
		return false
	}

	// 6. Concurrency bound: cap concurrent in-flight dispatches at
	// MaxQueue, independent of the peer pool's own size.
	if !e.dispatchSem.TryAcquire(1) {
		return false
	}

	// 7. Dispatch.
	e.inbound.Pop()
	e.metrics.SetQueueDepth("inbound", e.inbound.Len())
	peer.SetIdle(false)
	job.Peer = peer
	job.State = JobActive
	job.EnqueuedAt = time.Now()
	job.attempt++

	e.dispatch(ctx, job, peer)
	return true
}

func (e *Engine[T, R]) dispatch(ctx context.Context, job *Job[T], peer Peer) {
	attempt := job.attempt
	reqCtx, cancel := context.WithCancel(ctx)
	e.inFlight[job.Index] = job
	e.cancels[job.Index] = cancel
	e.metrics.IncDispatched()
	e.metrics.SetInFlight(len(e.inFlight))

	e.timers[job.Index] = time.AfterFunc(e.opts.Timeout, func() {
		select {
		case e.timeoutCh <- timeoutEvent{index: job.Index, attempt: attempt}:
		case <-e.doneCh:
		}
	})

	go func() {
		reply, err := e.fetcher.Request(reqCtx, job, peer)
		select {
		case e.resultCh <- requestOutcome[T, R]{index: job.Index, attempt: attempt, reply: reply, err: err}:
		case <-e.doneCh:
		}
	}()
}

// clearDispatch tears down the bookkeeping for a job that is no longer
// in-flight, whether it resolved, expired, or the job object is being
// discarded entirely.
func (e *Engine[T, R]) clearDispatch(index JobIndex) {
	if t, ok := e.timers[index]; ok {
		t.Stop()
		delete(e.timers, index)
	}
	if cancel, ok := e.cancels[index]; ok {
		cancel()
		delete(e.cancels, index)
	}
	if _, ok := e.inFlight[index]; ok {
		e.dispatchSem.Release(1)
	}
	delete(e.inFlight, index)
	e.metrics.SetInFlight(len(e.inFlight))
}

// allFinished reports whether every enqueued job has reached the storage
// sink. A freshly constructed engine with total == 0 has not finished: it
// has simply not yet received its first task, and the caller may still be
// enqueuing concurrently with Fetch.
func (e *Engine[T, R]) allFinished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total > 0 && e.finished >= e.total
}

func (e *Engine[T, R]) finish() {
	e.mu.Lock()
	e.running = false
	total := e.total
	e.mu.Unlock()
	if e.opts.DestroyWhenDone {
		e.log.Debugw("fetcher finished, destroying", "total", total)
	}
}
