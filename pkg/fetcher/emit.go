package fetcher

import (
	"context"
	"time"
)

// tryEmit drains outbound in contiguous-index order and hands each ready
// job to the storage sink. The store call runs synchronously on
// the scheduling goroutine, so no separate sink goroutine or channel is
// needed — overlapping peer requests keep making progress in their own
// goroutines while this call blocks.
func (e *Engine[T, R]) tryEmit(ctx context.Context) {
	for e.isRunning() {
		job, ok := e.outbound.Peek()
		if !ok {
			return
		}

		e.mu.Lock()
		processed := e.processed
		e.mu.Unlock()
		if uint64(job.Index) > processed {
			return
		}

		e.outbound.Pop()
		e.mu.Lock()
		e.processed++
		e.mu.Unlock()
		e.metrics.SetQueueDepth("outbound", e.outbound.Len())

		e.storeOne(ctx, job)
	}
}

// storeOne is the Storage Sink for a single emitted job.
func (e *Engine[T, R]) storeOne(ctx context.Context, job *Job[T]) {
	start := time.Now()
	err := e.fetcher.Store(ctx, job.Result)
	e.metrics.ObserveStoreDuration(time.Since(start).Seconds())

	if err == nil {
		e.mu.Lock()
		e.finished++
		finished, total := e.finished, e.total
		e.mu.Unlock()
		e.metrics.IncFinished(1)
		if finished >= total {
			e.finish()
		}
		return
	}

	if looksLikeReorg(err) {
		e.handleReorg(job, err)
		return
	}

	e.metrics.IncStoreError()
	e.handleFailure(failureInput[T]{err: err, irrecoverable: true})
}

// handleReorg rewrites job's task and re-enqueues it,
// decrementing processed because the job had already been counted as
// emitted ("dequeued=true"). The write callback is acknowledged without
// error, so no SYNC_FETCHER_ERROR event is emitted for this path.
func (e *Engine[T, R]) handleReorg(job *Job[T], err error) {
	e.metrics.IncReorg()

	rw, ok := any(job.Task).(Rewindable)
	if !ok {
		// The task can't describe a rewind; treat as an ordinary irrecoverable
		// store error instead.
		e.metrics.IncStoreError()
		e.handleFailure(failureInput[T]{err: err, irrecoverable: true})
		return
	}

	step := RewindStep(rw.First(), e.opts.SafeReorgDistance)
	rw.Rewind(step)

	job.State = JobIdle
	job.Peer = nil
	job.Result = nil
	job.PartialResult = nil
	job.EnqueuedAt = time.Now()
	e.inbound.Push(job)
	e.metrics.SetQueueDepth("inbound", e.inbound.Len())

	e.mu.Lock()
	e.processed--
	e.mu.Unlock()

	e.log.Warnw("reorg detected, rewinding task", "index", job.Index, "step_back", step)
	e.wakeUp()
}
