package fetcher

import (
	"context"
	"errors"
	"time"
)

// handleResult processes the resolution of a dispatched request. It is the
// Result Assembler.
func (e *Engine[T, R]) handleResult(ctx context.Context, out requestOutcome[T, R]) {
	job, ok := e.inFlight[out.index]
	if !ok || job.State != JobActive || job.attempt != out.attempt {
		// The job expired, was re-dispatched, or this index is unknown.
		// Drop the stale resolution silently.
		return
	}
	e.clearDispatch(out.index)
	peer := job.Peer

	if out.err != nil {
		if errors.Is(out.err, context.Canceled) {
			// A timed-out attempt never gets here (it is no longer in
			// flight, so it is dropped above); Canceled comes from Fetch's
			// own ctx, whose cancellation stops the engine in Fetch's loop.
			return
		}
		if errors.Is(out.err, ErrEmptyOrMissingReply) {
			e.log.Debugw("empty or missing reply, re-enqueueing", "index", job.Index)
			e.metrics.IncReenqueue("empty_reply")
			e.reenqueueWithDelayedRelease(job, peer)
			e.wakeUp()
			return
		}
		// RequestError: recoverable unless the fetcher flags otherwise; this
		// engine has no signal for "irrecoverable request error" beyond the
		// taxonomy this engine recognizes, so RequestError always routes as
		// recoverable here.
		e.metrics.IncReenqueue("request_error")
		e.handleFailure(failureInput[T]{
			jobs: []*Job[T]{job},
			err:  out.err,
			peer: peer,
		})
		return
	}

	// A reply arrived: release the peer immediately and hand off to Process.
	peer.SetIdle(true)
	items, err := e.fetcher.Process(job, out.reply)
	if err != nil || items == nil {
		reason := "malformed_reply"
		if err == nil {
			reason = "partial_reply"
		}
		e.metrics.IncReenqueue(reason)
		job.State = JobIdle
		job.Peer = nil
		job.EnqueuedAt = time.Now()
		e.inbound.Push(job)
		e.metrics.SetQueueDepth("inbound", e.inbound.Len())
		e.wakeUp()
		return
	}

	job.Result = items
	job.PartialResult = nil
	job.State = JobIdle
	job.Peer = nil
	e.outbound.Push(job)
	e.metrics.SetQueueDepth("outbound", e.outbound.Len())
	e.tryEmit(ctx)
	e.wakeUp()
}

// handleTimeout is the scheduler's armed-timeout firing independently of
// whether the underlying Request call ever returns.
func (e *Engine[T, R]) handleTimeout(te timeoutEvent) {
	job, ok := e.inFlight[te.index]
	if !ok || job.State != JobActive || job.attempt != te.attempt {
		return
	}
	e.clearDispatch(te.index)
	job.State = JobExpired
	peer := job.Peer
	job.Peer = nil

	e.metrics.IncTimeout()
	if e.pool.Contains(peer) {
		e.pool.Ban(peer, e.opts.BanTime)
		e.metrics.IncPeerBan()
	}

	job.State = JobIdle
	job.EnqueuedAt = time.Now()
	e.inbound.Push(job)
	e.metrics.SetQueueDepth("inbound", e.inbound.Len())
	e.metrics.IncReenqueue("timeout")
	e.wakeUp()
}

// reenqueueWithDelayedRelease re-enqueues job for immediate redispatch while
// releasing its peer back to idle only after one interval delay, per
// an empty-or-missing reply.
func (e *Engine[T, R]) reenqueueWithDelayedRelease(job *Job[T], peer Peer) {
	job.State = JobIdle
	job.Peer = nil
	job.EnqueuedAt = time.Now()
	e.inbound.Push(job)
	e.metrics.SetQueueDepth("inbound", e.inbound.Len())

	if peer == nil {
		return
	}
	interval := e.opts.Interval
	go func() {
		time.Sleep(interval)
		peer.SetIdle(true)
	}()
}
