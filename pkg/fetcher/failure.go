package fetcher

import "time"

// failureInput describes one call into the Failure Controller.
type failureInput[T Task] struct {
	jobs          []*Job[T]
	err           error
	peer          Peer
	irrecoverable bool
}

// handleFailure classifies and routes a failure: an irrecoverable error
// bans the primary peer, stops the engine, and discards undispatched
// inbound work; a recoverable error releases the peer after a delay and
// re-enqueues every still-active job in the batch.
func (e *Engine[T, R]) handleFailure(in failureInput[T]) {
	if in.irrecoverable {
		if in.peer != nil && e.pool.Contains(in.peer) {
			e.pool.Ban(in.peer, e.opts.BanTime)
			e.metrics.IncPeerBan()
		}
		e.mu.Lock()
		e.errored = in.err
		e.running = false
		e.mu.Unlock()

		dropped := e.inbound.Len()
		for {
			if _, ok := e.inbound.Pop(); !ok {
				break
			}
		}
		if dropped > 0 {
			e.mu.Lock()
			e.total -= uint64(dropped)
			e.mu.Unlock()
			e.metrics.SetQueueDepth("inbound", 0)
		}
	} else {
		if in.peer != nil {
			peer := in.peer
			interval := e.opts.Interval
			go func() {
				time.Sleep(interval)
				peer.SetIdle(true)
			}()
		}
		for _, job := range in.jobs {
			if job.State != JobActive {
				continue
			}
			job.State = JobIdle
			job.Peer = nil
			job.EnqueuedAt = time.Now()
			e.inbound.Push(job)
		}
		e.metrics.SetQueueDepth("inbound", e.inbound.Len())
	}

	if e.isRunning() && in.err != nil {
		var task any
		if len(in.jobs) > 0 {
			task = in.jobs[0].Task
		}
		e.events.Emit(EventFetcherError, ErrorPayload{Error: in.err, Task: task, Peer: in.peer})
	}

	e.wakeUp()
}
