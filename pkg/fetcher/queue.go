package fetcher

import "container/heap"

// jobHeap is a container/heap min-heap of jobs ordered by Index. It backs
// both the inbound (ready-to-dispatch) and outbound (completed-awaiting-
// emit) ordered queues the scheduler and emit pipeline need.
type jobHeap[T Task] []*Job[T]

func (h jobHeap[T]) Len() int            { return len(h) }
func (h jobHeap[T]) Less(i, j int) bool  { return h[i].Index < h[j].Index }
func (h jobHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *jobHeap[T]) Push(x interface{}) { *h = append(*h, x.(*Job[T])) }
func (h *jobHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// jobQueue wraps jobHeap behind heap.Interface operations, giving O(log n)
// insert/peek/remove keyed by job index. It is owned exclusively by the
// engine's scheduling goroutine; no internal locking is needed.
type jobQueue[T Task] struct {
	h jobHeap[T]
}

func newJobQueue[T Task]() *jobQueue[T] {
	q := &jobQueue[T]{}
	heap.Init(&q.h)
	return q
}

func (q *jobQueue[T]) Len() int { return q.h.Len() }

func (q *jobQueue[T]) Push(j *Job[T]) { heap.Push(&q.h, j) }

// Peek returns the lowest-index job without removing it.
func (q *jobQueue[T]) Peek() (*Job[T], bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return q.h[0], true
}

// Pop removes and returns the lowest-index job.
func (q *jobQueue[T]) Pop() (*Job[T], bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&q.h).(*Job[T]), true
}
