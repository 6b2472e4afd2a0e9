package fetcher

import "time"

// JobState is the lifecycle state of a Job.
type JobState int

const (
	// JobIdle is the initial state and the state a job returns to on re-enqueue.
	JobIdle JobState = iota
	// JobActive means the job has been dispatched to a peer and is awaiting a reply.
	JobActive
	// JobExpired means the scheduler's armed timeout fired before a reply arrived.
	JobExpired
)

func (s JobState) String() string {
	switch s {
	case JobIdle:
		return "idle"
	case JobActive:
		return "active"
	case JobExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// JobIndex is the dense, immutable ordering key assigned to a Job at enqueue time.
type JobIndex uint64

// Task is the caller-defined description of what a Job should fetch.
type Task interface {
	// Count returns the number of items this task still expects.
	Count() int
}

// Item is a single unit of the storage-ready result produced by Process.
// The engine treats items opaquely; concrete Fetcher implementations know
// the real type and assert it back on the way into Store.
type Item = any

// Job is the unit of concurrency: an index, a task descriptor, lifecycle
// state, the peer currently assigned (if any), and any partial result
// accumulated across prior short replies.
type Job[T Task] struct {
	Index JobIndex
	Task  T
	State JobState
	Peer  Peer

	// EnqueuedAt is the wall-clock timestamp of the last enqueue.
	EnqueuedAt time.Time

	// PartialResult is the accumulated prefix of storage items received
	// across prior partial replies for this task. Its length is always
	// strictly less than Task.Count().
	PartialResult []Item

	// Result holds the final, complete set of storage items once the job
	// has been promoted to outbound. Populated only at that point.
	Result []Item

	// attempt increments on every dispatch and lets the engine discard a
	// request's resolution if it arrives after the job was reassigned.
	attempt uint64
}

func newJob[T Task](index JobIndex, task T) *Job[T] {
	return &Job[T]{
		Index:      index,
		Task:       task,
		State:      JobIdle,
		EnqueuedAt: time.Now(),
	}
}
