// Package body is the body-fetch specialization: a second concrete
// fetcher.Fetcher reusing the entire generic engine to fetch transaction
// bodies for a batch of already-known header hashes.
package body

import (
	"github.com/blockrelay/peerfetch/pkg/fetcher/header"
)

// Task names the headers whose bodies are still needed. Unlike a header
// range Task, a body Task doesn't implement fetcher.Rewindable: a reorg
// discovered while storing bodies has no well-defined rewind (the headers
// themselves were already accepted), so it is routed as an irrecoverable
// store error instead.
type Task struct {
	Headers []header.HeaderRef
}

// NewTask creates a body task for the given headers.
func NewTask(headers []header.HeaderRef) *Task {
	return &Task{Headers: headers}
}

// Count satisfies fetcher.Task.
func (t *Task) Count() int { return len(t.Headers) }

// remaining returns the headers still needed after partialLen bodies have
// already been accumulated for this task.
func (t *Task) remaining(partialLen int) []header.HeaderRef {
	return t.Headers[partialLen:]
}
