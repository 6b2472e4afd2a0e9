// Package header is the header-fetch specialization of the generic
// pipelined engine: a concrete fetcher.Fetcher[*Task, Reply] over a
// light-client-style peer capability.
package header

import (
	"math/big"

	"github.com/blockrelay/peerfetch/internal/chain"
)

// Task describes a contiguous block-header range still to be fetched.
// First/Count shrink as partial replies accumulate and grow again if a
// reorg rewinds the task.
type Task struct {
	first *big.Int
	count int
}

// NewTask creates a header range task starting at first for count blocks.
func NewTask(first *big.Int, count int) *Task {
	return &Task{first: new(big.Int).Set(first), count: count}
}

// Count satisfies fetcher.Task.
func (t *Task) Count() int { return t.count }

// First satisfies fetcher.Rewindable.
func (t *Task) First() *big.Int { return t.first }

// Rewind satisfies fetcher.Rewindable: moves first back by step and grows
// count by the same amount so the rewound range is covered again.
func (t *Task) Rewind(step uint64) {
	if step == 0 {
		return
	}
	t.first = new(big.Int).Sub(t.first, new(big.Int).SetUint64(step))
	t.count += int(step)
}

// adjusted returns the first/max a Request call should actually ask the
// peer for, accounting for a previously accumulated partial result: a
// short prior reply advances first and shrinks the remaining count.
func (t *Task) adjusted(partialLen int) (first *big.Int, max uint64) {
	first = new(big.Int).Add(t.first, big.NewInt(int64(partialLen)))
	max = uint64(t.count - partialLen)
	return first, max
}

// HeaderRef identifies one header by hash and number, used by the body
// fetcher's Task to name the headers whose bodies it wants.
type HeaderRef struct {
	Hash   chain.Hash
	Number *big.Int
}
