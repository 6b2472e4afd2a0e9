package fetcher

import "math/big"

// Rewindable is an optional capability a block-range Task may implement to
// participate in the storage sink's reorg rewrite. Tasks
// that don't implement it simply treat a reorg hint as an irrecoverable
// store error.
type Rewindable interface {
	// First returns the task's current starting block number.
	First() *big.Int
	// Rewind moves the task's start back by step blocks and grows its
	// remaining count by the same amount, in place.
	Rewind(step uint64)
}

// RewindStep computes step_back = min(first-1, safeReorgDistance), the
// bound on how far back a reorg rewrite may rewind.
func RewindStep(first *big.Int, safeReorgDistance uint64) uint64 {
	if first == nil || first.Sign() <= 0 {
		return 0
	}
	available := new(big.Int).Sub(first, big.NewInt(1))
	safe := new(big.Int).SetUint64(safeReorgDistance)
	if available.Cmp(safe) > 0 {
		return safeReorgDistance
	}
	return available.Uint64()
}
