package checkpoint

// Checkpoint represents a snapshot of fetch progress for a chain: the
// lowest contiguous fetched index, written periodically for operators to
// observe progress. It is not read back to resume fetcher state.
type Checkpoint struct {
	ChainID   uint64 `json:"chain_id"`
	Lowest    uint64 `json:"lowest_unprocessed_block"`
	Timestamp int64  `json:"timestamp"`
}
