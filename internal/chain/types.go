// Package chain defines the persistent chain store collaborator the
// header and body fetchers write into, plus an in-memory implementation
// used by tests and the demo CLI.
package chain

import (
	"encoding/hex"
	"math/big"
)

// Hash is a 32-byte content hash (block hash or parent hash).
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash, used as the parent hash of
// the chain's genesis header.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Header is the artifact the header fetcher reconstructs and the chain
// store persists.
type Header struct {
	Number     *big.Int
	Hash       Hash
	ParentHash Hash
	Time       uint64
}

// Body is a block body, keyed to the header it belongs to by hash.
type Body struct {
	BlockHash    Hash
	Number       *big.Int
	Transactions [][]byte
}
