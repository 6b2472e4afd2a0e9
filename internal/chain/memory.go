package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/blockrelay/peerfetch/pkg/fetcher"
)

// Memory is a thread-safe in-memory Chain, used by tests and the demo
// CLI in place of the ClickHouse-backed header store.
type Memory struct {
	mu sync.Mutex

	headersByHash map[Hash]Header
	bodiesByHash  map[Hash]Body
	known         map[Hash]struct{}
}

// NewMemory creates an empty in-memory chain store.
func NewMemory() *Memory {
	return &Memory{
		headersByHash: make(map[Hash]Header),
		bodiesByHash:  make(map[Hash]Body),
		known:         make(map[Hash]struct{}),
	}
}

// PutHeaders inserts headers in order, rejecting the whole batch with
// fetcher.ErrParentHeaderMissing if the first header's parent is neither
// the zero hash nor already present in the store.
func (m *Memory) PutHeaders(_ context.Context, headers []Header) (int, error) {
	if len(headers) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	first := headers[0]
	if !first.ParentHash.IsZero() {
		if _, ok := m.known[first.ParentHash]; !ok {
			return 0, fmt.Errorf("header %s: %w", first.Hash, fetcher.ErrParentHeaderMissing)
		}
	}

	for _, h := range headers {
		m.headersByHash[h.Hash] = h
		m.known[h.Hash] = struct{}{}
	}
	return len(headers), nil
}

// PutBodies inserts bodies keyed by block hash. A body whose block hash
// has no known header is rejected outright: a body fetch is only ever
// issued for already-accepted headers, so this indicates caller error
// rather than a reorg.
func (m *Memory) PutBodies(_ context.Context, bodies []Body) (int, error) {
	if len(bodies) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, b := range bodies {
		if _, ok := m.known[b.BlockHash]; !ok {
			return i, fmt.Errorf("body %s: no known header", b.BlockHash)
		}
		m.bodiesByHash[b.BlockHash] = b
	}
	return len(bodies), nil
}

// Header returns the stored header for hash, if any, for test assertions.
func (m *Memory) Header(h Hash) (Header, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hdr, ok := m.headersByHash[h]
	return hdr, ok
}

// Body returns the stored body for hash, if any, for test assertions.
func (m *Memory) Body(h Hash) (Body, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bodiesByHash[h]
	return b, ok
}

// Len reports how many headers are stored, for test assertions.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.headersByHash)
}
