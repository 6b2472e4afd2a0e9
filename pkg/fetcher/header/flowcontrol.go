package header

import (
	"sync"

	"github.com/blockrelay/peerfetch/pkg/fetcher"
)

// FlowControl is the per-peer credit-accounting collaborator a light-client
// header fetch consults before issuing a request of a given kind, and
// updates once a reply arrives.
type FlowControl interface {
	// MaxRequestCount returns how many items of the given message kind
	// peer currently has credit to serve in one request.
	MaxRequestCount(peer fetcher.Peer, message string) int
	// HandleReply updates peer's credit after a reply carrying buffer
	// value bv (the remaining-capacity hint light-client peers advertise).
	HandleReply(peer fetcher.Peer, bv int)
}

// InMemoryFlowControl is a simple per-peer credit tracker: each peer starts
// with an initial credit and HandleReply resets it to the buffer value the
// peer reported, mirroring how light-client peers self-report remaining
// serving capacity rather than the fetcher estimating it.
type InMemoryFlowControl struct {
	mu      sync.Mutex
	initial int
	credit  map[string]int
}

// NewInMemoryFlowControl creates a flow control tracker granting initial
// credit to any peer not yet seen.
func NewInMemoryFlowControl(initial int) *InMemoryFlowControl {
	return &InMemoryFlowControl{initial: initial, credit: make(map[string]int)}
}

func (f *InMemoryFlowControl) MaxRequestCount(peer fetcher.Peer, _ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.credit[peer.ID()]; ok {
		return c
	}
	return f.initial
}

func (f *InMemoryFlowControl) HandleReply(peer fetcher.Peer, bv int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credit[peer.ID()] = bv
}
