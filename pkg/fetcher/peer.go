package fetcher

import "time"

// Peer is a remote participant capable of serving one request at a time.
// Idle indicates whether the peer is currently unassigned to an active job.
type Peer interface {
	ID() string
	Idle() bool
	SetIdle(idle bool)
	// Serves reports whether the peer advertises the given capability, e.g.
	// "serve_headers" or "serve_bodies".
	Serves(capability string) bool
}

// PeerPool is the external collaborator that owns peer membership, discovery
// and scoring. The engine only ever borrows an idle peer for the duration of
// one active job and flips its idle flag; it never manages membership.
type PeerPool interface {
	// Idle returns an unused peer matching filter, or false if none is
	// available. A nil filter matches any idle peer.
	Idle(filter func(Peer) bool) (Peer, bool)
	// Ban removes (or otherwise penalizes) a peer for the given duration.
	Ban(peer Peer, d time.Duration)
	// Contains reports whether the peer is still a pool member.
	Contains(peer Peer) bool
}
