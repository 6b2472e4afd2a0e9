package peerpool

import (
	"testing"
	"time"

	"github.com/blockrelay/peerfetch/pkg/fetcher"
)

func TestPoolIdleFiltersByCapability(t *testing.T) {
	p := NewPool(nil, time.Hour,
		PeerSpec{ID: "h", Capabilities: []string{"serve_headers"}},
		PeerSpec{ID: "b", Capabilities: []string{"serve_bodies"}},
	)
	defer p.Close()

	peer, ok := p.Idle(func(pr fetcher.Peer) bool { return pr.Serves("serve_bodies") })
	if !ok {
		t.Fatal("expected an idle peer serving serve_bodies")
	}
	if peer.ID() != "b" {
		t.Fatalf("peer.ID()=%q, want %q", peer.ID(), "b")
	}
}

func TestPoolIdleExcludesBannedPeer(t *testing.T) {
	p := NewPool(nil, time.Hour, PeerSpec{ID: "p1", Capabilities: []string{"serve_headers"}})
	defer p.Close()

	peer, ok := p.Idle(nil)
	if !ok {
		t.Fatal("expected one idle peer")
	}
	p.Ban(peer, time.Minute)

	if _, ok := p.Idle(nil); ok {
		t.Fatal("banned peer should not be returned as idle")
	}
	if p.Contains(peer) {
		t.Fatal("banned peer should no longer be a pool member")
	}
}

func TestPoolIdleRespectsPeerBusyFlag(t *testing.T) {
	p := NewPool(nil, time.Hour, PeerSpec{ID: "p1", Capabilities: []string{"serve_headers"}})
	defer p.Close()

	peer, ok := p.Idle(nil)
	if !ok {
		t.Fatal("expected one idle peer")
	}
	peer.SetIdle(false)

	if _, ok := p.Idle(nil); ok {
		t.Fatal("busy peer should not be returned as idle")
	}
}

func TestPoolContainsUnknownPeerType(t *testing.T) {
	p := NewPool(nil, time.Hour)
	defer p.Close()

	if p.Contains(fakePeer{id: "x"}) {
		t.Fatal("a non-*peerImpl Peer should never be reported as contained")
	}
}

type fakePeer struct{ id string }

func (p fakePeer) ID() string         { return p.id }
func (p fakePeer) Idle() bool         { return true }
func (p fakePeer) SetIdle(bool)       {}
func (p fakePeer) Serves(string) bool { return true }
