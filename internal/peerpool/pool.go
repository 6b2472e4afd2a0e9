// Package peerpool provides a concrete, in-memory PeerPool/Peer
// implementation. The pipelined fetch engine treats peer pool membership,
// discovery and scoring as an external concern; this package
// is the demo/test-grade pool the CLI and the package tests run against.
package peerpool

import (
	"sync"
	"time"

	"github.com/blockrelay/peerfetch/pkg/fetcher"
	"go.uber.org/zap"
)

// peerImpl is the concrete fetcher.Peer implementation.
type peerImpl struct {
	id           string
	capabilities map[string]bool

	mu   sync.Mutex
	idle bool
}

func newPeer(id string, capabilities ...string) *peerImpl {
	caps := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		caps[c] = true
	}
	return &peerImpl{id: id, capabilities: caps, idle: true}
}

func (p *peerImpl) ID() string { return p.id }

func (p *peerImpl) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle
}

func (p *peerImpl) SetIdle(idle bool) {
	p.mu.Lock()
	p.idle = idle
	p.mu.Unlock()
}

func (p *peerImpl) Serves(capability string) bool {
	return p.capabilities[capability]
}

// ban records when a banned peer becomes eligible again.
type ban struct {
	peer        *peerImpl
	reinstateAt time.Time
}

// Pool is a thread-safe, in-memory fetcher.PeerPool. Banned peers are
// removed from the active set and reinstated once their ban elapses by a
// background reaper goroutine, so a small demo peer set doesn't starve
// permanently.
type Pool struct {
	log *zap.SugaredLogger

	mu     sync.Mutex
	active []*peerImpl
	banned []ban

	reapInterval time.Duration
	stopCh       chan struct{}
	stopOnce     sync.Once
}

// NewPool creates a pool seeded with the given peers (id, capability list).
func NewPool(log *zap.SugaredLogger, reapInterval time.Duration, seed ...PeerSpec) *Pool {
	p := &Pool{
		log:          log,
		reapInterval: reapInterval,
		stopCh:       make(chan struct{}),
	}
	for _, s := range seed {
		p.active = append(p.active, newPeer(s.ID, s.Capabilities...))
	}
	go p.reapLoop()
	return p
}

// PeerSpec describes a seed peer for NewPool.
type PeerSpec struct {
	ID           string
	Capabilities []string
}

// Idle returns an unused peer matching filter (nil matches any idle peer).
func (p *Pool) Idle(filter func(fetcher.Peer) bool) (fetcher.Peer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pr := range p.active {
		if !pr.Idle() {
			continue
		}
		if filter != nil && !filter(pr) {
			continue
		}
		return pr, true
	}
	return nil, false
}

// Ban removes peer from the active set for d, after which the reaper
// returns it to service.
func (p *Pool) Ban(peer fetcher.Peer, d time.Duration) {
	pr, ok := peer.(*peerImpl)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, a := range p.active {
		if a == pr {
			p.active = append(p.active[:i], p.active[i+1:]...)
			break
		}
	}
	pr.SetIdle(false)
	p.banned = append(p.banned, ban{peer: pr, reinstateAt: time.Now().Add(d)})
	if p.log != nil {
		p.log.Debugw("peer banned", "peer", pr.ID(), "duration", d)
	}
}

// Contains reports whether peer is still an active pool member.
func (p *Pool) Contains(peer fetcher.Peer) bool {
	pr, ok := peer.(*peerImpl)
	if !ok {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.active {
		if a == pr {
			return true
		}
	}
	return false
}

// Close stops the reaper goroutine.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *Pool) reapLoop() {
	t := time.NewTicker(p.reapInterval)
	defer t.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-t.C:
			p.reinstateExpired()
		}
	}
}

func (p *Pool) reinstateExpired() {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	remaining := p.banned[:0]
	for _, b := range p.banned {
		if now.Before(b.reinstateAt) {
			remaining = append(remaining, b)
			continue
		}
		b.peer.SetIdle(true)
		p.active = append(p.active, b.peer)
		if p.log != nil {
			p.log.Debugw("peer reinstated after ban", "peer", b.peer.ID())
		}
	}
	p.banned = remaining
}
