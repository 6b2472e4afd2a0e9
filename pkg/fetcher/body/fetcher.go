package body

import (
	"context"

	"go.uber.org/zap"

	"github.com/blockrelay/peerfetch/internal/chain"
	"github.com/blockrelay/peerfetch/pkg/fetcher"
	"github.com/blockrelay/peerfetch/pkg/fetcher/header"
	fetchmetrics "github.com/blockrelay/peerfetch/pkg/fetcher/metrics"
)

// capability is the peer capability flag a body fetch requires.
const capability = "serve_bodies"

// Transport issues the wire request for a batch of block bodies.
type Transport interface {
	GetBlockBodies(ctx context.Context, peer fetcher.Peer, headers []header.HeaderRef) (Reply, error)
}

// Reply is the raw wire reply a Transport resolves Request with, matched
// to the requested headers positionally.
type Reply struct {
	Bodies []chain.Body
}

// Fetcher implements fetcher.Fetcher[*Task, Reply] against a Transport and
// a Chain persistence sink.
type Fetcher struct {
	log       *zap.SugaredLogger
	transport Transport
	chain     chain.Chain
	events    fetcher.Events
	metrics   *fetchmetrics.Metrics
}

// New constructs a body Fetcher.
func New(log *zap.SugaredLogger, transport Transport, store chain.Chain, events fetcher.Events, metrics *fetchmetrics.Metrics) *Fetcher {
	if events == nil {
		events = fetcher.NoopEvents{}
	}
	return &Fetcher{log: log, transport: transport, chain: store, events: events, metrics: metrics}
}

// Peer selects an idle peer advertising the serve_bodies capability.
func (f *Fetcher) Peer(pool fetcher.PeerPool) (fetcher.Peer, bool) {
	return pool.Idle(func(p fetcher.Peer) bool { return p.Serves(capability) })
}

// NextTasks never lazily generates more work: callers enqueue body
// batches explicitly once the corresponding headers are accepted.
func (f *Fetcher) NextTasks() []*Task { return nil }

// Request asks the peer for bodies matching whichever headers haven't
// already been satisfied by a prior partial reply.
func (f *Fetcher) Request(ctx context.Context, job *fetcher.Job[*Task], peer fetcher.Peer) (Reply, error) {
	wanted := job.Task.remaining(len(job.PartialResult))
	return f.transport.GetBlockBodies(ctx, peer, wanted)
}

// Process matches returned bodies to requested hashes positionally,
// go-ethereum-style: a short or out-of-order batch is treated as a
// partial reply.
func (f *Fetcher) Process(job *fetcher.Job[*Task], reply Reply) ([]fetcher.Item, error) {
	wanted := job.Task.remaining(len(job.PartialResult))

	matched := 0
	for matched < len(reply.Bodies) && matched < len(wanted) {
		if reply.Bodies[matched].BlockHash != wanted[matched].Hash {
			break
		}
		matched++
	}
	if matched == 0 {
		return nil, nil
	}

	combined := make([]chain.Body, 0, len(job.PartialResult)+matched)
	for _, item := range job.PartialResult {
		combined = append(combined, item.(chain.Body))
	}
	combined = append(combined, reply.Bodies[:matched]...)

	if len(combined) < job.Task.Count() {
		job.PartialResult = make([]fetcher.Item, len(combined))
		for i, b := range combined {
			job.PartialResult[i] = b
		}
		return nil, nil
	}

	items := make([]fetcher.Item, len(combined))
	for i, b := range combined {
		items[i] = b
	}
	return items, nil
}

// Store persists a contiguous batch of bodies and emits
// EventFetchedBodies.
func (f *Fetcher) Store(ctx context.Context, items []fetcher.Item) error {
	bodies := make([]chain.Body, len(items))
	for i, it := range items {
		bodies[i] = it.(chain.Body)
	}
	accepted, err := f.chain.PutBodies(ctx, bodies)
	if accepted > 0 {
		f.events.Emit(fetcher.EventFetchedBodies, bodies[:accepted])
	}
	return err
}
