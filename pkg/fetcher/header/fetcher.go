package header

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/blockrelay/peerfetch/internal/chain"
	"github.com/blockrelay/peerfetch/pkg/fetcher"
	fetchmetrics "github.com/blockrelay/peerfetch/pkg/fetcher/metrics"
)

// capability is the peer capability flag a header fetch requires.
const capability = "serve_headers"

// Transport issues the actual wire request for a range of block headers.
// It is the collaborator a concrete peer-to-peer client implements; the
// fetcher only knows how to turn a reply into one, not how to send it.
type Transport interface {
	GetBlockHeaders(ctx context.Context, peer fetcher.Peer, first *big.Int, max uint64) (Reply, error)
}

// Reply is the raw wire reply a Transport resolves Request with.
type Reply struct {
	Headers []chain.Header
	// BufferValue is the light-client buffer-value hint the peer reports
	// alongside its reply, consumed by FlowControl.HandleReply.
	BufferValue int
}

// Fetcher implements fetcher.Fetcher[*Task, Reply] against a Transport,
// a FlowControl collaborator and a Chain persistence sink.
type Fetcher struct {
	log       *zap.SugaredLogger
	transport Transport
	flow      FlowControl
	chain     chain.Chain
	events    fetcher.Events
	metrics   *fetchmetrics.Metrics

	maxPerRequest int
}

// New constructs a header Fetcher. maxPerRequest is the minimum flow
// control credit a peer must have before a request is issued to it.
func New(log *zap.SugaredLogger, transport Transport, flow FlowControl, store chain.Chain, events fetcher.Events, metrics *fetchmetrics.Metrics, maxPerRequest int) *Fetcher {
	if events == nil {
		events = fetcher.NoopEvents{}
	}
	return &Fetcher{
		log:           log,
		transport:     transport,
		flow:          flow,
		chain:         store,
		events:        events,
		metrics:       metrics,
		maxPerRequest: maxPerRequest,
	}
}

// Peer selects an idle peer advertising the serve_headers capability.
func (f *Fetcher) Peer(pool fetcher.PeerPool) (fetcher.Peer, bool) {
	return pool.Idle(func(p fetcher.Peer) bool { return p.Serves(capability) })
}

// NextTasks never lazily generates more work: callers enqueue bounded
// header ranges explicitly via Engine.EnqueueTask.
func (f *Fetcher) NextTasks() []*Task { return nil }

// Request consults FlowControl before issuing the wire request, and
// adjusts the requested range to account for any partial result already
// accumulated for this job.
func (f *Fetcher) Request(ctx context.Context, job *fetcher.Job[*Task], peer fetcher.Peer) (Reply, error) {
	if f.flow.MaxRequestCount(peer, "GetBlockHeaders") < f.maxPerRequest {
		return Reply{}, fetcher.ErrEmptyOrMissingReply
	}
	first, max := job.Task.adjusted(len(job.PartialResult))
	return f.transport.GetBlockHeaders(ctx, peer, first, max)
}

// Process updates flow control credit and concatenates the reply's
// headers onto the job's partial result, returning the completed set
// only once it reaches the task's full count.
func (f *Fetcher) Process(job *fetcher.Job[*Task], reply Reply) ([]fetcher.Item, error) {
	f.flow.HandleReply(job.Peer, reply.BufferValue)

	combined := make([]chain.Header, 0, len(job.PartialResult)+len(reply.Headers))
	for _, item := range job.PartialResult {
		combined = append(combined, item.(chain.Header))
	}
	combined = append(combined, reply.Headers...)

	if len(combined) == 0 {
		return nil, nil
	}
	if len(combined) < job.Task.Count() {
		job.PartialResult = make([]fetcher.Item, len(combined))
		for i, h := range combined {
			job.PartialResult[i] = h
		}
		return nil, nil
	}

	items := make([]fetcher.Item, len(combined))
	for i, h := range combined {
		items[i] = h
	}
	return items, nil
}

// Store persists a contiguous batch of headers and emits
// EventFetchedHeaders with the prefix Chain actually accepted.
func (f *Fetcher) Store(ctx context.Context, items []fetcher.Item) error {
	headers := make([]chain.Header, len(items))
	for i, it := range items {
		headers[i] = it.(chain.Header)
	}
	accepted, err := f.chain.PutHeaders(ctx, headers)
	if accepted > 0 {
		f.events.Emit(fetcher.EventFetchedHeaders, headers[:accepted])
	}
	return err
}
