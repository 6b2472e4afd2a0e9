// Package rpctransport implements the header and body fetchers' Transport
// collaborators over a plain JSON-RPC EVM client, for the CLI entrypoint
// and for anyone who wants a runnable Transport without a devp2p stack.
// The wire protocol itself is explicitly out of scope for the fetch
// engine (peer pool membership, discovery and the actual wire codec are
// external collaborators); this package is one concrete way to satisfy
// those collaborator interfaces, built on the teacher's JSON-RPC EVM
// client rather than a from-scratch devp2p codec.
package rpctransport

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ava-labs/coreth/plugin/evm/customethclient"
	libevmtypes "github.com/ava-labs/libevm/core/types"

	"github.com/blockrelay/peerfetch/internal/chain"
	"github.com/blockrelay/peerfetch/pkg/fetcher"
	"github.com/blockrelay/peerfetch/pkg/fetcher/body"
	"github.com/blockrelay/peerfetch/pkg/fetcher/header"
)

// Transport fetches block headers and bodies one RPC call per block,
// since JSON-RPC has no single-call equivalent of devp2p's ranged
// GetBlockHeaders/GetBlockBodies messages. It implements both
// header.Transport and body.Transport, routing each request to the
// dialed client registered for the given peer's ID, so the same
// *Transport can back a pool of several RPC endpoints.
type Transport struct {
	clients map[string]*customethclient.Client
}

// New wraps a set of already-dialed JSON-RPC clients, keyed by the peer
// ID they were registered under in the peer pool.
func New(clients map[string]*customethclient.Client) *Transport {
	return &Transport{clients: clients}
}

func (t *Transport) clientFor(peer fetcher.Peer) (*customethclient.Client, error) {
	c, ok := t.clients[peer.ID()]
	if !ok {
		return nil, fmt.Errorf("no rpc client registered for peer %s", peer.ID())
	}
	return c, nil
}

// GetBlockHeaders fetches max consecutive headers starting at first.
// BufferValue is reported as math.MaxInt: a plain JSON-RPC endpoint has no
// light-client-style remaining-capacity hint to report, so flow control
// never refuses a request to a peer served by this transport.
func (t *Transport) GetBlockHeaders(ctx context.Context, peer fetcher.Peer, first *big.Int, max uint64) (header.Reply, error) {
	client, err := t.clientFor(peer)
	if err != nil {
		return header.Reply{}, err
	}

	headers := make([]chain.Header, 0, max)
	n := new(big.Int).Set(first)
	for i := uint64(0); i < max; i++ {
		block, err := client.BlockByNumber(ctx, n)
		if err != nil {
			break
		}
		headers = append(headers, toChainHeader(block))
		n = new(big.Int).Add(n, big.NewInt(1))
	}
	if len(headers) == 0 {
		return header.Reply{}, fmt.Errorf("get block headers from %s: %w", first, fetcher.ErrEmptyOrMissingReply)
	}
	return header.Reply{Headers: headers, BufferValue: math.MaxInt}, nil
}

// GetBlockBodies fetches the body of each requested header by block number,
// in order, stopping at the first block that cannot be fetched or whose
// hash differs from the header's.
func (t *Transport) GetBlockBodies(ctx context.Context, peer fetcher.Peer, refs []header.HeaderRef) (body.Reply, error) {
	client, err := t.clientFor(peer)
	if err != nil {
		return body.Reply{}, err
	}

	bodies := make([]chain.Body, 0, len(refs))
	for _, ref := range refs {
		block, err := client.BlockByNumber(ctx, ref.Number)
		if err != nil {
			break
		}
		if chain.Hash(block.Hash()) != ref.Hash {
			break
		}
		bodies = append(bodies, toChainBody(block))
	}
	if len(bodies) == 0 {
		return body.Reply{}, fetcher.ErrEmptyOrMissingReply
	}
	return body.Reply{Bodies: bodies}, nil
}

func toChainHeader(block *libevmtypes.Block) chain.Header {
	return chain.Header{
		Number:     block.Number(),
		Hash:       chain.Hash(block.Hash()),
		ParentHash: chain.Hash(block.ParentHash()),
		Time:       block.Time(),
	}
}

func toChainBody(block *libevmtypes.Block) chain.Body {
	txs := block.Transactions()
	raw := make([][]byte, 0, len(txs))
	for _, tx := range txs {
		b, err := tx.MarshalBinary()
		if err != nil {
			continue
		}
		raw = append(raw, b)
	}
	return chain.Body{
		BlockHash:    chain.Hash(block.Hash()),
		Number:       block.Number(),
		Transactions: raw,
	}
}
