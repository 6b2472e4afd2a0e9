package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/blockrelay/peerfetch/pkg/fetcher"
)

func hashOf(b byte) Hash {
	var h Hash
	h[0] = b
	return h
}

func TestMemoryPutHeaders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	genesis := Header{Number: big.NewInt(0), Hash: hashOf(1), ParentHash: Hash{}}
	n, err := m.PutHeaders(ctx, []Header{genesis})
	if err != nil {
		t.Fatalf("PutHeaders(genesis) error: %v", err)
	}
	if n != 1 {
		t.Fatalf("PutHeaders(genesis) accepted=%d, want 1", n)
	}

	chained := Header{Number: big.NewInt(1), Hash: hashOf(2), ParentHash: hashOf(1)}
	n, err = m.PutHeaders(ctx, []Header{chained})
	if err != nil {
		t.Fatalf("PutHeaders(chained) error: %v", err)
	}
	if n != 1 {
		t.Fatalf("PutHeaders(chained) accepted=%d, want 1", n)
	}
	if m.Len() != 2 {
		t.Fatalf("Len()=%d, want 2", m.Len())
	}
}

func TestMemoryPutHeadersParentMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	orphan := Header{Number: big.NewInt(5), Hash: hashOf(9), ParentHash: hashOf(8)}
	n, err := m.PutHeaders(ctx, []Header{orphan})
	if n != 0 {
		t.Fatalf("accepted=%d, want 0", n)
	}
	if !errors.Is(err, fetcher.ErrParentHeaderMissing) {
		t.Fatalf("err=%v, want wrapping ErrParentHeaderMissing", err)
	}
}

func TestMemoryPutBodiesRequiresKnownHeader(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	h := Header{Number: big.NewInt(0), Hash: hashOf(1)}
	if _, err := m.PutHeaders(ctx, []Header{h}); err != nil {
		t.Fatalf("PutHeaders error: %v", err)
	}

	bodies := []Body{
		{BlockHash: hashOf(1), Number: big.NewInt(0)},
		{BlockHash: hashOf(2), Number: big.NewInt(1)},
	}
	n, err := m.PutBodies(ctx, bodies)
	if n != 1 {
		t.Fatalf("accepted=%d, want 1 (second has no known header)", n)
	}
	if err == nil {
		t.Fatal("expected an error for the unknown second body")
	}
	if _, ok := m.Body(hashOf(1)); !ok {
		t.Fatal("first body should still have been stored")
	}
}
