package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

// fakePeer is a minimal Peer used across engine tests.
type fakePeer struct {
	id   string
	idle bool
}

func (p *fakePeer) ID() string         { return p.id }
func (p *fakePeer) Idle() bool         { return p.idle }
func (p *fakePeer) SetIdle(v bool)     { p.idle = v }
func (p *fakePeer) Serves(string) bool { return true }

// fakePool is a minimal in-memory PeerPool.
type fakePool struct {
	mu     sync.Mutex
	peers  []*fakePeer
	banned map[string]bool
}

func newFakePool(n int) *fakePool {
	p := &fakePool{banned: make(map[string]bool)}
	for i := 0; i < n; i++ {
		p.peers = append(p.peers, &fakePeer{id: fmt.Sprintf("p%d", i), idle: true})
	}
	return p
}

func (p *fakePool) Idle(filter func(Peer) bool) (Peer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pr := range p.peers {
		if !pr.idle || p.banned[pr.id] {
			continue
		}
		if filter != nil && !filter(pr) {
			continue
		}
		return pr, true
	}
	return nil, false
}

func (p *fakePool) Ban(peer Peer, _ time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.banned[peer.ID()] = true
}

func (p *fakePool) Contains(peer Peer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.banned[peer.ID()]
}

// rangeTask is a Rewindable Task used by the reorg test.
type rangeTask struct {
	first int
	count int
}

func (t *rangeTask) Count() int      { return t.count }
func (t *rangeTask) First() *big.Int { return big.NewInt(int64(t.first)) }
func (t *rangeTask) Rewind(step uint64) {
	t.first -= int(step)
	t.count += int(step)
}

// scriptedFetcher lets each test script Request/Process/Store behavior
// without a new fake type per test.
type scriptedFetcher struct {
	mu sync.Mutex

	requestFn func(job *Job[*rangeTask], peer Peer) (int, error)
	storeFn   func(items []Item) error

	stored [][]Item
}

func (f *scriptedFetcher) Request(_ context.Context, job *Job[*rangeTask], peer Peer) (int, error) {
	return f.requestFn(job, peer)
}

func (f *scriptedFetcher) Process(job *Job[*rangeTask], reply int) ([]Item, error) {
	items := make([]Item, job.Task.count)
	for i := range items {
		items[i] = job.Task.first + i
	}
	return items, nil
}

func (f *scriptedFetcher) Store(_ context.Context, items []Item) error {
	f.mu.Lock()
	f.stored = append(f.stored, items)
	f.mu.Unlock()
	if f.storeFn != nil {
		return f.storeFn(items)
	}
	return nil
}

func (f *scriptedFetcher) Peer(pool PeerPool) (Peer, bool) { return pool.Idle(nil) }
func (f *scriptedFetcher) NextTasks() []*rangeTask         { return nil }

func defaultTestOptions() Options {
	return Options{
		Timeout:         50 * time.Millisecond,
		Interval:        5 * time.Millisecond,
		BanTime:         time.Minute,
		MaxQueue:        4,
		DestroyWhenDone: true,
	}
}

func TestEngineEmitsInAscendingOrderDespiteOutOfOrderReplies(t *testing.T) {
	t.Parallel()

	var resolveOrder []int
	var mu sync.Mutex

	f := &scriptedFetcher{
		requestFn: func(job *Job[*rangeTask], peer Peer) (int, error) {
			if job.Index == 0 {
				time.Sleep(30 * time.Millisecond)
			}
			mu.Lock()
			resolveOrder = append(resolveOrder, int(job.Index))
			mu.Unlock()
			return 0, nil
		},
	}

	pool := newFakePool(3)
	e, err := New[*rangeTask, int](testLogger(), pool, f, defaultTestOptions(), nil, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Fetch(context.Background()) }()

	e.EnqueueTask(&rangeTask{first: 0, count: 1})
	e.EnqueueTask(&rangeTask{first: 1, count: 1})
	e.EnqueueTask(&rangeTask{first: 2, count: 1})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not complete in time")
	}

	if len(resolveOrder) == 3 && resolveOrder[0] == 0 {
		t.Fatalf("test setup did not exercise out-of-order resolution: %v", resolveOrder)
	}

	if len(f.stored) != 3 {
		t.Fatalf("stored %d batches, want 3", len(f.stored))
	}
	for i, batch := range f.stored {
		if len(batch) != 1 || batch[0].(int) != i {
			t.Fatalf("stored[%d]=%v, want [%d]", i, batch, i)
		}
	}
}

func TestEngineZeroTasksAtStartDoesNotFinishBeforeEnqueue(t *testing.T) {
	t.Parallel()

	f := &scriptedFetcher{
		requestFn: func(job *Job[*rangeTask], peer Peer) (int, error) { return 0, nil },
	}
	pool := newFakePool(1)
	e, err := New[*rangeTask, int](testLogger(), pool, f, defaultTestOptions(), nil, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Fetch(context.Background()) }()

	// Give Fetch's first trySchedule call every chance to race ahead of the
	// enqueue below before anything is in the queue.
	time.Sleep(10 * time.Millisecond)
	e.EnqueueTask(&rangeTask{first: 0, count: 1})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch never finished: the zero-task race dropped the enqueued task")
	}

	if len(f.stored) != 1 {
		t.Fatalf("stored %d batches, want 1", len(f.stored))
	}
}

func TestEngineEmptyReplyIsReenqueuedThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls int32
	var mu sync.Mutex
	f := &scriptedFetcher{
		requestFn: func(job *Job[*rangeTask], peer Peer) (int, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				return 0, ErrEmptyOrMissingReply
			}
			return 0, nil
		},
	}
	pool := newFakePool(1)
	e, err := New[*rangeTask, int](testLogger(), pool, f, defaultTestOptions(), nil, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Fetch(context.Background()) }()
	e.EnqueueTask(&rangeTask{first: 0, count: 1})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not complete in time")
	}

	if len(f.stored) != 1 {
		t.Fatalf("stored %d batches, want 1", len(f.stored))
	}
}

func TestEngineIrrecoverableStoreErrorStopsAndDropsInbound(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("boom")
	f := &scriptedFetcher{
		requestFn: func(job *Job[*rangeTask], peer Peer) (int, error) { return 0, nil },
		storeFn: func(items []Item) error {
			return storeErr
		},
	}
	pool := newFakePool(2)
	e, err := New[*rangeTask, int](testLogger(), pool, f, defaultTestOptions(), nil, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Fetch(context.Background()) }()
	e.EnqueueTask(&rangeTask{first: 0, count: 1})
	e.EnqueueTask(&rangeTask{first: 1, count: 1})

	select {
	case err := <-done:
		if !errors.Is(err, storeErr) {
			t.Fatalf("Fetch error=%v, want %v", err, storeErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not complete in time")
	}
	if n := e.inbound.Len(); n != 0 {
		t.Fatalf("inbound len=%d after irrecoverable error, want 0", n)
	}
}

func TestEngineReorgRewindsAndRedispatches(t *testing.T) {
	t.Parallel()

	var storeCalls int32
	var mu sync.Mutex
	f := &scriptedFetcher{
		requestFn: func(job *Job[*rangeTask], peer Peer) (int, error) { return 0, nil },
		storeFn: func(items []Item) error {
			mu.Lock()
			storeCalls++
			n := storeCalls
			mu.Unlock()
			if n == 1 {
				return fmt.Errorf("store: %w", ErrParentHeaderMissing)
			}
			return nil
		},
	}
	pool := newFakePool(1)
	opts := defaultTestOptions()
	opts.SafeReorgDistance = 64
	e, err := New[*rangeTask, int](testLogger(), pool, f, opts, nil, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Fetch(context.Background()) }()
	task := &rangeTask{first: 10, count: 1}
	e.EnqueueTask(task)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not complete in time")
	}

	if storeCalls != 2 {
		t.Fatalf("Store called %d times, want 2 (reorg then retry)", storeCalls)
	}
	if task.first != 1 {
		t.Fatalf("task.first=%d, want 1 (rewound by step_back=min(first-1, safeReorgDistance)=9)", task.first)
	}
}
