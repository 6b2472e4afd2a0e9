package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blockrelay/peerfetch/pkg/queue"
)

type fakePublisher struct {
	mu    sync.Mutex
	msgs  []queue.Msg
	err   error
	onMsg chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{onMsg: make(chan struct{}, 16)}
}

func (f *fakePublisher) Publish(_ context.Context, msg queue.Msg) error {
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
	f.onMsg <- struct{}{}
	return f.err
}

func (f *fakePublisher) Close(context.Context) {}

func (f *fakePublisher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.onMsg:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for publish")
	}
}

func TestKafkaEmitPublishesJSONPayload(t *testing.T) {
	pub := newFakePublisher()
	k := NewKafka(pub, "sync-events", zap.NewNop().Sugar())

	k.Emit("SYNC_FETCHED_HEADERS", map[string]int{"count": 3})
	pub.wait(t)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.msgs, 1)
	require.Equal(t, "sync-events", pub.msgs[0].Topic)
	require.Equal(t, "SYNC_FETCHED_HEADERS", string(pub.msgs[0].Key))
	require.JSONEq(t, `{"count":3}`, string(pub.msgs[0].Value))
}

func TestKafkaEmitPublishFailureDoesNotPanic(t *testing.T) {
	pub := newFakePublisher()
	pub.err = errors.New("broker unavailable")
	k := NewKafka(pub, "sync-events", zap.NewNop().Sugar())

	k.Emit("SYNC_FETCHER_ERROR", "boom")
	pub.wait(t)
}

func TestNoopEmitDoesNothing(t *testing.T) {
	var n Noop
	n.Emit("anything", 42)
}
