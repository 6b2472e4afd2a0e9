// Package events provides Events implementations for the fetch engine:
// a Kafka-backed production sink and a no-op used by tests and library
// callers that don't want a bus.
package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/blockrelay/peerfetch/pkg/fetcher"
	"github.com/blockrelay/peerfetch/pkg/queue"
)

const publishTimeout = 5 * time.Second

// Kafka publishes every emitted event as a JSON-encoded message, keyed by
// event name, through a queue.QueuePublisher. Publish runs on its own
// goroutine per call so a slow or unavailable broker never blocks the
// engine's single scheduling goroutine, which is where Emit is called from.
type Kafka struct {
	publisher queue.QueuePublisher
	topic     string
	log       *zap.SugaredLogger
}

var _ fetcher.Events = (*Kafka)(nil)

// NewKafka wraps publisher, which is typically a *queue.KafkaPublisher, as
// a fetcher.Events sink publishing to topic.
func NewKafka(publisher queue.QueuePublisher, topic string, log *zap.SugaredLogger) *Kafka {
	return &Kafka{publisher: publisher, topic: topic, log: log}
}

// Emit marshals payload to JSON and publishes it asynchronously. Marshal
// and publish failures are logged, never returned: Events.Emit has no
// error return, by design, so the engine can't be blocked or failed by a
// downstream event bus outage.
func (k *Kafka) Emit(name string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		k.log.Errorw("failed to marshal event payload", "event", name, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		msg := queue.Msg{Topic: k.topic, Key: []byte(name), Value: body}
		if err := k.publisher.Publish(ctx, msg); err != nil {
			k.log.Errorw("failed to publish event", "event", name, "topic", k.topic, "error", err)
		}
	}()
}
