package events

import "github.com/blockrelay/peerfetch/pkg/fetcher"

// Noop discards every event. Equivalent to fetcher.NoopEvents; kept as its
// own type here so callers can import events.Noop alongside events.Kafka
// without also importing the core fetcher package for this one type.
type Noop struct{}

var _ fetcher.Events = Noop{}

func (Noop) Emit(string, any) {}
