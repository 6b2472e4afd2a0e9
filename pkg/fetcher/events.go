package fetcher

// Event names emitted by the engine. Concrete Events implementations decide
// how to serialize and where to publish these.
const (
	// EventFetcherError fires when a recoverable error is handled while
	// running is true. An irrecoverable error clears running before the
	// check, so it emits no event.
	EventFetcherError = "SYNC_FETCHER_ERROR"
	// EventFetchedHeaders fires from the header specialization's Store hook
	// with the prefix of headers actually accepted by the chain collaborator.
	EventFetchedHeaders = "SYNC_FETCHED_HEADERS"
	// EventFetchedBodies fires from the body specialization's Store hook.
	EventFetchedBodies = "SYNC_FETCHED_BODIES"
)

// ErrorPayload is the payload shape for EventFetcherError.
type ErrorPayload struct {
	Error error
	Task  any
	Peer  Peer
}

// Events is the narrow collaborator interface the engine publishes through.
// Passed in at construction to avoid a process-wide singleton.
type Events interface {
	Emit(name string, payload any)
}

// NoopEvents discards every event. Useful for library use and tests that
// don't care about the event bus.
type NoopEvents struct{}

func (NoopEvents) Emit(string, any) {}
