// sink.go defines the Sink interface for event destinations.

package faultline

import "context"

// Sink is the delivery destination for finished, sanitized events.
// Implementations must be safe for concurrent use.
//
// Write may return an error; the Tracker catches it and reports it through
// its diagnostics logger, so delivery failures never reach application
// control flow.
type Sink interface {
	// Write delivers one event. Called after hooks and sanitization.
	Write(ctx context.Context, event Event) error

	// Flush blocks until buffered events are delivered or ctx is done.
	// Synchronous sinks have nothing to flush and return nil immediately.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	Close() error
}

// sinkForDSN selects the built-in sink for a destination identifier.
func sinkForDSN(dsn string) Sink {
	if dsn == ConsoleDSN {
		return NewConsoleSink()
	}
	return NewHTTPSink(dsn)
}
