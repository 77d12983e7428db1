// Package noop provides a no-operation sink that discards all events.
// Useful for testing and for disabling delivery entirely.
package noop

import (
	"context"

	"github.com/strongdm/faultline/pkg/faultline"
)

// noopSink discards all events.
type noopSink struct{}

// New creates a sink that discards all events.
func New() faultline.Sink {
	return &noopSink{}
}

// Write discards the event and returns nil.
func (s *noopSink) Write(ctx context.Context, event faultline.Event) error {
	return nil
}

// Flush is a no-op and returns nil.
func (s *noopSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op and returns nil.
func (s *noopSink) Close() error {
	return nil
}
