// Package multi provides a sink that fans out to multiple sinks.
// All sinks receive all events; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/faultline/pkg/faultline"
)

// multiSink fans out to multiple sinks.
type multiSink struct {
	sinks []faultline.Sink
}

// New creates a sink that delivers every event to all of the given sinks.
// Errors are aggregated via errors.Join; all sinks are called even when
// some fail.
func New(sinks ...faultline.Sink) faultline.Sink {
	return &multiSink{sinks: sinks}
}

// Write sends the event to all sinks, collecting any errors.
func (s *multiSink) Write(ctx context.Context, event faultline.Event) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush calls Flush on all sinks, collecting any errors.
func (s *multiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all sinks, collecting any errors.
func (s *multiSink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
