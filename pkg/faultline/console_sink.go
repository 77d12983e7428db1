// console_sink.go writes a reduced projection of each event to a local
// diagnostic stream. For development use; selected by the "console://" DSN.

package faultline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleSinkOption configures the console sink.
type ConsoleSinkOption func(*consoleSinkConfig)

type consoleSinkConfig struct {
	out io.Writer
}

// WithWriter redirects console output (default: stderr).
func WithWriter(w io.Writer) ConsoleSinkOption {
	return func(c *consoleSinkConfig) {
		if w != nil {
			c.out = w
		}
	}
}

// consoleSink prints one line per event.
type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink creates a sink that writes a reduced event projection
// (id, timestamp, level, message, outermost exception) as a JSON line.
func NewConsoleSink(opts ...ConsoleSinkOption) Sink {
	cfg := &consoleSinkConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &consoleSink{out: cfg.out}
}

// consoleRecord is the reduced projection emitted per event.
type consoleRecord struct {
	EventID   string            `json:"event_id"`
	Timestamp float64           `json:"timestamp"`
	Level     string            `json:"level"`
	Message   string            `json:"message,omitempty"`
	Exception *consoleException `json:"exception,omitempty"`
}

type consoleException struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Write formats and emits the event.
func (s *consoleSink) Write(ctx context.Context, event Event) error {
	record := consoleRecord{
		EventID:   event.EventID,
		Timestamp: epochSeconds(event.Timestamp),
		Level:     string(event.Level),
		Message:   event.Message,
	}
	if len(event.Exceptions) > 0 {
		record.Exception = &consoleException{
			Type:  event.Exceptions[0].Type,
			Value: event.Exceptions[0].Value,
		}
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.EventID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = fmt.Fprintf(s.out, "[faultline] %s\n", line)
	return err
}

// Flush is a no-op for the console sink.
func (s *consoleSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the console sink.
func (s *consoleSink) Close() error {
	return nil
}
