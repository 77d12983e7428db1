// Package faultline provides lightweight, pluggable error and event capture
// for Go applications.
//
// faultline turns a raised error or a log-style message into a structured,
// sanitized event and hands it to a pluggable delivery sink. Events carry
// ambient context (user identity, tags, extra data, request snapshots) and a
// bounded breadcrumb trail describing what led up to the capture.
//
// # Core Components
//
// The library is organized around these concepts:
//
//   - Event: The canonical capture representation with severity, context, and metadata
//   - Tracker: Central orchestrator that applies hooks and sanitization before delivery
//   - Sink: Destination for events (HTTP, console, async, multi, noop)
//   - Sanitizer: Redacts sensitive fields from nested structures
//   - BreadcrumbManager / ContextManager: Bounded trail and ambient context state
//
// # Quick Start
//
//	cfg := faultline.NewConfig("https://errors.example.com/ingest")
//	cfg.Environment = "staging"
//	tracker, err := faultline.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracker.Flush(2 * time.Second)
//
//	tracker.SetTag("service", "checkout")
//	if err := doWork(); err != nil {
//	    tracker.CaptureException(err)
//	}
//
// For development, the DSN sentinel "console://" selects a sink that writes
// a reduced projection of each event to stderr.
//
// # Design Principles
//
//   - Capture never aborts the host application: all delivery errors are swallowed and logged
//   - Sanitization never mutates its input and never recurses into a redacted value
//   - Delivery is best effort, at most once: no retries, no persistent queue
package faultline
