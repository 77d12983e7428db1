// tracker.go provides the Tracker orchestrator: the public capture/context
// API and the hook/sanitize/deliver pipeline.

package faultline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
)

// ErrMissingDSN is returned by New when the configuration has no
// destination identifier.
var ErrMissingDSN = errors.New("faultline: DSN is required")

// Option configures a Tracker beyond its Config.
type Option func(*Tracker)

// WithClock sets the clock used for event and breadcrumb timestamps.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithLogger sets the diagnostics logger. Delivery failures and hook
// panics are reported here; they never reach the caller.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithSanitizer sets a custom sanitizer, e.g. with an extended
// sensitive-key set. Zero-valued config fields fall back to defaults.
func WithSanitizer(s *Sanitizer) Option {
	return func(t *Tracker) {
		if s != nil {
			t.sanitizer = NewSanitizer(s.cfg)
		}
	}
}

// Tracker is the capture orchestrator. It owns one ContextManager, one
// BreadcrumbManager, and one Sink, and runs the sampling, hook,
// sanitization, and delivery pipeline.
//
// A Tracker is constructed once per process or per logical scope. Runtime
// capture and send operations are failure-silent: the hosting application
// is never interrupted by this library's internal failures.
type Tracker struct {
	cfg         Config
	serverName  string
	breadcrumbs *BreadcrumbManager
	context     *ContextManager
	sink        Sink
	sanitizer   *Sanitizer
	clock       clockz.Clock
	logger      *slog.Logger

	startTime time.Time

	// rng draws in [0, 1) for sampling. Overridden in tests.
	rng func() float64
}

// New creates a Tracker from a Config. Construction fails fast on a
// missing DSN; everything after construction is best effort.
func New(cfg Config, opts ...Option) (*Tracker, error) {
	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}

	sink := cfg.Transport
	if sink == nil {
		sink = sinkForDSN(cfg.DSN)
	}

	t := &Tracker{
		cfg:         cfg,
		serverName:  resolveServerName(cfg.ServerName),
		breadcrumbs: NewBreadcrumbManager(cfg.MaxBreadcrumbs),
		context:     NewContextManager(),
		sink:        sink,
		sanitizer:   NewSanitizer(DefaultSanitizerConfig()),
		clock:       clockz.RealClock,
		logger:      slog.Default(),
		rng:         rand.Float64,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.startTime = t.clock.Now()

	return t, nil
}

// CaptureOption adjusts a single capture call.
type CaptureOption func(*captureOptions)

type captureOptions struct {
	level Severity
}

// WithLevel overrides the severity for one capture.
func WithLevel(level Severity) CaptureOption {
	return func(o *captureOptions) {
		o.level = level
	}
}

// CaptureException captures an error at severity error (unless overridden)
// and runs the send pipeline. No-op when the tracker is disabled or the
// capture loses the sample draw; a sampled-out capture touches no state.
func (t *Tracker) CaptureException(err error, opts ...CaptureOption) {
	if err == nil || !t.shouldCapture() {
		return
	}

	exc := exceptionFromError(err, 1)
	event := t.createEvent(t.captureLevel(SeverityError, opts), "", []Exception{exc})
	t.sendEvent(event)
}

// CaptureMessage captures a log-style message at severity info (unless
// overridden). Same gating as CaptureException.
func (t *Tracker) CaptureMessage(message string, opts ...CaptureOption) {
	if !t.shouldCapture() {
		return
	}

	event := t.createEvent(t.captureLevel(SeverityInfo, opts), message, nil)
	t.sendEvent(event)
}

// CapturePanic captures a recovered panic value as a fatal event with an
// unhandled "panic" mechanism. Intended for use from recovery helpers and
// middleware; most callers want Recover instead.
func (t *Tracker) CapturePanic(recovered any, opts ...CaptureOption) {
	if recovered == nil || !t.shouldCapture() {
		return
	}

	exc := exceptionFromPanic(recovered, 1)
	event := t.createEvent(t.captureLevel(SeverityFatal, opts), "", []Exception{exc})
	t.sendEvent(event)
}

// AddBreadcrumb records a trail entry. A zero timestamp is stamped with the
// current time. The before-breadcrumb hook may drop or replace the entry.
func (t *Tracker) AddBreadcrumb(crumb Breadcrumb) {
	if crumb.Timestamp.IsZero() {
		crumb.Timestamp = t.clock.Now()
	}

	if t.cfg.BeforeBreadcrumb != nil {
		result := t.runBeforeBreadcrumb(&crumb)
		if result == nil {
			return
		}
		crumb = *result
	}

	t.breadcrumbs.Add(crumb)
}

// SetUser sets the user attached to subsequent events. Pass nil to unset.
func (t *Tracker) SetUser(user *User) {
	t.context.SetUser(user)
}

// SetTag sets a single tag.
func (t *Tracker) SetTag(key, value string) {
	t.context.SetTag(key, value)
}

// SetTags merges tags into the existing mapping.
func (t *Tracker) SetTags(tags map[string]string) {
	t.context.SetTags(tags)
}

// SetExtra sets a single extra value.
func (t *Tracker) SetExtra(key string, value any) {
	t.context.SetExtra(key, value)
}

// SetExtras merges extra values into the existing mapping.
func (t *Tracker) SetExtras(extras map[string]any) {
	t.context.SetExtras(extras)
}

// SetLevel sets a severity override for subsequent events.
func (t *Tracker) SetLevel(level Severity) {
	t.context.SetLevel(level)
}

// SetFingerprint sets the grouping fingerprint for subsequent events.
func (t *Tracker) SetFingerprint(fingerprint []string) {
	t.context.SetFingerprint(fingerprint)
}

// SetRequest stores a request snapshot attached to subsequent events.
func (t *Tracker) SetRequest(request *Request) {
	t.context.SetRequest(request)
}

// ClearContext resets all ambient context and empties the breadcrumb trail.
func (t *Tracker) ClearContext() {
	t.context.Clear()
	t.breadcrumbs.Clear()
}

// Flush blocks until the sink drains or the timeout elapses, reporting
// whether it fully drained. Pass zero to wait without a deadline;
// synchronous sinks return immediately.
func (t *Tracker) Flush(timeout time.Duration) bool {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := t.sink.Flush(ctx); err != nil {
		t.logger.Warn("faultline: flush did not drain", "error", err)
		return false
	}
	return true
}

// Close releases the sink's resources.
func (t *Tracker) Close() error {
	return t.sink.Close()
}

// shouldCapture applies the enabled flag and the per-call sample draw.
// Runs before any context or breadcrumb state is read or written.
func (t *Tracker) shouldCapture() bool {
	if !t.cfg.Enabled {
		return false
	}
	return t.rng() < t.cfg.SampleRate
}

// captureLevel resolves severity precedence: explicit capture option, then
// the context override, then the capture kind's default.
func (t *Tracker) captureLevel(fallback Severity, opts []CaptureOption) Severity {
	var o captureOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.level != "" {
		return o.level
	}
	if override := t.context.GetLevel(); override != "" {
		return override
	}
	return fallback
}

// createEvent assembles an event from configuration plus the live context
// and breadcrumb snapshots.
func (t *Tracker) createEvent(level Severity, message string, exceptions []Exception) Event {
	now := t.clock.Now()

	environment := t.cfg.Environment
	if environment == "" {
		environment = defaultEnvironment
	}

	tags := t.context.GetTags()
	if len(tags) == 0 {
		tags = nil
	}
	extra := t.context.GetExtras()
	if len(extra) == 0 {
		extra = nil
	}

	return Event{
		EventID:     t.newEventID(now),
		Timestamp:   now,
		Level:       level,
		Platform:    platform,
		ServerName:  t.serverName,
		Release:     t.cfg.Release,
		Environment: environment,
		Message:     message,
		Exceptions:  exceptions,
		Breadcrumbs: t.breadcrumbs.GetAll(),
		User:        t.context.GetUser(),
		Request:     t.context.GetRequest(),
		Tags:        tags,
		Extra:       extra,
		Contexts: map[string]any{
			"runtime": runtimeContext(t.startTime, now),
		},
		Fingerprint: t.context.GetFingerprint(),
		SDK:         SDK{Name: sdkName, Version: sdkVersion},
	}
}

// newEventID builds an event id: epoch-millis prefix plus a 9-char random
// hex suffix. Unique per process with high probability; advisory only.
func (t *Tracker) newEventID(now time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("%d-%s", now.UnixMilli(), hex.EncodeToString(u[:])[:9])
}

// sendEvent runs the send pipeline: before-send hook, sanitization,
// delivery. Delivery failures are logged, never propagated. The whole
// pipeline runs under a recover so capture can never crash the host.
func (t *Tracker) sendEvent(event Event) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("faultline: send pipeline panicked", "event_id", event.EventID, "panic", r)
		}
	}()

	final := event
	if t.cfg.BeforeSend != nil {
		result := t.runBeforeSend(&event)
		if result == nil {
			return
		}
		final = *result
	}

	final = t.sanitizer.SanitizeEvent(final)
	t.deliver(final)
}

// runBeforeSend invokes the before-send hook. A panicking hook keeps the
// original event and logs a diagnostic.
func (t *Tracker) runBeforeSend(event *Event) (result *Event) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("faultline: before_send hook panicked, keeping original event",
				"event_id", event.EventID, "panic", r)
			result = event
		}
	}()
	return t.cfg.BeforeSend(event)
}

// runBeforeBreadcrumb invokes the before-breadcrumb hook. A panicking hook
// keeps the original breadcrumb and logs a diagnostic.
func (t *Tracker) runBeforeBreadcrumb(crumb *Breadcrumb) (result *Breadcrumb) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("faultline: before_breadcrumb hook panicked, keeping original breadcrumb",
				"panic", r)
			result = crumb
		}
	}()
	return t.cfg.BeforeBreadcrumb(crumb)
}

// deliver hands the event to the sink, swallowing errors and panics.
func (t *Tracker) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("faultline: sink panicked", "event_id", event.EventID, "panic", r)
		}
	}()

	if err := t.sink.Write(context.Background(), event); err != nil {
		t.logger.Error("faultline: failed to deliver event", "event_id", event.EventID, "error", err)
	}
}
