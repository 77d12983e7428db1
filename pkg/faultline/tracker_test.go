package faultline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/zoobzio/clockz"
)

// testSink captures events for verification in tests.
type testSink struct {
	mu       sync.Mutex
	events   []Event
	writeErr error
	flushErr error
}

func (s *testSink) Write(ctx context.Context, event Event) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *testSink) Flush(ctx context.Context) error {
	return s.flushErr
}

func (s *testSink) Close() error {
	return nil
}

func (s *testSink) getEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Event, len(s.events))
	copy(result, s.events)
	return result
}

// panicSink panics on every write.
type panicSink struct{}

func (panicSink) Write(ctx context.Context, event Event) error { panic("sink exploded") }
func (panicSink) Flush(ctx context.Context) error              { return nil }
func (panicSink) Close() error                                 { return nil }

// newTestTracker builds a tracker delivering to the given sink, with a
// silent diagnostics logger.
func newTestTracker(t *testing.T, sink Sink) *Tracker {
	t.Helper()
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return tracker
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNew_RequiresDSN(t *testing.T) {
	_, err := New(Config{Enabled: true})
	if !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("New with empty DSN = %v, want ErrMissingDSN", err)
	}
}

func TestNew_SelectsSinkByDSN(t *testing.T) {
	tracker, err := New(NewConfig(ConsoleDSN))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := tracker.sink.(*consoleSink); !ok {
		t.Errorf("console DSN selected %T, want *consoleSink", tracker.sink)
	}

	tracker, err = New(NewConfig("https://errors.test/ingest"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := tracker.sink.(*httpSink); !ok {
		t.Errorf("URL DSN selected %T, want *httpSink", tracker.sink)
	}
}

func TestNew_CustomTransportOverridesDSN(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig(ConsoleDSN)
	cfg.Transport = sink

	tracker, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if tracker.sink != sink {
		t.Errorf("custom transport not used: %T", tracker.sink)
	}
}

func TestCaptureMessage_AssemblesEvent(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	tracker.CaptureMessage("boot ok")

	events := sink.getEvents()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.Message != "boot ok" {
		t.Errorf("Message = %q", event.Message)
	}
	if event.Level != SeverityInfo {
		t.Errorf("Level = %q, want info", event.Level)
	}
	if event.Platform != "go" {
		t.Errorf("Platform = %q, want go", event.Platform)
	}
	if event.Environment != "production" {
		t.Errorf("Environment = %q, want production default", event.Environment)
	}
	if event.ServerName == "" {
		t.Error("ServerName should default to hostname or \"unknown\"")
	}
	if event.SDK.Name != sdkName || event.SDK.Version != sdkVersion {
		t.Errorf("SDK = %+v", event.SDK)
	}
	if event.Exceptions != nil {
		t.Errorf("message capture should carry no exception payload, got %+v", event.Exceptions)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp not stamped")
	}

	rt, ok := event.Contexts["runtime"].(map[string]any)
	if !ok {
		t.Fatalf("missing runtime context group: %+v", event.Contexts)
	}
	if rt["go_version"] == "" {
		t.Error("runtime context missing go_version")
	}
	if count, ok := rt["goroutine_count"].(int); !ok || count < 1 {
		t.Errorf("goroutine_count = %v", rt["goroutine_count"])
	}
}

var eventIDPattern = regexp.MustCompile(`^\d+-[0-9a-f]{9}$`)

func TestCaptureMessage_EventIDFormatAndUniqueness(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	for i := 0; i < 50; i++ {
		tracker.CaptureMessage("hi")
	}

	seen := make(map[string]bool)
	for _, event := range sink.getEvents() {
		if !eventIDPattern.MatchString(event.EventID) {
			t.Fatalf("EventID %q does not match millis-suffix format", event.EventID)
		}
		if seen[event.EventID] {
			t.Fatalf("duplicate EventID %q", event.EventID)
		}
		seen[event.EventID] = true
	}
}

func TestCaptureException_ParsesErrorAndContext(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	tracker.SetUser(&User{ID: "42", Email: "x@y.com"})
	tracker.CaptureException(timeoutError{op: "boom"})

	events := sink.getEvents()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.Level != SeverityError {
		t.Errorf("Level = %q, want error", event.Level)
	}
	if event.User == nil || event.User.ID != "42" {
		t.Errorf("User = %+v, want id 42", event.User)
	}
	if len(event.Exceptions) != 1 {
		t.Fatalf("Exceptions = %+v", event.Exceptions)
	}
	exc := event.Exceptions[0]
	if exc.Type != "faultline.timeoutError" {
		t.Errorf("exception type = %q", exc.Type)
	}
	if exc.Value != "boom timed out" {
		t.Errorf("exception value = %q", exc.Value)
	}
	if len(exc.Stacktrace) == 0 {
		t.Error("expected stack frames")
	}
}

func TestCaptureException_NilErrorIsNoop(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	tracker.CaptureException(nil)

	if got := len(sink.getEvents()); got != 0 {
		t.Errorf("Expected 0 events for nil error, got %d", got)
	}
}

func TestCapture_SampleRateZeroNeverSends(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.SampleRate = 0.0

	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	for i := 0; i < 20; i++ {
		tracker.CaptureMessage("hi")
		tracker.CaptureException(errors.New("boom"))
	}

	if got := len(sink.getEvents()); got != 0 {
		t.Errorf("Expected 0 events at sample rate 0.0, got %d", got)
	}
}

func TestCapture_SampleRateOneAlwaysSends(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	tracker.CaptureMessage("hi")

	if got := len(sink.getEvents()); got != 1 {
		t.Errorf("Expected exactly 1 event at sample rate 1.0, got %d", got)
	}
}

func TestCapture_SampleDrawComparedAgainstRate(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.SampleRate = 0.5

	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.rng = func() float64 { return 0.4 } // wins the draw
	tracker.CaptureMessage("kept")
	tracker.rng = func() float64 { return 0.6 } // loses the draw
	tracker.CaptureMessage("dropped")

	events := sink.getEvents()
	if len(events) != 1 || events[0].Message != "kept" {
		t.Errorf("events = %+v, want only the winning draw", events)
	}
}

func TestCapture_DisabledTrackerIsNoop(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.Enabled = false

	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.CaptureMessage("hi")
	tracker.CaptureException(errors.New("boom"))

	if got := len(sink.getEvents()); got != 0 {
		t.Errorf("Expected 0 events when disabled, got %d", got)
	}
}

func TestCapture_SampledOutCaptureMutatesNothing(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.SampleRate = 0.0

	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.AddBreadcrumb(Breadcrumb{Message: "before"})
	tracker.CaptureException(errors.New("boom"))

	if got := tracker.breadcrumbs.Count(); got != 1 {
		t.Errorf("breadcrumb count after sampled-out capture = %d, want 1", got)
	}
}

func TestTracker_TagsMergeAcrossCalls(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	tracker.SetTag("a", "1")
	tracker.SetTag("b", "2")
	tracker.CaptureMessage("hi")

	events := sink.getEvents()
	tags := events[0].Tags
	if tags["a"] != "1" || tags["b"] != "2" {
		t.Errorf("Tags = %v, want both a=1 and b=2", tags)
	}
}

func TestTracker_ClearContextResetsNextEvent(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	tracker.SetUser(&User{ID: "42"})
	tracker.SetTags(map[string]string{"a": "1"})
	tracker.AddBreadcrumb(Breadcrumb{Message: "step"})

	tracker.ClearContext()

	if got := tracker.breadcrumbs.Count(); got != 0 {
		t.Errorf("breadcrumb count after ClearContext = %d, want 0", got)
	}

	tracker.CaptureMessage("after clear")
	event := sink.getEvents()[0]
	if event.User != nil {
		t.Errorf("User = %+v, want absent after clear", event.User)
	}
	if len(event.Tags) != 0 {
		t.Errorf("Tags = %v, want empty after clear", event.Tags)
	}
	if len(event.Breadcrumbs) != 0 {
		t.Errorf("Breadcrumbs = %v, want empty after clear", event.Breadcrumbs)
	}
}

func TestTracker_BreadcrumbsSnapshotIntoEvent(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	tracker.AddBreadcrumb(Breadcrumb{Type: BreadcrumbHTTP, Level: SeverityInfo, Message: "GET /"})
	tracker.AddBreadcrumb(Breadcrumb{Type: BreadcrumbCustom, Level: SeverityDebug, Message: "cache miss"})
	tracker.CaptureMessage("hi")

	event := sink.getEvents()[0]
	if len(event.Breadcrumbs) != 2 {
		t.Fatalf("Breadcrumbs = %+v, want 2 entries", event.Breadcrumbs)
	}
	if event.Breadcrumbs[0].Message != "GET /" || event.Breadcrumbs[1].Message != "cache miss" {
		t.Errorf("breadcrumbs out of order: %+v", event.Breadcrumbs)
	}
}

func TestAddBreadcrumb_StampsTimestampFromClock(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink

	clock := clockz.NewFakeClock()
	tracker, err := New(cfg, WithClock(clock), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.AddBreadcrumb(Breadcrumb{Message: "step"})

	crumbs := tracker.breadcrumbs.GetAll()
	if !crumbs[0].Timestamp.Equal(clock.Now()) {
		t.Errorf("Timestamp = %v, want clock time %v", crumbs[0].Timestamp, clock.Now())
	}
}

func TestBeforeBreadcrumb_NilResultDropsBreadcrumb(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.BeforeBreadcrumb = func(b *Breadcrumb) *Breadcrumb {
		if b.Message == "noisy" {
			return nil
		}
		return b
	}

	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.AddBreadcrumb(Breadcrumb{Message: "noisy"})
	tracker.AddBreadcrumb(Breadcrumb{Message: "useful"})

	crumbs := tracker.breadcrumbs.GetAll()
	if len(crumbs) != 1 || crumbs[0].Message != "useful" {
		t.Errorf("breadcrumbs = %+v, want only the useful one", crumbs)
	}
}

func TestBeforeBreadcrumb_ReplacementSupersedes(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.BeforeBreadcrumb = func(b *Breadcrumb) *Breadcrumb {
		b.Category = "hooked"
		return b
	}

	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.AddBreadcrumb(Breadcrumb{Message: "step"})

	crumbs := tracker.breadcrumbs.GetAll()
	if crumbs[0].Category != "hooked" {
		t.Errorf("Category = %q, want hook modification applied", crumbs[0].Category)
	}
}

func TestBeforeSend_NilResultSuppressesDelivery(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.BeforeSend = func(e *Event) *Event { return nil }

	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.CaptureMessage("hi")

	if got := len(sink.getEvents()); got != 0 {
		t.Errorf("Expected 0 events when before_send drops, got %d", got)
	}
}

func TestBeforeSend_ReplacementReachesSink(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.BeforeSend = func(e *Event) *Event {
		replacement := *e
		replacement.Message = "rewritten"
		return &replacement
	}

	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.CaptureMessage("original")

	events := sink.getEvents()
	if len(events) != 1 || events[0].Message != "rewritten" {
		t.Errorf("events = %+v, want the replacement", events)
	}
}

func TestBeforeSend_PanickingHookKeepsOriginalAndLogs(t *testing.T) {
	sink := &testSink{}
	var logBuf bytes.Buffer
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.BeforeSend = func(e *Event) *Event { panic("hook bug") }

	tracker, err := New(cfg, WithLogger(slog.New(slog.NewTextHandler(&logBuf, nil))))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.CaptureMessage("survives")

	events := sink.getEvents()
	if len(events) != 1 || events[0].Message != "survives" {
		t.Errorf("events = %+v, want original event kept", events)
	}
	if !strings.Contains(logBuf.String(), "before_send hook panicked") {
		t.Errorf("diagnostics missing hook panic report: %s", logBuf.String())
	}
}

func TestBeforeBreadcrumb_PanickingHookKeepsOriginal(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink
	cfg.BeforeBreadcrumb = func(b *Breadcrumb) *Breadcrumb { panic("hook bug") }

	tracker, err := New(cfg, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.AddBreadcrumb(Breadcrumb{Message: "kept"})

	crumbs := tracker.breadcrumbs.GetAll()
	if len(crumbs) != 1 || crumbs[0].Message != "kept" {
		t.Errorf("breadcrumbs = %+v, want original kept", crumbs)
	}
}

func TestSendEvent_SanitizesBeforeDelivery(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	tracker.SetExtra("password", "hunter2")
	tracker.SetTag("api_key", "sk-123")
	tracker.CaptureMessage("hi")

	event := sink.getEvents()[0]
	if event.Extra["password"] != sanitizedPlaceholder {
		t.Errorf("extra password reached sink unsanitized: %v", event.Extra["password"])
	}
	if event.Tags["api_key"] != sanitizedPlaceholder {
		t.Errorf("api_key tag reached sink unsanitized: %v", event.Tags["api_key"])
	}
}

func TestWithSanitizer_ZeroValueSanitizerStillCaptures(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink

	// The option must fill in defaults so a zero-value Sanitizer cannot
	// crash the capture path.
	tracker, err := New(cfg, WithSanitizer(&Sanitizer{}), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.SetTag("api_key", "sk-123")
	tracker.CaptureMessage("hi")

	events := sink.getEvents()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Tags["api_key"] != sanitizedPlaceholder {
		t.Errorf("api_key tag = %v, want redacted", events[0].Tags["api_key"])
	}
}

func TestSendEvent_PipelinePanicIsSwallowedAndLogged(t *testing.T) {
	sink := &testSink{}
	var logBuf bytes.Buffer
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink

	tracker, err := New(cfg, WithLogger(slog.New(slog.NewTextHandler(&logBuf, nil))))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	// Break the sanitize step outright; capture must survive anyway.
	tracker.sanitizer = nil

	tracker.SetTag("api_key", "sk-123")
	tracker.CaptureMessage("hi")

	if !strings.Contains(logBuf.String(), "send pipeline panicked") {
		t.Errorf("diagnostics missing pipeline panic: %s", logBuf.String())
	}
}

func TestSendEvent_DeliveryFailureIsSwallowedAndLogged(t *testing.T) {
	sink := &testSink{writeErr: errors.New("connection refused")}
	var logBuf bytes.Buffer
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink

	tracker, err := New(cfg, WithLogger(slog.New(slog.NewTextHandler(&logBuf, nil))))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	// Must not panic or propagate.
	tracker.CaptureMessage("hi")

	if !strings.Contains(logBuf.String(), "failed to deliver event") {
		t.Errorf("diagnostics missing delivery failure: %s", logBuf.String())
	}
	if !strings.Contains(logBuf.String(), "connection refused") {
		t.Errorf("diagnostics missing underlying error: %s", logBuf.String())
	}
}

func TestSendEvent_PanickingSinkIsSwallowed(t *testing.T) {
	var logBuf bytes.Buffer
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = panicSink{}

	tracker, err := New(cfg, WithLogger(slog.New(slog.NewTextHandler(&logBuf, nil))))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.CaptureMessage("hi")

	if !strings.Contains(logBuf.String(), "sink panicked") {
		t.Errorf("diagnostics missing sink panic: %s", logBuf.String())
	}
}

func TestCapture_LevelPrecedence(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	// Default for messages.
	tracker.CaptureMessage("a")
	// Context override.
	tracker.SetLevel(SeverityWarning)
	tracker.CaptureMessage("b")
	// Explicit option beats the override.
	tracker.CaptureMessage("c", WithLevel(SeverityFatal))

	events := sink.getEvents()
	if events[0].Level != SeverityInfo {
		t.Errorf("default level = %q, want info", events[0].Level)
	}
	if events[1].Level != SeverityWarning {
		t.Errorf("override level = %q, want warning", events[1].Level)
	}
	if events[2].Level != SeverityFatal {
		t.Errorf("explicit level = %q, want fatal", events[2].Level)
	}
}

func TestTracker_FingerprintAttachedToEvent(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	tracker.SetFingerprint([]string{"db", "timeout"})
	tracker.CaptureMessage("hi")

	event := sink.getEvents()[0]
	if len(event.Fingerprint) != 2 || event.Fingerprint[0] != "db" {
		t.Errorf("Fingerprint = %v", event.Fingerprint)
	}
}

func TestTracker_EventTimestampFromClock(t *testing.T) {
	sink := &testSink{}
	cfg := NewConfig("https://errors.test/ingest")
	cfg.Transport = sink

	clock := clockz.NewFakeClock()
	tracker, err := New(cfg, WithClock(clock), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tracker.CaptureMessage("hi")

	event := sink.getEvents()[0]
	if !event.Timestamp.Equal(clock.Now()) {
		t.Errorf("Timestamp = %v, want clock time %v", event.Timestamp, clock.Now())
	}
}

func TestFlush_SyncSinkReturnsTrue(t *testing.T) {
	sink := &testSink{}
	tracker := newTestTracker(t, sink)

	if !tracker.Flush(0) {
		t.Error("Flush of synchronous sink should return true")
	}
}

func TestFlush_FailedFlushReturnsFalse(t *testing.T) {
	sink := &testSink{flushErr: errors.New("still draining")}
	tracker := newTestTracker(t, sink)

	if tracker.Flush(0) {
		t.Error("Flush should return false when the sink fails to drain")
	}
}
