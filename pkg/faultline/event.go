// event.go defines the canonical event data structures for faultline.

package faultline

import "time"

// SDK identity reported on every event.
const (
	sdkName    = "faultline-go"
	sdkVersion = "0.1.0"
)

// platform is the platform tag stamped on every event.
const platform = "go"

// Severity indicates the severity level of an event or breadcrumb.
type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// BreadcrumbType categorizes a breadcrumb trail entry.
type BreadcrumbType string

const (
	BreadcrumbNavigation BreadcrumbType = "navigation"
	BreadcrumbUser       BreadcrumbType = "user"
	BreadcrumbHTTP       BreadcrumbType = "http"
	BreadcrumbConsole    BreadcrumbType = "console"
	BreadcrumbCustom     BreadcrumbType = "custom"
)

// Breadcrumb is a timestamped trail entry describing activity leading up to
// a capture. Append-only once created.
type Breadcrumb struct {
	// Type categorizes the entry (navigation, user, http, console, custom).
	Type BreadcrumbType

	// Level is the severity of the entry.
	Level Severity

	// Message is an optional human-readable description.
	Message string

	// Category is an optional grouping label (e.g. "auth", "db.query").
	Category string

	// Data contains optional free-form structured data.
	Data map[string]any

	// Timestamp is when the entry was recorded. Filled in by the Tracker
	// if zero.
	Timestamp time.Time
}

// User identifies the user associated with an event.
// All fields are optional; absence means "unknown", not "empty string".
type User struct {
	ID        string
	Email     string
	Username  string
	IPAddress string

	// Extra holds additional open-ended user attributes. Merged into the
	// user object on the wire.
	Extra map[string]any
}

// Request is a snapshot of an inbound request at capture time.
// Captured by value: later mutation of the caller's live request must not
// change a previously captured event.
type Request struct {
	URL         string
	Method      string
	Headers     map[string]string
	QueryString string
	Data        any
	Cookies     map[string]string
}

// StackFrame is a single frame of an exception stack trace.
// Frames are ordered oldest call first.
type StackFrame struct {
	Filename string
	Function string
	Lineno   int
	Colno    int
	InApp    bool

	// Source context around the failing line, when available.
	ContextLine string
	PreContext  []string
	PostContext []string
}

// Mechanism describes how an exception was captured.
type Mechanism struct {
	// Type is the capture mechanism (e.g. "generic", "panic").
	Type string

	// Handled reports whether the error was handled by application code.
	Handled bool
}

// Exception is a single parsed exception record.
type Exception struct {
	// Type is the error's type name.
	Type string

	// Value is the error's string representation.
	Value string

	// Stacktrace holds frames in chronological (oldest first) order.
	// Nil when no stack was captured.
	Stacktrace []StackFrame

	// Mechanism describes how the exception reached the tracker.
	Mechanism *Mechanism
}

// SDK identifies the library that produced an event.
type SDK struct {
	Name    string
	Version string
}

// Event is the unit of output: a single capture, assembled from the current
// context and breadcrumb state. Immutable once assembled; mutation happens
// only via the before-send hook, which may return a replacement.
type Event struct {
	// EventID is a unique identifier: epoch-millis prefix plus a random
	// suffix. Uniqueness is advisory, not cryptographic.
	EventID string

	// Timestamp is when the event was assembled.
	Timestamp time.Time

	// Level is the event severity.
	Level Severity

	// Platform is the platform tag ("go").
	Platform string

	// Logger and Transaction are optional classification fields.
	Logger      string
	Transaction string

	// Deployment metadata from configuration.
	ServerName  string
	Release     string
	Environment string

	// Message is set for message captures; empty for exception captures.
	Message string

	// Exceptions holds parsed exception records, outermost first.
	// Nil for message captures.
	Exceptions []Exception

	// Breadcrumbs is the trail snapshot at assembly time, oldest first.
	Breadcrumbs []Breadcrumb

	// User and Request are context snapshots; nil when unset.
	User    *User
	Request *Request

	// Tags and Extra are the context mappings at assembly time.
	Tags  map[string]string
	Extra map[string]any

	// Contexts holds additional free-form context groups.
	Contexts map[string]any

	// Fingerprint is an ordered list of strings for server-side grouping.
	Fingerprint []string

	// SDK identifies the producing library.
	SDK SDK
}
