// Package httpmw integrates faultline with net/http request handling.
//
// The middleware snapshots each inbound request into the tracker, records a
// navigation breadcrumb, and captures panics as unhandled fatal events
// before re-panicking so the surrounding server (or recoverer middleware)
// keeps owning error propagation. It works with any router that accepts
// standard middleware, including chi.
package httpmw

import (
	"net/http"
	"strings"

	"github.com/strongdm/faultline/pkg/faultline"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	userFor func(*http.Request) *faultline.User
}

// WithUserExtractor derives the event user from the inbound request, e.g.
// from a session cookie or auth header. Return nil for anonymous requests.
func WithUserExtractor(fn func(*http.Request) *faultline.User) Option {
	return func(c *config) {
		c.userFor = fn
	}
}

// Middleware returns standard net/http middleware wired to the tracker.
//
// Per request it sets the request snapshot (and user, when an extractor is
// configured), adds a navigation breadcrumb, and clears the request
// context when the handler returns. A panicking handler is captured and
// then re-panicked.
func Middleware(tracker *faultline.Tracker, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracker.SetRequest(SnapshotRequest(r))
			if cfg.userFor != nil {
				tracker.SetUser(cfg.userFor(r))
			}
			tracker.AddBreadcrumb(faultline.Breadcrumb{
				Type:     faultline.BreadcrumbNavigation,
				Level:    faultline.SeverityInfo,
				Category: "http",
				Message:  r.Method + " " + r.URL.Path,
			})

			defer func() {
				if rec := recover(); rec != nil {
					tracker.CapturePanic(rec)
					tracker.SetRequest(nil)
					panic(rec)
				}
				tracker.SetRequest(nil)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SnapshotRequest converts an inbound request into a faultline request
// snapshot: url, method, headers, query string, and cookies. The body is
// not read.
func SnapshotRequest(r *http.Request) *faultline.Request {
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		headers[name] = strings.Join(values, ", ")
	}

	var cookies map[string]string
	if reqCookies := r.Cookies(); len(reqCookies) > 0 {
		cookies = make(map[string]string, len(reqCookies))
		for _, c := range reqCookies {
			cookies[c.Name] = c.Value
		}
	}

	return &faultline.Request{
		URL:         requestURL(r),
		Method:      r.Method,
		Headers:     headers,
		QueryString: r.URL.RawQuery,
		Cookies:     cookies,
	}
}

// requestURL reconstructs the full URL of a server-side request.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}
