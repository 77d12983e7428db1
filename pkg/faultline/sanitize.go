// sanitize.go implements recursive redaction of sensitive fields before delivery.

package faultline

import "strings"

// Placeholders written in place of redacted or truncated values.
const (
	sanitizedPlaceholder = "[Sanitized]"
	maxDepthPlaceholder  = "[Max Depth Reached]"
)

// defaultSensitiveKeys are case-insensitive substring markers: a key is
// sensitive when any marker is a substring of the lower-cased key, so
// "user_password" matches "password".
var defaultSensitiveKeys = []string{
	"password",
	"passwd",
	"secret",
	"api_key",
	"apikey",
	"access_token",
	"auth_token",
	"token",
	"credit_card",
	"card_number",
	"cvv",
	"ssn",
	"social_security_number",
	"email",
	"phone",
	"phone_number",
}

// SanitizerConfig controls sanitization behavior.
type SanitizerConfig struct {
	// SensitiveKeys overrides the default sensitive-key markers.
	// Matching is a case-insensitive substring test.
	SensitiveKeys []string

	// MaxDepth bounds recursion into nested structures (default: 10).
	// At the cutoff the entire subtree is replaced with a marker; the
	// sanitizer does not attempt cycle detection beyond this cap.
	MaxDepth int
}

// DefaultSanitizerConfig returns production-safe defaults.
func DefaultSanitizerConfig() SanitizerConfig {
	return SanitizerConfig{
		SensitiveKeys: defaultSensitiveKeys,
		MaxDepth:      10,
	}
}

// Sanitizer redacts sensitive fields from nested map/slice structures.
// It never mutates its input; every container in the result is newly
// allocated.
type Sanitizer struct {
	cfg SanitizerConfig
}

// NewSanitizer creates a sanitizer with the given configuration.
// Zero-valued fields fall back to defaults.
func NewSanitizer(cfg SanitizerConfig) *Sanitizer {
	if len(cfg.SensitiveKeys) == 0 {
		cfg.SensitiveKeys = defaultSensitiveKeys
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 10
	}
	return &Sanitizer{cfg: cfg}
}

// Sanitize walks a nested structure and returns a redacted copy.
// Scalars and nil pass through unchanged.
func (s *Sanitizer) Sanitize(value any) any {
	return s.sanitize(value, 0)
}

func (s *Sanitizer) sanitize(value any, depth int) any {
	if depth >= s.cfg.MaxDepth {
		return maxDepthPlaceholder
	}

	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if s.isSensitiveKey(key) {
				out[key] = redactedValue(val)
			} else {
				out[key] = s.sanitize(val, depth+1)
			}
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, val := range v {
			if s.isSensitiveKey(key) {
				out[key] = sanitizedPlaceholder
			} else {
				out[key] = val
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = s.sanitize(item, depth+1)
		}
		return out
	default:
		return value
	}
}

// SanitizeStringMap redacts sensitive keys in a flat string map (tags,
// headers, cookies). Returns a new map; nil in, nil out.
func (s *Sanitizer) SanitizeStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	// A misconfigured depth cap yields the marker instead of a map;
	// drop the data rather than panic.
	out, ok := s.sanitize(m, 0).(map[string]string)
	if !ok {
		return nil
	}
	return out
}

// SanitizeMap redacts sensitive keys in a free-form map.
// Returns a new map; nil in, nil out.
func (s *Sanitizer) SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, ok := s.sanitize(m, 0).(map[string]any)
	if !ok {
		return nil
	}
	return out
}

// SanitizeEvent returns a copy of the event with every map-valued region
// redacted: tags, extra, contexts, user extras, request headers/cookies/body,
// and breadcrumb data. Scalar fields pass through unchanged.
func (s *Sanitizer) SanitizeEvent(event Event) Event {
	event.Tags = s.SanitizeStringMap(event.Tags)
	event.Extra = s.SanitizeMap(event.Extra)
	event.Contexts = s.SanitizeMap(event.Contexts)

	if event.User != nil {
		user := *event.User
		user.Extra = s.SanitizeMap(user.Extra)
		event.User = &user
	}

	if event.Request != nil {
		req := *event.Request
		req.Headers = s.SanitizeStringMap(req.Headers)
		req.Cookies = s.SanitizeStringMap(req.Cookies)
		req.Data = s.Sanitize(req.Data)
		event.Request = &req
	}

	if event.Breadcrumbs != nil {
		crumbs := make([]Breadcrumb, len(event.Breadcrumbs))
		copy(crumbs, event.Breadcrumbs)
		for i := range crumbs {
			crumbs[i].Data = s.SanitizeMap(crumbs[i].Data)
		}
		event.Breadcrumbs = crumbs
	}

	return event
}

// isSensitiveKey checks a key against the sensitive markers.
func (s *Sanitizer) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, marker := range s.cfg.SensitiveKeys {
		if strings.Contains(keyLower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// redactedValue returns the type-appropriate placeholder for a sensitive
// value. Redacted values are never recursed into.
func redactedValue(value any) any {
	switch value.(type) {
	case string:
		return sanitizedPlaceholder
	case bool:
		return false
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return 0
	default:
		return sanitizedPlaceholder
	}
}
