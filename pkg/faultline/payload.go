// payload.go builds the wire representation of an event.

package faultline

import "time"

// epochSeconds converts a timestamp to epoch seconds with millisecond
// precision, the unit used on the wire.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000.0
}

// eventPayload converts an event to its wire shape: a snake_case keyed
// object with optional fields present only when non-empty.
func eventPayload(event Event) map[string]any {
	payload := map[string]any{
		"timestamp": epochSeconds(event.Timestamp),
		"level":     string(event.Level),
		"platform":  event.Platform,
	}

	if event.EventID != "" {
		payload["event_id"] = event.EventID
	}
	if event.Logger != "" {
		payload["logger"] = event.Logger
	}
	if event.Transaction != "" {
		payload["transaction"] = event.Transaction
	}
	if event.ServerName != "" {
		payload["server_name"] = event.ServerName
	}
	if event.Release != "" {
		payload["release"] = event.Release
	}
	if event.Environment != "" {
		payload["environment"] = event.Environment
	}
	if event.Message != "" {
		payload["message"] = event.Message
	}

	if len(event.Exceptions) > 0 {
		values := make([]map[string]any, 0, len(event.Exceptions))
		for _, exc := range event.Exceptions {
			values = append(values, exceptionPayload(exc))
		}
		payload["exception"] = map[string]any{"values": values}
	}

	if len(event.Breadcrumbs) > 0 {
		crumbs := make([]map[string]any, 0, len(event.Breadcrumbs))
		for _, crumb := range event.Breadcrumbs {
			crumbs = append(crumbs, breadcrumbPayload(crumb))
		}
		payload["breadcrumbs"] = crumbs
	}

	if event.User != nil {
		payload["user"] = userPayload(event.User)
	}
	if event.Request != nil {
		payload["request"] = requestPayload(event.Request)
	}
	if len(event.Tags) > 0 {
		payload["tags"] = event.Tags
	}
	if len(event.Extra) > 0 {
		payload["extra"] = event.Extra
	}
	if len(event.Contexts) > 0 {
		payload["contexts"] = event.Contexts
	}
	if len(event.Fingerprint) > 0 {
		payload["fingerprint"] = event.Fingerprint
	}

	payload["sdk"] = map[string]any{
		"name":    event.SDK.Name,
		"version": event.SDK.Version,
	}

	return payload
}

func exceptionPayload(exc Exception) map[string]any {
	out := map[string]any{
		"type":  exc.Type,
		"value": exc.Value,
	}

	if len(exc.Stacktrace) > 0 {
		frames := make([]map[string]any, 0, len(exc.Stacktrace))
		for _, frame := range exc.Stacktrace {
			frames = append(frames, framePayload(frame))
		}
		out["stacktrace"] = map[string]any{"frames": frames}
	}

	if exc.Mechanism != nil {
		out["mechanism"] = map[string]any{
			"type":    exc.Mechanism.Type,
			"handled": exc.Mechanism.Handled,
		}
	}

	return out
}

func framePayload(frame StackFrame) map[string]any {
	out := map[string]any{
		"filename": frame.Filename,
		"function": frame.Function,
		"lineno":   frame.Lineno,
		"in_app":   frame.InApp,
	}
	if frame.Colno != 0 {
		out["colno"] = frame.Colno
	}
	if frame.ContextLine != "" {
		out["context_line"] = frame.ContextLine
	}
	if len(frame.PreContext) > 0 {
		out["pre_context"] = frame.PreContext
	}
	if len(frame.PostContext) > 0 {
		out["post_context"] = frame.PostContext
	}
	return out
}

func breadcrumbPayload(crumb Breadcrumb) map[string]any {
	out := map[string]any{
		"type":      string(crumb.Type),
		"level":     string(crumb.Level),
		"timestamp": epochSeconds(crumb.Timestamp),
	}
	if crumb.Message != "" {
		out["message"] = crumb.Message
	}
	if crumb.Category != "" {
		out["category"] = crumb.Category
	}
	if len(crumb.Data) > 0 {
		out["data"] = crumb.Data
	}
	return out
}

// userPayload merges open-ended extras into the user object itself.
// Well-known fields win on key collision.
func userPayload(user *User) map[string]any {
	out := make(map[string]any, len(user.Extra)+4)
	for k, v := range user.Extra {
		out[k] = v
	}
	if user.ID != "" {
		out["id"] = user.ID
	}
	if user.Email != "" {
		out["email"] = user.Email
	}
	if user.Username != "" {
		out["username"] = user.Username
	}
	if user.IPAddress != "" {
		out["ip_address"] = user.IPAddress
	}
	return out
}

func requestPayload(req *Request) map[string]any {
	out := make(map[string]any, 6)
	if req.URL != "" {
		out["url"] = req.URL
	}
	if req.Method != "" {
		out["method"] = req.Method
	}
	if len(req.Headers) > 0 {
		out["headers"] = req.Headers
	}
	if req.QueryString != "" {
		out["query_string"] = req.QueryString
	}
	if req.Data != nil {
		out["data"] = req.Data
	}
	if len(req.Cookies) > 0 {
		out["cookies"] = req.Cookies
	}
	return out
}
