// clone.go provides defensive deep copies for snapshot semantics.

package faultline

// cloneValue deep-copies the map/slice shapes the sanitizer understands.
// Scalars are returned as-is.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneAnyMap(v)
	case map[string]string:
		return cloneStringMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	default:
		return value
	}
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// cloneUser copies a user including its extra map.
func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Extra = cloneAnyMap(u.Extra)
	return &out
}

// cloneRequest copies a request snapshot including its header, cookie, and
// body containers.
func cloneRequest(r *Request) *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Headers = cloneStringMap(r.Headers)
	out.Cookies = cloneStringMap(r.Cookies)
	out.Data = cloneValue(r.Data)
	return &out
}
