package search

import "github.com/embedius/semstore/schema"

// Contains reports whether meta contains filter: every filter key must be
// present with an equal value. Nested objects are matched recursively, so a
// filter object constrains only the keys it names. Numeric values compare by
// value regardless of the decoded Go type.
func Contains(meta schema.Metadata, filter map[string]any) bool {
	return containsObject(map[string]any(meta), filter)
}

func containsObject(have, want map[string]any) bool {
	for key, wv := range want {
		hv, ok := have[key]
		if !ok {
			return false
		}
		if !valueMatches(hv, wv) {
			return false
		}
	}
	return true
}

func valueMatches(have, want any) bool {
	if wobj, ok := want.(map[string]any); ok {
		hobj, ok := have.(map[string]any)
		if !ok {
			return false
		}
		return containsObject(hobj, wobj)
	}
	if wlist, ok := want.([]any); ok {
		hlist, ok := have.([]any)
		if !ok || len(hlist) != len(wlist) {
			return false
		}
		for i := range wlist {
			if !valueMatches(hlist[i], wlist[i]) {
				return false
			}
		}
		return true
	}
	if hn, ok := asFloat(have); ok {
		wn, ok := asFloat(want)
		return ok && hn == wn
	}
	return have == want
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
