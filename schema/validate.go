package schema

import (
	"encoding/json"
	"math"
	"time"
)

// timestampLayouts are accepted for timestamp-typed metadata fields,
// most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Validate checks the structural constraints of a metadata object and
// returns nil when it is sound. It is a pure function: no defaults are
// applied here (the store applies them first via ApplyDefaults) and nothing
// is mutated.
//
// Required fields fail with a missing-field error when absent or null;
// present fields of the wrong type fail with a type-mismatch error naming
// the declared type.
func Validate(meta Metadata) *ValidationError {
	// Required top-level strings, in a fixed order so the first failure is
	// deterministic.
	for _, field := range []string{"source", "file_id", "blobType"} {
		v, ok := meta[field]
		if !ok || v == nil {
			return missingField(field)
		}
		if _, ok := v.(string); !ok {
			return typeMismatch(field, TypeString)
		}
	}

	pi, ok := meta["processing_info"]
	if !ok || pi == nil {
		return missingField("processing_info")
	}
	piMap, ok := asObject(pi)
	if !ok {
		return typeMismatch("processing_info", TypeObject)
	}
	model, ok := piMap["model"]
	if !ok || model == nil {
		return missingField("processing_info.model")
	}
	if _, ok := model.(string); !ok {
		return typeMismatch("processing_info.model", TypeString)
	}
	dim, ok := piMap["embedding_dimension"]
	if !ok || dim == nil {
		return missingField("processing_info.embedding_dimension")
	}
	if !isInteger(dim) {
		return typeMismatch("processing_info.embedding_dimension", TypeInteger)
	}
	if at, ok := piMap["processed_at"]; ok && at != nil && !isTimestamp(at) {
		return typeMismatch("processing_info.processed_at", TypeTimestamp)
	}

	// Optional typed fields: absence and null are legal, wrong type is not.
	for field, want := range optionalFields {
		v, ok := meta[field]
		if !ok || v == nil {
			continue
		}
		if !hasType(v, want) {
			return typeMismatch(field, want)
		}
	}
	return nil
}

func hasType(v any, want FieldType) bool {
	switch want {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInteger:
		return isInteger(v)
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeTimestamp:
		return isTimestamp(v)
	case TypeObject:
		_, ok := asObject(v)
		return ok
	}
	return false
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Metadata:
		return m, true
	}
	return nil, false
}

// isInteger accepts native Go integers plus the forms JSON decoding
// produces: float64 with an integral value and json.Number.
func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return n == math.Trunc(n) && !math.IsInf(n, 0)
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	return false
}

func isTimestamp(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
