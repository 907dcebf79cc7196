package schema

import "time"

// Metadata is the open mapping of string keys to JSON-like values carried by
// every document. A required substructure (see Validate) describes the
// document's provenance and processing history; everything else is free-form.
type Metadata map[string]any

// Document is the sole persisted entity. The id is assigned by the store on
// insert, is monotonically increasing, and never changes; content and
// embedding are immutable once committed.
type Document struct {
	// ID is the primary identity of the document.
	ID int64

	// Content is the non-empty text payload.
	Content string

	// Embedding is the vector representation of the content. Every stored
	// embedding has exactly the store-wide dimension.
	Embedding []float32

	// Metadata holds the structured attributes owned by this document.
	Metadata Metadata

	// CreatedAt is assigned at insertion time and never mutated.
	CreatedAt time.Time
}

// Clone returns a copy of the metadata one level deep for the fields that
// matter here: nested objects are copied recursively so callers can mutate
// the result without aliasing the original.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = map[string]any(Metadata(nested).Clone())
			continue
		}
		out[k] = v
	}
	return out
}
