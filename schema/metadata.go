package schema

import "encoding/json"

// DefaultEmbeddingDim is the dimension of the reference deployment's
// embedding model (text-embedding-3-small).
const DefaultEmbeddingDim = 1536

// DefaultEmbeddingModel is the embedding model recorded by the persisted
// schema's column default.
const DefaultEmbeddingModel = "text-embedding-3-small"

// optionalFields declares the type of every optional top-level metadata
// field. Absence (or an explicit null) is always legal; presence of a value
// that does not parse as the declared type is not.
var optionalFields = map[string]FieldType{
	"filename":       TypeString,
	"path":           TypeString,
	"directory":      TypeString,
	"file_extension": TypeString,
	"file_hash":      TypeString,
	"file_size":      TypeInteger,
	"content_length": TypeInteger,
	"is_truncated":   TypeBoolean,
	"last_modified":  TypeTimestamp,
	"created_at":     TypeTimestamp,
}

// DefaultMetadata returns the full default metadata object of the persisted
// schema. It is used as the column default for rows written outside the
// store façade; the façade itself defaults only optional fields (see
// ApplyDefaults) so that required fields are still the caller's
// responsibility.
func DefaultMetadata() Metadata {
	return Metadata{
		"loc":            nil,
		"source":         "file_system",
		"file_id":        nil,
		"blobType":       "markdown",
		"filename":       nil,
		"path":           nil,
		"directory":      nil,
		"file_extension": nil,
		"file_size":      nil,
		"file_hash":      nil,
		"content_length": nil,
		"is_truncated":   false,
		"last_modified":  nil,
		"created_at":     nil,
		"processing_info": map[string]any{
			"model":               DefaultEmbeddingModel,
			"processed_at":        nil,
			"embedding_dimension": DefaultEmbeddingDim,
		},
	}
}

// DefaultMetadataJSON renders DefaultMetadata as canonical JSON, suitable
// for embedding in the documents table DDL as the column default.
func DefaultMetadataJSON() string {
	data, err := json.Marshal(DefaultMetadata())
	if err != nil {
		// The default object is a compile-time constant shape; a marshal
		// failure here is a programming error.
		panic(err)
	}
	return string(data)
}

// ApplyDefaults returns a copy of meta with every omitted optional field
// filled from the default object. Required fields (source, file_id,
// blobType, processing_info.model, processing_info.embedding_dimension) are
// never defaulted: validation must see what the caller actually supplied.
func ApplyDefaults(meta Metadata) Metadata {
	out := meta.Clone()
	if out == nil {
		out = Metadata{}
	}
	setIfAbsent := func(m map[string]any, key string, val any) {
		if _, ok := m[key]; !ok {
			m[key] = val
		}
	}
	setIfAbsent(out, "loc", nil)
	for field := range optionalFields {
		var def any
		if field == "is_truncated" {
			def = false
		}
		setIfAbsent(out, field, def)
	}
	if _, ok := out["processing_info"]; !ok {
		out["processing_info"] = map[string]any{}
	}
	if pi, ok := out["processing_info"].(map[string]any); ok {
		setIfAbsent(pi, "processed_at", nil)
	}
	return out
}
