package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMetadata() Metadata {
	return Metadata{
		"source":   "file_system",
		"file_id":  "a1",
		"blobType": "markdown",
		"processing_info": map[string]any{
			"model":               "text-embedding-3-small",
			"embedding_dimension": 1536,
		},
	}
}

func TestValidateMinimalRequired(t *testing.T) {
	require.Nil(t, Validate(validMetadata()))
}

func TestValidateMissingRequired(t *testing.T) {
	for _, field := range []string{"source", "file_id", "blobType", "processing_info"} {
		meta := validMetadata()
		delete(meta, field)
		verr := Validate(meta)
		require.NotNil(t, verr, "expected failure without %s", field)
		assert.Equal(t, field, verr.Field)
		assert.True(t, verr.Missing)
	}
}

func TestValidateNullRequiredIsMissing(t *testing.T) {
	meta := validMetadata()
	meta["file_id"] = nil
	verr := Validate(meta)
	require.NotNil(t, verr)
	assert.Equal(t, "file_id", verr.Field)
	assert.True(t, verr.Missing)
}

func TestValidateMissingProcessingInfoMembers(t *testing.T) {
	meta := validMetadata()
	delete(meta["processing_info"].(map[string]any), "model")
	verr := Validate(meta)
	require.NotNil(t, verr)
	assert.Equal(t, "processing_info.model", verr.Field)
	assert.True(t, verr.Missing)

	meta = validMetadata()
	meta["processing_info"].(map[string]any)["embedding_dimension"] = nil
	verr = Validate(meta)
	require.NotNil(t, verr)
	assert.Equal(t, "processing_info.embedding_dimension", verr.Field)
	assert.True(t, verr.Missing)
}

func TestValidateTypeMismatches(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(Metadata)
		field    string
		expected FieldType
	}{
		{"source not string", func(m Metadata) { m["source"] = 42 }, "source", TypeString},
		{"file_size not integer", func(m Metadata) { m["file_size"] = "big" }, "file_size", TypeInteger},
		{"file_size fractional", func(m Metadata) { m["file_size"] = 12.5 }, "file_size", TypeInteger},
		{"is_truncated not boolean", func(m Metadata) { m["is_truncated"] = "yes" }, "is_truncated", TypeBoolean},
		{"last_modified not timestamp", func(m Metadata) { m["last_modified"] = 1234567890 }, "last_modified", TypeTimestamp},
		{"last_modified garbage string", func(m Metadata) { m["last_modified"] = "yesterday" }, "last_modified", TypeTimestamp},
		{"processing_info not object", func(m Metadata) { m["processing_info"] = "none" }, "processing_info", TypeObject},
		{
			"embedding_dimension not integer",
			func(m Metadata) { m["processing_info"].(map[string]any)["embedding_dimension"] = "1536" },
			"processing_info.embedding_dimension", TypeInteger,
		},
		{
			"processed_at not timestamp",
			func(m Metadata) { m["processing_info"].(map[string]any)["processed_at"] = true },
			"processing_info.processed_at", TypeTimestamp,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			meta := validMetadata()
			tc.mutate(meta)
			verr := Validate(meta)
			require.NotNil(t, verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, tc.expected, verr.Expected)
			assert.False(t, verr.Missing)
		})
	}
}

func TestValidateOptionalAbsenceAndNullLegal(t *testing.T) {
	meta := validMetadata()
	meta["file_size"] = nil
	meta["last_modified"] = nil
	require.Nil(t, Validate(meta))
}

func TestValidateTimestampLayouts(t *testing.T) {
	for _, ts := range []string{
		"2024-05-01T10:30:00Z",
		"2024-05-01T10:30:00.123456Z",
		"2024-05-01T10:30:00",
		"2024-05-01 10:30:00",
		"2024-05-01",
	} {
		meta := validMetadata()
		meta["last_modified"] = ts
		assert.Nil(t, Validate(meta), "timestamp %q should validate", ts)
	}
}

func TestValidateIntegerFromJSONDecode(t *testing.T) {
	// JSON decoding yields float64 for numbers; integral values must pass.
	raw := `{"source":"s","file_id":"f","blobType":"b",
		"file_size":1024,
		"processing_info":{"model":"m","embedding_dimension":3}}`
	var meta Metadata
	require.NoError(t, json.Unmarshal([]byte(raw), &meta))
	require.Nil(t, Validate(meta))
}

func TestValidatePure(t *testing.T) {
	meta := validMetadata()
	before, err := json.Marshal(meta)
	require.NoError(t, err)
	_ = Validate(meta)
	after, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}
