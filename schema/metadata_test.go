package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsFillsOptionalOnly(t *testing.T) {
	out := ApplyDefaults(Metadata{
		"source":   "file_system",
		"file_id":  "a1",
		"blobType": "markdown",
		"processing_info": map[string]any{
			"model":               "m",
			"embedding_dimension": 3,
		},
	})

	// Optional fields present after defaulting.
	for _, field := range []string{
		"loc", "filename", "path", "directory", "file_extension",
		"file_size", "file_hash", "content_length", "last_modified", "created_at",
	} {
		v, ok := out[field]
		assert.True(t, ok, "expected default for %s", field)
		assert.Nil(t, v, "default for %s should be null", field)
	}
	assert.Equal(t, false, out["is_truncated"])

	pi, ok := out["processing_info"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, pi, "processed_at")
	assert.Nil(t, pi["processed_at"])

	// Defaulted metadata with all required fields supplied validates.
	require.Nil(t, Validate(out))
}

func TestApplyDefaultsNeverSuppliesRequired(t *testing.T) {
	out := ApplyDefaults(Metadata{})
	for _, field := range []string{"source", "file_id", "blobType"} {
		_, ok := out[field]
		assert.False(t, ok, "%s must not be defaulted", field)
	}
	pi, ok := out["processing_info"].(map[string]any)
	require.True(t, ok)
	_, ok = pi["model"]
	assert.False(t, ok, "processing_info.model must not be defaulted")
	_, ok = pi["embedding_dimension"]
	assert.False(t, ok, "processing_info.embedding_dimension must not be defaulted")
}

func TestApplyDefaultsPreservesCallerValues(t *testing.T) {
	out := ApplyDefaults(Metadata{
		"is_truncated": true,
		"path":         "/srv/notes/a.md",
		"processing_info": map[string]any{
			"processed_at": "2024-05-01T10:30:00Z",
		},
	})
	assert.Equal(t, true, out["is_truncated"])
	assert.Equal(t, "/srv/notes/a.md", out["path"])
	pi := out["processing_info"].(map[string]any)
	assert.Equal(t, "2024-05-01T10:30:00Z", pi["processed_at"])
}

func TestApplyDefaultsDoesNotMutateInput(t *testing.T) {
	in := Metadata{"source": "s"}
	_ = ApplyDefaults(in)
	assert.Len(t, in, 1)
}

func TestDefaultMetadataJSONRoundTrip(t *testing.T) {
	var meta Metadata
	require.NoError(t, json.Unmarshal([]byte(DefaultMetadataJSON()), &meta))
	assert.Equal(t, "file_system", meta["source"])
	assert.Equal(t, "markdown", meta["blobType"])
	pi, ok := meta["processing_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, DefaultEmbeddingModel, pi["model"])
	assert.EqualValues(t, DefaultEmbeddingDim, pi["embedding_dimension"])
	// The column default leaves file_id null, so a row written without
	// explicit metadata is still rejected by the validator.
	verr := Validate(meta)
	require.NotNil(t, verr)
	assert.Equal(t, "file_id", verr.Field)
	assert.True(t, verr.Missing)
}
