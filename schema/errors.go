package schema

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a requested document does not exist. Deleting or
// looking up a nonexistent id is an expected negative outcome, not a fault.
var ErrNotFound = errors.New("document not found")

// FieldType names the declared type of a metadata field.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeInteger   FieldType = "integer"
	TypeBoolean   FieldType = "boolean"
	TypeTimestamp FieldType = "timestamp"
	TypeObject    FieldType = "object"
)

// ValidationError reports a structurally unsound write: either a required
// field is missing or null, or a present field does not parse as its
// declared type. It is raised before any mutation is committed.
type ValidationError struct {
	// Field is the offending field, dotted for nested paths
	// (e.g. "processing_info.model").
	Field string

	// Expected is the declared type; empty for missing-field errors.
	Expected FieldType

	// Missing is true when the field is absent or null.
	Missing bool
}

func (e *ValidationError) Error() string {
	if e.Missing {
		return fmt.Sprintf("metadata: required field %q is missing or null", e.Field)
	}
	return fmt.Sprintf("metadata: field %q is not a valid %s", e.Field, e.Expected)
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Missing: true}
}

func typeMismatch(field string, want FieldType) *ValidationError {
	return &ValidationError{Field: field, Expected: want}
}

// DimensionMismatchError indicates an embedding or query vector whose length
// differs from the store-wide dimension. It points at a provider or
// configuration mismatch upstream and fails the single operation.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// IndexCorruptionError indicates the similarity index references a document
// that no longer exists in the record table. It is an internal invariant
// violation and is surfaced loudly rather than silently dropped.
type IndexCorruptionError struct {
	ID int64
}

func (e *IndexCorruptionError) Error() string {
	return fmt.Sprintf("index corruption: index references missing document %d", e.ID)
}
