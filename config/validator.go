package config

import (
	"fmt"

	"github.com/embedius/semstore/store"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Database.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "database.path",
			Message: "database path is required",
		})
	}

	if c.Database.TableName == "" {
		errors = append(errors, ValidationError{
			Field:   "database.table_name",
			Message: "table_name is required",
		})
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	switch c.Index.Kind {
	case store.IndexAuto, store.IndexBrute, store.IndexHNSW:
	default:
		errors = append(errors, ValidationError{
			Field:   "index.kind",
			Message: fmt.Sprintf("unknown index kind: %s", c.Index.Kind),
		})
	}

	if c.Index.M < 0 || c.Index.EfConstruction < 0 || c.Index.EfSearch < 0 {
		errors = append(errors, ValidationError{
			Field:   "index",
			Message: "hnsw parameters must be non-negative",
		})
	}

	if c.Search.DefaultLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.default_limit",
			Message: "default_limit must be positive",
		})
	}

	if c.Search.OverFetch < 2 {
		errors = append(errors, ValidationError{
			Field:   "search.over_fetch",
			Message: "over_fetch must be at least 2",
		})
	}

	if c.Embedding.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "embedding.model",
			Message: "embedding model is required",
		})
	}

	return errors
}
