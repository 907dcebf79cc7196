package search

import (
	"context"
	"fmt"

	"github.com/embedius/semstore/index"
	"github.com/embedius/semstore/schema"
)

// DefaultLimit is the number of matches returned when a query does not name
// one.
const DefaultLimit = 5

// DefaultOverFetch is the multiplier applied to the limit when a filter is
// present, so candidates discarded by the filter do not starve the result.
const DefaultOverFetch = 4

// DocumentSource resolves candidate ids from the index into full documents.
// The second return value is false when the id is unknown.
type DocumentSource interface {
	Document(ctx context.Context, id int64) (schema.Document, bool, error)
}

// Match pairs a document with its cosine similarity to the query.
type Match struct {
	schema.Document
	Similarity float64
}

// Engine answers filtered top-K similarity queries over an index and a
// document source.
type Engine struct {
	idx       index.Index
	docs      DocumentSource
	overFetch int
}

// Option configures an Engine.
type Option func(*Engine)

// WithOverFetch sets the candidate multiplier used under a filter.
func WithOverFetch(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.overFetch = n
		}
	}
}

// New returns an engine over the given index and document source.
func New(idx index.Index, docs DocumentSource, opts ...Option) *Engine {
	e := &Engine{idx: idx, docs: docs, overFetch: DefaultOverFetch}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns up to limit documents whose metadata contains filter,
// ordered by descending similarity with ties broken by ascending id. A
// limit <= 0 falls back to DefaultLimit; a nil or empty filter admits every
// document. When the over-fetched candidate set is thinned below the limit
// by the filter, the query escalates once to the full corpus, so a match
// that exists is never missed.
func (e *Engine) Search(ctx context.Context, query []float32, limit int, filter map[string]any) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	total := e.idx.Len()
	if total == 0 {
		return nil, nil
	}

	k := limit
	if len(filter) > 0 {
		k = limit * e.overFetch
	}
	if k > total {
		k = total
	}
	matches, err := e.fetch(ctx, query, k, limit, filter)
	if err != nil {
		return nil, err
	}
	if len(matches) < limit && len(filter) > 0 && k < total {
		return e.fetch(ctx, query, total, limit, filter)
	}
	return matches, nil
}

func (e *Engine) fetch(ctx context.Context, query []float32, k, limit int, filter map[string]any) ([]Match, error) {
	ids, scores, err := e.idx.Query(query, k)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}
	matches := make([]Match, 0, limit)
	for j, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, ok, err := e.docs.Document(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve document %d: %w", id, err)
		}
		if !ok {
			return nil, &schema.IndexCorruptionError{ID: id}
		}
		if len(filter) > 0 && !Contains(doc.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{Document: doc, Similarity: scores[j]})
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}
