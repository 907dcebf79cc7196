package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/embedius/semstore/config"
	"github.com/embedius/semstore/schema"
	"github.com/embedius/semstore/search"
	"github.com/embedius/semstore/store"
)

// EmbedFunc converts free-form text into an embedding.
//
// Implementations can call any embedding provider (OpenAI, local model,
// other cloud APIs, etc.) as long as they return a slice of float32 values
// of the store's dimension.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Defaults stamped into metadata when the caller does not provide them.
const (
	defaultSource   = "notes"
	defaultBlobType = "text/plain"
)

// Service wraps a store with an embedding provider.
type Service struct {
	store *store.Store
	embed EmbedFunc
	model string
	dim   int
}

// NewService returns a service over an already-open store. The model name is
// recorded in each note's processing metadata.
func NewService(st *store.Store, embed EmbedFunc, model string, dim int) (*Service, error) {
	if st == nil {
		return nil, errors.New("notes: store is nil")
	}
	if embed == nil {
		return nil, errors.New("notes: EmbedFunc is nil")
	}
	if model == "" {
		model = schema.DefaultEmbeddingModel
	}
	if dim <= 0 {
		dim = schema.DefaultEmbeddingDim
	}
	return &Service{store: st, embed: embed, model: model, dim: dim}, nil
}

// FromConfig validates cfg, opens the configured store, and wraps it.
func FromConfig(ctx context.Context, cfg *config.Config, embed EmbedFunc) (*Service, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("notes: invalid config: %v", errs[0])
	}
	st, err := store.Open(ctx, cfg.Database.Path, cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	return NewService(st, embed, cfg.Embedding.Model, cfg.Database.VectorDim)
}

// AddNote embeds content and stores it. Missing provenance fields are
// stamped with the service's identity: source, blobType, a generated
// file_id, and the processing block recording the model, dimension, and
// processing time. Caller-supplied values always win.
func (s *Service) AddNote(ctx context.Context, content string, meta schema.Metadata) (schema.Document, error) {
	vec, err := s.embed(ctx, content)
	if err != nil {
		return schema.Document{}, fmt.Errorf("notes: embed content: %w", err)
	}
	return s.store.Insert(ctx, content, vec, s.stampMetadata(meta))
}

func (s *Service) stampMetadata(meta schema.Metadata) schema.Metadata {
	out := meta.Clone()
	if out == nil {
		out = schema.Metadata{}
	}
	if v, ok := out["source"]; !ok || v == nil {
		out["source"] = defaultSource
	}
	if v, ok := out["blobType"]; !ok || v == nil {
		out["blobType"] = defaultBlobType
	}
	if v, ok := out["file_id"]; !ok || v == nil {
		out["file_id"] = fmt.Sprintf("note-%d", time.Now().UnixNano())
	}
	pi, ok := out["processing_info"].(map[string]any)
	if !ok {
		pi = map[string]any{}
		out["processing_info"] = pi
	}
	if v, ok := pi["model"]; !ok || v == nil {
		pi["model"] = s.model
	}
	if v, ok := pi["embedding_dimension"]; !ok || v == nil {
		pi["embedding_dimension"] = s.dim
	}
	if v, ok := pi["processed_at"]; !ok || v == nil {
		pi["processed_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	return out
}

// SearchNotes embeds the query text and returns the closest notes whose
// metadata contains filter.
func (s *Service) SearchNotes(ctx context.Context, query string, limit int, filter map[string]any) ([]search.Match, error) {
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("notes: embed query: %w", err)
	}
	return s.store.Search(ctx, vec, limit, filter)
}

// SearchNotesByVector searches with an already-computed embedding.
func (s *Service) SearchNotesByVector(ctx context.Context, vec []float32, limit int, filter map[string]any) ([]search.Match, error) {
	return s.store.Search(ctx, vec, limit, filter)
}

// GetNote returns the note with the given id, or schema.ErrNotFound.
func (s *Service) GetNote(ctx context.Context, id int64) (schema.Document, error) {
	return s.store.Get(ctx, id)
}

// DeleteNote removes the note with the given id, or schema.ErrNotFound.
func (s *Service) DeleteNote(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Store exposes the underlying store for administrative operations.
func (s *Service) Store() *store.Store { return s.store }

// Close releases the underlying store.
func (s *Service) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
