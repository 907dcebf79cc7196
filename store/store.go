package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/embedius/semstore/engine"
	"github.com/embedius/semstore/index"
	"github.com/embedius/semstore/index/bruteforce"
	"github.com/embedius/semstore/index/hnsw"
	"github.com/embedius/semstore/schema"
	"github.com/embedius/semstore/search"
	"github.com/embedius/semstore/vector"
)

// ErrEmptyContent rejects inserts whose content is empty.
var ErrEmptyContent = errors.New("store: document content must not be empty")

// createdAtLayout is how the store writes created_at. Reads also accept the
// CURRENT_TIMESTAMP format for rows written by the column default.
const createdAtLayout = time.RFC3339Nano

// Store couples a SQLite document table with an in-memory similarity index.
// The mutex orders writes against searches so the two views never diverge:
// a search observes either all of an insert or none of it.
type Store struct {
	db   *sql.DB
	cfg  Config
	log  Logger
	kind string

	mu  sync.RWMutex
	idx index.Index
}

// Open opens (creating if necessary) a document store on the given SQLite
// DSN. The similarity index is loaded from its persisted blob when one is
// current, otherwise rebuilt from the rows and persisted.
func Open(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	db, err := engine.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", dsn, err)
	}
	if err := engine.RegisterVectorFunctions(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db, cfg: cfg, log: cfg.Logger}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.loadOrBuildIndex(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{DocumentsTableDDL(s.cfg.Table), VectorStorageDDL()}
	stmts = append(stmts, IndexInvalidationTriggers(s.cfg.Table)...)
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: schema setup: %w", err)
		}
	}
	return nil
}

func (s *Store) newIndex(kind string) index.Index {
	if kind == IndexBrute {
		return &bruteforce.Index{}
	}
	var opts []hnsw.Option
	if s.cfg.HNSW.M > 0 {
		opts = append(opts, hnsw.WithM(s.cfg.HNSW.M))
	}
	if s.cfg.HNSW.EfConstruction > 0 {
		opts = append(opts, hnsw.WithEfConstruction(s.cfg.HNSW.EfConstruction))
	}
	if s.cfg.HNSW.EfSearch > 0 {
		opts = append(opts, hnsw.WithEfSearch(s.cfg.HNSW.EfSearch))
	}
	return hnsw.New(opts...)
}

func (s *Store) loadOrBuildIndex(ctx context.Context) error {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.cfg.Table)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("store: count documents: %w", err)
	}
	s.kind = resolveIndexKind(s.cfg.IndexKind, count)

	if idx, ok := s.loadPersistedIndex(ctx); ok {
		s.idx = idx
		return nil
	}
	idx, n, err := s.buildIndexFromRows(ctx)
	if err != nil {
		return err
	}
	s.idx = idx
	s.log.Printf("store: built %s index for %q from %d documents", s.kind, s.cfg.Table, n)
	s.persistIndex(ctx)
	return nil
}

// loadPersistedIndex returns the index restored from its blob, or false when
// no current blob exists. A blob that fails to decode is treated as absent;
// the rows remain the source of truth.
func (s *Store) loadPersistedIndex(ctx context.Context) (index.Index, bool) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT "index" FROM `+VectorStorageTable+` WHERE table_name = ? AND index_kind = ?`,
		s.cfg.Table, s.kind).Scan(&blob)
	if err != nil || len(blob) == 0 {
		return nil, false
	}
	idx := s.newIndex(s.kind)
	if err := idx.UnmarshalBinary(blob); err != nil {
		s.log.Printf("store: discarding undecodable %s index blob for %q: %v", s.kind, s.cfg.Table, err)
		return nil, false
	}
	return idx, true
}

func (s *Store) buildIndexFromRows(ctx context.Context) (index.Index, int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM `+s.cfg.Table+` ORDER BY id`)
	if err != nil {
		return nil, 0, fmt.Errorf("store: scan embeddings: %w", err)
	}
	defer rows.Close()
	var ids []int64
	var vecs [][]float32
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, 0, err
		}
		vec, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, 0, fmt.Errorf("store: document %d: %w", id, err)
		}
		ids = append(ids, id)
		vecs = append(vecs, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	idx := s.newIndex(s.kind)
	if err := idx.Build(ids, vecs); err != nil {
		return nil, 0, fmt.Errorf("store: build index: %w", err)
	}
	return idx, len(ids), nil
}

// persistIndex writes the current index blob. Persistence is an optimization
// over rebuild-on-open, so failures are logged rather than propagated.
func (s *Store) persistIndex(ctx context.Context) {
	data, err := s.idx.MarshalBinary()
	if err != nil {
		s.log.Printf("store: marshal %s index for %q: %v", s.kind, s.cfg.Table, err)
		return
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+VectorStorageTable+`(table_name, index_kind, "index") VALUES(?, ?, ?)`,
		s.cfg.Table, s.kind, data)
	if err != nil {
		s.log.Printf("store: persist %s index for %q: %v", s.kind, s.cfg.Table, err)
	}
}

// Insert validates and stores a new document, assigns its id, and indexes its
// embedding. Nothing is written when validation fails.
func (s *Store) Insert(ctx context.Context, content string, embedding []float32, meta schema.Metadata) (schema.Document, error) {
	if content == "" {
		return schema.Document{}, ErrEmptyContent
	}
	if len(embedding) != s.cfg.Dimension {
		return schema.Document{}, &schema.DimensionMismatchError{Expected: s.cfg.Dimension, Actual: len(embedding)}
	}
	meta = schema.ApplyDefaults(meta)
	if verr := schema.Validate(meta); verr != nil {
		return schema.Document{}, verr
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return schema.Document{}, fmt.Errorf("store: marshal metadata: %w", err)
	}
	blob, err := vector.EncodeEmbedding(embedding)
	if err != nil {
		return schema.Document{}, err
	}
	createdAt := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.cfg.Table+`(content, embedding, metadata, created_at) VALUES(?, ?, ?, ?)`,
		content, blob, string(metaJSON), createdAt.Format(createdAtLayout))
	if err != nil {
		return schema.Document{}, fmt.Errorf("store: insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return schema.Document{}, fmt.Errorf("store: resolve inserted id: %w", err)
	}
	if err := s.idx.Insert(id, embedding); err != nil {
		// The row committed but the index refused the id; the store is now
		// inconsistent and says so instead of hiding it.
		return schema.Document{}, &schema.IndexCorruptionError{ID: id}
	}
	return schema.Document{
		ID:        id,
		Content:   content,
		Embedding: append([]float32(nil), embedding...),
		Metadata:  meta,
		CreatedAt: createdAt,
	}, nil
}

// Delete removes a document and its index entry. Deleting an id that does
// not exist returns schema.ErrNotFound; the id is never reused either way.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.cfg.Table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete document %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("store: delete document %d: %w", id, schema.ErrNotFound)
	}
	s.idx.Delete(id)
	return nil
}

// Get returns the document with the given id, or schema.ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (schema.Document, error) {
	doc, ok, err := s.Document(ctx, id)
	if err != nil {
		return schema.Document{}, err
	}
	if !ok {
		return schema.Document{}, fmt.Errorf("store: document %d: %w", id, schema.ErrNotFound)
	}
	return doc, nil
}

// Document resolves an id to a document; it implements search.DocumentSource.
// It takes no lock: callers inside a search already hold the store lock.
func (s *Store) Document(ctx context.Context, id int64) (schema.Document, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content, embedding, metadata, created_at FROM `+s.cfg.Table+` WHERE id = ?`, id)
	var (
		content   string
		blob      []byte
		metaJSON  string
		createdAt string
	)
	if err := row.Scan(&content, &blob, &metaJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schema.Document{}, false, nil
		}
		return schema.Document{}, false, fmt.Errorf("store: read document %d: %w", id, err)
	}
	emb, err := vector.DecodeEmbedding(blob)
	if err != nil {
		return schema.Document{}, false, fmt.Errorf("store: document %d: %w", id, err)
	}
	var meta schema.Metadata
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return schema.Document{}, false, fmt.Errorf("store: document %d metadata: %w", id, err)
	}
	return schema.Document{
		ID:        id,
		Content:   content,
		Embedding: emb,
		Metadata:  meta,
		CreatedAt: parseCreatedAt(createdAt),
	}, true, nil
}

func parseCreatedAt(raw string) time.Time {
	for _, layout := range []string{createdAtLayout, "2006-01-02 15:04:05", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Search returns up to limit documents whose metadata contains filter,
// ranked by descending cosine similarity with ties broken by ascending id.
// A limit <= 0 uses the configured default.
func (s *Store) Search(ctx context.Context, query []float32, limit int, filter map[string]any) ([]search.Match, error) {
	if len(query) != s.cfg.Dimension {
		return nil, &schema.DimensionMismatchError{Expected: s.cfg.Dimension, Actual: len(query)}
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	eng := search.New(s.idx, s, search.WithOverFetch(s.cfg.OverFetch))
	return eng.Search(ctx, query, limit, filter)
}

// MatchDocuments is Search under its retrieval-API name: matchCount <= 0
// falls back to the configured default and a nil filter matches everything.
func (s *Store) MatchDocuments(ctx context.Context, queryEmbedding []float32, matchCount int, filter map[string]any) ([]search.Match, error) {
	return s.Search(ctx, queryEmbedding, matchCount, filter)
}

// MatchDocumentsExact ranks documents by cosine similarity computed in SQL
// via vec_cosine, bypassing the in-memory index. It is the exact baseline
// for verifying index results and serves queries while an index rebuilds.
func (s *Store) MatchDocumentsExact(ctx context.Context, query []float32, limit int) ([]search.Match, error) {
	if len(query) != s.cfg.Dimension {
		return nil, &schema.DimensionMismatchError{Expected: s.cfg.Dimension, Actual: len(query)}
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	queryBlob, err := vector.EncodeEmbedding(query)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, embedding, metadata, created_at, vec_cosine(embedding, ?) AS score
FROM `+s.cfg.Table+` ORDER BY score DESC, id ASC LIMIT ?`,
		queryBlob, limit)
	if err != nil {
		return nil, fmt.Errorf("store: exact match: %w", err)
	}
	defer rows.Close()

	var matches []search.Match
	for rows.Next() {
		var (
			id        int64
			content   string
			blob      []byte
			metaJSON  string
			createdAt string
			score     float64
		)
		if err := rows.Scan(&id, &content, &blob, &metaJSON, &createdAt, &score); err != nil {
			return nil, err
		}
		emb, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("store: document %d: %w", id, err)
		}
		var meta schema.Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("store: document %d metadata: %w", id, err)
		}
		matches = append(matches, search.Match{
			Document: schema.Document{
				ID:        id,
				Content:   content,
				Embedding: emb,
				Metadata:  meta,
				CreatedAt: parseCreatedAt(createdAt),
			},
			Similarity: score,
		})
	}
	return matches, rows.Err()
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.cfg.Table).Scan(&n)
	return n, err
}

// Reindex rebuilds the similarity index from the rows, re-resolving the
// index kind for the current corpus size, and persists the result.
func (s *Store) Reindex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.cfg.Table).Scan(&count); err != nil {
		return fmt.Errorf("store: count documents: %w", err)
	}
	s.kind = resolveIndexKind(s.cfg.IndexKind, count)
	idx, n, err := s.buildIndexFromRows(ctx)
	if err != nil {
		return err
	}
	s.idx = idx
	s.log.Printf("store: reindexed %q: %d documents, %s index", s.cfg.Table, n, s.kind)
	s.persistIndex(ctx)
	return nil
}

// Verify cross-checks the index against the rows: every indexed id must have
// a row and every row must be indexed. The first discrepancy is returned as
// an IndexCorruptionError.
func (s *Store) Verify(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM `+s.cfg.Table)
	if err != nil {
		return err
	}
	defer rows.Close()
	stored := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		stored[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	indexed := make(map[int64]struct{})
	if s.idx.Len() > 0 {
		ids, _, err := s.idx.Query(make([]float32, s.cfg.Dimension), 0)
		if err != nil {
			return err
		}
		for _, id := range ids {
			indexed[id] = struct{}{}
		}
	}
	for id := range indexed {
		if _, ok := stored[id]; !ok {
			return &schema.IndexCorruptionError{ID: id}
		}
	}
	for id := range stored {
		if _, ok := indexed[id]; !ok {
			return &schema.IndexCorruptionError{ID: id}
		}
	}
	return nil
}

// Close persists the index and releases the database. The persisted blob
// lets the next Open skip the rebuild scan.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistIndex(ctx)
	return s.db.Close()
}
