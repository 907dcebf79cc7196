package store

import (
	"fmt"

	"github.com/embedius/semstore/schema"
	"github.com/embedius/semstore/search"
)

// Index kinds accepted by Config.IndexKind.
const (
	IndexAuto  = "auto"
	IndexBrute = "brute"
	IndexHNSW  = "hnsw"
)

// autoHNSWMinDocs is the corpus size at which "auto" switches from the exact
// scan to the graph index.
const autoHNSWMinDocs = 1000

// Logger is the minimal logging surface the store needs. The default is a
// no-op; pass a *log.Logger or any compatible implementation to observe
// index rebuilds and persistence.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// HNSWOptions tunes the graph index. Zero values keep the package defaults.
type HNSWOptions struct {
	M              int
	EfConstruction int
	EfSearch       int
}

// Config configures a Store. The zero value is usable: every field has a
// default applied by Open.
type Config struct {
	// Table is the document table name. Defaults to "documents".
	Table string

	// Dimension is the store-wide embedding dimension. Every stored and
	// queried vector must have exactly this length. Defaults to 1536.
	Dimension int

	// DefaultLimit is the match count used when a search does not name one.
	// Defaults to 5.
	DefaultLimit int

	// IndexKind selects the similarity index: "auto", "brute", or "hnsw".
	// Auto picks brute for small corpora and hnsw beyond autoHNSWMinDocs.
	IndexKind string

	// OverFetch is the candidate multiplier used under a metadata filter.
	OverFetch int

	// HNSW tunes the graph index when it is selected.
	HNSW HNSWOptions

	// Logger receives operational messages. Defaults to a no-op.
	Logger Logger
}

func (c *Config) applyDefaults() {
	if c.Table == "" {
		c.Table = "documents"
	}
	if c.Dimension <= 0 {
		c.Dimension = schema.DefaultEmbeddingDim
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = search.DefaultLimit
	}
	if c.IndexKind == "" {
		c.IndexKind = IndexAuto
	}
	if c.OverFetch <= 1 {
		c.OverFetch = search.DefaultOverFetch
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
}

func (c *Config) validate() error {
	if !validIdentifier(c.Table) {
		return fmt.Errorf("store: invalid table name %q", c.Table)
	}
	switch c.IndexKind {
	case IndexAuto, IndexBrute, IndexHNSW:
	default:
		return fmt.Errorf("store: unknown index kind %q", c.IndexKind)
	}
	return nil
}

// resolveIndexKind maps "auto" to a concrete kind for the given corpus size.
func resolveIndexKind(kind string, docCount int) string {
	if kind != IndexAuto {
		return kind
	}
	if docCount >= autoHNSWMinDocs {
		return IndexHNSW
	}
	return IndexBrute
}
