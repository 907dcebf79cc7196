package store

import (
	"fmt"
	"strings"

	"github.com/embedius/semstore/schema"
)

// VectorStorageTable holds one persisted index blob per document table and
// index kind.
const VectorStorageTable = "vector_storage"

// DocumentsTableDDL returns the DDL for a document table. AUTOINCREMENT keeps
// ids strictly monotonic so an id is never reused after a delete. The
// metadata column defaults to the full default object so rows written outside
// the store still carry the expected shape.
func DocumentsTableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    content    TEXT NOT NULL,
    embedding  BLOB NOT NULL,
    metadata   TEXT NOT NULL DEFAULT ` + quoteLiteral(schema.DefaultMetadataJSON()) + `,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

// VectorStorageDDL returns the DDL for the persisted-index table.
func VectorStorageDDL() string {
	return `CREATE TABLE IF NOT EXISTS ` + VectorStorageTable + ` (
    table_name TEXT NOT NULL,
    index_kind TEXT NOT NULL DEFAULT '',
    "index"    BLOB,
    PRIMARY KEY (table_name, index_kind)
);`
}

// IndexInvalidationTriggers returns AFTER INSERT/UPDATE/DELETE trigger DDL
// that drops the persisted index blobs for a table whenever one of its rows
// changes. A store that opens against a mutated table then rebuilds from the
// rows instead of loading a stale blob.
func IndexInvalidationTriggers(table string) []string {
	base := sanitizeIdentifier("trg_" + table + "_vecidx")
	drop := `DELETE FROM ` + VectorStorageTable + ` WHERE table_name = ` + quoteLiteral(table) + `;`
	return []string{
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ai AFTER INSERT ON %s BEGIN %s END;`, base, table, drop),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_au AFTER UPDATE ON %s BEGIN %s END;`, base, table, drop),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ad AFTER DELETE ON %s BEGIN %s END;`, base, table, drop),
	}
}

// validIdentifier reports whether name is safe to interpolate into DDL and
// queries as a table name.
func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sanitizeIdentifier(name string) string {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	return replacer.Replace(name)
}

// quoteLiteral returns s as a SQL string literal with single quotes escaped.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
