package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentsTableDDL(t *testing.T) {
	ddl := DocumentsTableDDL("documents")
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS documents")
	assert.Contains(t, ddl, "id         INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, ddl, "metadata   TEXT NOT NULL DEFAULT '{")
	assert.Contains(t, ddl, "created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP")
}

func TestIndexInvalidationTriggers(t *testing.T) {
	trigs := IndexInvalidationTriggers("documents")
	assert.Len(t, trigs, 3)
	for _, want := range []string{"AFTER INSERT", "AFTER UPDATE", "AFTER DELETE"} {
		found := false
		for _, trig := range trigs {
			if strings.Contains(trig, want) {
				found = true
				assert.Contains(t, trig, "DELETE FROM vector_storage WHERE table_name = 'documents'")
			}
		}
		assert.True(t, found, "no trigger for %s", want)
	}
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, validIdentifier("documents"))
	assert.True(t, validIdentifier("notes_v2"))
	assert.True(t, validIdentifier("_shadow"))
	assert.False(t, validIdentifier(""))
	assert.False(t, validIdentifier("1documents"))
	assert.False(t, validIdentifier("docs; DROP TABLE x"))
	assert.False(t, validIdentifier("main.documents"))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'a'", quoteLiteral("a"))
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
}
