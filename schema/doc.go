// Package schema defines the document model persisted by the store, the
// metadata shape it enforces, and the domain error taxonomy. Validation is a
// pure check invoked by the store façade before any mutation is committed;
// it never touches storage.
package schema
