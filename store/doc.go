// Package store is the durable document store: a SQLite table of documents
// paired with an in-memory similarity index. All writes validate before they
// mutate, the table and the index move together under one lock, and the index
// is persisted as a blob that schema triggers invalidate whenever the table
// changes behind the store's back.
package store
