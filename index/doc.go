// Package index defines the abstraction for the in-memory similarity
// indexes maintained next to the documents table: built from (id, embedding)
// pairs, updated incrementally as documents come and go, queried for kNN by
// cosine similarity, and serialized for persistence in the vector_storage
// table. Implementations in this module are a brute-force exact baseline and
// an HNSW graph.
package index
