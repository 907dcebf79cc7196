// Package hnsw implements an approximate nearest-neighbor index as a
// layered proximity graph (Hierarchical Navigable Small World). Queries
// greedily descend the sparse upper layers and run a best-first beam search
// on the base layer, trading exact recall for sub-linear query time.
//
// Vectors are scored by cosine distance (1 - cosine similarity). Deletes
// tombstone the node and keep its links so the graph stays navigable; level
// assignment is drawn from a seeded generator so a rebuilt index is
// reproducible. Persistence reuses the bruteforce entry encoding and
// reconstructs the graph on load, so blobs stay readable across index kinds.
package hnsw
