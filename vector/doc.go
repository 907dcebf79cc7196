// Package vector provides the low-level embedding utilities shared by the
// store and the indexes: a compact BLOB codec for float32 vectors and the
// cosine/L2 distance functions. Similarity reported to callers is cosine
// similarity; distance = 1 - similarity.
package vector
