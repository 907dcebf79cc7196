// Package notes is the text-level entry point over the document store. It
// turns free-form text into embeddings through a pluggable EmbedFunc, stamps
// the processing provenance into metadata, and exposes add, search, and
// delete in terms of text instead of vectors. The core store packages stay
// embedding-agnostic; only this layer knows a provider exists.
package notes
