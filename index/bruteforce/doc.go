// Package bruteforce provides an exact vector index that answers kNN
// queries by scanning all vectors and scoring via cosine similarity. It is
// the baseline for small corpora and verification, and its compact binary
// format is the shared persistence encoding for every index kind.
package bruteforce
