// Package search turns raw index candidates into filtered, ranked document
// matches. A query over-fetches from the ANN index, drops candidates whose
// metadata does not contain the filter, and escalates to the full corpus
// when the filtered set comes up short of the requested limit.
package search
