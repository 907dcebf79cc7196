package index

// Index is a vector index over document ids. Implementations must be safe
// for concurrent use: a query racing a completing insert may or may not see
// the new vector, but must never observe a partial one.
type Index interface {
	// Build replaces the index contents from parallel id/vector slices.
	// Vectors must share one dimension; ids must be unique.
	Build(ids []int64, vectors [][]float32) error

	// Insert adds a single vector. Inserting an id that is already present
	// is an error; document ids are unique by construction, so a duplicate
	// indicates a caller bug.
	Insert(id int64, vector []float32) error

	// Delete removes the vector with the given id and reports whether it
	// was present.
	Delete(id int64) bool

	// Len returns the number of live vectors in the index.
	Len() int

	// Query runs a kNN search and returns up to k matches as parallel
	// slices of ids and scores, ordered by descending cosine similarity
	// with ties broken by ascending id. k <= 0 means all live vectors.
	Query(query []float32, k int) (ids []int64, scores []float64, err error)

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}
