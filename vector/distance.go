package vector

import (
	"fmt"
	"math"
)

// Dot returns the dot product of a and b. Lengths must match; callers are
// expected to have validated dimensions.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float64 { return math.Sqrt(Dot(v, v)) }

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns an error if the vectors have different lengths or either vector is
// empty. A zero-magnitude vector yields similarity 0 rather than an error so
// that degenerate stored vectors rank last instead of aborting a scan.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine similarity on empty vectors")
	}
	am := Magnitude(a)
	bm := Magnitude(b)
	if am == 0 || bm == 0 {
		return 0, nil
	}
	return Dot(a, b) / (am * bm), nil
}

// CosineDistance computes 1 - CosineSimilarity(a, b).
func CosineDistance(a, b []float32) (float64, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// L2Distance computes the Euclidean distance between two vectors.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
