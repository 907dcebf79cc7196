package hnsw

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/embedius/semstore/index/bruteforce"
)

func TestBuildAndQuery(t *testing.T) {
	idx := New()
	err := idx.Build(
		[]int64{1, 2, 3},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
	)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ids, scores, err := idx.Query([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Query returned %d results, want 2", len(ids))
	}
	if ids[0] != 1 {
		t.Errorf("top result = %d, want 1", ids[0])
	}
	if math.Abs(scores[0]-1.0) > 1e-6 {
		t.Errorf("top score = %v, want 1.0", scores[0])
	}
	if ids[1] != 3 {
		t.Errorf("second result = %d, want 3", ids[1])
	}
}

func TestQueryTieBreakAscendingID(t *testing.T) {
	idx := New()
	if err := idx.Build(
		[]int64{30, 10, 20},
		[][]float32{{1, 1}, {1, 1}, {1, 1}},
	); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ids, _, err := idx.Query([]float32{1, 1}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := []int64{10, 20, 30}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

// Small corpora fit entirely into the search beam, so every query is exact;
// compare full orderings against the bruteforce index.
func TestMatchesBruteforceOnSmallCorpus(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const n, dim = 200, 8
	ids := make([]int64, n)
	vecs := make([][]float32, n)
	for j := 0; j < n; j++ {
		ids[j] = int64(j + 1)
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = rng.Float32()*2 - 1
		}
		vecs[j] = vec
	}
	approx := New(WithEfSearch(n))
	if err := approx.Build(ids, vecs); err != nil {
		t.Fatalf("hnsw Build failed: %v", err)
	}
	exact := &bruteforce.Index{}
	if err := exact.Build(ids, vecs); err != nil {
		t.Fatalf("bruteforce Build failed: %v", err)
	}
	for trial := 0; trial < 10; trial++ {
		q := make([]float32, dim)
		for d := range q {
			q[d] = rng.Float32()*2 - 1
		}
		got, _, err := approx.Query(q, 10)
		if err != nil {
			t.Fatalf("hnsw Query failed: %v", err)
		}
		want, _, err := exact.Query(q, 10)
		if err != nil {
			t.Fatalf("bruteforce Query failed: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("trial %d: got %d results, want %d", trial, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("trial %d: got %v, want %v", trial, got, want)
			}
		}
	}
}

func TestDeterministicRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n, dim = 100, 6
	ids := make([]int64, n)
	vecs := make([][]float32, n)
	for j := 0; j < n; j++ {
		ids[j] = int64(j)
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = rng.Float32()
		}
		vecs[j] = vec
	}
	a := New(WithSeed(5))
	b := New(WithSeed(5))
	if err := a.Build(ids, vecs); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := b.Build(ids, vecs); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	q := []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	gotA, _, err := a.Query(q, 20)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	gotB, _, err := b.Query(q, 20)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(gotA) != len(gotB) {
		t.Fatalf("result counts differ: %d vs %d", len(gotA), len(gotB))
	}
	for i := range gotA {
		if gotA[i] != gotB[i] {
			t.Fatalf("rebuilds diverge at %d: %v vs %v", i, gotA, gotB)
		}
	}
}

func TestInsertDelete(t *testing.T) {
	idx := New()
	if err := idx.Insert(1, []float32{1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert(2, []float32{0, 1}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert(1, []float32{0, 1}); err == nil {
		t.Fatal("expected error inserting duplicate id")
	}
	if err := idx.Insert(3, []float32{1, 0, 0}); err == nil {
		t.Fatal("expected error inserting wrong dimension")
	}
	if idx.Len() != 2 {
		t.Fatalf("Len = %d, want 2", idx.Len())
	}
	if !idx.Delete(1) {
		t.Fatal("Delete(1) = false, want true")
	}
	if idx.Delete(1) {
		t.Fatal("Delete(1) twice = true, want false")
	}
	ids, _, err := idx.Query([]float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("post-delete results = %v, want [2]", ids)
	}
}

func TestDeleteEntryPointStillRoutes(t *testing.T) {
	idx := New()
	vecs := [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}, {0.1, 0.9}}
	for j, v := range vecs {
		if err := idx.Insert(int64(j+1), v); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	// Tombstone every node but one; the survivor must remain reachable
	// regardless of where the entry point sits.
	idx.Delete(1)
	idx.Delete(2)
	idx.Delete(3)
	ids, _, err := idx.Query([]float32{1, 0}, 4)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 4 {
		t.Fatalf("results = %v, want [4]", ids)
	}
}

func TestQueryDimensionMismatch(t *testing.T) {
	idx := New()
	if err := idx.Insert(1, []float32{1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, _, err := idx.Query([]float32{1, 0, 0}, 1); err == nil {
		t.Fatal("expected error for query dimension mismatch")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	idx := New()
	if err := idx.Build(
		[]int64{7, 8, 9},
		[][]float32{{0.5, -1.5, 2}, {1, 2, 3}, {-1, 0, 1}},
	); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	idx.Delete(9)
	data, err := idx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	restored := New()
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("restored Len = %d, want 2", restored.Len())
	}
	ids, _, err := restored.Query([]float32{1, 2, 3}, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 8 {
		t.Fatalf("restored query = %v, want [8]", ids)
	}
}

// Blobs written by the bruteforce index load into this one and vice versa.
func TestCrossKindBlobCompatibility(t *testing.T) {
	bf := &bruteforce.Index{}
	if err := bf.Build(
		[]int64{1, 2},
		[][]float32{{1, 0}, {0, 1}},
	); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	data, err := bf.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	idx := New()
	if err := idx.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	ids, _, err := idx.Query([]float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("results = %v, want [2]", ids)
	}
}

func TestConcurrentInsertQuery(t *testing.T) {
	idx := New()
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for n := int64(0); n < 50; n++ {
				_ = idx.Insert(base*100+n, []float32{float32(n), 1})
				_, _, _ = idx.Query([]float32{1, 1}, 5)
			}
		}(int64(g))
	}
	wg.Wait()
	if idx.Len() != 200 {
		t.Fatalf("Len = %d, want 200", idx.Len())
	}
}
