package bruteforce

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/embedius/semstore/vector"
)

// Index is an exact cosine-similarity index. The zero value is ready to use.
type Index struct {
	mu   sync.RWMutex
	ids  []int64
	vecs [][]float32
	mags []float64
	pos  map[int64]int
	dim  int
}

// Build replaces the index contents and precomputes magnitudes.
func (i *Index) Build(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	i.ids, i.vecs, i.mags = nil, nil, nil
	i.pos = make(map[int64]int, len(ids))
	i.dim = 0
	if len(ids) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("bruteforce: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	i.dim = dim
	i.ids = make([]int64, len(ids))
	i.vecs = make([][]float32, len(ids))
	i.mags = make([]float64, len(ids))
	for j := range ids {
		if _, dup := i.pos[ids[j]]; dup {
			return fmt.Errorf("bruteforce: duplicate id %d", ids[j])
		}
		i.ids[j] = ids[j]
		i.vecs[j] = append([]float32(nil), vectors[j]...)
		i.mags[j] = vector.Magnitude(vectors[j])
		i.pos[ids[j]] = j
	}
	return nil
}

// Insert adds a single vector to the index.
func (i *Index) Insert(id int64, vec []float32) error {
	if len(vec) == 0 {
		return errors.New("bruteforce: empty vector")
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pos == nil {
		i.pos = make(map[int64]int)
	}
	if _, dup := i.pos[id]; dup {
		return fmt.Errorf("bruteforce: id %d already indexed", id)
	}
	if i.dim == 0 {
		i.dim = len(vec)
	} else if len(vec) != i.dim {
		return fmt.Errorf("bruteforce: vector dim %d != index dim %d", len(vec), i.dim)
	}
	i.pos[id] = len(i.ids)
	i.ids = append(i.ids, id)
	i.vecs = append(i.vecs, append([]float32(nil), vec...))
	i.mags = append(i.mags, vector.Magnitude(vec))
	return nil
}

// Delete removes the vector with the given id by swapping in the last entry.
func (i *Index) Delete(id int64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	j, ok := i.pos[id]
	if !ok {
		return false
	}
	last := len(i.ids) - 1
	if j != last {
		i.ids[j] = i.ids[last]
		i.vecs[j] = i.vecs[last]
		i.mags[j] = i.mags[last]
		i.pos[i.ids[j]] = j
	}
	i.ids = i.ids[:last]
	i.vecs = i.vecs[:last]
	i.mags = i.mags[:last]
	delete(i.pos, id)
	return true
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ids)
}

// Query returns top-k by cosine similarity, ties broken by ascending id.
func (i *Index) Query(query []float32, k int) ([]int64, []float64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.dim == 0 || len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("bruteforce: query dim %d != index dim %d", len(query), i.dim)
	}
	qm := vector.Magnitude(query)
	type scored struct {
		id    int64
		score float64
	}
	scoreds := make([]scored, 0, len(i.vecs))
	for j := range i.vecs {
		var s float64
		if qm != 0 && i.mags[j] != 0 {
			s = vector.Dot(query, i.vecs[j]) / (qm * i.mags[j])
		}
		if math.IsNaN(s) {
			continue
		}
		scoreds = append(scoreds, scored{id: i.ids[j], score: s})
	}
	sort.Slice(scoreds, func(a, b int) bool {
		if scoreds[a].score != scoreds[b].score {
			return scoreds[a].score > scoreds[b].score
		}
		return scoreds[a].id < scoreds[b].id
	})
	if k <= 0 || k > len(scoreds) {
		k = len(scoreds)
	}
	outIDs := make([]int64, k)
	outScores := make([]float64, k)
	for n := 0; n < k; n++ {
		outIDs[n] = scoreds[n].id
		outScores[n] = scoreds[n].score
	}
	return outIDs, outScores, nil
}

// MarshalBinary stores: dim(uint32), n(uint32), then for each item:
// id(uint64), vec(float32[dim]). All values little-endian.
func (i *Index) MarshalBinary() ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]byte, 0, 8+len(i.ids)*(8+4*i.dim))
	var scratch [8]byte
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:4], v)
		out = append(out, scratch[:4]...)
	}
	putU32(uint32(i.dim))
	putU32(uint32(len(i.ids)))
	for j, id := range i.ids {
		binary.LittleEndian.PutUint64(scratch[:], uint64(id))
		out = append(out, scratch[:]...)
		for _, f := range i.vecs[j] {
			putU32(math.Float32bits(f))
		}
	}
	return out, nil
}

// UnmarshalBinary restores the index from bytes.
func (i *Index) UnmarshalBinary(data []byte) error {
	ids, vecs, err := DecodeEntries(data)
	if err != nil {
		return err
	}
	return i.Build(ids, vecs)
}

// DecodeEntries decodes the binary format of MarshalBinary into parallel
// id/vector slices. Other index kinds reuse it so every persisted blob stays
// readable regardless of which index produced it.
func DecodeEntries(data []byte) ([]int64, [][]float32, error) {
	if len(data) < 8 {
		return nil, nil, errors.New("bruteforce: invalid data")
	}
	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	n := int(binary.LittleEndian.Uint32(data[4:8]))
	off := 8
	if dim < 0 || n < 0 {
		return nil, nil, errors.New("bruteforce: invalid header")
	}
	ids := make([]int64, n)
	vecs := make([][]float32, n)
	for idx := 0; idx < n; idx++ {
		if off+8+4*dim > len(data) {
			return nil, nil, errors.New("bruteforce: truncated entry")
		}
		ids[idx] = int64(binary.LittleEndian.Uint64(data[off:]))
		off += 8
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vecs[idx] = vec
	}
	return ids, vecs, nil
}
