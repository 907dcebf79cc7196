package hnsw

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/embedius/semstore/index/bruteforce"
	"github.com/embedius/semstore/vector"
)

// Default parameters. M controls graph degree, efConstruction the beam
// width while linking a new node, efSearch the beam width at query time.
const (
	DefaultM              = 16
	DefaultEfConstruction = 200
	DefaultEfSearch       = 64

	defaultSeed = 1
)

// Option configures an Index.
type Option func(*Index)

// WithM sets the maximum number of links per node on the upper layers
// (the base layer allows 2*M).
func WithM(m int) Option {
	return func(i *Index) {
		if m > 1 {
			i.m = m
		}
	}
}

// WithEfConstruction sets the candidate beam width used while inserting.
func WithEfConstruction(ef int) Option {
	return func(i *Index) {
		if ef > 0 {
			i.efConstruction = ef
		}
	}
}

// WithEfSearch sets the candidate beam width used while querying. Larger
// values trade speed for recall; the effective width is never below k.
func WithEfSearch(ef int) Option {
	return func(i *Index) {
		if ef > 0 {
			i.efSearch = ef
		}
	}
}

// WithSeed sets the level-generator seed. Indexes built with the same seed
// from the same insertion sequence are identical.
func WithSeed(seed int64) Option {
	return func(i *Index) { i.seed = seed }
}

type node struct {
	id      int64
	vec     []float32
	mag     float64
	links   [][]int32 // per level, indexes into Index.nodes
	deleted bool
}

func (n *node) level() int { return len(n.links) - 1 }

// Index is a layered proximity graph over document ids.
type Index struct {
	mu             sync.RWMutex
	m              int
	efConstruction int
	efSearch       int
	seed           int64
	levelMul       float64
	rng            *rand.Rand

	dim      int
	nodes    []*node
	byID     map[int64]int32
	entry    int32 // -1 when the graph is empty
	maxLevel int
	live     int
}

// New returns an empty index with the given options applied.
func New(opts ...Option) *Index {
	i := &Index{
		m:              DefaultM,
		efConstruction: DefaultEfConstruction,
		efSearch:       DefaultEfSearch,
		seed:           defaultSeed,
		entry:          -1,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.levelMul = 1 / math.Log(float64(i.m))
	i.rng = rand.New(rand.NewSource(i.seed))
	i.byID = make(map[int64]int32)
	return i
}

// maxLinks returns the link cap for a layer.
func (i *Index) maxLinks(level int) int {
	if level == 0 {
		return 2 * i.m
	}
	return i.m
}

func (i *Index) randomLevel() int {
	u := i.rng.Float64()
	if u < 1e-12 {
		u = 1e-12
	}
	return int(math.Floor(-math.Log(u) * i.levelMul))
}

// distTo computes the cosine distance from a query (with precomputed
// magnitude) to a stored node.
func (i *Index) distTo(q []float32, qmag float64, n *node) float64 {
	if qmag == 0 || n.mag == 0 {
		return 1
	}
	return 1 - vector.Dot(q, n.vec)/(qmag*n.mag)
}

// Build replaces the index contents. The level generator is reseeded first
// so rebuilding from the same entries yields the same graph.
func (i *Index) Build(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("hnsw: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	i.nodes = nil
	i.byID = make(map[int64]int32, len(ids))
	i.entry = -1
	i.maxLevel = 0
	i.live = 0
	i.dim = 0
	i.rng = rand.New(rand.NewSource(i.seed))
	for j := range ids {
		if err := i.insertLocked(ids[j], vectors[j]); err != nil {
			return err
		}
	}
	return nil
}

// Insert adds a single vector to the graph.
func (i *Index) Insert(id int64, vec []float32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.insertLocked(id, vec)
}

func (i *Index) insertLocked(id int64, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("hnsw: empty vector")
	}
	if _, dup := i.byID[id]; dup {
		return fmt.Errorf("hnsw: id %d already indexed", id)
	}
	if i.dim == 0 {
		i.dim = len(vec)
	} else if len(vec) != i.dim {
		return fmt.Errorf("hnsw: vector dim %d != index dim %d", len(vec), i.dim)
	}

	level := i.randomLevel()
	n := &node{
		id:    id,
		vec:   append([]float32(nil), vec...),
		mag:   vector.Magnitude(vec),
		links: make([][]int32, level+1),
	}
	idx := int32(len(i.nodes))
	i.nodes = append(i.nodes, n)
	i.byID[id] = idx
	i.live++

	if i.entry < 0 {
		i.entry = idx
		i.maxLevel = level
		return nil
	}

	cur := i.entry
	curDist := i.distTo(vec, n.mag, i.nodes[cur])
	// Greedy descent through layers above the new node's level.
	for l := i.maxLevel; l > level; l-- {
		cur, curDist = i.greedy(vec, n.mag, cur, curDist, l)
	}
	// Link on each shared layer, walking down with the best candidate.
	top := level
	if top > i.maxLevel {
		top = i.maxLevel
	}
	for l := top; l >= 0; l-- {
		found := i.searchLayer(vec, n.mag, cur, l, i.efConstruction)
		neighbors := closestOf(found, i.maxLinks(l))
		n.links[l] = make([]int32, 0, len(neighbors))
		for _, c := range neighbors {
			n.links[l] = append(n.links[l], c.idx)
			i.linkBack(c.idx, idx, l)
		}
		if len(found) > 0 {
			cur = found[0].idx
		}
	}
	if level > i.maxLevel {
		i.maxLevel = level
		i.entry = idx
	}
	return nil
}

// linkBack adds a reverse edge from node at position from to the new node,
// shrinking the neighbor list back to its cap by keeping the closest.
func (i *Index) linkBack(from, to int32, level int) {
	fn := i.nodes[from]
	fn.links[level] = append(fn.links[level], to)
	limit := i.maxLinks(level)
	if len(fn.links[level]) <= limit {
		return
	}
	links := fn.links[level]
	sort.Slice(links, func(a, b int) bool {
		da := i.distTo(fn.vec, fn.mag, i.nodes[links[a]])
		db := i.distTo(fn.vec, fn.mag, i.nodes[links[b]])
		if da != db {
			return da < db
		}
		return i.nodes[links[a]].id < i.nodes[links[b]].id
	})
	fn.links[level] = links[:limit]
}

// greedy moves to the closest neighbor on a layer until no improvement.
func (i *Index) greedy(q []float32, qmag float64, cur int32, curDist float64, level int) (int32, float64) {
	for {
		improved := false
		for _, nb := range i.nodes[cur].links[level] {
			if d := i.distTo(q, qmag, i.nodes[nb]); d < curDist {
				cur, curDist = nb, d
				improved = true
			}
		}
		if !improved {
			return cur, curDist
		}
	}
}

type cand struct {
	idx  int32
	dist float64
}

// searchLayer runs a best-first beam search on one layer and returns up to
// ef candidates sorted by ascending distance. Tombstoned nodes participate
// as routing points and appear in the result; callers filter them.
func (i *Index) searchLayer(q []float32, qmag float64, start int32, level, ef int) []cand {
	visited := make(map[int32]struct{}, ef*4)
	visited[start] = struct{}{}
	startDist := i.distTo(q, qmag, i.nodes[start])

	candidates := &minHeap{{idx: start, dist: startDist}}
	results := &maxHeap{{idx: start, dist: startDist}}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(cand)
		if results.Len() >= ef && c.dist > (*results)[0].dist {
			break
		}
		for _, nb := range i.nodes[c.idx].links[level] {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			d := i.distTo(q, qmag, i.nodes[nb])
			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(candidates, cand{idx: nb, dist: d})
				heap.Push(results, cand{idx: nb, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]cand, results.Len())
	copy(out, *results)
	sort.Slice(out, func(a, b int) bool {
		if out[a].dist != out[b].dist {
			return out[a].dist < out[b].dist
		}
		return i.nodes[out[a].idx].id < i.nodes[out[b].idx].id
	})
	return out
}

// closestOf keeps the first n candidates of an ascending-distance slice.
func closestOf(cands []cand, n int) []cand {
	if len(cands) <= n {
		return cands
	}
	return cands[:n]
}

// Delete tombstones the vector with the given id. Links are kept so the
// node keeps routing traffic; it is no longer returned by queries.
func (i *Index) Delete(id int64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	idx, ok := i.byID[id]
	if !ok {
		return false
	}
	i.nodes[idx].deleted = true
	delete(i.byID, id)
	i.live--
	return true
}

// Len returns the number of live vectors.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.live
}

// Query returns up to k ids ordered by descending cosine similarity, ties
// broken by ascending id. k <= 0 returns all live vectors.
func (i *Index) Query(query []float32, k int) ([]int64, []float64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.live == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("hnsw: query dim %d != index dim %d", len(query), i.dim)
	}
	if k <= 0 || k > i.live {
		k = i.live
	}
	qmag := vector.Magnitude(query)

	cur := i.entry
	curDist := i.distTo(query, qmag, i.nodes[cur])
	for l := i.maxLevel; l > 0; l-- {
		cur, curDist = i.greedy(query, qmag, cur, curDist, l)
	}
	ef := i.efSearch
	if ef < k {
		ef = k
	}
	// Tombstones consume beam slots, so widen the beam by the number of
	// dead nodes to keep recall on live ones.
	if dead := len(i.nodes) - i.live; dead > 0 {
		ef += dead
	}
	found := i.searchLayer(query, qmag, cur, 0, ef)

	ids := make([]int64, 0, k)
	scores := make([]float64, 0, k)
	for _, c := range found {
		n := i.nodes[c.idx]
		if n.deleted {
			continue
		}
		ids = append(ids, n.id)
		scores = append(scores, 1-c.dist)
		if len(ids) == k {
			break
		}
	}
	return ids, scores, nil
}

// MarshalBinary serializes the live entries using the bruteforce encoding,
// the shared persistence format for every index kind. The graph itself is
// rebuilt on load.
func (i *Index) MarshalBinary() ([]byte, error) {
	i.mu.RLock()
	ids := make([]int64, 0, i.live)
	vecs := make([][]float32, 0, i.live)
	for _, n := range i.nodes {
		if n.deleted {
			continue
		}
		ids = append(ids, n.id)
		vecs = append(vecs, n.vec)
	}
	i.mu.RUnlock()

	bf := &bruteforce.Index{}
	if err := bf.Build(ids, vecs); err != nil {
		return nil, err
	}
	return bf.MarshalBinary()
}

// UnmarshalBinary restores the entries and reconstructs the graph
// deterministically from the configured seed.
func (i *Index) UnmarshalBinary(data []byte) error {
	ids, vecs, err := bruteforce.DecodeEntries(data)
	if err != nil {
		return err
	}
	return i.Build(ids, vecs)
}

// minHeap orders candidates by ascending distance.
type minHeap []cand

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(a, b int) bool { return h[a].dist < h[b].dist }
func (h minHeap) Swap(a, b int)      { h[a], h[b] = h[b], h[a] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(cand)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// maxHeap orders candidates by descending distance so the worst kept
// candidate is always on top.
type maxHeap []cand

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(a, b int) bool { return h[a].dist > h[b].dist }
func (h maxHeap) Swap(a, b int)      { h[a], h[b] = h[b], h[a] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(cand)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
