package vptree

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index"
)

// noChild marks an absent subtree.
const noChild int32 = -1

type node struct {
	item  int32   // index into ids/vecs
	mu    float64 // median pivot distance of the items below
	left  int32   // items with distance <= mu
	right int32   // items with distance > mu (>= mu after a rank split)
}

// Stats describes the shape of a built tree.
type Stats struct {
	Items       int `json:"items"`
	Nodes       int `json:"nodes"`
	Depth       int `json:"depth"`
	Comparisons int `json:"comparisons"`
	// Fallbacks counts nodes split by rank because every distance tied with
	// the median.
	Fallbacks int `json:"fallbacks"`
}

// Tree is a vantage-point tree bound to one metric.
type Tree struct {
	lock   sync.RWMutex
	metric distance.Metric
	opts   options

	ids   []string
	vecs  [][]float32
	dim   int
	nodes []node
	root  int32
	stats Stats
}

// New creates an empty tree; Build populates it.
func New(metric distance.Metric, opts ...Option) *Tree {
	return &Tree{metric: metric, opts: newOptions(opts), root: noChild}
}

// Metric returns the metric the tree was built with.
func (t *Tree) Metric() distance.Metric { return t.metric }

// Len returns the number of indexed items.
func (t *Tree) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.ids)
}

// Dim returns the vector dimensionality, 0 for an empty tree.
func (t *Tree) Dim() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.dim
}

// Stats returns the shape of the current tree.
func (t *Tree) Stats() Stats {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.stats
}

// Build validates items and constructs a new tree, discarding the previous
// one. On error the previous tree is kept.
func (t *Tree) Build(items []feature.Item) error {
	started := time.Now()
	dim, err := index.ValidateItems(items, t.metric)
	if err != nil {
		err = fmt.Errorf("vptree: %w", err)
		t.opts.logger.LogBuild(context.Background(), len(items), 0, 0, 0, err)
		return err
	}
	ids := make([]string, len(items))
	vecs := make([][]float32, len(items))
	backing := make([]float32, len(items)*dim)
	for i, item := range items {
		ids[i] = item.ID
		vec := backing[i*dim : (i+1)*dim : (i+1)*dim]
		copy(vec, item.Vector)
		vecs[i] = vec
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	b := builder{metric: t.metric, vecs: vecs, rng: t.opts.rng.Intn}
	b.build()
	t.ids, t.vecs, t.dim = ids, vecs, dim
	t.nodes, t.root = b.nodes, b.root
	t.stats = b.stats
	t.stats.Items = len(ids)
	t.opts.logger.LogBuild(context.Background(), len(ids), len(b.nodes), b.stats.Comparisons, time.Since(started), nil)
	return nil
}

type side uint8

const (
	sideLeft side = iota
	sideRight
)

// task is a pending subtree over perm[lo:hi].
type task struct {
	lo, hi int
	parent int32
	side   side
	depth  int
}

type builder struct {
	metric distance.Metric
	vecs   [][]float32
	rng    func(n int) int

	perm  []int32
	dist  []float64
	nodes []node
	root  int32
	stats Stats
}

func (b *builder) build() {
	n := len(b.vecs)
	b.root = noChild
	if n == 0 {
		return
	}
	b.perm = make([]int32, n)
	for i := range b.perm {
		b.perm[i] = int32(i)
	}
	b.dist = make([]float64, n)
	b.nodes = make([]node, 0, n)

	stack := []task{{lo: 0, hi: n, parent: noChild, depth: 1}}
	for len(stack) > 0 {
		tk := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		p := tk.lo + b.rng(tk.hi-tk.lo)
		b.perm[tk.lo], b.perm[p] = b.perm[p], b.perm[tk.lo]
		h := int32(len(b.nodes))
		b.nodes = append(b.nodes, node{item: b.perm[tk.lo], left: noChild, right: noChild})
		b.attach(tk.parent, tk.side, h)
		if tk.depth > b.stats.Depth {
			b.stats.Depth = tk.depth
		}

		lo, hi := tk.lo+1, tk.hi
		if lo == hi {
			continue
		}
		k, mu := b.partition(b.perm[tk.lo], lo, hi)
		b.nodes[h].mu = mu
		if lo+k < hi {
			stack = append(stack, task{lo: lo + k, hi: hi, parent: h, side: sideRight, depth: tk.depth + 1})
		}
		if k > 0 {
			stack = append(stack, task{lo: lo, hi: lo + k, parent: h, side: sideLeft, depth: tk.depth + 1})
		}
	}
	b.stats.Nodes = len(b.nodes)
}

func (b *builder) attach(parent int32, s side, child int32) {
	if parent == noChild {
		b.root = child
		return
	}
	if s == sideLeft {
		b.nodes[parent].left = child
	} else {
		b.nodes[parent].right = child
	}
}

// partition orders perm[lo:hi] by distance to pivot and returns the size of
// the inside part and the threshold mu.
func (b *builder) partition(pivot int32, lo, hi int) (int, float64) {
	pv := b.vecs[pivot]
	for i := lo; i < hi; i++ {
		b.dist[i] = b.metric.Distance(pv, b.vecs[b.perm[i]])
	}
	b.stats.Comparisons += hi - lo
	seg := byDistance{perm: b.perm[lo:hi], dist: b.dist[lo:hi]}
	sort.Sort(seg)

	m := hi - lo
	mu := median(seg.dist)
	k := sort.Search(m, func(i int) bool { return seg.dist[i] > mu })
	if m >= 2 && (k == 0 || k == m) {
		// ties with the median left one side empty; split by rank instead
		k = m / 2
		mu = seg.dist[k-1]
		b.stats.Fallbacks++
	}
	return k, mu
}

// median of sorted values; the mean of the two middle values for even counts.
func median(sorted []float64) float64 {
	m := len(sorted)
	if m%2 == 1 {
		return sorted[m/2]
	}
	return (sorted[m/2-1] + sorted[m/2]) / 2
}

type byDistance struct {
	perm []int32
	dist []float64
}

func (s byDistance) Len() int           { return len(s.perm) }
func (s byDistance) Less(i, j int) bool { return s.dist[i] < s.dist[j] }
func (s byDistance) Swap(i, j int) {
	s.perm[i], s.perm[j] = s.perm[j], s.perm[i]
	s.dist[i], s.dist[j] = s.dist[j], s.dist[i]
}

var _ index.Index = (*Tree)(nil)
