package hough

import (
	"container/heap"
	"fmt"
	"math"
	"sort"
)

// ContainsFunc reports whether some curve consistent with item passes
// through box, and with which vote weight.
type ContainsFunc[T any] func(item T, box Box) (float64, bool)

// PriorityFunc ranks sibling nodes during FindBest; higher goes first.
type PriorityFunc[T any] func(box Box, weight float64, items []T) float64

// Candidate is a leaf box together with the items consistent with it.
type Candidate[T any] struct {
	Box    Box
	Weight float64
	Items  []T
}

// Stats describes the work of the current epoch.
type Stats struct {
	Epoch       int
	Nodes       int // nodes in use
	Capacity    int // nodes retained by the arena
	Expansions  int
	Truncations int
	Candidates  int
	Passes      int
}

type node struct {
	lo, hi  [MaxAxes]int32 // fine bins [lo, hi)
	level   int32
	first   int32 // first child, -1 before expansion
	weight  float64
	items   []int32
	weights []float64
}

// Tree is the lazily refined parameter search tree. It owns its node
// arena across events and is not safe for concurrent use.
type Tree[T any] struct {
	cfg      Config
	contains ContainsFunc[T]
	less     func(a, b T) bool
	priority PriorityFunc[T]

	fanout int
	fine   [MaxAxes]int32

	items []T
	used  []bool

	nodes []node
	hwm   int32

	scratchBox   Box
	scratchItems []T
	cut          float64 // heaviest node pruned by the pass threshold
	stats        Stats
}

// NewTree builds an empty tree. less orders seeded items; it must be a
// strict total order for the search to be independent of seeding order.
func NewTree[T any](cfg Config, contains ContainsFunc[T], less func(a, b T) bool) (*Tree[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if contains == nil {
		return nil, fmt.Errorf("hough: nil containment function")
	}
	t := &Tree[T]{
		cfg:        cfg,
		contains:   contains,
		less:       less,
		fanout:     1,
		scratchBox: make(Box, len(cfg.Axes)),
	}
	for a := range cfg.Axes {
		t.fanout *= cfg.Axes[a].Division
		t.fine[a] = cfg.fineBins(a)
	}
	return t, nil
}

// SetPriority replaces the sibling ranking; nil ranks by weight.
func (t *Tree[T]) SetPriority(p PriorityFunc[T]) { t.priority = p }

// Config returns the tree configuration.
func (t *Tree[T]) Config() Config { return t.cfg }

// Stats returns the counters of the current epoch.
func (t *Tree[T]) Stats() Stats {
	s := t.stats
	s.Nodes = int(t.hwm)
	s.Capacity = len(t.nodes)
	return s
}

// Fell drops the content of the tree and starts a new epoch. Node storage
// and per-node item buffers are kept for reuse.
func (t *Tree[T]) Fell() {
	t.hwm = 0
	t.items = t.items[:0]
	t.used = t.used[:0]
	t.stats = Stats{Epoch: t.stats.Epoch + 1}
}

// Raze drops the content and releases the node storage.
func (t *Tree[T]) Raze() {
	t.Fell()
	t.nodes = nil
	t.items = nil
	t.used = nil
	t.scratchItems = nil
}

// Seed fells the tree and fills the root with items, ordered by the tree's
// less function. Items inconsistent with the whole box are dropped.
func (t *Tree[T]) Seed(items []T) {
	t.Fell()
	t.items = append(t.items, items...)
	if t.less != nil {
		sort.SliceStable(t.items, func(i, j int) bool { return t.less(t.items[i], t.items[j]) })
	}
	for range t.items {
		t.used = append(t.used, false)
	}

	root := t.alloc()
	n := &t.nodes[root]
	for a := range t.cfg.Axes {
		n.lo[a], n.hi[a] = 0, t.fine[a]
	}
	box := t.boxInto(t.scratchBox, root)
	for i := range t.items {
		t.route(root, int32(i), box)
	}
	tracef("seeded %d items, %d in root box", len(t.items), len(t.nodes[root].items))
}

// alloc returns a fresh node from the arena.
func (t *Tree[T]) alloc() int32 {
	idx := t.hwm
	t.hwm++
	if int(idx) == len(t.nodes) {
		t.nodes = append(t.nodes, node{})
	}
	n := &t.nodes[idx]
	n.first = -1
	n.weight = 0
	n.items = n.items[:0]
	n.weights = n.weights[:0]
	return idx
}

// route adds item i to node ni if it is consistent with box, honouring the
// item cap.
func (t *Tree[T]) route(ni, i int32, box Box) {
	w, ok := t.contains(t.items[i], box)
	if !ok {
		return
	}
	n := &t.nodes[ni]
	if t.cfg.MaxItemsPerNode > 0 && len(n.items) >= t.cfg.MaxItemsPerNode {
		if len(n.items) == t.cfg.MaxItemsPerNode {
			t.stats.Truncations++
			opsf("node at level %d %v exceeds %d items; truncating", n.level, box, t.cfg.MaxItemsPerNode)
			// Mark the node so the warning is emitted once.
			n.items = append(n.items, -1)
			n.weights = append(n.weights, 0)
		}
		return
	}
	n.items = append(n.items, i)
	n.weights = append(n.weights, w)
	n.weight += w
}

// boxInto writes the evaluated box of node ni to dst.
func (t *Tree[T]) boxInto(dst Box, ni int32) Box {
	n := &t.nodes[ni]
	for a, ax := range t.cfg.Axes {
		width := (ax.Hi - ax.Lo) / float64(t.fine[a])
		dst[a] = Interval{
			Lo: ax.Lo + float64(n.lo[a]-int32(ax.Overlap))*width,
			Hi: ax.Lo + float64(n.hi[a]+int32(ax.Overlap))*width,
		}
	}
	return dst
}

// Box returns the evaluated box of the root node.
func (t *Tree[T]) Box() Box {
	b := make(Box, len(t.cfg.Axes))
	for a, ax := range t.cfg.Axes {
		b[a] = Interval{Lo: ax.Lo, Hi: ax.Hi}
	}
	return b
}

// refresh drops used items from node ni and recomputes its weight.
func (t *Tree[T]) refresh(ni int32) {
	n := &t.nodes[ni]
	kept := 0
	var sum float64
	for k, i := range n.items {
		if i >= 0 && t.used[i] {
			continue
		}
		n.items[kept] = i
		n.weights[kept] = n.weights[k]
		sum += n.weights[k]
		kept++
	}
	n.items = n.items[:kept]
	n.weights = n.weights[:kept]
	n.weight = sum
}

// expand creates the children of node ni once per epoch.
func (t *Tree[T]) expand(ni int32) int32 {
	if first := t.nodes[ni].first; first >= 0 {
		return first
	}
	t.stats.Expansions++
	first := t.hwm
	for k := 0; k < t.fanout; k++ {
		ci := t.alloc()
		parent, child := &t.nodes[ni], &t.nodes[ci]
		child.level = parent.level + 1
		// Row-major: axis 0 varies slowest.
		rest := k
		stride := t.fanout
		for a, ax := range t.cfg.Axes {
			stride /= ax.Division
			digit := int32(rest / stride)
			rest %= stride
			w := (parent.hi[a] - parent.lo[a]) / int32(ax.Division)
			child.lo[a] = parent.lo[a] + digit*w
			child.hi[a] = child.lo[a] + w
		}
	}
	t.nodes[ni].first = first

	box := make(Box, len(t.cfg.Axes))
	for k := int32(0); k < int32(t.fanout); k++ {
		ci := first + k
		t.boxInto(box, ci)
		for _, i := range t.nodes[ni].items {
			if i < 0 || t.used[i] {
				continue
			}
			t.route(ci, i, box)
		}
	}
	return first
}

// FindBest searches the seeded tree and returns the candidates in the
// order found. Items of a reported candidate are consumed and no longer
// count towards other nodes.
//
// The search runs in passes of decreasing weight. Each pass is a
// depth-first walk that descends into children in priority order,
// re-ranking the remaining siblings after every visit, and prunes nodes
// lighter than the pass threshold. The first pass uses the root weight;
// every following pass uses the heaviest weight pruned by the previous
// one, down to MinWeight. Heavy leaves are therefore reported before any
// lighter leaf can take their items.
func (t *Tree[T]) FindBest() []Candidate[T] {
	if t.hwm == 0 {
		return nil
	}
	var out []Candidate[T]
	thr := math.Inf(1)
	for pass := 1; ; pass++ {
		t.refresh(0)
		root := t.nodes[0].weight
		if root < t.cfg.MinWeight || len(t.nodes[0].items) == 0 {
			break
		}
		thr = math.Min(thr, root)
		if thr < t.cfg.MinWeight || (t.cfg.MaxPasses > 0 && pass >= t.cfg.MaxPasses) {
			thr = t.cfg.MinWeight
		}
		t.cut = math.Inf(-1)
		before := len(out)
		t.walk(0, thr, &out)
		t.stats.Passes++
		tracef("pass %d at weight %.2f: %d candidates", pass, thr, len(out)-before)
		if thr <= t.cfg.MinWeight || math.IsInf(t.cut, -1) {
			break
		}
		thr = t.cut
	}
	t.stats.Candidates += len(out)
	diagf("epoch %d: %d candidates from %d items in %d passes, %d nodes", t.stats.Epoch, len(out), len(t.items), t.stats.Passes, t.hwm)
	return out
}

func (t *Tree[T]) walk(ni int32, thr float64, out *[]Candidate[T]) {
	t.refresh(ni)
	n := &t.nodes[ni]
	level := int(n.level)
	if len(n.items) == 0 || n.weight < t.cfg.threshold(level) {
		return
	}
	if n.weight < thr {
		t.cut = math.Max(t.cut, n.weight)
		return
	}
	if !t.curvatureOK(ni) {
		return
	}
	if level == t.cfg.MaxLevel {
		*out = append(*out, t.emit(ni))
		return
	}

	first := t.expand(ni)
	h := &childHeap{}
	for k := 0; k < t.fanout; k++ {
		ci := first + int32(k)
		t.refresh(ci)
		h.entries = append(h.entries, childEntry{node: ci, order: k, prio: t.priorityOf(ci)})
	}
	heap.Init(h)
	for h.Len() > 0 {
		c := heap.Pop(h).(childEntry)
		t.walk(c.node, thr, out)
		for i := range h.entries {
			e := &h.entries[i]
			t.refresh(e.node)
			e.prio = t.priorityOf(e.node)
		}
		heap.Init(h)
	}
}

func (t *Tree[T]) curvatureOK(ni int32) bool {
	ca := t.cfg.CurvatureAxis
	if ca < 0 || t.cfg.MaxCurvature <= 0 {
		return true
	}
	box := t.boxInto(t.scratchBox, ni)
	return box[ca].MinAbs() <= t.cfg.MaxCurvature
}

func (t *Tree[T]) priorityOf(ni int32) float64 {
	n := &t.nodes[ni]
	if t.priority == nil {
		return n.weight
	}
	t.scratchItems = t.scratchItems[:0]
	for _, i := range n.items {
		if i >= 0 {
			t.scratchItems = append(t.scratchItems, t.items[i])
		}
	}
	return t.priority(t.boxInto(t.scratchBox, ni), n.weight, t.scratchItems)
}

// emit reports leaf ni and consumes its items.
func (t *Tree[T]) emit(ni int32) Candidate[T] {
	n := &t.nodes[ni]
	c := Candidate[T]{
		Box:    t.boxInto(make(Box, len(t.cfg.Axes)), ni),
		Weight: n.weight,
	}
	for _, i := range n.items {
		if i < 0 {
			continue
		}
		c.Items = append(c.Items, t.items[i])
		t.used[i] = true
	}
	tracef("candidate %v weight %.2f with %d items", c.Box, c.Weight, len(c.Items))
	return c
}

type childEntry struct {
	node  int32
	order int
	prio  float64
}

// childHeap pops the highest priority first, the lower child index on ties.
type childHeap struct {
	entries []childEntry
}

func (h *childHeap) Len() int { return len(h.entries) }

func (h *childHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if a.prio != b.prio {
		return a.prio > b.prio
	}
	return a.order < b.order
}

func (h *childHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *childHeap) Push(x any) { h.entries = append(h.entries, x.(childEntry)) }

func (h *childHeap) Pop() any {
	old := h.entries
	e := old[len(old)-1]
	h.entries = old[:len(old)-1]
	return e
}
