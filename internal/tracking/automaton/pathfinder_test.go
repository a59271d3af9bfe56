package automaton

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/neighbors"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
)

type item struct {
	name string
	cell Cell
}

func (it *item) AutomatonCell() *Cell { return &it.cell }

func chain(weights ...float64) CellSlice {
	cells := make(CellSlice, len(weights))
	for i, w := range weights {
		cells[i] = NewCell(w)
	}
	return cells
}

func rel(from, to int, w float64) relations.Relation {
	return relations.Relation{From: from, To: to, Weight: w}
}

func TestApply_EmptyInput(t *testing.T) {
	t.Parallel()

	pf := &PathFinder{}
	paths := pf.Apply(CellSlice{}, neighbors.New(0, nil))
	assert.Empty(t, paths)
}

func TestApply_SingleChainFollowsBestPath(t *testing.T) {
	t.Parallel()

	// 0 -> 1 -> 2 -> 3 and a weaker shortcut 0 -> 3.
	cells := chain(3, 3, 3, 3)
	nb := neighbors.New(4, []relations.Relation{
		rel(0, 1, -2), rel(1, 2, -2), rel(2, 3, -2), rel(0, 3, -2),
	})
	pf := &PathFinder{MinState: 3}
	paths := pf.Apply(cells, nb)

	require.Len(t, paths, 1)
	if diff := cmp.Diff(Path{0, 1, 2, 3}, paths[0]); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	// facet-like weights: k cells of weight 3 joined by -2 give k+2.
	assert.Equal(t, 6.0, cells[0].State())
	for i := range cells {
		assert.True(t, cells[i].Taken())
	}
}

func TestApply_PathsAreDisjoint(t *testing.T) {
	t.Parallel()

	// Two chains sharing cell 2: 0->2->3 and 1->2->4.
	cells := chain(1, 1, 1, 1, 1, 1)
	nb := neighbors.New(6, []relations.Relation{
		rel(0, 2, 0), rel(1, 2, 0), rel(2, 3, 0), rel(2, 4, 0), rel(4, 5, 0),
	})
	pf := &PathFinder{MinState: 1}
	paths := pf.Apply(cells, nb)

	seen := map[int]bool{}
	for _, p := range paths {
		for _, c := range p {
			assert.False(t, seen[c], "cell %d appears in two paths", c)
			seen[c] = true
		}
	}
	require.NotEmpty(t, paths)
	if diff := cmp.Diff(Path{0, 2, 4, 5}, paths[0]); diff != "" {
		t.Errorf("first path mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, seen, 6)
}

func TestApply_MinStateStopsExtraction(t *testing.T) {
	t.Parallel()

	cells := chain(3, 3, 1)
	nb := neighbors.New(3, []relations.Relation{rel(0, 1, -2)})
	pf := &PathFinder{MinState: 3}
	paths := pf.Apply(cells, nb)

	require.Len(t, paths, 1)
	assert.Equal(t, Path{0, 1}, paths[0])
	assert.False(t, cells[2].Taken())
}

func TestApply_MaskedCellsAreSkipped(t *testing.T) {
	t.Parallel()

	items := []item{{name: "a"}, {name: "b"}, {name: "c"}}
	for i := range items {
		items[i].cell = NewCell(1)
	}
	items[1].cell.SetWeight(relations.NotACell)
	require.True(t, items[1].cell.Masked())

	nb := neighbors.New(3, []relations.Relation{rel(0, 1, 0), rel(1, 2, 0)})
	var hooked []Path
	pf := &PathFinder{MinState: 1, OnPath: func(p Path) { hooked = append(hooked, p) }}
	paths := pf.Apply(Of(items), nb)

	assert.Equal(t, []Path{{0}, {2}}, paths)
	assert.Equal(t, paths, hooked)
}

func TestApply_OnPathCanMask(t *testing.T) {
	t.Parallel()

	cells := chain(2, 1, 1)
	nb := neighbors.New(3, nil)
	pf := &PathFinder{MinState: 1}
	pf.OnPath = func(Path) { cells[2].Set(Masked) }
	paths := pf.Apply(cells, nb)
	assert.Equal(t, []Path{{0}, {1}}, paths)
}

func TestApply_CycleCappedInRelease(t *testing.T) {
	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	defer SetLogWriters(nil, nil, nil)

	cells := chain(1, 1)
	nb := neighbors.New(2, []relations.Relation{rel(0, 1, 0), rel(1, 0, 0)})
	pf := &PathFinder{MinState: 1}

	var paths []Path
	require.NotPanics(t, func() { paths = pf.Apply(cells, nb) })
	assert.NotEmpty(t, paths)
	assert.Positive(t, pf.Suspicious)
	assert.True(t, strings.Contains(ops.String(), "iteration cap"))
}

func TestApply_CyclePanicsInDebug(t *testing.T) {
	t.Parallel()

	cells := chain(1, 1, 1)
	nb := neighbors.New(3, []relations.Relation{rel(0, 1, 0), rel(1, 2, 0), rel(2, 1, 0)})
	pf := &PathFinder{Debug: true}

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*CycleError)
		require.True(t, ok, "panic value %T", r)
		assert.Contains(t, []int{1, 2}, err.Cell)
		assert.True(t, cells[err.Cell].Has(Cycle))
		assert.Contains(t, err.Error(), "cycle")
	}()
	pf.Apply(cells, nb)
}

func TestFindCycle(t *testing.T) {
	t.Parallel()

	acyclic := neighbors.New(3, []relations.Relation{rel(0, 1, 0), rel(1, 2, 0), rel(0, 2, 0)})
	assert.Equal(t, -1, FindCycle(acyclic, 3))

	self := neighbors.New(2, []relations.Relation{rel(1, 1, 0)})
	assert.Equal(t, 1, FindCycle(self, 2))
}

func TestRelax_ConvergesWithinCellCount(t *testing.T) {
	t.Parallel()

	// Relations point towards higher indices, the worst order for the
	// in-place sweep.
	const n = 50
	weights := make([]float64, n)
	rels := make([]relations.Relation, 0, n)
	for i := range weights {
		weights[i] = 1
		if i+1 < n {
			rels = append(rels, rel(i, i+1, 0))
		}
	}
	cells := chain(weights...)
	pf := &PathFinder{}
	iters, ok := pf.Relax(cells, neighbors.New(n, rels))
	assert.True(t, ok)
	assert.Less(t, iters, n)
	assert.Equal(t, float64(n), cells[0].State())
}

func TestCell_Reset(t *testing.T) {
	t.Parallel()

	c := NewCell(2)
	c.SetTaken()
	c.Set(Cycle)
	c.Reset()
	assert.Zero(t, c.Flags())
	assert.Equal(t, 2.0, c.Weight())

	c.SetWeight(relations.NotACell)
	c.Reset()
	assert.True(t, c.Masked())
}
