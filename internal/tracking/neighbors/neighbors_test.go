package neighbors

import (
	"bytes"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
)

// fakeHits is a sorted list of wire ids, one hit per entry.
type fakeHits []geometry.WireID

func (f fakeHits) Len() int                     { return len(f) }
func (f fakeHits) WireID(i int) geometry.WireID { return f[i] }
func (f fakeHits) OnWire(id geometry.WireID) (int, int) {
	lo := sort.Search(len(f), func(i int) bool { return f[i].Encode() >= id.Encode() })
	hi := sort.Search(len(f), func(i int) bool { return f[i].Encode() > id.Encode() })
	return lo, hi
}

func newFakeHits(ids ...geometry.WireID) fakeHits {
	f := fakeHits(ids)
	sort.SliceStable(f, func(i, j int) bool { return f[i].Encode() < f[j].Encode() })
	return f
}

func TestNew_DropsRejectedAndSorts(t *testing.T) {
	t.Parallel()

	nb := New(3, []relations.Relation{
		{From: 2, To: 0, Weight: 1},
		{From: 0, To: 2, Weight: relations.NotACell},
		{From: 0, To: 1, Weight: 2},
		{From: 1, To: 5, Weight: 2},
	})
	require.Equal(t, 3, nb.Len())
	assert.Equal(t, 2, nb.Size())
	want := []relations.Relation{{From: 0, To: 1, Weight: 2}, {From: 2, To: 0, Weight: 1}}
	if diff := cmp.Diff(want, nb.All()); diff != "" {
		t.Errorf("relations mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, nb.Of(1))
	assert.Nil(t, nb.Of(7))
	assert.True(t, nb.Has(2, 0))
	assert.False(t, nb.Has(0, 2))
	assert.False(t, nb.IsSymmetric())
}

func TestNeighborhood_ResetReusesStorage(t *testing.T) {
	t.Parallel()

	nb := New(4, []relations.Relation{{From: 0, To: 1}, {From: 1, To: 0}})
	assert.True(t, nb.IsSymmetric())
	nb.Reset(2, []relations.Relation{{From: 1, To: 0}})
	assert.Equal(t, 2, nb.Len())
	assert.Equal(t, 1, nb.Size())
	assert.Empty(t, nb.Of(0))

	var empty Neighborhood
	assert.Zero(t, empty.Len())
	assert.Nil(t, empty.Of(0))
}

func TestWireHitBuilder_PrimarySymmetric(t *testing.T) {
	t.Parallel()

	topo := geometry.IdealTopology()
	hits := newFakeHits(
		geometry.WireID{SuperLayer: 2, Layer: 0, Wire: 10},
		geometry.WireID{SuperLayer: 2, Layer: 1, Wire: 10},
		geometry.WireID{SuperLayer: 2, Layer: 1, Wire: 11},
		geometry.WireID{SuperLayer: 2, Layer: 2, Wire: 10},
		geometry.WireID{SuperLayer: 2, Layer: 4, Wire: 10},
		geometry.WireID{SuperLayer: 3, Layer: 0, Wire: 10},
	)

	b := WireHitBuilder{Topology: topo, Width: Primary}
	nb := b.Build(hits, 0, hits.Len(), relations.AcceptAll[int]())
	assert.True(t, nb.IsSymmetric())
	// Hits in another superlayer are never related.
	assert.Empty(t, nb.Of(5))
	// Layer 4 is two layers away from everything else.
	assert.Empty(t, nb.Of(4))
	assert.True(t, nb.Has(1, 2))
	assert.True(t, nb.Has(0, 1))

	both := WireHitBuilder{Topology: topo, Width: PrimaryAndSecondary}.Build(hits, 0, hits.Len(), relations.AcceptAll[int]())
	assert.True(t, both.IsSymmetric())
	assert.Greater(t, both.Size(), nb.Size())
	assert.True(t, both.Has(3, 4))
	for _, r := range nb.All() {
		assert.True(t, both.Has(r.From, r.To), "primary relation %v missing from superset", r)
	}
}

func TestWireHitBuilder_RangeRestricted(t *testing.T) {
	t.Parallel()

	topo := geometry.IdealTopology()
	hits := newFakeHits(
		geometry.WireID{SuperLayer: 1, Layer: 0, Wire: 5},
		geometry.WireID{SuperLayer: 1, Layer: 0, Wire: 6},
		geometry.WireID{SuperLayer: 1, Layer: 0, Wire: 7},
	)
	nb := WireHitBuilder{Topology: topo, Width: Primary}.Build(hits, 0, 2, relations.AcceptAll[int]())
	assert.Equal(t, 2, nb.Size())
	assert.Empty(t, nb.Of(2))
}

func TestSetLogWriters(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	hits := newFakeHits(
		geometry.WireID{SuperLayer: 1, Layer: 0, Wire: 5},
		geometry.WireID{SuperLayer: 1, Layer: 0, Wire: 6},
	)
	WireHitBuilder{Topology: geometry.IdealTopology(), Width: Primary}.Build(hits, 0, 2, relations.AcceptAll[int]())
	assert.Contains(t, trace.String(), "[neighbors] ")
	assert.Contains(t, trace.String(), "2 relations")
	assert.Zero(t, ops.Len())
	assert.Zero(t, diag.Len())

	SetLogWriters(nil, nil, nil)
	trace.Reset()
	WireHitBuilder{Topology: geometry.IdealTopology(), Width: Primary}.Build(hits, 0, 2, relations.AcceptAll[int]())
	assert.Zero(t, trace.Len())
}

func TestMaxDistance(t *testing.T) {
	t.Parallel()

	topo := geometry.IdealTopology()
	hits := newFakeHits(
		geometry.WireID{SuperLayer: 4, Layer: 2, Wire: 40},
		geometry.WireID{SuperLayer: 4, Layer: 2, Wire: 41},
		geometry.WireID{SuperLayer: 4, Layer: 2, Wire: 42},
	)
	f := MaxDistance(topo, hits, 2.0)
	w := f.Relation(0, 1)
	require.False(t, relations.IsNotACell(w))
	assert.Less(t, w, 0.0)
	assert.True(t, relations.IsNotACell(f.Relation(0, 2)))

	nb := WireHitBuilder{Topology: topo, Width: PrimaryAndSecondary}.Build(hits, 0, 3, f)
	assert.False(t, nb.Has(0, 2))
	assert.True(t, nb.Has(1, 2))
}
