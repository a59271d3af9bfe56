package clustering

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/neighbors"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
)

func rel(from, to int) relations.Relation { return relations.Relation{From: from, To: to} }

// membership returns the components as sorted sets for order-free
// comparison.
func membership(comps [][]int) [][]int {
	out := make([][]int, len(comps))
	for i, c := range comps {
		out[i] = append([]int(nil), c...)
		sort.Ints(out[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func TestComponents_Basic(t *testing.T) {
	t.Parallel()

	nb := neighbors.New(7, []relations.Relation{
		rel(0, 1), rel(1, 0), rel(1, 2), rel(2, 1),
		rel(4, 5), // one-way relation still joins
	})
	var c Clusterizer
	c.Reset(7)
	comps := c.Components([]int{0, 1, 2, 3, 4, 5, 6}, nb)
	want := [][]int{{0, 1, 2}, {3}, {4, 5}, {6}}
	if diff := cmp.Diff(want, comps); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}
}

func TestComponents_RestrictedToNodes(t *testing.T) {
	t.Parallel()

	nb := neighbors.New(4, []relations.Relation{rel(0, 1), rel(1, 2), rel(2, 3)})
	var c Clusterizer
	comps := c.Components([]int{0, 2, 3}, nb)
	assert.Equal(t, [][]int{{0}, {2, 3}}, comps)
	// Labels are released for the next call.
	comps = c.Components([]int{0, 1, 2, 3}, nb)
	assert.Equal(t, [][]int{{0, 1, 2, 3}}, comps)
	assert.Nil(t, c.Components(nil, nb))
}

func TestComponents_MembershipInvariantUnderPermutation(t *testing.T) {
	t.Parallel()

	const n = 200
	rng := rand.New(rand.NewSource(7))
	var rels []relations.Relation
	for k := 0; k < 150; k++ {
		a, b := rng.Intn(n), rng.Intn(n)
		rels = append(rels, rel(a, b), rel(b, a))
	}
	nb := neighbors.New(n, rels)

	nodes := make([]int, n)
	for i := range nodes {
		nodes[i] = i
	}
	var c Clusterizer
	want := membership(c.Components(nodes, nb))

	for trial := 0; trial < 5; trial++ {
		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
		got := membership(c.Components(nodes, nb))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("trial %d: membership changed (-want +got):\n%s", trial, diff)
		}
	}

	total := 0
	for _, comp := range want {
		total += len(comp)
	}
	assert.Equal(t, n, total)
}

func TestSuperClustersAndClusters(t *testing.T) {
	t.Parallel()

	topo := geometry.IdealTopology()
	x := hits.NewIndex(topo)
	x.Fill([]hits.RawHit{
		// Two primary groups bridged by a secondary neighbor (layer 2 -> 4).
		{SuperLayer: 2, Layer: 0, Wire: 10},
		{SuperLayer: 2, Layer: 1, Wire: 10},
		{SuperLayer: 2, Layer: 2, Wire: 10},
		{SuperLayer: 2, Layer: 4, Wire: 10},
		{SuperLayer: 2, Layer: 5, Wire: 10},
		// Far away, alone.
		{SuperLayer: 2, Layer: 3, Wire: 100},
		// Other superlayer.
		{SuperLayer: 4, Layer: 0, Wire: 10},
	})
	lo, hi := x.SuperLayerRange(2)
	require.Equal(t, 6, hi-lo)

	both := neighbors.WireHitBuilder{Topology: topo, Width: neighbors.PrimaryAndSecondary}.Build(x, lo, hi, relations.AcceptAll[int]())
	primary := neighbors.WireHitBuilder{Topology: topo, Width: neighbors.Primary}.Build(x, lo, hi, relations.AcceptAll[int]())

	var c Clusterizer
	c.Reset(x.Len())
	supers := c.SuperClusters(x, 2, lo, hi, both)
	require.Len(t, supers, 2)
	assert.Equal(t, 5, supers[0].Len())
	assert.Equal(t, 1, supers[1].Len())
	assert.Equal(t, 1, supers[1].ID)
	for _, s := range supers {
		assert.Equal(t, 2, s.SuperLayer)
		assert.Equal(t, s.ID, s.SuperCluster)
		for _, i := range s.Hits {
			p := x.Hit(i).Wire.RefPos
			assert.True(t, s.Bound.Min[0] <= p.X && p.X <= s.Bound.Max[0])
			assert.True(t, s.Bound.Min[1] <= p.Y && p.Y <= s.Bound.Max[1])
		}
	}

	clusters := c.Clusters(x, supers[0], primary)
	require.Len(t, clusters, 2)
	assert.Equal(t, 3, clusters[0].Len())
	assert.Equal(t, 2, clusters[1].Len())
	assert.Equal(t, []int{0, 1}, []int{clusters[0].ID, clusters[1].ID})
	for _, cl := range clusters {
		assert.Equal(t, supers[0].ID, cl.SuperCluster)
	}
}

func TestSuperClusters_EmptyRange(t *testing.T) {
	t.Parallel()

	x := hits.NewIndex(geometry.IdealTopology())
	x.Fill(nil)
	var c Clusterizer
	c.Reset(0)
	nb := neighbors.New(0, nil)
	assert.Empty(t, c.SuperClusters(x, 0, 0, 0, nb))
}
