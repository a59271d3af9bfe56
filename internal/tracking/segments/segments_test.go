package segments

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cdc-trackfinder/internal/testutil"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/automaton"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/clustering"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/neighbors"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
)

// buildSuperLayer fills an index and returns the primary neighborhood and
// primary clusters of one superlayer.
func buildSuperLayer(t *testing.T, raw []hits.RawHit, sl int) (*hits.Index, *neighbors.Neighborhood, []clustering.Cluster) {
	t.Helper()
	topo := geometry.IdealTopology()
	x := hits.NewIndex(topo)
	x.Fill(raw)
	lo, hi := x.SuperLayerRange(sl)
	primary := neighbors.WireHitBuilder{Topology: topo, Width: neighbors.Primary}.Build(x, lo, hi, relations.AcceptAll[int]())

	var c clustering.Clusterizer
	c.Reset(x.Len())
	nodes := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		nodes = append(nodes, i)
	}
	var clusters []clustering.Cluster
	for k, members := range c.Components(nodes, primary) {
		clusters = append(clusters, clustering.Cluster{ID: k, SuperCluster: k, SuperLayer: sl, Hits: members})
	}
	return x, primary, clusters
}

func TestFitCircle_RecoversCircle(t *testing.T) {
	t.Parallel()

	truth := geometry.NewPerigeeTrajectory(0.02, 0.3, 0)
	var pts []geometry.Vector2D
	for _, r := range []float64{20, 22, 24, 26, 28, 30} {
		p, ok := truth.PointAtRadius(r)
		require.True(t, ok)
		pts = append(pts, p)
	}
	traj, chi2, ok := FitCircle(pts)
	require.True(t, ok)
	assert.InDelta(t, 0.02, traj.Curvature(), 1e-6)
	assert.InDelta(t, 0.3, traj.Phi0(), 1e-6)
	assert.InDelta(t, 0, chi2, 1e-12)

	// Reverse point order flips the orientation.
	rev := make([]geometry.Vector2D, len(pts))
	for i, p := range pts {
		rev[len(pts)-1-i] = p
	}
	traj, _, ok = FitCircle(rev)
	require.True(t, ok)
	assert.InDelta(t, -0.02, traj.Curvature(), 1e-6)

	_, _, ok = FitCircle(pts[:2])
	assert.False(t, ok)
}

func TestFitCircle_Line(t *testing.T) {
	t.Parallel()

	pts := []geometry.Vector2D{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}, {X: 4, Y: 4}}
	traj, chi2, ok := FitCircle(pts)
	require.True(t, ok)
	assert.InDelta(t, 0, traj.Curvature(), 1e-9)
	assert.InDelta(t, 0, chi2, 1e-12)
	assert.InDelta(t, math.Pi/4, traj.Direction(pts[0]).Phi(), 1e-9)
}

func TestReconstruct_HelixGivesOneSegmentPerSuperLayer(t *testing.T) {
	t.Parallel()

	topo := geometry.IdealTopology()
	helix := testutil.Helix{Phi0: 0.5, Curvature: 0.005}
	raw, _ := testutil.HelixHits(topo, helix)
	truth := helix.Trajectory()

	for sl := 0; sl < topo.NSuperLayers(); sl++ {
		x, primary, clusters := buildSuperLayer(t, raw, sl)
		require.Len(t, clusters, 1, "superlayer %d", sl)

		r := NewReconstructor(DefaultConfig())
		segs := r.Reconstruct(x, clusters[0], primary)
		require.Len(t, segs, 1, "superlayer %d", sl)

		seg := segs[0]
		assert.Len(t, seg.Hits, topo.NLayers(sl))
		assert.Equal(t, sl, seg.SuperLayer)
		assert.True(t, seg.Fitted)
		assert.Equal(t, float64(len(seg.Hits)), seg.AutomatonCell().Weight())

		// Outward order.
		assert.Less(t, seg.Hits[0].WirePos.Norm(), seg.Hits[len(seg.Hits)-1].WirePos.Norm())
		// Same travel direction as the truth.
		first := seg.Hits[0].Pos
		assert.Greater(t, seg.Trajectory.Direction(first).Dot(truth.Direction(first)), 0.99)

		var res float64
		for _, h := range seg.Hits {
			res += math.Abs(truth.Distance(h.Pos))
			assert.True(t, x.Cell(h.Hit).Taken())
		}
		assert.Less(t, res/float64(len(seg.Hits)), 0.1)
		assert.Positive(t, r.Stats.Facets)
	}
}

func TestReconstruct_TruePassageSides(t *testing.T) {
	t.Parallel()

	topo := geometry.IdealTopology()
	for _, helix := range []testutil.Helix{
		{Phi0: 0.5, Curvature: 0.005},
		{Phi0: -2, Curvature: -0.008},
	} {
		raw, rls := testutil.HelixHits(topo, helix)
		for sl := 0; sl < topo.NSuperLayers(); sl++ {
			x, primary, clusters := buildSuperLayer(t, raw, sl)
			r := NewReconstructor(DefaultConfig())
			for _, cl := range clusters {
				for _, seg := range r.Reconstruct(x, cl, primary) {
					for _, h := range seg.Hits {
						wh := x.Hit(h.Hit)
						// Both sides of a hit on the wire give the same position.
						if wh.DriftLength < 0.05 {
							continue
						}
						assert.Equal(t, rls[wh.RawIndex], h.RL, "helix %+v superlayer %d wire %s", helix, sl, wh.ID())
					}
				}
			}
		}
	}
}

func TestFacetFilter_TrueSidesWeighMost(t *testing.T) {
	t.Parallel()

	topo := geometry.IdealTopology()
	raw, rls := testutil.HelixHits(topo, testutil.Helix{Phi0: 0.5, Curvature: 0.005})
	x := hits.NewIndex(topo)
	x.Fill(raw)
	ff := FacetFilter{MaxAngle: DefaultFacetMaxAngle, Weight: DefaultFacetWeight, Sigma: DefaultFacetSigma}

	for r := 0; r+2 < len(raw); r++ {
		if raw[r].SuperLayer != raw[r+2].SuperLayer {
			continue
		}
		var ids [3]int
		for k := range ids {
			ids[k], _ = x.HitForRaw(r + k)
		}
		weigh := func(sides [3]hits.RightLeft) (relations.Weight, bool) {
			f := Facet{
				Start:  hits.OrientedOf(ids[0], sides[0]),
				Middle: hits.OrientedOf(ids[1], sides[1]),
				End:    hits.OrientedOf(ids[2], sides[2]),
			}
			if !f.fitTangents(x) {
				return 0, false
			}
			return ff.Cell(&f), true
		}

		truth := [3]hits.RightLeft{rls[r], rls[r+1], rls[r+2]}
		want, ok := weigh(truth)
		require.True(t, ok, "raw hits %d-%d", r, r+2)
		require.False(t, relations.IsNotACell(want))
		assert.Greater(t, want, 2.5)
		assert.LessOrEqual(t, want, 3.0)

		// Flipping all three sides mirrors the line at the wire line when
		// the wires are collinear; only the facet chain resolves that.
		for mask := 1; mask < 7; mask++ {
			sides := truth
			significant := false
			for k := range sides {
				if mask&(1<<k) != 0 {
					sides[k] = sides[k].Opposite()
					significant = significant || raw[r+k].DriftLength >= 0.05
				}
			}
			w, ok := weigh(sides)
			if !ok || relations.IsNotACell(w) || !significant {
				continue
			}
			assert.Less(t, w, want, "raw hits %d-%d sides %v", r, r+2, sides)
		}
	}
}

func TestFacetFilter_Weight(t *testing.T) {
	t.Parallel()

	straight := func(residuals [3]float64) *Facet {
		line := geometry.NewLineThrough(geometry.Vector2D{}, geometry.Vector2D{X: 1})
		tan := geometry.Tangent{Line2D: line}
		return &Facet{StartToMiddle: tan, StartToEnd: tan, MiddleToEnd: tan, Residuals: residuals}
	}

	ff := FacetFilter{MaxAngle: 0.4, Weight: 3, Sigma: 0.05}
	assert.Equal(t, 3.0, ff.Cell(straight([3]float64{})))
	// chi2 of 1 costs half a unit.
	assert.InDelta(t, 2.5, ff.Cell(straight([3]float64{0.05, 0, 0})), 1e-12)
	assert.Less(t, ff.Cell(straight([3]float64{0.5, 0.5, 0})), ff.Cell(straight([3]float64{0.1, 0, 0})))
	assert.Greater(t, ff.Cell(straight([3]float64{10, 10, 10})), 2.0)

	ff.Sigma = 0
	assert.Equal(t, 3.0, ff.Cell(straight([3]float64{1, 1, 1})))

	bent := straight([3]float64{})
	bent.MiddleToEnd.Direction = geometry.Vector2D{Y: 1}
	assert.True(t, relations.IsNotACell(ff.Cell(bent)))
}

func TestReconstruct_TooFewHits(t *testing.T) {
	t.Parallel()

	raw := []hits.RawHit{
		{SuperLayer: 2, Layer: 1, Wire: 20, DriftLength: 0.3},
		{SuperLayer: 2, Layer: 2, Wire: 20, DriftLength: 0.3},
		{SuperLayer: 2, Layer: 5, Wire: 100, DriftLength: 0.3},
	}
	x, primary, clusters := buildSuperLayer(t, raw, 2)
	require.Len(t, clusters, 2)
	r := NewReconstructor(DefaultConfig())
	for _, cl := range clusters {
		assert.Empty(t, r.Reconstruct(x, cl, primary))
	}
	assert.Zero(t, r.Stats.Segments)
}

func TestSegment_Reversed(t *testing.T) {
	t.Parallel()

	seg := Segment{
		SuperLayer: 3,
		Hits: []RecoHit2D{
			{Oriented: 4, Hit: 2, RL: hits.Left, Pos: geometry.Vector2D{X: 1}},
			{Oriented: 7, Hit: 3, RL: hits.Right, Pos: geometry.Vector2D{X: 2}},
		},
		Trajectory: geometry.NewPerigeeTrajectory(0.01, 0, 0),
		cell:       automaton.NewCell(2),
	}
	seg.cell.SetTaken()

	rev := seg.Reversed()
	require.Len(t, rev.Hits, 2)
	assert.Equal(t, 6, rev.Hits[0].Oriented)
	assert.Equal(t, hits.Left, rev.Hits[0].RL)
	assert.Equal(t, 5, rev.Hits[1].Oriented)
	assert.Equal(t, hits.Right, rev.Hits[1].RL)
	assert.InDelta(t, -0.01, rev.Trajectory.Curvature(), 1e-12)
	assert.Equal(t, 2.0, rev.AutomatonCell().Weight())
	assert.False(t, rev.AutomatonCell().Taken())

	back := rev.Reversed()
	assert.Equal(t, seg.Hits, back.Hits)
}

func TestQualityFilter(t *testing.T) {
	t.Parallel()

	qf := QualityFilter{MinHits: 3, MaxChi2PerHit: 0.1}
	seg := &Segment{Hits: make([]RecoHit2D, 4), Fitted: true, Chi2: 0.2}
	assert.Equal(t, 4.0, qf.Cell(seg))
	seg.Chi2 = 1
	assert.True(t, relations.IsNotACell(qf.Cell(seg)))
	assert.True(t, relations.IsNotACell(qf.Cell(&Segment{Hits: make([]RecoHit2D, 2), Fitted: true})))
}

// arcSegment builds a fitted segment of the given circle between two radii.
func arcSegment(t *testing.T, traj geometry.Trajectory2D, sl int, radii ...float64) Segment {
	t.Helper()
	seg := Segment{SuperLayer: sl, Trajectory: traj, Fitted: true}
	for _, r := range radii {
		p, ok := traj.PointAtRadius(r)
		require.True(t, ok)
		seg.Hits = append(seg.Hits, RecoHit2D{Pos: p, WirePos: p})
	}
	seg.cell = automaton.NewCell(float64(len(seg.Hits)))
	return seg
}

func TestLinker_ChainsSegmentsOfOneCircle(t *testing.T) {
	t.Parallel()

	a := geometry.NewPerigeeTrajectory(0.005, 0.5, 0)
	b := geometry.NewPerigeeTrajectory(-0.008, -2.0, 0)
	segs := []Segment{
		arcSegment(t, a, 1, 26, 28, 30, 32),
		arcSegment(t, b, 1, 26, 28, 30),
		arcSegment(t, a, 2, 37, 39, 41, 43),
		arcSegment(t, b, 3, 48, 50, 52),
		arcSegment(t, a, 4, 58, 60, 62),
	}
	l := NewLinker(DefaultLinkTolerance, DefaultLinkMaxGap, DefaultLinkMaxAngle)
	trains := l.Link(segs)

	require.Len(t, trains, 2)
	assert.Equal(t, []int{0, 2, 4}, trains[0].Segments)
	assert.InDelta(t, 11.0, trains[0].Weight, 1e-9)
	assert.Equal(t, []int{1, 3}, trains[1].Segments)
}

func TestLinker_Empty(t *testing.T) {
	t.Parallel()

	l := NewLinker(DefaultLinkTolerance, DefaultLinkMaxGap, DefaultLinkMaxAngle)
	assert.Empty(t, l.Link(nil))
}

func TestExtrapolationFilter(t *testing.T) {
	t.Parallel()

	a := geometry.NewPerigeeTrajectory(0.005, 0.5, 0)
	ef := ExtrapolationFilter{Tolerance: 1, MaxGap: 2, MaxAngle: 0.5}
	inner := arcSegment(t, a, 1, 26, 28)
	outer := arcSegment(t, a, 2, 37, 39)
	far := arcSegment(t, a, 5, 70, 72)
	assert.InDelta(t, 0, ef.Relation(&inner, &outer), 1e-9)
	assert.True(t, relations.IsNotACell(ef.Relation(&outer, &inner)))
	assert.True(t, relations.IsNotACell(ef.Relation(&inner, &far)))

	rev := outer.Reversed()
	assert.True(t, relations.IsNotACell(ef.Relation(&inner, &rev)))
}
