// Package pipeline runs the track finding stages on one event at a time.
//
// A Finder is the per-event context: it owns the hit index, the segment
// reconstructor, the linker and both Hough trees, and reuses their storage
// from event to event. Run one Finder per goroutine.
package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/banshee-data/cdc-trackfinder/internal/monitoring"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/clustering"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hough"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/neighbors"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/segments"
)

// Candidate is a helix hypothesis of the Hough search together with the
// hits voting for it.
type Candidate struct {
	Phi0      float64
	Curvature float64
	Box       hough.Box
	Weight    float64
	// RawHits are the voting hits as indices into the event's raw hits,
	// increasing.
	RawHits []int
	// Segments are indices into Result.Segments; empty for hit input.
	Segments []int
}

// Result is everything found in one event. It does not refer to storage
// owned by the Finder.
type Result struct {
	Event         int
	Hits          int
	SuperClusters []clustering.Cluster
	Clusters      []clustering.Cluster
	Segments      []segments.Segment
	Trains        []segments.SegmentTrain
	Candidates    []Candidate
	Duration      time.Duration
}

// Finder processes events one after another.
type Finder struct {
	cfg  Config
	topo *geometry.Topology

	index       *hits.Index
	clusterizer clustering.Clusterizer
	reco        *segments.Reconstructor
	linker      *segments.Linker
	hitTree     *hough.Tree[hough.HitItem]
	segTree     *hough.Tree[hough.SegmentItem]

	hitItems []hough.HitItem
	segItems []hough.SegmentItem
	events   int
}

// NewFinder builds a finder over topo.
func NewFinder(topo *geometry.Topology, cfg Config) (*Finder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Finder{
		cfg:   cfg,
		topo:  topo,
		index: hits.NewIndex(topo),
		reco:  segments.NewReconstructor(cfg.Segments),
	}
	f.linker = segments.NewLinker(cfg.Link.Tolerance, cfg.Link.MaxGap, cfg.Link.MaxAngle)
	f.linker.PathFinder.MaxIterations = cfg.Segments.MaxIterations
	f.linker.PathFinder.Debug = cfg.Segments.Debug

	var err error
	switch cfg.Input {
	case InputHits:
		f.hitTree, err = hough.NewTree(cfg.Hough, hough.HitInBox, hough.HitItemLess)
		if err != nil {
			return nil, err
		}
		f.hitTree.SetPriority(hough.HitResidualPriority)
	case InputSegments:
		contain := hough.SegmentContainment{MinFraction: cfg.SegmentMinFraction}
		f.segTree, err = hough.NewTree(cfg.Hough, contain.Contains, hough.SegmentItemLess)
		if err != nil {
			return nil, err
		}
		f.segTree.SetPriority(hough.SegmentResidualPriority)
	}
	return f, nil
}

// Config returns the finder configuration.
func (f *Finder) Config() Config { return f.cfg }

// Process runs all stages on the raw hits of one event. It panics with
// the contract errors of the stages, for example on a hit naming a wire
// the topology does not have.
func (f *Finder) Process(raw []hits.RawHit) *Result {
	start := time.Now()
	f.events++
	res := &Result{Event: f.events, Hits: len(raw)}

	x := f.index
	x.Clear()
	x.Fill(raw)
	f.clusterizer.Reset(x.Len())

	suspiciousBefore := f.reco.PathFinder.Suspicious
	for sl := 0; sl < f.topo.NSuperLayers(); sl++ {
		lo, hi := x.SuperLayerRange(sl)
		if lo == hi {
			continue
		}
		primary := neighbors.WireHitBuilder{Topology: f.topo, Width: neighbors.Primary}.
			Build(x, lo, hi, relations.AcceptAll[int]())
		both := neighbors.WireHitBuilder{Topology: f.topo, Width: neighbors.PrimaryAndSecondary}.
			Build(x, lo, hi, relations.AcceptAll[int]())

		nseg := len(res.Segments)
		for _, super := range f.clusterizer.SuperClusters(x, sl, lo, hi, both) {
			res.SuperClusters = append(res.SuperClusters, super)
			for _, cl := range f.clusterizer.Clusters(x, super, primary) {
				res.Clusters = append(res.Clusters, cl)
				res.Segments = append(res.Segments, f.reco.Reconstruct(x, cl, primary)...)
			}
		}
		tracef("event %d superlayer %d: %d hits, %d segments", res.Event, sl, hi-lo, len(res.Segments)-nseg)
	}
	if n := f.reco.PathFinder.Suspicious - suspiciousBefore; n > 0 {
		opsf("event %d: %d segment relaxations stopped at the iteration cap", res.Event, n)
		monitoring.AddSuspicious("segments", n)
	}

	linkBefore := f.linker.PathFinder.Suspicious
	res.Trains = f.linker.Link(res.Segments)
	if n := f.linker.PathFinder.Suspicious - linkBefore; n > 0 {
		opsf("event %d: %d linking relaxations stopped at the iteration cap", res.Event, n)
		monitoring.AddSuspicious("linking", n)
	}

	switch f.cfg.Input {
	case InputHits:
		res.Candidates = f.houghHits()
	case InputSegments:
		res.Candidates = f.houghSegments(res.Segments)
	}

	res.Duration = time.Since(start)
	monitoring.ObserveEvent(monitoring.EventCounts{
		Hits:          res.Hits,
		SuperClusters: len(res.SuperClusters),
		Clusters:      len(res.Clusters),
		Segments:      len(res.Segments),
		Trains:        len(res.Trains),
		Candidates:    len(res.Candidates),
	}, res.Duration)
	diagf("event %d: %d hits, %d superclusters, %d clusters, %d segments, %d trains, %d candidates in %s",
		res.Event, res.Hits, len(res.SuperClusters), len(res.Clusters), len(res.Segments),
		len(res.Trains), len(res.Candidates), res.Duration)
	return res
}

func (f *Finder) houghHits() []Candidate {
	x := f.index
	f.hitItems = f.hitItems[:0]
	for i := 0; i < x.Len(); i++ {
		f.hitItems = append(f.hitItems, hough.NewHitItem(x, i, hits.Unknown))
	}
	f.hitTree.Seed(f.hitItems)
	found := f.hitTree.FindBest()
	monitoring.AddTruncations("hough_hits", f.hitTree.Stats().Truncations)

	out := make([]Candidate, 0, len(found))
	for _, c := range found {
		cand := newCandidate(c.Box, c.Weight)
		var pos []geometry.Vector2D
		for _, it := range c.Items {
			cand.RawHits = append(cand.RawHits, x.Hit(it.Hit).RawIndex)
			pos = append(pos, it.Pos)
		}
		sort.Ints(cand.RawHits)
		cand.orientOutward(pos)
		out = append(out, cand)
	}
	return out
}

func (f *Finder) houghSegments(segs []segments.Segment) []Candidate {
	x := f.index
	f.segItems = f.segItems[:0]
	for k := range segs {
		item := hough.SegmentItem{Segment: k}
		for _, h := range segs[k].Hits {
			item.Hits = append(item.Hits, hough.HitItem{
				Hit:    h.Hit,
				Pos:    h.WirePos,
				Drift:  x.Hit(h.Hit).DriftLength,
				RL:     h.RL,
				Weight: 1,
			})
		}
		f.segItems = append(f.segItems, item)
	}
	f.segTree.Seed(f.segItems)
	found := f.segTree.FindBest()
	monitoring.AddTruncations("hough_segments", f.segTree.Stats().Truncations)

	out := make([]Candidate, 0, len(found))
	for _, c := range found {
		cand := newCandidate(c.Box, c.Weight)
		var pos []geometry.Vector2D
		for _, it := range c.Items {
			cand.Segments = append(cand.Segments, it.Segment)
			for _, h := range it.Hits {
				cand.RawHits = append(cand.RawHits, x.Hit(h.Hit).RawIndex)
				pos = append(pos, h.Pos)
			}
		}
		sort.Ints(cand.Segments)
		sort.Ints(cand.RawHits)
		cand.orientOutward(pos)
		out = append(out, cand)
	}
	return out
}

func newCandidate(box hough.Box, weight float64) Candidate {
	return Candidate{
		Phi0:      box[hough.PhiAxis].Center(),
		Curvature: box[hough.CurvatureAxis].Center(),
		Box:       box,
		Weight:    weight,
	}
}

// orientOutward flips Phi0 and Curvature to the reversed circle when the
// hits lie behind the direction at the origin. Circles through the origin
// and their reversal collect the same votes when the passage side is
// unknown; the reported one leaves the origin towards its hits.
func (c *Candidate) orientOutward(pos []geometry.Vector2D) {
	if len(pos) == 0 {
		return
	}
	dir := geometry.NewPolar(1, c.Phi0)
	if geometry.Mean(pos).Dot(dir) >= 0 {
		return
	}
	c.Phi0 = geometry.NormalizeAngle(c.Phi0 + math.Pi)
	c.Curvature = -c.Curvature
}
