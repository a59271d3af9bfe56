package segments

import (
	"sort"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/automaton"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/clustering"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/neighbors"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
)

// Config holds the cuts of the default segment reconstructor.
type Config struct {
	FacetMaxAngle         float64
	FacetRelationMaxAngle float64
	// FacetSigma is the residual scale of the facet penalty in cm.
	FacetSigma    float64
	MinHits       int
	MaxChi2PerHit float64
	// MaxIterations caps the automaton relaxation; zero uses the cell count.
	MaxIterations int
	Debug         bool
}

// DefaultConfig returns the standard cuts.
func DefaultConfig() Config {
	return Config{
		FacetMaxAngle:         DefaultFacetMaxAngle,
		FacetRelationMaxAngle: DefaultFacetRelationMaxAngle,
		FacetSigma:            DefaultFacetSigma,
		MinHits:               DefaultMinSegmentHits,
		MaxChi2PerHit:         DefaultMaxChi2PerHit,
	}
}

// Stats counts the work of a reconstructor since its creation.
type Stats struct {
	Clusters       int
	Facets         int
	FacetRelations int
	Paths          int
	Segments       int
	Rejected       int
}

// Reconstructor builds segments from clusters. It reuses its facet storage
// between clusters and is not safe for concurrent use.
type Reconstructor struct {
	FacetFilter         relations.CellFilter[*Facet]
	FacetRelationFilter relations.Filter[*Facet]
	SegmentFilter       relations.CellFilter[*Segment]
	PathFinder          automaton.PathFinder
	Stats               Stats

	facets []Facet
	rels   []relations.Relation
	nb     neighbors.Neighborhood
}

// NewReconstructor returns a reconstructor using the default filters with
// the cuts of cfg.
func NewReconstructor(cfg Config) *Reconstructor {
	return &Reconstructor{
		FacetFilter:         FacetFilter{MaxAngle: cfg.FacetMaxAngle, Weight: DefaultFacetWeight, Sigma: cfg.FacetSigma},
		FacetRelationFilter: FacetRelationFilter{MaxAngle: cfg.FacetRelationMaxAngle, Weight: DefaultFacetRelationWeight},
		SegmentFilter:       QualityFilter{MinHits: cfg.MinHits, MaxChi2PerHit: cfg.MaxChi2PerHit},
		PathFinder: automaton.PathFinder{
			// Facet penalties stay below one each, so a path of MinHits
			// hits weighs more than MinHits-1.
			MinState:      float64(cfg.MinHits - 1),
			MaxIterations: cfg.MaxIterations,
			Debug:         cfg.Debug,
		},
	}
}

// Reconstruct builds the segments of one cluster. primary must relate the
// cluster hits to their primary wire neighbors. Hits used by a segment are
// marked taken in the index. A cluster without acceptable facet chains
// yields no segments.
func (r *Reconstructor) Reconstruct(x *hits.Index, cl clustering.Cluster, primary *neighbors.Neighborhood) []Segment {
	r.Stats.Clusters++
	r.createFacets(x, cl, primary)
	if len(r.facets) == 0 {
		return nil
	}
	r.createRelations()

	var out []Segment
	pf := r.PathFinder
	pf.OnPath = func(path automaton.Path) { r.takeHits(x, path) }
	for _, path := range pf.Apply(automaton.Of(r.facets), &r.nb) {
		r.Stats.Paths++
		seg := r.condense(x, path)
		seg.SuperLayer = cl.SuperLayer
		seg.SuperCluster = cl.SuperCluster
		seg.Cluster = cl.ID
		if !seg.outward() {
			seg = seg.Reversed()
		}
		seg.Trajectory, seg.Chi2, seg.Fitted = FitCircle(seg.Positions())

		w := r.SegmentFilter.Cell(&seg)
		if relations.IsNotACell(w) {
			r.Stats.Rejected++
			continue
		}
		seg.cell = automaton.NewCell(w)
		out = append(out, seg)
	}
	r.PathFinder.Suspicious = pf.Suspicious
	r.Stats.Segments += len(out)
	tracef("cluster %d (sl %d, %d hits): %d facets, %d relations, %d segments",
		cl.ID, cl.SuperLayer, len(cl.Hits), len(r.facets), r.nb.Size(), len(out))
	return out
}

// createFacets builds every accepted facet of the cluster, sorted.
func (r *Reconstructor) createFacets(x *hits.Index, cl clustering.Cluster, primary *neighbors.Neighborhood) {
	r.facets = r.facets[:0]
	rls := [2]hits.RightLeft{hits.Left, hits.Right}
	for _, m := range cl.Hits {
		if x.Cell(m).Taken() {
			continue
		}
		around := primary.Of(m)
		for _, rs := range around {
			for _, re := range around {
				s, e := rs.To, re.To
				if s == e || x.Cell(s).Taken() || x.Cell(e).Taken() {
					continue
				}
				for _, rlS := range rls {
					for _, rlM := range rls {
						for _, rlE := range rls {
							f := Facet{
								Start:  hits.OrientedOf(s, rlS),
								Middle: hits.OrientedOf(m, rlM),
								End:    hits.OrientedOf(e, rlE),
							}
							if !f.fitTangents(x) {
								continue
							}
							w := r.FacetFilter.Cell(&f)
							if relations.IsNotACell(w) {
								continue
							}
							f.cell = automaton.NewCell(w)
							r.facets = append(r.facets, f)
						}
					}
				}
			}
		}
	}
	sort.Slice(r.facets, func(i, j int) bool { return r.facets[i].less(&r.facets[j]) })
	r.Stats.Facets += len(r.facets)
}

// createRelations relates each facet (a, b, c) to the facets (b, c, d)
// that continue it.
func (r *Reconstructor) createRelations() {
	r.rels = r.rels[:0]
	for i := range r.facets {
		from := &r.facets[i]
		lo := sort.Search(len(r.facets), func(k int) bool {
			g := &r.facets[k]
			return g.Start > from.Middle || (g.Start == from.Middle && g.Middle >= from.End)
		})
		for k := lo; k < len(r.facets); k++ {
			to := &r.facets[k]
			if to.Start != from.Middle || to.Middle != from.End {
				break
			}
			if hits.HitOf(to.End) == hits.HitOf(from.Start) {
				continue
			}
			w := r.FacetRelationFilter.Relation(from, to)
			if relations.IsNotACell(w) {
				continue
			}
			r.rels = append(r.rels, relations.Relation{From: i, To: k, Weight: w})
		}
	}
	r.nb.Reset(len(r.facets), r.rels)
	r.Stats.FacetRelations += r.nb.Size()
}

// takeHits marks the wire hits of an extracted path taken and masks every
// facet using one of them, including the reversed duplicates.
func (r *Reconstructor) takeHits(x *hits.Index, path automaton.Path) {
	for _, fi := range path {
		for _, h := range r.facets[fi].Hits() {
			x.Cell(h).SetTaken()
		}
	}
	for i := range r.facets {
		f := &r.facets[i]
		for _, h := range f.Hits() {
			if x.Cell(h).Taken() {
				f.cell.Set(automaton.Masked)
				break
			}
		}
	}
}

// condense turns a facet path into hits with averaged positions.
func (r *Reconstructor) condense(x *hits.Index, path automaton.Path) Segment {
	n := len(path) + 2
	oriented := make([]int, n)
	sums := make([]geometry.Vector2D, n)
	counts := make([]int, n)
	for k, fi := range path {
		f := &r.facets[fi]
		oriented[k], oriented[k+1], oriented[k+2] = f.Start, f.Middle, f.End
		for j, pts := range f.touchPoints() {
			for _, p := range pts {
				sums[k+j] = sums[k+j].Add(p)
				counts[k+j]++
			}
		}
	}

	seg := Segment{Hits: make([]RecoHit2D, n)}
	for k, o := range oriented {
		oh := x.Oriented(o)
		seg.Hits[k] = RecoHit2D{
			Oriented: o,
			Hit:      oh.Hit,
			RL:       oh.RL,
			WirePos:  x.Hit(oh.Hit).Wire.RefPos,
			Pos:      sums[k].Scale(1 / float64(counts[k])),
		}
	}
	return seg
}
