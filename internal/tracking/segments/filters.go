package segments

import (
	"math"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
)

// Default cuts of the facet and segment filters.
const (
	DefaultFacetMaxAngle         = 0.4 // rad
	DefaultFacetRelationMaxAngle = 0.4 // rad
	DefaultFacetWeight           = 3
	DefaultFacetSigma            = 0.05 // cm
	DefaultFacetRelationWeight   = -2
	DefaultMinSegmentHits        = 3
	DefaultMaxChi2PerHit         = 0.1 // cm^2
)

// FacetFilter accepts facets whose three tangents point in nearly the same
// direction. The weight of an accepted facet is Weight less a penalty in
// [0, 1) that grows with the facet Chi2, so among the passage hypotheses of
// a hit chain the one touching all drift circles builds the heaviest path.
// A zero Sigma gives every accepted facet the full Weight.
type FacetFilter struct {
	MaxAngle float64
	Weight   float64
	Sigma    float64
}

func (ff FacetFilter) Cell(f *Facet) relations.Weight {
	minCos := math.Cos(ff.MaxAngle)
	if f.StartToMiddle.CosAngle(f.MiddleToEnd.Line2D) < minCos ||
		f.StartToMiddle.CosAngle(f.StartToEnd.Line2D) < minCos ||
		f.StartToEnd.CosAngle(f.MiddleToEnd.Line2D) < minCos {
		return relations.NotACell
	}
	if ff.Sigma <= 0 {
		return ff.Weight
	}
	chi2 := f.Chi2(ff.Sigma)
	return ff.Weight - chi2/(1+chi2)
}

// FacetRelationFilter accepts the continuation of facet from by facet to
// when the tangent entering the shared pair agrees with the one leaving
// it.
type FacetRelationFilter struct {
	MaxAngle float64
	Weight   float64
}

func (rf FacetRelationFilter) Relation(from, to *Facet) relations.Weight {
	if from.StartToMiddle.CosAngle(to.MiddleToEnd.Line2D) < math.Cos(rf.MaxAngle) {
		return relations.NotACell
	}
	return rf.Weight
}

// QualityFilter weighs a fitted segment by its hit count and rejects
// short or badly fitting ones.
type QualityFilter struct {
	MinHits       int
	MaxChi2PerHit float64
}

func (qf QualityFilter) Cell(s *Segment) relations.Weight {
	n := len(s.Hits)
	if n < qf.MinHits || !s.Fitted {
		return relations.NotACell
	}
	if qf.MaxChi2PerHit > 0 && s.Chi2/float64(n) > qf.MaxChi2PerHit {
		return relations.NotACell
	}
	return float64(n)
}
