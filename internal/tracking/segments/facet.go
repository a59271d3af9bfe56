package segments

import (
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/automaton"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
)

// Facet is an oriented hit triple. Start and End are primary neighbors of
// Middle; all three are oriented hit indices of the hit index.
type Facet struct {
	Start, Middle, End int

	StartToMiddle geometry.Tangent
	StartToEnd    geometry.Tangent
	MiddleToEnd   geometry.Tangent

	// Residuals of the start, middle and end drift circle to the tangent
	// of the other two hits.
	Residuals [3]float64

	cell automaton.Cell
}

func (f *Facet) AutomatonCell() *automaton.Cell { return &f.cell }

// Hits returns the wire hits of the facet.
func (f *Facet) Hits() [3]int {
	return [3]int{hits.HitOf(f.Start), hits.HitOf(f.Middle), hits.HitOf(f.End)}
}

// less orders facets by start, middle and end.
func (f *Facet) less(g *Facet) bool {
	if f.Start != g.Start {
		return f.Start < g.Start
	}
	if f.Middle != g.Middle {
		return f.Middle < g.Middle
	}
	return f.End < g.End
}

// fitTangents computes the three tangents of the facet. It returns false
// when any pair of drift circles has no tangent with the requested sides.
func (f *Facet) fitTangents(x *hits.Index) bool {
	pos := func(o int) (geometry.Vector2D, float64) {
		oh := x.Oriented(o)
		return x.Hit(oh.Hit).Wire.RefPos, oh.SignedDriftLength()
	}
	sp, sd := pos(f.Start)
	mp, md := pos(f.Middle)
	ep, ed := pos(f.End)

	var ok1, ok2, ok3 bool
	f.StartToMiddle, ok1 = geometry.NewTangent(sp, sd, mp, md)
	f.StartToEnd, ok2 = geometry.NewTangent(sp, sd, ep, ed)
	f.MiddleToEnd, ok3 = geometry.NewTangent(mp, md, ep, ed)
	if !(ok1 && ok2 && ok3) {
		return false
	}
	f.Residuals = [3]float64{
		f.MiddleToEnd.Distance(sp) - sd,
		f.StartToEnd.Distance(mp) - md,
		f.StartToMiddle.Distance(ep) - ed,
	}
	return true
}

// Chi2 sums the squared residuals in units of sigma.
func (f *Facet) Chi2(sigma float64) float64 {
	var chi2 float64
	for _, r := range f.Residuals {
		chi2 += (r / sigma) * (r / sigma)
	}
	return chi2
}

// touchPoints returns the two estimates the facet gives for the
// reconstructed position of its start, middle and end hit.
func (f *Facet) touchPoints() [3][2]geometry.Vector2D {
	return [3][2]geometry.Vector2D{
		{f.StartToMiddle.From, f.StartToEnd.From},
		{f.StartToMiddle.To, f.MiddleToEnd.From},
		{f.StartToEnd.To, f.MiddleToEnd.To},
	}
}
