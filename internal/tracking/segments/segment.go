package segments

import (
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/automaton"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
)

// RecoHit2D is an oriented hit with its reconstructed position.
type RecoHit2D struct {
	Oriented int // oriented hit index
	Hit      int // wire hit index
	RL       hits.RightLeft
	WirePos  geometry.Vector2D
	Pos      geometry.Vector2D
}

// Reversed returns the hit seen from a track running the other way.
func (h RecoHit2D) Reversed() RecoHit2D {
	h.Oriented = hits.Reverse(h.Oriented)
	h.RL = h.RL.Opposite()
	return h
}

// Segment is an ordered chain of reconstructed hits of one superlayer with
// its fitted trajectory.
type Segment struct {
	SuperLayer   int
	SuperCluster int
	Cluster      int
	Hits         []RecoHit2D
	Trajectory   geometry.Trajectory2D
	Chi2         float64
	Fitted       bool

	cell automaton.Cell
}

func (s *Segment) AutomatonCell() *automaton.Cell { return &s.cell }

// Positions returns the reconstructed hit positions in order.
func (s *Segment) Positions() []geometry.Vector2D {
	out := make([]geometry.Vector2D, len(s.Hits))
	for i, h := range s.Hits {
		out[i] = h.Pos
	}
	return out
}

// WireHits returns the wire hit indices in order.
func (s *Segment) WireHits() []int {
	out := make([]int, len(s.Hits))
	for i, h := range s.Hits {
		out[i] = h.Hit
	}
	return out
}

// Reversed returns the segment travelled in the opposite direction: hits in
// reverse order with mirrored passage sides and a reversed trajectory. The
// cell keeps its weight and loses its flags.
func (s *Segment) Reversed() Segment {
	rev := Segment{
		SuperLayer:   s.SuperLayer,
		SuperCluster: s.SuperCluster,
		Cluster:      s.Cluster,
		Hits:         make([]RecoHit2D, len(s.Hits)),
		Trajectory:   s.Trajectory.Reversed(),
		Chi2:         s.Chi2,
		Fitted:       s.Fitted,
		cell:         automaton.NewCell(s.cell.Weight()),
	}
	for i, h := range s.Hits {
		rev.Hits[len(s.Hits)-1-i] = h.Reversed()
	}
	return rev
}

// outward reports whether the segment already runs away from the origin.
func (s *Segment) outward() bool {
	first := s.Hits[0].WirePos.Norm()
	last := s.Hits[len(s.Hits)-1].WirePos.Norm()
	if last != first {
		return last > first
	}
	// Single layer: keep counterclockwise order.
	return s.Hits[0].WirePos.Cross(s.Hits[len(s.Hits)-1].WirePos) >= 0
}
