package neighbors

import (
	"math"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
)

// WireHits is the view of a hit index the wire-hit builder needs. Hits on
// the same wire occupy a contiguous range.
type WireHits interface {
	Len() int
	WireID(hit int) geometry.WireID
	OnWire(id geometry.WireID) (lo, hi int)
}

// Width selects the wire neighborhood used to propose candidate pairs.
type Width int

const (
	Primary Width = 1 << iota
	Secondary
	PrimaryAndSecondary = Primary | Secondary
)

func (w Width) String() string {
	switch w {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case PrimaryAndSecondary:
		return "primary+secondary"
	}
	return "none"
}

// WireHitBuilder relates hits on neighboring wires.
type WireHitBuilder struct {
	Topology *geometry.Topology
	Width    Width
}

// Build relates every hit in [lo, hi) to the hits in [lo, hi) sitting on
// neighboring wires, scored by filter. Entities of the returned
// neighborhood are the hit indices of the whole index; hits outside the
// range have no relations.
func (b WireHitBuilder) Build(hits WireHits, lo, hi int, filter relations.Filter[int]) *Neighborhood {
	var scratch []geometry.WireID
	candidates := func(from int, yield func(int)) {
		if from < lo || from >= hi {
			return
		}
		id := hits.WireID(from)
		scratch = scratch[:0]
		if b.Width&Primary != 0 {
			scratch = append(scratch, b.Topology.PrimaryNeighbors(id)...)
		}
		if b.Width&Secondary != 0 {
			scratch = append(scratch, b.Topology.SecondaryNeighbors(id)...)
		}
		for _, nid := range scratch {
			first, last := hits.OnWire(nid)
			for to := max(first, lo); to < min(last, hi); to++ {
				yield(to)
			}
		}
	}
	nb := Build(hits.Len(), candidates, filter)
	tracef("built %s neighborhood over hits [%d,%d): %d relations", b.Width, lo, hi, nb.Size())
	return nb
}

// MaxDistance accepts pairs whose wire reference positions are at most d
// apart, weighted by the negative distance so closer pairs score higher.
func MaxDistance(topo *geometry.Topology, hits WireHits, d float64) relations.Filter[int] {
	return relations.FilterFunc[int](func(from, to int) relations.Weight {
		dist := topo.Wire(hits.WireID(from)).RefPos.Distance(topo.Wire(hits.WireID(to)).RefPos)
		if dist > d || math.IsNaN(dist) {
			return relations.NotACell
		}
		return -dist
	})
}
