package hits

import (
	"sort"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/automaton"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
)

// Index owns the wire hits of one event. Wire hits are sorted by encoded
// wire id, ties kept in raw order. Oriented hits are stored pairwise: the
// left hypothesis of wire hit i is at 2*i and the right one at 2*i+1.
//
// The index must be cleared explicitly between events. It is not safe for
// concurrent use.
type Index struct {
	topology *geometry.Topology

	hits     []WireHit
	keys     []uint32
	oriented []OrientedWireHit
	cells    []automaton.Cell
	rawToHit []int
	filled   bool
}

// NewIndex returns an empty index over the given topology.
func NewIndex(topo *geometry.Topology) *Index {
	return &Index{topology: topo}
}

// Topology returns the wire topology the index resolves hits against.
func (x *Index) Topology() *geometry.Topology { return x.topology }

// Fill builds the index from the raw hits of one event. The raw slice is
// only read. Fill panics with *ContractError when a raw hit does not name a
// valid wire or when the index still holds a previous event.
func (x *Index) Fill(raw []RawHit) {
	if x.filled {
		panic(contractf("Fill", "index holds %d hits of a previous event; call Clear first", len(x.hits)))
	}
	x.filled = true

	order := make([]int, len(raw))
	ids := make([]geometry.WireID, len(raw))
	for i, r := range raw {
		if r.SuperLayer < 0 || r.Layer < 0 || r.Wire < 0 || r.SuperLayer > 0xffff || r.Layer > 0xffff || r.Wire > 0xffff {
			panic(contractf("Fill", "raw hit %d has invalid wire %d/%d/%d", i, r.SuperLayer, r.Layer, r.Wire))
		}
		id := geometry.WireID{SuperLayer: uint16(r.SuperLayer), Layer: uint16(r.Layer), Wire: uint16(r.Wire)}
		if !x.topology.Valid(id) {
			panic(contractf("Fill", "raw hit %d has invalid wire %s", i, id))
		}
		order[i] = i
		ids[i] = id
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ids[order[a]].Encode() < ids[order[b]].Encode()
	})

	x.rawToHit = grow(x.rawToHit, len(raw))
	for hit, ri := range order {
		r := raw[ri]
		x.hits = append(x.hits, WireHit{
			Wire:          x.topology.Wire(ids[ri]),
			RawIndex:      ri,
			DriftLength:   r.DriftLength,
			DriftVariance: r.DriftVariance,
			ADC:           r.ADC,
			TOT:           r.TOT,
		})
		x.keys = append(x.keys, ids[ri].Encode())
		x.rawToHit[ri] = hit
		x.oriented = append(x.oriented,
			OrientedWireHit{Hit: hit, RL: Left, DriftLength: r.DriftLength, DriftVariance: r.DriftVariance},
			OrientedWireHit{Hit: hit, RL: Right, DriftLength: r.DriftLength, DriftVariance: r.DriftVariance},
		)
		x.cells = append(x.cells, automaton.NewCell(1))
	}
	diagf("filled index with %d wire hits", len(x.hits))
}

// Clear empties the index, keeping its storage for the next event.
func (x *Index) Clear() {
	x.hits = x.hits[:0]
	x.keys = x.keys[:0]
	x.oriented = x.oriented[:0]
	x.cells = x.cells[:0]
	x.rawToHit = x.rawToHit[:0]
	x.filled = false
}

func grow(s []int, n int) []int {
	if cap(s) < n {
		return make([]int, n)
	}
	return s[:n]
}

// Len returns the number of wire hits.
func (x *Index) Len() int { return len(x.hits) }

// Hit returns wire hit i.
func (x *Index) Hit(i int) WireHit { return x.hits[i] }

// Hits returns the sorted wire hits. The slice must not be modified.
func (x *Index) Hits() []WireHit { return x.hits }

// WireID returns the wire of hit i.
func (x *Index) WireID(i int) geometry.WireID { return x.hits[i].Wire.ID }

// NOriented returns the number of oriented hits, twice Len.
func (x *Index) NOriented() int { return len(x.oriented) }

// Oriented returns oriented hit o.
func (x *Index) Oriented(o int) OrientedWireHit { return x.oriented[o] }

// OrientedOf returns the index of the oriented hit of wire hit i with the
// given hypothesis. Unknown maps to Left.
func OrientedOf(i int, rl RightLeft) int {
	if rl == Right {
		return 2*i + 1
	}
	return 2 * i
}

// HitOf returns the wire hit of oriented hit o.
func HitOf(o int) int { return o >> 1 }

// Reverse returns the other hypothesis of oriented hit o.
func Reverse(o int) int { return o ^ 1 }

// HitForRaw returns the wire hit built from raw hit r.
func (x *Index) HitForRaw(r int) (int, bool) {
	if r < 0 || r >= len(x.rawToHit) {
		return 0, false
	}
	return x.rawToHit[r], true
}

// RangeByKey returns the hits whose encoded wire id lies in [lo, hi).
func (x *Index) RangeByKey(lo, hi uint32) (int, int) {
	first := sort.Search(len(x.keys), func(i int) bool { return x.keys[i] >= lo })
	last := sort.Search(len(x.keys), func(i int) bool { return x.keys[i] >= hi })
	return first, last
}

// OnWire returns the range of hits on wire id.
func (x *Index) OnWire(id geometry.WireID) (int, int) {
	k := id.Encode()
	return x.RangeByKey(k, k+1)
}

// Find returns the first hit on wire id.
func (x *Index) Find(id geometry.WireID) (int, bool) {
	lo, hi := x.OnWire(id)
	return lo, lo < hi
}

// SuperLayerRange returns the hits of superlayer sl.
func (x *Index) SuperLayerRange(sl int) (int, int) {
	lo := geometry.WireID{SuperLayer: uint16(sl)}.Encode()
	hi := geometry.WireID{SuperLayer: uint16(sl + 1)}.Encode()
	return x.RangeByKey(lo, hi)
}

// LayerRange returns the hits of one layer.
func (x *Index) LayerRange(sl, layer int) (int, int) {
	lo := geometry.WireID{SuperLayer: uint16(sl), Layer: uint16(layer)}.Encode()
	return x.RangeByKey(lo, lo+512)
}

// Cell returns the automaton cell of wire hit i. Segment building marks
// used hits taken through it.
func (x *Index) Cell(i int) *automaton.Cell { return &x.cells[i] }

// ResetCells clears the flags of every wire hit cell.
func (x *Index) ResetCells() {
	for i := range x.cells {
		x.cells[i].Reset()
	}
}
