// Package testutil generates synthetic events on the ideal wire topology:
// ideal hits of circles through the origin and deterministic noise.
package testutil

import (
	"math"
	"math/rand"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
)

// DriftVariance is the variance given to generated hits, (0.02 cm)^2.
const DriftVariance = 0.0004

// Helix describes the transverse projection of a track from the origin.
type Helix struct {
	Phi0      float64
	Curvature float64
}

// Trajectory returns the circle of the helix.
func (h Helix) Trajectory() geometry.Trajectory2D {
	return geometry.NewPerigeeTrajectory(h.Curvature, h.Phi0, 0)
}

// HelixHits returns one ideal hit per layer crossed on the way out: the
// wire closest to the crossing point with its exact drift distance. The
// second result holds the true passage side of each hit.
func HelixHits(topo *geometry.Topology, h Helix) ([]hits.RawHit, []hits.RightLeft) {
	traj := h.Trajectory()
	var raw []hits.RawHit
	var rls []hits.RightLeft
	for sl := 0; sl < topo.NSuperLayers(); sl++ {
		for l := 0; l < topo.NLayers(sl); l++ {
			layer := topo.Layer(geometry.WireID{SuperLayer: uint16(sl), Layer: uint16(l)})
			p, ok := traj.PointAtRadius(layer.Radius)
			if !ok {
				return raw, rls
			}
			id := closestWire(topo, traj, topo.WireAt(sl, l, p.Phi()))
			d := traj.Distance(topo.Wire(id).RefPos)
			rl := hits.Right
			if d < 0 {
				rl = hits.Left
			}
			raw = append(raw, hits.RawHit{
				SuperLayer:    sl,
				Layer:         l,
				Wire:          int(id.Wire),
				DriftLength:   math.Abs(d),
				DriftVariance: DriftVariance,
				ADC:           30,
			})
			rls = append(rls, rl)
		}
	}
	return raw, rls
}

// closestWire checks the wire and its two neighbours in the layer.
func closestWire(topo *geometry.Topology, traj geometry.Trajectory2D, id geometry.WireID) geometry.WireID {
	n := topo.Layer(id).NWires
	best := id
	bestDist := math.Abs(traj.Distance(topo.Wire(id).RefPos))
	for _, dw := range []int{-1, 1} {
		cand := id
		cand.Wire = uint16((int(id.Wire) + dw + n) % n)
		if d := math.Abs(traj.Distance(topo.Wire(cand).RefPos)); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

// NoiseHits returns n hits on random wires whose azimuth lies within
// spread of phi, reproducible for a given seed. Hits never share a wire.
func NoiseHits(topo *geometry.Topology, n int, phi, spread float64, seed int64) []hits.RawHit {
	rng := rand.New(rand.NewSource(seed))
	seen := map[geometry.WireID]bool{}
	var raw []hits.RawHit
	for len(raw) < n {
		sl := rng.Intn(topo.NSuperLayers())
		l := rng.Intn(topo.NLayers(sl))
		id := topo.WireAt(sl, l, phi+spread*(2*rng.Float64()-1))
		if seen[id] {
			continue
		}
		seen[id] = true
		cell := topo.Wire(id).CellWidth
		raw = append(raw, hits.RawHit{
			SuperLayer:    sl,
			Layer:         l,
			Wire:          int(id.Wire),
			DriftLength:   rng.Float64() * cell / 2,
			DriftVariance: DriftVariance,
			ADC:           10,
		})
	}
	return raw
}

// Shuffle returns a permuted copy of raw.
func Shuffle(raw []hits.RawHit, seed int64) []hits.RawHit {
	out := append([]hits.RawHit(nil), raw...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
