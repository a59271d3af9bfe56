// Package hits holds the per-event hit index: the calibrated wire hits of
// one event sorted by wire, and their two left/right passage hypotheses.
package hits

import (
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
)

// RawHit is one calibrated hit as delivered by the upstream unpacker.
type RawHit struct {
	SuperLayer    int     `json:"superlayer" yaml:"superlayer"`
	Layer         int     `json:"layer" yaml:"layer"`
	Wire          int     `json:"wire" yaml:"wire"`
	DriftLength   float64 `json:"drift_length" yaml:"drift_length"`     // cm
	DriftVariance float64 `json:"drift_variance" yaml:"drift_variance"` // cm^2
	ADC           int     `json:"adc" yaml:"adc"`
	TOT           int     `json:"tot" yaml:"tot"`
}

// RightLeft is the passage hypothesis of a track relative to a wire. Right
// means the wire lies right of the track, so its signed distance to the
// trajectory is positive.
type RightLeft int8

const (
	Left    RightLeft = -1
	Unknown RightLeft = 0
	Right   RightLeft = 1
)

// Opposite returns the mirrored hypothesis.
func (rl RightLeft) Opposite() RightLeft { return -rl }

func (rl RightLeft) String() string {
	switch rl {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// WireHit is a hit on a known wire. It is immutable once the index is
// filled.
type WireHit struct {
	Wire          geometry.Wire
	RawIndex      int
	DriftLength   float64
	DriftVariance float64
	ADC           int
	TOT           int
}

// ID returns the wire identity.
func (h WireHit) ID() geometry.WireID { return h.Wire.ID }

// SuperLayer returns the superlayer number.
func (h WireHit) SuperLayer() int { return int(h.Wire.ID.SuperLayer) }

// OrientedWireHit is a wire hit combined with a passage hypothesis.
type OrientedWireHit struct {
	Hit           int // index of the wire hit
	RL            RightLeft
	DriftLength   float64
	DriftVariance float64
}

// SignedDriftLength is the drift length signed by the passage hypothesis.
func (o OrientedWireHit) SignedDriftLength() float64 {
	return float64(o.RL) * o.DriftLength
}
