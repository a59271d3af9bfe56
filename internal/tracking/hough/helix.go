package hough

import (
	"math"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
)

// Axis order of the helix search: direction at the origin, then signed
// curvature. Trajectories are circles through the origin.
const (
	PhiAxis       = 0
	CurvatureAxis = 1
)

// containTolerance absorbs rounding in the containment test, in cm.
const containTolerance = 1e-6

// HitItem is a drift circle voting in the helix search.
type HitItem struct {
	Hit    int // wire hit index
	Pos    geometry.Vector2D
	Drift  float64
	RL     hits.RightLeft // Unknown accepts either passage side
	Weight float64
}

// NewHitItem prepares wire hit i of the index. Pass hits.Unknown when the
// passage side is not known.
func NewHitItem(x *hits.Index, i int, rl hits.RightLeft) HitItem {
	h := x.Hit(i)
	return HitItem{Hit: i, Pos: h.Wire.RefPos, Drift: h.DriftLength, RL: rl, Weight: 1}
}

// HitItemLess orders hit items by wire hit, then passage side.
func HitItemLess(a, b HitItem) bool {
	if a.Hit != b.Hit {
		return a.Hit < b.Hit
	}
	return a.RL < b.RL
}

// HitInBox reports whether a circle through the origin with parameters in
// box passes the wire at the drift distance on the hit's side. For such a
// circle the signed distance condition separates into
//
//	s*r = (omega/2)*(rho^2 - r^2) - rho*cos(phi - beta)
//
// with rho and beta the polar form of the wire position, so the reachable
// signed drift values over the box form one interval computed exactly from
// the corner values and the extrema of the cosine.
func HitInBox(item HitItem, box Box) (float64, bool) {
	lo, hi := signedDriftRange(item.Pos, item.Drift, box[PhiAxis], box[CurvatureAxis])
	lo -= containTolerance
	hi += containTolerance
	switch item.RL {
	case hits.Right:
		return item.Weight, lo <= item.Drift && item.Drift <= hi
	case hits.Left:
		return item.Weight, lo <= -item.Drift && -item.Drift <= hi
	}
	ok := (lo <= item.Drift && item.Drift <= hi) || (lo <= -item.Drift && -item.Drift <= hi)
	return item.Weight, ok
}

// signedDriftRange returns the range of signed drift values a wire at pos
// can see from circles through the origin with phi0 in phi and curvature
// in omega.
func signedDriftRange(pos geometry.Vector2D, drift float64, phi, omega Interval) (float64, float64) {
	rho2 := pos.NormSquared()
	lever := (rho2 - drift*drift) / 2
	h1, h2 := omega.Lo*lever, omega.Hi*lever
	hLo, hHi := math.Min(h1, h2), math.Max(h1, h2)

	rho := math.Sqrt(rho2)
	beta := math.Atan2(-pos.X, pos.Y)
	g1, g2 := rho*math.Cos(phi.Lo-beta), rho*math.Cos(phi.Hi-beta)
	gLo, gHi := math.Min(g1, g2), math.Max(g1, g2)
	if angleInside(beta, phi) {
		gHi = rho
	}
	if angleInside(beta+math.Pi, phi) {
		gLo = -rho
	}
	return hLo - gHi, hHi - gLo
}

// angleInside reports whether a+2*pi*k lies in iv for some integer k.
func angleInside(a float64, iv Interval) bool {
	if iv.Width() >= 2*math.Pi {
		return true
	}
	k := math.Ceil((iv.Lo - a) / (2 * math.Pi))
	return a+2*math.Pi*k <= iv.Hi
}

// SegmentItem is a segment voting with its hits.
type SegmentItem struct {
	Segment int
	Hits    []HitItem
}

// SegmentItemLess orders segment items by segment index.
func SegmentItemLess(a, b SegmentItem) bool { return a.Segment < b.Segment }

// SegmentContainment accepts a segment when at least MinFraction of its
// hits are consistent with the box. The vote is the number of consistent
// hits. Unoriented tests every hit on both sides, which also admits the
// mirrored segment.
type SegmentContainment struct {
	MinFraction float64
	Unoriented  bool
}

func (sc SegmentContainment) Contains(item SegmentItem, box Box) (float64, bool) {
	if len(item.Hits) == 0 {
		return 0, false
	}
	var n float64
	for _, h := range item.Hits {
		if sc.Unoriented {
			h.RL = hits.Unknown
		}
		if _, ok := HitInBox(h, box); ok {
			n += h.Weight
		}
	}
	if n < sc.MinFraction*float64(len(item.Hits)) || n == 0 {
		return 0, false
	}
	return n, true
}

// Trajectory returns the circle through the origin at the center of a
// helix search box.
func Trajectory(box Box) geometry.Trajectory2D {
	return geometry.NewPerigeeTrajectory(box[CurvatureAxis].Center(), box[PhiAxis].Center(), 0)
}

// HitResidualPriority ranks nodes by weight and breaks ties towards the
// box whose center circle best matches the drift circles. The bonus stays
// below one vote.
func HitResidualPriority(box Box, weight float64, items []HitItem) float64 {
	if len(items) == 0 {
		return weight
	}
	traj := Trajectory(box)
	var sum float64
	for _, it := range items {
		d := traj.Distance(it.Pos)
		switch it.RL {
		case hits.Right:
			sum += math.Abs(d - it.Drift)
		case hits.Left:
			sum += math.Abs(d + it.Drift)
		default:
			sum += math.Abs(math.Abs(d) - it.Drift)
		}
	}
	mean := sum / float64(len(items))
	return weight + 0.5/(1+mean/0.1)
}

// SegmentResidualPriority applies HitResidualPriority to all segment hits.
func SegmentResidualPriority(box Box, weight float64, items []SegmentItem) float64 {
	var all []HitItem
	for _, it := range items {
		all = append(all, it.Hits...)
	}
	return HitResidualPriority(box, weight, all)
}
