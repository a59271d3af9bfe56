package geometry

import "math"

// Line2D is a directed line given by a support point and a unit direction.
type Line2D struct {
	Support   Vector2D
	Direction Vector2D
}

// NewLineThrough builds the line directed from a to b.
func NewLineThrough(a, b Vector2D) Line2D {
	return Line2D{Support: a, Direction: b.Sub(a).Unit()}
}

// Distance is the signed distance of p, positive right of the line.
func (l Line2D) Distance(p Vector2D) float64 {
	return p.Sub(l.Support).Cross(l.Direction)
}

// Closest returns the foot point of p on the line.
func (l Line2D) Closest(p Vector2D) Vector2D {
	t := p.Sub(l.Support).Dot(l.Direction)
	return l.Support.Add(l.Direction.Scale(t))
}

// CosAngle is the cosine of the angle between the two line directions.
func (l Line2D) CosAngle(o Line2D) float64 {
	return l.Direction.Dot(o.Direction)
}

// Tangent is a line touching two drift circles with prescribed passage
// sides, together with the two touch points.
type Tangent struct {
	Line2D
	From, To Vector2D
}

// NewTangent computes the line that leaves the circle around from at signed
// distance fromSigned and reaches the circle around to at signed distance
// toSigned. Signed distances follow the right-positive convention, so a
// right passage of the wire is a positive value.
//
// The second return is false when no such tangent exists (the circles
// overlap for the requested passage sides) or when the wires coincide.
func NewTangent(from Vector2D, fromSigned float64, to Vector2D, toSigned float64) (Tangent, bool) {
	d := to.Sub(from)
	length := d.Norm()
	if length == 0 {
		return Tangent{}, false
	}
	e := d.Scale(1 / length)
	s := (toSigned - fromSigned) / length
	if math.Abs(s) > 1 {
		return Tangent{}, false
	}
	c := math.Sqrt(1 - s*s)

	// Right normal of the tangent, decomposed along the wire-to-wire axis.
	normal := e.Scale(s).Add(e.RightNormal().Scale(c))
	direction := normal.LeftNormal()

	fromTouch := from.Sub(normal.Scale(fromSigned))
	toTouch := to.Sub(normal.Scale(toSigned))
	return Tangent{
		Line2D: Line2D{Support: fromTouch, Direction: direction},
		From:   fromTouch,
		To:     toTouch,
	}, true
}
