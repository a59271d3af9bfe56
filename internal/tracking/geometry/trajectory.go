package geometry

import "math"

// Trajectory2D is a generalized circle
//
//	f(p) = N0 + N1*x + N2*y + N3*(x*x + y*y)
//
// normalised so that N1*N1 + N2*N2 - 4*N0*N3 = 1. f is the "fast" signed
// distance; the exact signed distance d satisfies f = d + N3*d*d. Straight
// lines are the N3 = 0 case. The travel direction is the gradient of f
// rotated counterclockwise, so positive curvature bends to the left.
type Trajectory2D struct {
	N0, N1, N2, N3 float64
}

// NewTrajectory normalises the given generalized-circle parameters. The
// second return is false for degenerate parameters.
func NewTrajectory(n0, n1, n2, n3 float64) (Trajectory2D, bool) {
	norm := n1*n1 + n2*n2 - 4*n0*n3
	if !(norm > 0) || math.IsInf(norm, 0) {
		return Trajectory2D{}, false
	}
	s := 1 / math.Sqrt(norm)
	return Trajectory2D{N0: n0 * s, N1: n1 * s, N2: n2 * s, N3: n3 * s}, true
}

// NewPerigeeTrajectory builds the trajectory with signed curvature, the
// direction phi0 at the point of closest approach to the origin and the
// signed impact parameter of the origin.
func NewPerigeeTrajectory(curvature, phi0, impact float64) Trajectory2D {
	n3 := curvature / 2
	scale := 1 + 2*n3*impact
	return Trajectory2D{
		N0: impact + n3*impact*impact,
		N1: scale * math.Sin(phi0),
		N2: -scale * math.Cos(phi0),
		N3: n3,
	}
}

// Curvature is the signed inverse radius; positive is counterclockwise.
func (t Trajectory2D) Curvature() float64 { return 2 * t.N3 }

// Radius is the absolute circle radius, +Inf for lines.
func (t Trajectory2D) Radius() float64 { return 1 / math.Abs(2*t.N3) }

// IsLine reports whether the trajectory is a straight line.
func (t Trajectory2D) IsLine() bool { return t.N3 == 0 }

// Center of the circle. Undefined for lines.
func (t Trajectory2D) Center() Vector2D {
	return Vector2D{X: -t.N1 / (2 * t.N3), Y: -t.N2 / (2 * t.N3)}
}

// FastDistance evaluates f(p).
func (t Trajectory2D) FastDistance(p Vector2D) float64 {
	return t.N0 + t.N1*p.X + t.N2*p.Y + t.N3*p.NormSquared()
}

// Distance is the exact signed distance of p, positive to the right.
func (t Trajectory2D) Distance(p Vector2D) float64 {
	return fastToExact(t.FastDistance(p), t.N3)
}

func fastToExact(fast, n3 float64) float64 {
	disc := 1 + 4*n3*fast
	if disc < 0 {
		disc = 0
	}
	return 2 * fast / (1 + math.Sqrt(disc))
}

// Gradient of f at p; it is the right normal of the travel direction.
func (t Trajectory2D) Gradient(p Vector2D) Vector2D {
	return Vector2D{X: t.N1 + 2*t.N3*p.X, Y: t.N2 + 2*t.N3*p.Y}
}

// Direction is the unit travel direction at the point of the trajectory
// closest to p.
func (t Trajectory2D) Direction(p Vector2D) Vector2D {
	return t.Gradient(p).LeftNormal().Unit()
}

// Phi0 is the travel direction at the point of closest approach to the origin.
func (t Trajectory2D) Phi0() float64 {
	return math.Atan2(t.N1, -t.N2)
}

// Impact is the signed distance of the origin.
func (t Trajectory2D) Impact() float64 {
	return fastToExact(t.N0, t.N3)
}

// Closest returns the point on the trajectory closest to p.
func (t Trajectory2D) Closest(p Vector2D) Vector2D {
	d := t.Distance(p)
	return p.Sub(t.Gradient(p).Unit().Scale(d))
}

// Reversed describes the same curve travelled in the opposite direction.
func (t Trajectory2D) Reversed() Trajectory2D {
	return Trajectory2D{N0: -t.N0, N1: -t.N1, N2: -t.N2, N3: -t.N3}
}

// PointAtRadius returns the first crossing, moving along the trajectory from
// its point of closest approach, with the circle of the given radius around
// the origin. Only trajectories through the origin are supported exactly;
// the second return is false when the radius is never reached.
func (t Trajectory2D) PointAtRadius(r float64) (Vector2D, bool) {
	curvature := t.Curvature()
	half := r * curvature / 2
	if math.Abs(half) > 1 {
		return Vector2D{}, false
	}
	return NewPolar(r, t.Phi0()+math.Asin(half)), true
}
