package geometry

import "math"

// Vector2D is a point or direction in the transverse (x, y) plane, in cm.
type Vector2D struct {
	X, Y float64
}

// NewPolar builds a vector from its length and azimuth.
func NewPolar(r, phi float64) Vector2D {
	return Vector2D{X: r * math.Cos(phi), Y: r * math.Sin(phi)}
}

func (v Vector2D) Add(o Vector2D) Vector2D     { return Vector2D{v.X + o.X, v.Y + o.Y} }
func (v Vector2D) Sub(o Vector2D) Vector2D     { return Vector2D{v.X - o.X, v.Y - o.Y} }
func (v Vector2D) Scale(f float64) Vector2D    { return Vector2D{v.X * f, v.Y * f} }
func (v Vector2D) Dot(o Vector2D) float64      { return v.X*o.X + v.Y*o.Y }
func (v Vector2D) Cross(o Vector2D) float64    { return v.X*o.Y - v.Y*o.X }
func (v Vector2D) NormSquared() float64        { return v.X*v.X + v.Y*v.Y }
func (v Vector2D) Norm() float64               { return math.Hypot(v.X, v.Y) }
func (v Vector2D) Phi() float64                { return math.Atan2(v.Y, v.X) }
func (v Vector2D) Distance(o Vector2D) float64 { return v.Sub(o).Norm() }

// Unit returns v scaled to length one. The zero vector is returned unchanged.
func (v Vector2D) Unit() Vector2D {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// RightNormal is v rotated clockwise by 90 degrees.
func (v Vector2D) RightNormal() Vector2D { return Vector2D{X: v.Y, Y: -v.X} }

// LeftNormal is v rotated counterclockwise by 90 degrees.
func (v Vector2D) LeftNormal() Vector2D { return Vector2D{X: -v.Y, Y: v.X} }

// Mean returns the arithmetic mean of the given points.
func Mean(points []Vector2D) Vector2D {
	if len(points) == 0 {
		return Vector2D{}
	}
	var sum Vector2D
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}

// NormalizeAngle maps phi into [-pi, pi).
func NormalizeAngle(phi float64) float64 {
	phi = math.Mod(phi+math.Pi, 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return phi - math.Pi
}
