package geom

import "math"

// Vec2 is a point or offset on the continuous build plane.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Dot(o Vec2) float64   { return v.X*o.X + v.Y*o.Y }

// Cross returns the z component of the 3D cross product.
func (v Vec2) Cross(o Vec2) float64 { return v.X*o.Y - v.Y*o.X }

func (v Vec2) Len() float64        { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }
func (v Vec2) LenSq() float64      { return v.X*v.X + v.Y*v.Y }
func (v Vec2) IsZero() bool        { return v.X == 0 && v.Y == 0 }

// Rotate rotates v counter-clockwise by angle radians around the origin.
func (v Vec2) Rotate(angle float64) Vec2 {
	if angle == 0 {
		return v
	}
	s, c := math.Sincos(angle)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// ApproxEqual compares component-wise within eps.
func (v Vec2) ApproxEqual(o Vec2, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

// Transform maps a body-local point into world space.
func Transform(local, origin Vec2, angle float64) Vec2 {
	return local.Rotate(angle).Add(origin)
}

// InverseTransform maps a world point into the local frame of a body at origin/angle.
func InverseTransform(world, origin Vec2, angle float64) Vec2 {
	return world.Sub(origin).Rotate(-angle)
}
