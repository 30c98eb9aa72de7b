package physics

import (
	"math"

	"hullcraft.io/internal/sim/geom"
)

// MomentOfInertia returns the moment about the shape's own origin for a
// uniform density body of mass m.
func MomentOfInertia(s ShapeDesc, m float64) float64 {
	switch s.Kind {
	case ShapeRect:
		return m * (s.Width*s.Width + s.Height*s.Height) / 12
	case ShapeCircle:
		return m * s.Radius * s.Radius / 2
	case ShapePolygon:
		return polygonMoment(s.Vertices, m)
	}
	return 0
}

func polygonMoment(vs []geom.Vec2, m float64) float64 {
	if len(vs) < 3 {
		return 0
	}
	var num, den float64
	for i := range vs {
		a := vs[i]
		b := vs[(i+1)%len(vs)]
		c := math.Abs(a.Cross(b))
		num += c * (a.Dot(a) + a.Dot(b) + b.Dot(b))
		den += c
	}
	if den == 0 {
		return 0
	}
	return m * num / (6 * den)
}

func validShape(s ShapeDesc) bool {
	switch s.Kind {
	case ShapeRect:
		return s.Width > 0 && s.Height > 0
	case ShapeCircle:
		return s.Radius > 0
	case ShapePolygon:
		return len(s.Vertices) >= 3
	}
	return false
}
