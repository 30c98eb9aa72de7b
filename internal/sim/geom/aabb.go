package geom

import "math"

// overlapEps keeps exactly touching edges from counting as an overlap
// despite float noise.
const overlapEps = 1e-9

// AABB is an axis-aligned box stored as center + half-extents.
type AABB struct {
	Center Vec2
	HalfW  float64
	HalfH  float64
}

func Box(center Vec2, halfW, halfH float64) AABB {
	return AABB{Center: center, HalfW: halfW, HalfH: halfH}
}

func (b AABB) MinX() float64 { return b.Center.X - b.HalfW }
func (b AABB) MaxX() float64 { return b.Center.X + b.HalfW }
func (b AABB) MinY() float64 { return b.Center.Y - b.HalfH }
func (b AABB) MaxY() float64 { return b.Center.Y + b.HalfH }

// Overlaps is the separating-axis test on the four edges. Boxes that only
// share an edge do not overlap.
func (b AABB) Overlaps(o AABB) bool {
	return b.MinX() < o.MaxX()-overlapEps &&
		b.MaxX() > o.MinX()+overlapEps &&
		b.MinY() < o.MaxY()-overlapEps &&
		b.MaxY() > o.MinY()+overlapEps
}

func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.MinX() && p.X <= b.MaxX() && p.Y >= b.MinY() && p.Y <= b.MaxY()
}

// Within reports whether all four edges of b lie inside an envelope centered
// on the origin with the given half-extents.
func (b AABB) Within(envHalfW, envHalfH float64) bool {
	return b.MinX() >= -envHalfW-overlapEps &&
		b.MaxX() <= envHalfW+overlapEps &&
		b.MinY() >= -envHalfH-overlapEps &&
		b.MaxY() <= envHalfH+overlapEps
}

// RotatedExtents returns the half-extents of the axis-aligned box enclosing
// a halfW x halfH rectangle rotated by angle.
func RotatedExtents(halfW, halfH, angle float64) (float64, float64) {
	if angle == 0 {
		return halfW, halfH
	}
	s, c := math.Sincos(angle)
	s, c = math.Abs(s), math.Abs(c)
	// Snap quarter turns so 90 degrees swaps extents exactly.
	if s < 1e-12 {
		s = 0
	}
	if c < 1e-12 {
		c = 0
	}
	return c*halfW + s*halfH, s*halfW + c*halfH
}
