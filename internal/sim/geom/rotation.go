package geom

import "math"

// NormalizeQuarterTurns converts a client-provided rotation value into a
// stable quarter-turn count in [0,3].
//
// It accepts either quarter-turns (0..3) or degrees (multiples of 90).
func NormalizeQuarterTurns(r int) int {
	// Treat large multiples of 90 as degrees.
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return r
}

func QuarterTurnsToRadians(q int) float64 {
	return float64(NormalizeQuarterTurns(q)) * math.Pi / 2
}

// NormalizeAngle wraps a radian angle into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// SnapAxis rounds v to the nearest multiple of cell. With offset set the
// lattice is shifted by half a cell.
func SnapAxis(v, cell float64, offset bool) float64 {
	if cell <= 0 {
		return v
	}
	if !offset {
		return math.Round(v/cell) * cell
	}
	half := cell / 2
	return math.Round((v-half)/cell)*cell + half
}
