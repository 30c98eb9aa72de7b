package build

import (
	"math"

	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/geom"
)

// SnapToGrid rounds pos to the nearest grid point on each axis. With a
// definition, an axis the footprint covers with an even number of cells is
// snapped to the half-cell lattice instead, so the block's edges line up
// with single-cell neighbors.
func (b *Builder) SnapToGrid(pos geom.Vec2, def *catalogs.BlockDef) geom.Vec2 {
	return b.SnapToGridRotated(pos, def, 0)
}

// SnapToGridRotated snaps for the footprint after quarterTurns of rotation.
func (b *Builder) SnapToGridRotated(pos geom.Vec2, def *catalogs.BlockDef, quarterTurns int) geom.Vec2 {
	return snapToGrid(pos, b.tun.GridSize, def, quarterTurns)
}

func snapToGrid(pos geom.Vec2, cell float64, def *catalogs.BlockDef, quarterTurns int) geom.Vec2 {
	var offX, offY bool
	if def != nil {
		hw, hh := def.HalfExtents()
		if geom.NormalizeQuarterTurns(quarterTurns)%2 == 1 {
			hw, hh = hh, hw
		}
		offX = evenCells(2*hw, cell)
		offY = evenCells(2*hh, cell)
	}
	return geom.Vec2{
		X: geom.SnapAxis(pos.X, cell, offX),
		Y: geom.SnapAxis(pos.Y, cell, offY),
	}
}

// evenCells reports whether span covers an even number of cells, rounding
// to the nearest whole cell.
func evenCells(span, cell float64) bool {
	if cell <= 0 {
		return false
	}
	n := int(math.Round(span / cell))
	return n > 0 && n%2 == 0
}
