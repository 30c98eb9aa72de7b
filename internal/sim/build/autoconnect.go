package build

import (
	"math"

	"go.uber.org/zap"

	"hullcraft.io/internal/sim/geom"
	"hullcraft.io/internal/sim/ship"
)

// AutoConnect bonds an already placed block to its flush neighbors and
// returns how many connections were formed.
func (b *Builder) AutoConnect(id ship.BlockID) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	blk, ok := b.ship.Block(id)
	if !ok {
		return 0, ship.ErrUnknownBlock
	}
	if b.ship.Frozen() {
		return 0, ship.ErrFrozen
	}
	return b.autoConnect(blk), nil
}

// autoConnect forms at most one connection per touching neighbor: the
// closest pair of free attachment points, if they lie within the connect
// tolerance.
func (b *Builder) autoConnect(blk *ship.Block) int {
	tol := b.tun.EffectiveConnectTolerance()
	formed := 0
	for _, other := range b.ship.Blocks() {
		if other.ID() == blk.ID() {
			continue
		}
		if !touching(blk.Bounds(), other.Bounds(), b.tun.TouchTolerance) {
			continue
		}
		pa, pb, dist, ok := closestPair(blk, other)
		if !ok || dist > tol {
			continue
		}
		if err := b.ship.ConnectBlocks(blk.ID(), other.ID(), pa, pb, nil); err != nil {
			b.log.Debug("auto-connect skipped",
				zap.Uint32("block", uint32(blk.ID())),
				zap.Uint32("neighbor", uint32(other.ID())),
				zap.Error(err))
			continue
		}
		formed++
	}
	return formed
}

// touching reports whether two boxes are flush along one axis, within tol,
// and overlap along the other. Boxes meeting only at a corner do not touch.
func touching(a, c geom.AABB, tol float64) bool {
	dx := math.Abs(a.Center.X - c.Center.X)
	dy := math.Abs(a.Center.Y - c.Center.Y)
	sumW, sumH := a.HalfW+c.HalfW, a.HalfH+c.HalfH

	flushX := math.Abs(dx-sumW) <= tol && dy < sumH-tol
	flushY := math.Abs(dy-sumH) <= tol && dx < sumW-tol
	return flushX || flushY
}

// closestPair scans free points on both blocks for the minimum world
// distance. Ties keep the lowest indices.
func closestPair(a, c *ship.Block) (int, int, float64, bool) {
	best := math.Inf(1)
	bestA, bestC := -1, -1
	freeC := c.AvailableAttachmentPoints()
	for _, i := range a.AvailableAttachmentPoints() {
		wa, _ := a.WorldAttachmentPoint(i)
		for _, j := range freeC {
			wc, _ := c.WorldAttachmentPoint(j)
			if d := wa.Dist(wc); d < best {
				best, bestA, bestC = d, i, j
			}
		}
	}
	return bestA, bestC, best, bestA >= 0
}
