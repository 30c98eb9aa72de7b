package ship

import (
	"fmt"

	"hullcraft.io/internal/physics"
)

// PointRef is one half of a connection: the neighbor and its point index.
type PointRef struct {
	Block BlockID
	Point int

	peer *Block
}

// Link is a read-only row of a block's connection table.
type Link struct {
	Point     int
	Peer      BlockID
	PeerPoint int
}

// Connection is one undirected edge, normalized so (A, PointA) sorts first.
type Connection struct {
	A          BlockID
	PointA     int
	B          BlockID
	PointB     int
	Constraint physics.ConstraintID
}

type edgeKey struct {
	a  BlockID
	pa int
	b  BlockID
	pb int
}

func edgeKeyOf(a BlockID, pa int, b BlockID, pb int) edgeKey {
	if b < a || (a == b && pb < pa) {
		a, pa, b, pb = b, pb, a, pa
	}
	return edgeKey{a: a, pa: pa, b: b, pb: pb}
}

// link and unlink are the only writers of connection tables; both halves
// change together or not at all.
func link(a *Block, pa int, b *Block, pb int) error {
	if a == nil || b == nil {
		return ErrUnknownBlock
	}
	if a == b {
		return fmt.Errorf("%w: block %d", ErrSelfConnect, a.id)
	}
	if !a.validPoint(pa) {
		return fmt.Errorf("%w: block %d point %d", ErrPointOutOfRange, a.id, pa)
	}
	if !b.validPoint(pb) {
		return fmt.Errorf("%w: block %d point %d", ErrPointOutOfRange, b.id, pb)
	}
	if _, used := a.conns[pa]; used {
		return fmt.Errorf("%w: block %d point %d", ErrPointInUse, a.id, pa)
	}
	if _, used := b.conns[pb]; used {
		return fmt.Errorf("%w: block %d point %d", ErrPointInUse, b.id, pb)
	}
	a.conns[pa] = PointRef{Block: b.id, Point: pb, peer: b}
	b.conns[pb] = PointRef{Block: a.id, Point: pa, peer: a}
	return nil
}

func unlink(a *Block, pa int) (PointRef, bool) {
	ref, ok := a.conns[pa]
	if !ok {
		return PointRef{}, false
	}
	delete(a.conns, pa)
	if back, ok := ref.peer.conns[ref.Point]; ok && back.peer == a && back.Point == pa {
		delete(ref.peer.conns, ref.Point)
	}
	return ref, true
}
