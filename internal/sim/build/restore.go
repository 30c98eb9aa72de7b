package build

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hullcraft.io/internal/persistence/snapshot"
	"hullcraft.io/internal/sim/ship"
)

// Snapshot captures the current ship for saving.
func (b *Builder) Snapshot() snapshot.ShipV1 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return snapshot.FromShip(b.ship, b.cat.Digest())
}

// Restore replaces the current ship with the one described by snap. Blocks
// come back under their saved ids without auto-connect, then the saved edge
// list is replayed. If anything fails the current ship is kept.
func (b *Builder) Restore(snap snapshot.ShipV1) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, err := b.rebuild(snap)
	if err != nil {
		b.record(AuditEntry{Op: OpRestore, Digest: snap.Header.Digest}, err)
		return err
	}
	b.ship.Destroy()
	b.ship = next
	b.record(AuditEntry{Op: OpRestore, Digest: snap.Header.Digest, Connections: next.ConnectionCount()}, nil)
	b.log.Info("ship restored")
	return nil
}

func (b *Builder) rebuild(snap snapshot.ShipV1) (*ship.Ship, error) {
	id, err := uuid.Parse(snap.Header.ShipID)
	if err != nil {
		return nil, fmt.Errorf("%w: ship id: %v", ErrBadSnapshot, err)
	}
	if snap.CatalogDigest != "" && snap.CatalogDigest != b.cat.Digest() {
		b.log.Warn("restoring a ship saved against a different catalog",
			zap.String("saved", snap.CatalogDigest),
			zap.String("current", b.cat.Digest()))
	}
	s := b.newShip(id, snap.Header.Name)
	fail := func(err error) (*ship.Ship, error) {
		s.Destroy()
		return nil, err
	}

	for _, bs := range snap.Blocks {
		def, ok := b.cat.Get(bs.TypeID)
		if !ok {
			return fail(fmt.Errorf("%w: block %d has unknown type %q", ErrBadSnapshot, bs.ID, bs.TypeID))
		}
		blk, err := ship.NewBlock(bs.TypeID, def, bs.Props)
		if err != nil {
			return fail(err)
		}
		if err := blk.SetRotation(bs.Rotation); err != nil {
			return fail(err)
		}
		if bs.Health < def.MaxHealth {
			blk.Damage(def.MaxHealth - bs.Health)
		}
		pos := bs.Position
		if err := s.AddBlockAs(ship.BlockID(bs.ID), blk, &pos); err != nil {
			return fail(fmt.Errorf("block %d: %w", bs.ID, err))
		}
	}
	s.ReserveBlockIDs(ship.BlockID(snap.LastBlock))

	for _, c := range snap.Connections {
		if err := s.ConnectBlocks(ship.BlockID(c.A), ship.BlockID(c.B), c.PointA, c.PointB, nil); err != nil {
			return fail(fmt.Errorf("connection %d:%d-%d:%d: %w", c.A, c.PointA, c.B, c.PointB, err))
		}
	}
	if snap.Frozen {
		if _, err := s.CreateCompoundBody(); err != nil {
			return fail(err)
		}
	}
	return s, nil
}
