package build

import (
	"errors"
	"fmt"
)

var (
	ErrReplayDiverged = errors.New("replay diverged from the audit log")
	ErrReplayRestore  = errors.New("replay crosses a restore")
)

// Replay re-executes one audited mutation. Failed entries are skipped since
// they left the ship unchanged. A successful entry must reproduce the same
// outcome, or ErrReplayDiverged is returned.
func (b *Builder) Replay(e AuditEntry) error {
	if !e.OK {
		return nil
	}
	switch e.Op {
	case OpPlace:
		id, err := b.PlaceRotated(e.Pos, e.TypeID, e.Rotation)
		if err != nil {
			return fmt.Errorf("%w: place %s at (%g, %g): %v", ErrReplayDiverged, e.TypeID, e.Pos.X, e.Pos.Y, err)
		}
		if id != e.Block {
			return fmt.Errorf("%w: placed block %d, log says %d", ErrReplayDiverged, id, e.Block)
		}
	case OpRemove:
		if err := b.Remove(e.Block); err != nil {
			return fmt.Errorf("%w: remove %d: %v", ErrReplayDiverged, e.Block, err)
		}
	case OpConnect:
		if err := b.Connect(e.Block, e.Peer, e.Point, e.PeerPoint); err != nil {
			return fmt.Errorf("%w: connect %d-%d: %v", ErrReplayDiverged, e.Block, e.Peer, err)
		}
	case OpDisconnect:
		if err := b.Disconnect(e.Block, e.Peer); err != nil {
			return fmt.Errorf("%w: disconnect %d-%d: %v", ErrReplayDiverged, e.Block, e.Peer, err)
		}
	case OpTest:
		if _, _, err := b.Test(); err != nil {
			return fmt.Errorf("%w: test: %v", ErrReplayDiverged, err)
		}
	case OpRestore:
		return ErrReplayRestore
	default:
		return fmt.Errorf("%w: unknown op %q", ErrReplayDiverged, e.Op)
	}
	return nil
}

// ReplayAll applies entries for this builder's ship in order and reports
// how many were applied.
func (b *Builder) ReplayAll(entries []AuditEntry) (int, error) {
	id := b.ShipID().String()
	applied := 0
	for i, e := range entries {
		if e.Ship != id {
			continue
		}
		if err := b.Replay(e); err != nil {
			return applied, fmt.Errorf("entry %d: %w", i, err)
		}
		if e.OK {
			applied++
		}
	}
	return applied, nil
}

// ReplaySegment finds the part of a ship's history that can be replayed:
// the entries after its last successful RESTORE. base is that RESTORE, or
// nil when the history starts from an empty ship.
func ReplaySegment(entries []AuditEntry, shipID string) (base *AuditEntry, rest []AuditEntry) {
	start := 0
	for i := range entries {
		e := &entries[i]
		if e.Ship == shipID && e.Op == OpRestore && e.OK {
			base, start = e, i+1
		}
	}
	for _, e := range entries[start:] {
		if e.Ship == shipID {
			rest = append(rest, e)
		}
	}
	return base, rest
}
