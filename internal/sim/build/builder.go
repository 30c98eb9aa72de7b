// Package build is the editing surface over one ship: placement
// validation, grid snapping, auto-connect and the freeze handoff. Every
// exported method takes the builder lock, so a Builder may be shared
// between sessions.
package build

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/geom"
	"hullcraft.io/internal/sim/ship"
	"hullcraft.io/internal/sim/tuning"
)

var (
	ErrCannotPlace  = errors.New("cannot place block")
	ErrUnknownType  = errors.New("unknown block type")
	ErrNoBlockAt    = errors.New("no block at position")
	ErrInvalidShip  = errors.New("ship failed structural validation")
	ErrBadSnapshot  = errors.New("snapshot does not match catalog")
	ErrShipCapacity = errors.New("ship block limit reached")
)

type Config struct {
	Catalog *catalogs.Catalog
	Tuning  tuning.Tuning
	Engine  physics.Engine
	Log     *zap.Logger
	Audit   []AuditSink

	ShipID   uuid.UUID
	ShipName string
}

type Builder struct {
	mu sync.Mutex

	cat    *catalogs.Catalog
	tun    tuning.Tuning
	engine physics.Engine
	log    *zap.Logger
	audit  []AuditSink

	ship *ship.Ship
}

func New(cfg Config) *Builder {
	if cfg.Catalog == nil {
		cfg.Catalog = catalogs.Builtin()
	}
	if cfg.Tuning.GridSize <= 0 {
		cfg.Tuning = tuning.Defaults()
	}
	if cfg.Engine == nil {
		cfg.Engine = physics.NewWorld()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	b := &Builder{
		cat:    cfg.Catalog,
		tun:    cfg.Tuning,
		engine: cfg.Engine,
		log:    cfg.Log,
		audit:  cfg.Audit,
	}
	b.ship = b.newShip(cfg.ShipID, cfg.ShipName)
	return b
}

func (b *Builder) newShip(id uuid.UUID, name string) *ship.Ship {
	c, p := b.tun.Constraint, b.tun.Placeholder
	return ship.New(b.engine, ship.Options{
		ID:          id,
		Name:        name,
		Log:         b.log,
		Constraint:  ship.ConstraintOptions{Stiffness: c.Stiffness, Damping: c.Damping, Length: c.Length},
		Placeholder: ship.PlaceholderOptions{Width: p.Width, Height: p.Height, Mass: p.Mass},
	})
}

func (b *Builder) Catalog() *catalogs.Catalog { return b.cat }
func (b *Builder) Tuning() tuning.Tuning      { return b.tun }

// ShipID is stable for the lifetime of the current ship.
func (b *Builder) ShipID() uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ship.ID
}

// View runs fn with the ship while holding the builder lock. fn must not
// retain the ship or call back into the builder.
func (b *Builder) View(fn func(s *ship.Ship) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.ship)
}

// CanPlace reports whether a block of typeID fits at pos unrotated.
func (b *Builder) CanPlace(pos geom.Vec2, typeID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	def, ok := b.cat.Get(typeID)
	if !ok {
		return false
	}
	return b.checkPlacement(pos, def, 0) == nil
}

// checkPlacement is the envelope test followed by the overlap test.
func (b *Builder) checkPlacement(pos geom.Vec2, def catalogs.BlockDef, angle float64) error {
	if b.ship.Frozen() {
		return ship.ErrFrozen
	}
	if b.tun.MaxBlocks > 0 && b.ship.Len() >= b.tun.MaxBlocks {
		return fmt.Errorf("%w: %d", ErrShipCapacity, b.tun.MaxBlocks)
	}
	box := footprint(pos, def, angle)
	if !b.withinBounds(box) {
		return fmt.Errorf("%w: outside build envelope", ErrCannotPlace)
	}
	if other, hit := b.occupied(box); hit {
		return fmt.Errorf("%w: overlaps block %d", ErrCannotPlace, other)
	}
	return nil
}

func footprint(pos geom.Vec2, def catalogs.BlockDef, angle float64) geom.AABB {
	hw, hh := def.HalfExtents()
	hw, hh = geom.RotatedExtents(hw, hh, angle)
	return geom.Box(pos, hw, hh)
}

func (b *Builder) withinBounds(box geom.AABB) bool {
	return box.Within(b.tun.Envelope.HalfWidth, b.tun.Envelope.HalfHeight)
}

func (b *Builder) occupied(box geom.AABB) (ship.BlockID, bool) {
	for _, blk := range b.ship.Blocks() {
		if blk.Bounds().Overlaps(box) {
			return blk.ID(), true
		}
	}
	return 0, false
}

// Place validates, builds the block with its default properties, adds it
// at pos and auto-connects it. On error the ship is unchanged.
func (b *Builder) Place(pos geom.Vec2, typeID string) (ship.BlockID, error) {
	return b.PlaceRotated(pos, typeID, 0)
}

// PlaceRotated is Place with a rotation given in quarter turns or degrees.
func (b *Builder) PlaceRotated(pos geom.Vec2, typeID string, quarterTurns int) (ship.BlockID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := AuditEntry{Op: OpPlace, TypeID: typeID, Pos: pos, Rotation: geom.NormalizeQuarterTurns(quarterTurns)}
	id, formed, err := b.place(pos, typeID, geom.QuarterTurnsToRadians(quarterTurns))
	entry.Block, entry.Connections = id, formed
	b.record(entry, err)
	return id, err
}

func (b *Builder) place(pos geom.Vec2, typeID string, angle float64) (ship.BlockID, int, error) {
	def, ok := b.cat.Get(typeID)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownType, typeID)
	}
	if err := b.checkPlacement(pos, def, angle); err != nil {
		return 0, 0, err
	}
	blk, err := ship.NewBlock(typeID, def, b.cat.DefaultProperties(typeID))
	if err != nil {
		return 0, 0, err
	}
	if err := blk.SetRotation(angle); err != nil {
		return 0, 0, err
	}
	id, err := b.ship.AddBlock(blk, &pos)
	if err != nil {
		return 0, 0, err
	}
	formed := b.autoConnect(blk)
	b.log.Debug("block placed",
		zap.String("type", typeID),
		zap.Uint32("block", uint32(id)),
		zap.Int("connections", formed))
	return id, formed, nil
}

// RemoveAt removes the block whose footprint contains pos.
func (b *Builder) RemoveAt(pos geom.Vec2) (ship.BlockID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	blk, ok := b.ship.BlockAt(pos)
	if !ok {
		err := fmt.Errorf("%w: (%g, %g)", ErrNoBlockAt, pos.X, pos.Y)
		b.record(AuditEntry{Op: OpRemove, Pos: pos}, err)
		return 0, err
	}
	id, typeID := blk.ID(), blk.TypeID()
	err := b.ship.RemoveBlock(id)
	b.record(AuditEntry{Op: OpRemove, Pos: pos, Block: id, TypeID: typeID}, err)
	return id, err
}

func (b *Builder) Remove(id ship.BlockID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.ship.RemoveBlock(id)
	b.record(AuditEntry{Op: OpRemove, Block: id}, err)
	return err
}

// Connect joins two explicit attachment points using the tuned constraint.
func (b *Builder) Connect(a, c ship.BlockID, pointA, pointC int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.ship.ConnectBlocks(a, c, pointA, pointC, nil)
	b.record(AuditEntry{Op: OpConnect, Block: a, Peer: c, Point: pointA, PeerPoint: pointC}, err)
	return err
}

func (b *Builder) Disconnect(a, c ship.BlockID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.ship.DisconnectBlocks(a, c)
	b.record(AuditEntry{Op: OpDisconnect, Block: a, Peer: c}, err)
	return err
}

func (b *Builder) Stats() ship.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ship.CalculateStats()
}

func (b *Builder) Validate() ship.IntegrityReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ship.ValidateStructuralIntegrity()
}

// Test runs the structural validator and, when the ship is valid, freezes
// it into a compound body. The report is returned either way.
func (b *Builder) Test() (ship.IntegrityReport, physics.BodyID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	report := b.ship.ValidateStructuralIntegrity()
	if !report.Valid {
		err := fmt.Errorf("%w: %v", ErrInvalidShip, report.Issues)
		b.record(AuditEntry{Op: OpTest}, err)
		return report, 0, err
	}
	body, err := b.ship.CreateCompoundBody()
	b.record(AuditEntry{Op: OpTest}, err)
	if err != nil {
		return report, 0, err
	}
	b.log.Info("ship handed to simulation",
		zap.String("ship", b.ship.ID.String()),
		zap.Uint64("body", uint64(body)))
	return report, body, nil
}

// Close tears down the current ship and its engine resources.
func (b *Builder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ship.Destroy()
}

func (b *Builder) record(e AuditEntry, err error) {
	if len(b.audit) == 0 {
		return
	}
	e.Time = time.Now().UTC()
	e.Ship = b.ship.ID.String()
	e.OK = err == nil
	if err != nil {
		e.Reason = err.Error()
	}
	for _, sink := range b.audit {
		if werr := sink.WriteAudit(e); werr != nil {
			b.log.Warn("audit write failed", zap.String("op", string(e.Op)), zap.Error(werr))
		}
	}
}
