package ship

import (
	"fmt"
	"sort"

	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/ecs"
	"hullcraft.io/internal/sim/geom"
)

// BlockID is the ship-local block handle. Ids are never reused within a
// ship, so a stale id simply stops resolving.
type BlockID uint32

// Structure is the structural-data component every block carries.
type Structure struct {
	TypeID   string
	Category catalogs.Category
}

var (
	shapeKey     = ecs.NewKey[physics.ShapeDesc](ecs.KindShape)
	structureKey = ecs.NewKey[Structure](ecs.KindStructure)
	bodyKey      = ecs.NewKey[*bodyHandle](ecs.KindBody)
)

// bodyHandle ties an engine body to the entity that owns it.
type bodyHandle struct {
	engine physics.Engine
	id     physics.BodyID
}

func (h *bodyHandle) Release() {
	if h.engine != nil && h.id != 0 {
		_ = h.engine.DestroyBody(h.id)
		h.id = 0
	}
}

type Block struct {
	id     BlockID
	typeID string
	def    catalogs.BlockDef

	Props catalogs.Properties

	pos       geom.Vec2
	rot       float64
	health    float64
	maxHealth float64

	conns map[int]PointRef
	ent   *ecs.Entity
	owner *Ship
}

// NewBlock builds an unplaced block. A malformed definition is rejected
// before anything is allocated.
func NewBlock(typeID string, def catalogs.BlockDef, props catalogs.Properties) (*Block, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("block %q: %w", typeID, err)
	}
	b := &Block{
		typeID:    typeID,
		def:       def,
		Props:     props,
		health:    def.MaxHealth,
		maxHealth: def.MaxHealth,
		conns:     map[int]PointRef{},
		ent:       ecs.NewEntity("block:"+typeID, nil),
	}
	ecs.Add(b.ent, shapeKey, shapeOf(def))
	ecs.Add(b.ent, structureKey, Structure{TypeID: typeID, Category: def.Category})
	return b, nil
}

func shapeOf(def catalogs.BlockDef) physics.ShapeDesc {
	switch def.Shape {
	case catalogs.ShapeCircle:
		return physics.ShapeDesc{Kind: physics.ShapeCircle, Radius: def.Radius}
	case catalogs.ShapePolygon:
		vs := append([]geom.Vec2(nil), def.Vertices...)
		return physics.ShapeDesc{Kind: physics.ShapePolygon, Vertices: vs}
	}
	return physics.ShapeDesc{Kind: physics.ShapeRect, Width: def.Width, Height: def.Height}
}

func (b *Block) ID() BlockID                 { return b.id }
func (b *Block) TypeID() string              { return b.typeID }
func (b *Block) Def() catalogs.BlockDef      { return b.def }
func (b *Block) Category() catalogs.Category { return b.def.Category }
func (b *Block) GridPosition() geom.Vec2     { return b.pos }
func (b *Block) Rotation() float64           { return b.rot }
func (b *Block) Health() float64             { return b.health }
func (b *Block) MaxHealth() float64          { return b.maxHealth }
func (b *Block) Entity() *ecs.Entity         { return b.ent }

// Body returns the block's own physics body, if it still has one.
func (b *Block) Body() (physics.BodyID, bool) {
	h, ok := ecs.Get(b.ent, bodyKey)
	if !ok || h.id == 0 {
		return 0, false
	}
	return h.id, true
}

// Bounds is the axis-aligned footprint at the current pose.
func (b *Block) Bounds() geom.AABB {
	hw, hh := b.def.HalfExtents()
	hw, hh = geom.RotatedExtents(hw, hh, b.rot)
	return geom.Box(b.pos, hw, hh)
}

func (b *Block) validPoint(i int) bool { return i >= 0 && i < len(b.def.AttachPoints) }

// WorldAttachmentPoint rotates the local point by the block rotation and
// translates it by the grid position.
func (b *Block) WorldAttachmentPoint(i int) (geom.Vec2, bool) {
	if !b.validPoint(i) {
		return geom.Vec2{}, false
	}
	return geom.Transform(b.def.AttachPoints[i], b.pos, b.rot), true
}

// AvailableAttachmentPoints lists unconnected point indices in order.
func (b *Block) AvailableAttachmentPoints() []int {
	out := make([]int, 0, len(b.def.AttachPoints))
	for i := range b.def.AttachPoints {
		if _, used := b.conns[i]; !used {
			out = append(out, i)
		}
	}
	return out
}

// Links returns the connection table sorted by local point.
func (b *Block) Links() []Link {
	out := make([]Link, 0, len(b.conns))
	for p, ref := range b.conns {
		out = append(out, Link{Point: p, Peer: ref.Block, PeerPoint: ref.Point})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Point < out[j].Point })
	return out
}

// LinkAt reports the neighbor attached at local point i.
func (b *Block) LinkAt(i int) (PointRef, bool) {
	ref, ok := b.conns[i]
	return ref, ok
}

// ConnectTo joins myIndex to otherIndex on other. Blocks on a ship are
// joined through Ship.ConnectBlocks so the physical constraint comes with
// the edge; unplaced blocks only get the logical edge.
func (b *Block) ConnectTo(other *Block, myIndex, otherIndex int) error {
	if err := b.checkMutable(); err != nil {
		return err
	}
	if other == nil {
		return ErrUnknownBlock
	}
	if b.owner != nil || other.owner != nil {
		if b.owner != other.owner {
			return fmt.Errorf("%w: blocks %d and %d are not on the same ship", ErrUnknownBlock, b.id, other.id)
		}
		if b == other {
			return fmt.Errorf("%w: block %d", ErrSelfConnect, b.id)
		}
		return b.owner.ConnectBlocks(b.id, other.id, myIndex, otherIndex, nil)
	}
	if err := link(b, myIndex, other, otherIndex); err != nil {
		return err
	}
	b.touch()
	other.touch()
	return nil
}

// Disconnect severs whatever is attached at index on both sides. It is a
// no-op for an unconnected index.
func (b *Block) Disconnect(index int) {
	if b.checkMutable() != nil {
		return
	}
	ref, ok := unlink(b, index)
	if !ok {
		return
	}
	if b.owner != nil {
		b.owner.dropJoint(edgeKeyOf(b.id, index, ref.Block, ref.Point))
	}
	b.touch()
	ref.peer.touch()
}

// SetGridPosition moves the block and its body together.
func (b *Block) SetGridPosition(p geom.Vec2) error {
	return b.setPose(p, b.rot)
}

func (b *Block) SetRotation(angle float64) error {
	return b.setPose(b.pos, angle)
}

func (b *Block) setPose(p geom.Vec2, angle float64) error {
	if err := b.checkMutable(); err != nil {
		return err
	}
	if h, ok := ecs.Get(b.ent, bodyKey); ok && h.id != 0 {
		if err := h.engine.SetPose(h.id, physics.Pose{Position: p, Angle: angle}); err != nil {
			return fmt.Errorf("block %d pose: %w", b.id, err)
		}
	}
	b.pos, b.rot = p, angle
	if b.owner != nil {
		b.owner.invalidate()
	}
	return nil
}

// Damage lowers health, clamped at zero, and reports whether the block is
// destroyed.
func (b *Block) Damage(amount float64) bool {
	if amount > 0 {
		b.health = max(0, b.health-amount)
		b.touch()
	}
	return b.health == 0
}

func (b *Block) Repair(amount float64) {
	if amount > 0 {
		b.health = min(b.maxHealth, b.health+amount)
		b.touch()
	}
}

func (b *Block) checkMutable() error {
	if b.owner != nil && b.owner.frozen {
		return ErrFrozen
	}
	return nil
}

func (b *Block) touch() {
	if b.owner != nil {
		b.owner.invalidate()
	}
}
