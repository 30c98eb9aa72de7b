// Package ship holds the block graph of one vessel: placed blocks, their
// symmetric connections, the physical constraints behind them, cached
// aggregate stats and the one-shot compound body handoff.
//
// A Ship is not safe for concurrent use. Callers serialize all mutations
// (build.Builder does this with a mutex).
package ship

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/sim/ecs"
	"hullcraft.io/internal/sim/geom"
)

var (
	compositeKey = ecs.NewKey[*physics.Composite](ecs.KindComposite)
	compoundKey  = ecs.NewKey[*bodyHandle](ecs.KindCompound)
	jointsKey    = ecs.NewKey[jointTable](ecs.KindConstraints)
)

type ConstraintOptions struct {
	Stiffness float64
	Damping   float64
	Length    float64
}

type PlaceholderOptions struct {
	Width  float64
	Height float64
	Mass   float64
}

type Options struct {
	ID          uuid.UUID
	Name        string
	Log         *zap.Logger
	Constraint  ConstraintOptions
	Placeholder PlaceholderOptions
}

type Ship struct {
	ID   uuid.UUID
	Name string

	engine physics.Engine
	opts   Options
	log    *zap.Logger

	blocks map[BlockID]*Block
	nextID BlockID
	joints jointTable

	stats *Stats

	frozen        bool
	frozenOrigin  physics.Pose
	frozenOffsets map[BlockID]geom.Vec2

	ent       *ecs.Entity
	composite *physics.Composite
}

func New(engine physics.Engine, opts Options) *Ship {
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Placeholder.Mass <= 0 || opts.Placeholder.Width <= 0 || opts.Placeholder.Height <= 0 {
		opts.Placeholder = PlaceholderOptions{Width: 1, Height: 1, Mass: 1}
	}
	s := &Ship{
		ID:        opts.ID,
		Name:      opts.Name,
		engine:    engine,
		opts:      opts,
		log:       opts.Log.With(zap.String("ship", opts.ID.String())),
		blocks:    map[BlockID]*Block{},
		joints:    jointTable{},
		ent:       ecs.NewEntity("ship:"+opts.ID.String(), opts.Log),
		composite: physics.NewComposite(opts.ID.String()),
	}
	ecs.Add(s.ent, compositeKey, s.composite)
	ecs.Add(s.ent, jointsKey, s.joints)
	return s
}

func (s *Ship) Entity() *ecs.Entity           { return s.ent }
func (s *Ship) Composite() *physics.Composite { return s.composite }
func (s *Ship) Engine() physics.Engine        { return s.engine }
func (s *Ship) Frozen() bool                  { return s.frozen }
func (s *Ship) Len() int                      { return len(s.blocks) }

func (s *Ship) Block(id BlockID) (*Block, bool) {
	b, ok := s.blocks[id]
	return b, ok
}

// Blocks returns the blocks ordered by id.
func (s *Ship) Blocks() []*Block {
	out := make([]*Block, 0, len(s.blocks))
	for _, id := range s.blockIDs() {
		out = append(out, s.blocks[id])
	}
	return out
}

func (s *Ship) blockIDs() []BlockID {
	ids := make([]BlockID, 0, len(s.blocks))
	for id := range s.blocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BlockAt returns the lowest-id block whose footprint contains p.
func (s *Ship) BlockAt(p geom.Vec2) (*Block, bool) {
	for _, b := range s.Blocks() {
		if b.Bounds().Contains(p) {
			return b, true
		}
	}
	return nil, false
}

// AddBlock inserts b, optionally moving it to pos first, and creates its
// body inside the ship's composite. On error the ship is unchanged.
func (s *Ship) AddBlock(b *Block, pos *geom.Vec2) (BlockID, error) {
	s.nextID++
	id := s.nextID
	if err := s.insert(id, b, pos); err != nil {
		s.nextID--
		return 0, err
	}
	return id, nil
}

// AddBlockAs inserts b under a caller-chosen id, as when restoring a save.
func (s *Ship) AddBlockAs(id BlockID, b *Block, pos *geom.Vec2) error {
	if id == 0 {
		return fmt.Errorf("%w: zero id", ErrUnknownBlock)
	}
	if _, taken := s.blocks[id]; taken {
		return fmt.Errorf("%w: %d", ErrDuplicateBlock, id)
	}
	if err := s.insert(id, b, pos); err != nil {
		return err
	}
	if id > s.nextID {
		s.nextID = id
	}
	return nil
}

func (s *Ship) insert(id BlockID, b *Block, pos *geom.Vec2) error {
	if s.frozen {
		return ErrFrozen
	}
	if b == nil {
		return ErrUnknownBlock
	}
	if b.owner != nil {
		return ErrAlreadyPlaced
	}
	if len(b.conns) > 0 {
		return ErrPrelinked
	}
	p := b.pos
	if pos != nil {
		p = *pos
	}
	shape, _ := ecs.Get(b.ent, shapeKey)
	body, err := s.engine.CreateBody(physics.BodyDesc{
		Label:    fmt.Sprintf("%s#%d", b.typeID, id),
		Shape:    shape,
		Mass:     b.def.Mass,
		Position: p,
		Angle:    b.rot,
	})
	if err != nil {
		return fmt.Errorf("block %q body: %w", b.typeID, err)
	}
	b.id = id
	b.pos = p
	ecs.Set(b.ent, bodyKey, &bodyHandle{engine: s.engine, id: body})
	b.owner = s
	s.blocks[id] = b
	s.composite.AddBody(body)
	s.invalidate()
	s.log.Debug("block added", zap.Uint32("block", uint32(id)), zap.String("type", b.typeID))
	return nil
}

// LastBlockID is the highest id handed out so far.
func (s *Ship) LastBlockID() BlockID { return s.nextID }

// ReserveBlockIDs makes sure ids up to and including last are never handed
// out again, as when a save recorded ids of since-removed blocks.
func (s *Ship) ReserveBlockIDs(last BlockID) {
	s.nextID = max(s.nextID, last)
}

// RemoveBlock severs every connection of the block, then releases its body
// and drops it from the ship.
func (s *Ship) RemoveBlock(id BlockID) error {
	if s.frozen {
		return ErrFrozen
	}
	b, ok := s.blocks[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}
	s.detach(b)
	s.invalidate()
	s.log.Debug("block removed", zap.Uint32("block", uint32(id)))
	return nil
}

// detach releases constraints before the body they reference.
func (s *Ship) detach(b *Block) {
	for _, l := range b.Links() {
		s.dropJoint(edgeKeyOf(b.id, l.Point, l.Peer, l.PeerPoint))
		unlink(b, l.Point)
	}
	if h, ok := ecs.Get(b.ent, bodyKey); ok {
		s.composite.RemoveBody(h.id)
	}
	b.ent.Destroy()
	delete(s.blocks, b.id)
	b.owner = nil
}

// ConnectBlocks joins pointA on a to pointB on b, logically and with a
// physical constraint anchored at body-local offsets. Nothing is recorded
// unless both halves succeed.
func (s *Ship) ConnectBlocks(a, b BlockID, pointA, pointB int, opts *ConstraintOptions) error {
	if s.frozen {
		return ErrFrozen
	}
	ba, ok := s.blocks[a]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBlock, a)
	}
	bb, ok := s.blocks[b]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBlock, b)
	}
	if err := link(ba, pointA, bb, pointB); err != nil {
		return err
	}
	j, err := s.constrain(ba, pointA, bb, pointB, opts)
	if err != nil {
		unlink(ba, pointA)
		s.log.Warn("connection rolled back",
			zap.Uint32("a", uint32(a)), zap.Uint32("b", uint32(b)), zap.Error(err))
		return err
	}
	s.joints[edgeKeyOf(a, pointA, b, pointB)] = j
	s.composite.AddConstraint(j.id)
	s.invalidate()
	return nil
}

// joint is the physical half of a connection.
type joint struct {
	id   physics.ConstraintID
	desc physics.ConstraintDesc
}

// jointTable is the ship's constraints component, keyed by edge.
type jointTable map[edgeKey]joint

func (s *Ship) constrain(ba *Block, pointA int, bb *Block, pointB int, opts *ConstraintOptions) (joint, error) {
	wa, ok := ba.WorldAttachmentPoint(pointA)
	if !ok {
		return joint{}, fmt.Errorf("%w: block %d point %d", ErrPointOutOfRange, ba.id, pointA)
	}
	wb, ok := bb.WorldAttachmentPoint(pointB)
	if !ok {
		return joint{}, fmt.Errorf("%w: block %d point %d", ErrPointOutOfRange, bb.id, pointB)
	}
	bodyA, ok := ba.Body()
	if !ok {
		return joint{}, fmt.Errorf("%w: block %d has no body", ErrUnknownBlock, ba.id)
	}
	bodyB, ok := bb.Body()
	if !ok {
		return joint{}, fmt.Errorf("%w: block %d has no body", ErrUnknownBlock, bb.id)
	}
	poseA, err := s.engine.Pose(bodyA)
	if err != nil {
		return joint{}, err
	}
	poseB, err := s.engine.Pose(bodyB)
	if err != nil {
		return joint{}, err
	}
	o := s.opts.Constraint
	if opts != nil {
		o = *opts
	}
	desc := physics.ConstraintDesc{
		A:         bodyA,
		B:         bodyB,
		LocalA:    geom.InverseTransform(wa, poseA.Position, poseA.Angle),
		LocalB:    geom.InverseTransform(wb, poseB.Position, poseB.Angle),
		Stiffness: o.Stiffness,
		Damping:   o.Damping,
		Length:    o.Length,
	}
	cid, err := s.engine.AddConstraint(desc)
	if err != nil {
		return joint{}, err
	}
	return joint{id: cid, desc: desc}, nil
}

// DisconnectBlocks removes one connection between a and b, whichever points
// carry it. The order of a and b does not matter.
func (s *Ship) DisconnectBlocks(a, b BlockID) error {
	if s.frozen {
		return ErrFrozen
	}
	ba, ok := s.blocks[a]
	if !ok {
		return fmt.Errorf("%w: %d-%d", ErrNotConnected, a, b)
	}
	for _, l := range ba.Links() {
		if l.Peer != b {
			continue
		}
		s.dropJoint(edgeKeyOf(a, l.Point, b, l.PeerPoint))
		unlink(ba, l.Point)
		s.invalidate()
		return nil
	}
	return fmt.Errorf("%w: %d-%d", ErrNotConnected, a, b)
}

func (s *Ship) dropJoint(k edgeKey) {
	j, ok := s.joints[k]
	if !ok {
		return
	}
	delete(s.joints, k)
	s.composite.RemoveConstraint(j.id)
	if err := s.engine.RemoveConstraint(j.id); err != nil {
		s.log.Warn("remove constraint", zap.Uint64("constraint", uint64(j.id)), zap.Error(err))
	}
}

// Connections lists every edge once, sorted.
func (s *Ship) Connections() []Connection {
	var out []Connection
	for _, id := range s.blockIDs() {
		for _, l := range s.blocks[id].Links() {
			k := edgeKeyOf(id, l.Point, l.Peer, l.PeerPoint)
			if k.a != id || k.pa != l.Point {
				continue
			}
			out = append(out, Connection{A: k.a, PointA: k.pa, B: k.b, PointB: k.pb, Constraint: s.joints[k].id})
		}
	}
	return out
}

func (s *Ship) ConnectionCount() int {
	n := 0
	for _, b := range s.blocks {
		n += len(b.conns)
	}
	return n / 2
}

func (s *Ship) invalidate() { s.stats = nil }

// Destroy tears the ship down: connections, then block bodies, then the
// compound body and the ship's own components.
func (s *Ship) Destroy() {
	for _, id := range s.blockIDs() {
		b := s.blocks[id]
		for _, l := range b.Links() {
			s.dropJoint(edgeKeyOf(id, l.Point, l.Peer, l.PeerPoint))
		}
	}
	for _, id := range s.blockIDs() {
		s.detach(s.blocks[id])
	}
	if h, ok := ecs.Get(s.ent, compoundKey); ok {
		s.composite.RemoveBody(h.id)
	}
	s.ent.Destroy()
	s.frozen = false
	s.frozenOffsets = nil
	s.invalidate()
}
