package ship

import (
	"fmt"

	"go.uber.org/zap"

	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/ecs"
	"hullcraft.io/internal/sim/geom"
)

// CreateCompoundBody merges every block body into one rigid body and makes
// it the ship's only simulation body. It is one-way: afterwards structural
// edits fail with ErrFrozen. An empty ship gets a placeholder body.
func (s *Ship) CreateCompoundBody() (physics.BodyID, error) {
	if s.frozen {
		return 0, ErrFrozen
	}
	if len(s.blocks) == 0 {
		return s.freezePlaceholder()
	}

	// Internal constraints go first; the engine refuses to merge constrained bodies.
	dropped := make(map[edgeKey]joint, len(s.joints))
	for k, j := range s.joints {
		dropped[k] = j
		s.dropJoint(k)
	}

	parts := make([]physics.BodyID, 0, len(s.blocks))
	for _, b := range s.Blocks() {
		if id, ok := b.Body(); ok {
			parts = append(parts, id)
		}
	}
	compound, err := s.engine.Compose(s.ID.String(), parts)
	if err != nil {
		for k, j := range dropped {
			if cid, err := s.engine.AddConstraint(j.desc); err == nil {
				s.joints[k] = joint{id: cid, desc: j.desc}
				s.composite.AddConstraint(cid)
			}
		}
		return 0, fmt.Errorf("compose ship: %w", err)
	}

	origin, err := s.engine.Pose(compound)
	if err != nil {
		return 0, err
	}
	s.frozenOffsets = make(map[BlockID]geom.Vec2, len(s.blocks))
	for _, b := range s.Blocks() {
		if h, ok := ecs.Take(b.ent, bodyKey); ok {
			s.composite.RemoveBody(h.id)
		}
		s.frozenOffsets[b.id] = geom.InverseTransform(b.pos, origin.Position, origin.Angle)
	}
	s.adoptCompound(compound, origin)
	s.log.Info("ship frozen", zap.Int("blocks", len(s.blocks)), zap.Int("parts", len(parts)))
	return compound, nil
}

func (s *Ship) freezePlaceholder() (physics.BodyID, error) {
	p := s.opts.Placeholder
	id, err := s.engine.CreateBody(physics.BodyDesc{
		Label: s.ID.String() + ":placeholder",
		Shape: physics.ShapeDesc{Kind: physics.ShapeRect, Width: p.Width, Height: p.Height},
		Mass:  p.Mass,
	})
	if err != nil {
		return 0, fmt.Errorf("placeholder body: %w", err)
	}
	s.frozenOffsets = map[BlockID]geom.Vec2{}
	s.adoptCompound(id, physics.Pose{})
	s.log.Info("ship frozen with placeholder body")
	return id, nil
}

func (s *Ship) adoptCompound(id physics.BodyID, origin physics.Pose) {
	ecs.Set(s.ent, compoundKey, &bodyHandle{engine: s.engine, id: id})
	s.composite.AddBody(id)
	s.frozenOrigin = origin
	s.frozen = true
	s.invalidate()
}

// CompoundBody returns the frozen aggregate body.
func (s *Ship) CompoundBody() (physics.BodyID, bool) {
	h, ok := ecs.Get(s.ent, compoundKey)
	if !ok || h.id == 0 {
		return 0, false
	}
	return h.id, true
}

// ThrustDirection is the local push direction of a propulsion block at
// rotation zero; nozzles face +Y.
var ThrustDirection = geom.Vec2{X: 0, Y: -1}

// ApplyThrust pushes the compound body with every propulsion block at the
// given throttle in [0,1], at each block's current world position.
func (s *Ship) ApplyThrust(throttle float64) error {
	body, ok := s.CompoundBody()
	if !ok {
		return ErrNotFrozen
	}
	throttle = min(1, max(0, throttle))
	if throttle == 0 {
		return nil
	}
	pose, err := s.engine.Pose(body)
	if err != nil {
		return err
	}
	for _, b := range s.Blocks() {
		if b.def.Category != catalogs.CategoryPropulsion || b.Props.Thrust == 0 {
			continue
		}
		off, ok := s.frozenOffsets[b.id]
		if !ok {
			continue
		}
		at := geom.Transform(off, pose.Position, pose.Angle)
		dir := ThrustDirection.Rotate(b.rot + pose.Angle - s.frozenOrigin.Angle)
		if err := s.engine.ApplyForce(body, at, dir.Scale(b.Props.Thrust*throttle)); err != nil {
			return err
		}
	}
	return nil
}
