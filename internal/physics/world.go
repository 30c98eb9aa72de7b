package physics

import (
	"fmt"
	"sort"

	"hullcraft.io/internal/sim/geom"
)

var _ Engine = (*World)(nil)

// Part is one merged shape inside a compound body, in the compound's frame.
type Part struct {
	Label  string
	Shape  ShapeDesc
	Mass   float64
	Offset geom.Vec2
	Angle  float64
}

// Body is a read-only view of an engine body.
type Body struct {
	ID              BodyID
	Label           string
	Shape           ShapeDesc
	Mass            float64
	Inertia         float64
	Position        geom.Vec2
	Angle           float64
	Velocity        geom.Vec2
	AngularVelocity float64
	Force           geom.Vec2
	Torque          float64
	Parts           []Part
}

func (b Body) Compound() bool { return len(b.Parts) > 0 }

type Constraint struct {
	ID ConstraintID
	ConstraintDesc
}

// World is a small single-threaded rigid-body world: bodies, spring
// constraints between local anchors, and semi-implicit Euler stepping.
type World struct {
	bodies      map[BodyID]*Body
	constraints map[ConstraintID]*Constraint

	nextBody       BodyID
	nextConstraint ConstraintID
}

func NewWorld() *World {
	return &World{
		bodies:      map[BodyID]*Body{},
		constraints: map[ConstraintID]*Constraint{},
	}
}

func (w *World) CreateBody(desc BodyDesc) (BodyID, error) {
	if desc.Mass <= 0 || !validShape(desc.Shape) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBody, desc.Label)
	}
	w.nextBody++
	id := w.nextBody
	w.bodies[id] = &Body{
		ID:       id,
		Label:    desc.Label,
		Shape:    desc.Shape,
		Mass:     desc.Mass,
		Inertia:  MomentOfInertia(desc.Shape, desc.Mass),
		Position: desc.Position,
		Angle:    desc.Angle,
	}
	return id, nil
}

func (w *World) DestroyBody(id BodyID) error {
	if _, ok := w.bodies[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	if c := w.constraintOn(id); c != 0 {
		return fmt.Errorf("%w: body %d constraint %d", ErrBodyInUse, id, c)
	}
	delete(w.bodies, id)
	return nil
}

func (w *World) constraintOn(id BodyID) ConstraintID {
	for cid, c := range w.constraints {
		if c.A == id || c.B == id {
			return cid
		}
	}
	return 0
}

func (w *World) SetPose(id BodyID, p Pose) error {
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	b.Position = p.Position
	b.Angle = p.Angle
	return nil
}

func (w *World) Pose(id BodyID) (Pose, error) {
	b, ok := w.bodies[id]
	if !ok {
		return Pose{}, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return Pose{Position: b.Position, Angle: b.Angle}, nil
}

func (w *World) AddConstraint(desc ConstraintDesc) (ConstraintID, error) {
	if _, ok := w.bodies[desc.A]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownBody, desc.A)
	}
	if _, ok := w.bodies[desc.B]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownBody, desc.B)
	}
	w.nextConstraint++
	id := w.nextConstraint
	w.constraints[id] = &Constraint{ID: id, ConstraintDesc: desc}
	return id, nil
}

func (w *World) RemoveConstraint(id ConstraintID) error {
	if _, ok := w.constraints[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownConstraint, id)
	}
	delete(w.constraints, id)
	return nil
}

// Compose merges the parts around their common center of mass. The new
// body starts at rest with angle zero.
func (w *World) Compose(label string, parts []BodyID) (BodyID, error) {
	if len(parts) == 0 {
		return 0, fmt.Errorf("%w: compose %q with no parts", ErrInvalidBody, label)
	}
	var (
		mass float64
		com  geom.Vec2
	)
	for _, id := range parts {
		b, ok := w.bodies[id]
		if !ok {
			return 0, fmt.Errorf("%w: %d", ErrUnknownBody, id)
		}
		if c := w.constraintOn(id); c != 0 {
			return 0, fmt.Errorf("%w: body %d constraint %d", ErrBodyInUse, id, c)
		}
		mass += b.Mass
		com = com.Add(b.Position.Scale(b.Mass))
	}
	com = com.Scale(1 / mass)

	var (
		inertia float64
		merged  []Part
	)
	for _, id := range parts {
		b := w.bodies[id]
		off := b.Position.Sub(com)
		inertia += b.Inertia + b.Mass*off.LenSq()
		if b.Compound() {
			for _, p := range b.Parts {
				merged = append(merged, Part{
					Label:  p.Label,
					Shape:  p.Shape,
					Mass:   p.Mass,
					Offset: geom.Transform(p.Offset, off, b.Angle),
					Angle:  p.Angle + b.Angle,
				})
			}
			continue
		}
		merged = append(merged, Part{Label: b.Label, Shape: b.Shape, Mass: b.Mass, Offset: off, Angle: b.Angle})
	}
	for _, id := range parts {
		delete(w.bodies, id)
	}

	w.nextBody++
	id := w.nextBody
	w.bodies[id] = &Body{
		ID:       id,
		Label:    label,
		Mass:     mass,
		Inertia:  inertia,
		Position: com,
		Parts:    merged,
	}
	return id, nil
}

func (w *World) ApplyForce(id BodyID, worldPoint, force geom.Vec2) error {
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	b.Force = b.Force.Add(force)
	b.Torque += worldPoint.Sub(b.Position).Cross(force)
	return nil
}

// Step advances the world by dt seconds. Forces are cleared afterwards.
func (w *World) Step(dt float64) {
	for _, cid := range w.constraintIDs() {
		w.applySpring(w.constraints[cid])
	}
	for _, id := range w.BodyIDs() {
		b := w.bodies[id]
		b.Velocity = b.Velocity.Add(b.Force.Scale(dt / b.Mass))
		if b.Inertia > 0 {
			b.AngularVelocity += b.Torque / b.Inertia * dt
		}
		b.Position = b.Position.Add(b.Velocity.Scale(dt))
		b.Angle += b.AngularVelocity * dt
		b.Force = geom.Vec2{}
		b.Torque = 0
	}
}

func (w *World) applySpring(c *Constraint) {
	a, b := w.bodies[c.A], w.bodies[c.B]
	pa := geom.Transform(c.LocalA, a.Position, a.Angle)
	pb := geom.Transform(c.LocalB, b.Position, b.Angle)
	d := pb.Sub(pa)
	dist := d.Len()
	if dist < 1e-12 {
		return
	}
	dir := d.Scale(1 / dist)
	relVel := pointVelocity(b, pb).Sub(pointVelocity(a, pa))
	mag := c.Stiffness*(dist-c.Length) + c.Damping*relVel.Dot(dir)
	f := dir.Scale(mag)
	_ = w.ApplyForce(a.ID, pa, f)
	_ = w.ApplyForce(b.ID, pb, f.Scale(-1))
}

func pointVelocity(b *Body, p geom.Vec2) geom.Vec2 {
	r := p.Sub(b.Position)
	return b.Velocity.Add(geom.Vec2{X: -b.AngularVelocity * r.Y, Y: b.AngularVelocity * r.X})
}

func (w *World) Body(id BodyID) (Body, bool) {
	b, ok := w.bodies[id]
	if !ok {
		return Body{}, false
	}
	out := *b
	out.Parts = append([]Part(nil), b.Parts...)
	return out, true
}

func (w *World) Constraint(id ConstraintID) (Constraint, bool) {
	c, ok := w.constraints[id]
	if !ok {
		return Constraint{}, false
	}
	return *c, true
}

func (w *World) BodyIDs() []BodyID {
	out := make([]BodyID, 0, len(w.bodies))
	for id := range w.bodies {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *World) constraintIDs() []ConstraintID {
	out := make([]ConstraintID, 0, len(w.constraints))
	for id := range w.constraints {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *World) BodyCount() int       { return len(w.bodies) }
func (w *World) ConstraintCount() int { return len(w.constraints) }

// KineticEnergy sums linear and angular energy over all bodies.
func (w *World) KineticEnergy() float64 {
	var e float64
	for _, b := range w.bodies {
		e += 0.5*b.Mass*b.Velocity.LenSq() + 0.5*b.Inertia*b.AngularVelocity*b.AngularVelocity
	}
	return e
}
