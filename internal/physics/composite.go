package physics

import "sort"

// Composite is the set of bodies and constraints one owner contributes to
// the engine. It holds ids only; the engine owns the objects.
type Composite struct {
	Label       string
	bodies      map[BodyID]struct{}
	constraints map[ConstraintID]struct{}
}

func NewComposite(label string) *Composite {
	return &Composite{
		Label:       label,
		bodies:      map[BodyID]struct{}{},
		constraints: map[ConstraintID]struct{}{},
	}
}

func (c *Composite) AddBody(id BodyID)             { c.bodies[id] = struct{}{} }
func (c *Composite) AddConstraint(id ConstraintID) { c.constraints[id] = struct{}{} }

func (c *Composite) HasBody(id BodyID) bool {
	_, ok := c.bodies[id]
	return ok
}

func (c *Composite) HasConstraint(id ConstraintID) bool {
	_, ok := c.constraints[id]
	return ok
}

func (c *Composite) RemoveBody(id BodyID) bool {
	if !c.HasBody(id) {
		return false
	}
	delete(c.bodies, id)
	return true
}

func (c *Composite) RemoveConstraint(id ConstraintID) bool {
	if !c.HasConstraint(id) {
		return false
	}
	delete(c.constraints, id)
	return true
}

func (c *Composite) Bodies() []BodyID {
	out := make([]BodyID, 0, len(c.bodies))
	for id := range c.bodies {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Composite) Constraints() []ConstraintID {
	out := make([]ConstraintID, 0, len(c.constraints))
	for id := range c.constraints {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Composite) BodyCount() int       { return len(c.bodies) }
func (c *Composite) ConstraintCount() int { return len(c.constraints) }
