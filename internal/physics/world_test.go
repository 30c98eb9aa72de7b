package physics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"hullcraft.io/internal/sim/geom"
)

func box(label string, x, y float64) BodyDesc {
	return BodyDesc{
		Label:    label,
		Shape:    ShapeDesc{Kind: ShapeRect, Width: 32, Height: 32},
		Mass:     10,
		Position: geom.V(x, y),
	}
}

func TestWorld_CreateRejectsInvalid(t *testing.T) {
	w := NewWorld()
	_, err := w.CreateBody(BodyDesc{Shape: ShapeDesc{Kind: ShapeRect, Width: 1, Height: 1}})
	require.ErrorIs(t, err, ErrInvalidBody)
	_, err = w.CreateBody(BodyDesc{Mass: 1, Shape: ShapeDesc{Kind: ShapePolygon, Vertices: []geom.Vec2{{X: 0, Y: 0}}}})
	require.ErrorIs(t, err, ErrInvalidBody)
	require.Zero(t, w.BodyCount())
}

func TestWorld_DestroyRequiresConstraintsGone(t *testing.T) {
	w := NewWorld()
	a, err := w.CreateBody(box("a", 0, 0))
	require.NoError(t, err)
	b, err := w.CreateBody(box("b", 32, 0))
	require.NoError(t, err)

	c, err := w.AddConstraint(ConstraintDesc{A: a, B: b, LocalA: geom.V(16, 0), LocalB: geom.V(-16, 0), Stiffness: 1})
	require.NoError(t, err)

	require.ErrorIs(t, w.DestroyBody(a), ErrBodyInUse)
	require.NoError(t, w.RemoveConstraint(c))
	require.ErrorIs(t, w.RemoveConstraint(c), ErrUnknownConstraint)
	require.NoError(t, w.DestroyBody(a))
	require.True(t, errors.Is(w.DestroyBody(a), ErrUnknownBody))
	require.Equal(t, 1, w.BodyCount())
}

func TestWorld_ComposeMergesMassAndCenter(t *testing.T) {
	w := NewWorld()
	a, _ := w.CreateBody(box("a", 0, 0))
	b, _ := w.CreateBody(box("b", 32, 0))

	id, err := w.Compose("ship", []BodyID{a, b})
	require.NoError(t, err)
	require.Equal(t, 1, w.BodyCount())

	body, ok := w.Body(id)
	require.True(t, ok)
	require.True(t, body.Compound())
	require.Equal(t, 20.0, body.Mass)
	require.True(t, body.Position.ApproxEqual(geom.V(16, 0), 1e-9))
	require.Len(t, body.Parts, 2)

	// parallel axis: 2 * (I_box + m*16^2)
	single := MomentOfInertia(ShapeDesc{Kind: ShapeRect, Width: 32, Height: 32}, 10)
	require.InDelta(t, 2*(single+10*256), body.Inertia, 1e-9)

	_, ok = w.Body(a)
	require.False(t, ok)
}

func TestWorld_ComposeRefusesConstrainedParts(t *testing.T) {
	w := NewWorld()
	a, _ := w.CreateBody(box("a", 0, 0))
	b, _ := w.CreateBody(box("b", 32, 0))
	_, err := w.AddConstraint(ConstraintDesc{A: a, B: b})
	require.NoError(t, err)

	_, err = w.Compose("ship", []BodyID{a, b})
	require.ErrorIs(t, err, ErrBodyInUse)
	require.Equal(t, 2, w.BodyCount())

	_, err = w.Compose("empty", nil)
	require.ErrorIs(t, err, ErrInvalidBody)
}

func TestWorld_ApplyForceAndStep(t *testing.T) {
	w := NewWorld()
	a, _ := w.CreateBody(box("a", 0, 0))

	require.NoError(t, w.ApplyForce(a, geom.V(0, 0), geom.V(100, 0)))
	w.Step(0.1)

	body, _ := w.Body(a)
	require.InDelta(t, 1.0, body.Velocity.X, 1e-9)
	require.InDelta(t, 0.1, body.Position.X, 1e-9)
	require.Zero(t, body.AngularVelocity)
	require.True(t, body.Force.IsZero())

	// Off-center force spins the body.
	require.NoError(t, w.ApplyForce(a, geom.V(0.1, 16), geom.V(100, 0)))
	w.Step(0.1)
	body, _ = w.Body(a)
	require.Less(t, body.AngularVelocity, 0.0)
	require.Greater(t, w.KineticEnergy(), 0.0)

	require.ErrorIs(t, w.ApplyForce(99, geom.Vec2{}, geom.Vec2{}), ErrUnknownBody)
}

func TestWorld_SpringPullsBodiesTogether(t *testing.T) {
	w := NewWorld()
	a, _ := w.CreateBody(box("a", 0, 0))
	b, _ := w.CreateBody(box("b", 40, 0))
	_, err := w.AddConstraint(ConstraintDesc{A: a, B: b, LocalA: geom.V(16, 0), LocalB: geom.V(-16, 0), Stiffness: 5})
	require.NoError(t, err)

	w.Step(0.01)
	ba, _ := w.Body(a)
	bb, _ := w.Body(b)
	require.Greater(t, ba.Velocity.X, 0.0)
	require.Less(t, bb.Velocity.X, 0.0)
}

func TestWorld_PoseRoundTrip(t *testing.T) {
	w := NewWorld()
	a, _ := w.CreateBody(box("a", 0, 0))
	require.NoError(t, w.SetPose(a, Pose{Position: geom.V(5, 6), Angle: 1}))
	p, err := w.Pose(a)
	require.NoError(t, err)
	require.Equal(t, Pose{Position: geom.V(5, 6), Angle: 1}, p)
	require.ErrorIs(t, w.SetPose(42, Pose{}), ErrUnknownBody)
}

func TestMomentOfInertia(t *testing.T) {
	require.InDelta(t, 10*(4.0+4.0)/12, MomentOfInertia(ShapeDesc{Kind: ShapeRect, Width: 2, Height: 2}, 10), 1e-9)
	require.InDelta(t, 10*4.0/2, MomentOfInertia(ShapeDesc{Kind: ShapeCircle, Radius: 2}, 10), 1e-9)
	// A square as a polygon matches the rectangle formula.
	sq := ShapeDesc{Kind: ShapePolygon, Vertices: []geom.Vec2{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}}}
	require.InDelta(t, 10*(4.0+4.0)/12, MomentOfInertia(sq, 10), 1e-9)
}

func TestComposite_Bookkeeping(t *testing.T) {
	c := NewComposite("ship")
	c.AddBody(3)
	c.AddBody(1)
	c.AddConstraint(7)
	require.Equal(t, []BodyID{1, 3}, c.Bodies())
	require.True(t, c.HasConstraint(7))
	require.True(t, c.RemoveConstraint(7))
	require.False(t, c.RemoveConstraint(7))
	require.True(t, c.RemoveBody(1))
	require.Equal(t, 1, c.BodyCount())
	require.Zero(t, c.ConstraintCount())
}
