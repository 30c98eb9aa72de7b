package ship

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/sim/geom"
)

func TestCreateCompoundBody_MergesBlocks(t *testing.T) {
	s, w := newTestShip(t)
	a := mustAdd(t, s, "hull", 0, 0)
	b := mustAdd(t, s, "thruster", 32, 0)
	require.NoError(t, s.ConnectBlocks(a, b, 1, 3, nil))

	id, err := s.CreateCompoundBody()
	require.NoError(t, err)
	require.True(t, s.Frozen())
	require.Equal(t, 1, w.BodyCount())
	require.Zero(t, w.ConstraintCount())
	require.Equal(t, []physics.BodyID{id}, s.Composite().Bodies())
	require.Zero(t, s.Composite().ConstraintCount())

	body, ok := w.Body(id)
	require.True(t, ok)
	require.Equal(t, 18.0, body.Mass)
	require.Len(t, body.Parts, 2)

	got, ok := s.CompoundBody()
	require.True(t, ok)
	require.Equal(t, id, got)

	// The logical graph survives the freeze.
	require.True(t, s.ValidateStructuralIntegrity().Valid)
	require.Equal(t, 1, s.ConnectionCount())
}

func TestCreateCompoundBody_IsOneWay(t *testing.T) {
	s, _ := newTestShip(t)
	a := mustAdd(t, s, "hull", 0, 0)
	_, err := s.CreateCompoundBody()
	require.NoError(t, err)

	_, err = s.CreateCompoundBody()
	require.ErrorIs(t, err, ErrFrozen)
	_, err = s.AddBlock(mustBlock(t, "hull"), &geom.Vec2{X: 32})
	require.ErrorIs(t, err, ErrFrozen)
	require.ErrorIs(t, s.RemoveBlock(a), ErrFrozen)
	require.ErrorIs(t, s.ConnectBlocks(a, a, 0, 1, nil), ErrFrozen)
	require.ErrorIs(t, s.DisconnectBlocks(a, a), ErrFrozen)

	blk, _ := s.Block(a)
	require.ErrorIs(t, blk.SetGridPosition(geom.V(5, 5)), ErrFrozen)
}

func TestCreateCompoundBody_EmptyShipGetsPlaceholder(t *testing.T) {
	w := physics.NewWorld()
	s := New(w, Options{Placeholder: PlaceholderOptions{Width: 2, Height: 2, Mass: 3}})
	id, err := s.CreateCompoundBody()
	require.NoError(t, err)
	body, ok := w.Body(id)
	require.True(t, ok)
	require.Equal(t, 3.0, body.Mass)
	require.True(t, s.Frozen())
}

func TestCreateCompoundBody_RestoresConstraintsOnFailure(t *testing.T) {
	eng := &failingEngine{World: physics.NewWorld()}
	s := New(eng, Options{})
	a := mustAdd(t, s, "hull", 0, 0)
	b := mustAdd(t, s, "thruster", 32, 0)
	require.NoError(t, s.ConnectBlocks(a, b, 1, 3, nil))

	eng.failCompose = true
	_, err := s.CreateCompoundBody()
	require.Error(t, err)
	require.False(t, s.Frozen())
	require.Equal(t, 1, eng.ConstraintCount())
	require.Equal(t, 1, s.Composite().ConstraintCount())
	require.Equal(t, 2, s.Composite().BodyCount())
}

func TestApplyThrust(t *testing.T) {
	s, w := newTestShip(t)
	require.ErrorIs(t, s.ApplyThrust(1), ErrNotFrozen)

	a := mustAdd(t, s, "hull", 0, 0)
	b := mustAdd(t, s, "thruster", 0, 32)
	require.NoError(t, s.ConnectBlocks(a, b, 2, 0, nil))
	id, err := s.CreateCompoundBody()
	require.NoError(t, err)

	require.NoError(t, s.ApplyThrust(0.5))
	body, _ := w.Body(id)
	require.InDelta(t, 0, body.Force.X, 1e-9)
	require.InDelta(t, -75, body.Force.Y, 1e-9)

	w.Step(1)
	body, _ = w.Body(id)
	require.Less(t, body.Velocity.Y, 0.0)
}
