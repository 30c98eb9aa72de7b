package ship

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/geom"
)

var testCatalog = catalogs.Builtin()

func newTestShip(t *testing.T) (*Ship, *physics.World) {
	t.Helper()
	w := physics.NewWorld()
	return New(w, Options{Name: "test", Constraint: ConstraintOptions{Stiffness: 1}}), w
}

func mustBlock(t *testing.T, typeID string) *Block {
	t.Helper()
	def, ok := testCatalog.Get(typeID)
	require.True(t, ok, typeID)
	b, err := NewBlock(typeID, def, testCatalog.DefaultProperties(typeID))
	require.NoError(t, err)
	return b
}

func mustAdd(t *testing.T, s *Ship, typeID string, x, y float64) BlockID {
	t.Helper()
	p := geom.V(x, y)
	id, err := s.AddBlock(mustBlock(t, typeID), &p)
	require.NoError(t, err)
	return id
}

// requireSymmetric checks that every connection has its mirror and no
// point is used twice.
func requireSymmetric(t *testing.T, s *Ship) {
	t.Helper()
	for _, b := range s.Blocks() {
		for p, ref := range b.conns {
			peer, ok := s.Block(ref.Block)
			require.True(t, ok, "block %d point %d points at missing block %d", b.id, p, ref.Block)
			back, ok := peer.conns[ref.Point]
			require.True(t, ok, "missing reciprocal for %d:%d", b.id, p)
			require.Equal(t, b.id, back.Block)
			require.Equal(t, p, back.Point)
		}
	}
}

// failingEngine refuses constraints on demand.
type failingEngine struct {
	*physics.World
	failConstraints bool
	failCompose     bool
}

func (f *failingEngine) AddConstraint(d physics.ConstraintDesc) (physics.ConstraintID, error) {
	if f.failConstraints {
		return 0, physics.ErrUnknownBody
	}
	return f.World.AddConstraint(d)
}

func (f *failingEngine) Compose(label string, parts []physics.BodyID) (physics.BodyID, error) {
	if f.failCompose {
		return 0, physics.ErrInvalidBody
	}
	return f.World.Compose(label, parts)
}
