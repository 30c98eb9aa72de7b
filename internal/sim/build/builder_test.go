package build

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/geom"
	"hullcraft.io/internal/sim/ship"
	"hullcraft.io/internal/sim/tuning"
)

type memSink struct{ entries []AuditEntry }

func (m *memSink) WriteAudit(e AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func newTestBuilder(t *testing.T, mut func(*tuning.Tuning)) (*Builder, *physics.World, *memSink) {
	t.Helper()
	tun := tuning.Defaults()
	if mut != nil {
		mut(&tun)
	}
	require.NoError(t, tun.Validate())
	w := physics.NewWorld()
	sink := &memSink{}
	b := New(Config{Catalog: catalogs.Builtin(), Tuning: tun, Engine: w, Audit: []AuditSink{sink}})
	return b, w, sink
}

func mustPlace(t *testing.T, b *Builder, typeID string, x, y float64) ship.BlockID {
	t.Helper()
	id, err := b.Place(geom.V(x, y), typeID)
	require.NoError(t, err)
	return id
}

func counts(b *Builder) (blocks, conns int) {
	_ = b.View(func(s *ship.Ship) error {
		blocks, conns = s.Len(), s.ConnectionCount()
		return nil
	})
	return
}

func TestPlace_AdjacentStructuralBlocksAutoConnect(t *testing.T) {
	b, w, _ := newTestBuilder(t, nil)
	a := mustPlace(t, b, "hull", 0, 0)
	c := mustPlace(t, b, "hull", 32, 0)

	blocks, conns := counts(b)
	require.Equal(t, 2, blocks)
	require.Equal(t, 1, conns)
	require.Equal(t, 2, b.Stats().BlockCount)
	require.Equal(t, 1, w.ConstraintCount())

	_ = b.View(func(s *ship.Ship) error {
		ref, ok := mustBlock(t, s, c).LinkAt(3)
		require.True(t, ok)
		require.Equal(t, a, ref.Block)
		require.Equal(t, 1, ref.Point)
		return nil
	})
}

func TestValidate_TwoStructuralNoPropulsion(t *testing.T) {
	b, _, _ := newTestBuilder(t, nil)
	mustPlace(t, b, "hull", 0, 0)
	mustPlace(t, b, "hull", 32, 0)

	r := b.Validate()
	require.False(t, r.Valid)
	require.Contains(t, r.Issues, ship.IssueMissingPropulsion)
}

func TestPlace_OutsideEnvelopeIsRejected(t *testing.T) {
	b, w, sink := newTestBuilder(t, nil)
	mustPlace(t, b, "hull", 0, 0)

	require.False(t, b.CanPlace(geom.V(470, 0), "hull"))
	_, err := b.Place(geom.V(470, 0), "hull")
	require.ErrorIs(t, err, ErrCannotPlace)

	blocks, conns := counts(b)
	require.Equal(t, 1, blocks)
	require.Zero(t, conns)
	require.Equal(t, 1, w.BodyCount())

	last := sink.entries[len(sink.entries)-1]
	require.Equal(t, OpPlace, last.Op)
	require.False(t, last.OK)
	require.Contains(t, last.Reason, "outside build envelope")

	// Flush with the envelope edge is still inside.
	require.True(t, b.CanPlace(geom.V(464, 304), "hull"))
}

func TestPlace_SamePositionOverlaps(t *testing.T) {
	b, _, _ := newTestBuilder(t, nil)
	require.True(t, b.CanPlace(geom.V(64, 64), "hull"))
	mustPlace(t, b, "hull", 64, 64)
	require.False(t, b.CanPlace(geom.V(64, 64), "hull"))
	require.False(t, b.CanPlace(geom.V(80, 64), "cannon"))

	_, err := b.Place(geom.V(64, 64), "hull")
	require.ErrorIs(t, err, ErrCannotPlace)
	blocks, _ := counts(b)
	require.Equal(t, 1, blocks)
}

func TestRemoveMiddleOfLineSplitsStructure(t *testing.T) {
	b, _, _ := newTestBuilder(t, nil)
	left := mustPlace(t, b, "hull", 0, 0)
	mid := mustPlace(t, b, "hull", 32, 0)
	right := mustPlace(t, b, "hull", 64, 0)
	_, conns := counts(b)
	require.Equal(t, 2, conns)

	removed, err := b.RemoveAt(geom.V(40, 5))
	require.NoError(t, err)
	require.Equal(t, mid, removed)

	_ = b.View(func(s *ship.Ship) error {
		require.Equal(t, []ship.BlockID{left}, s.ConnectedBlocks(left))
		require.Equal(t, []ship.BlockID{right}, s.ConnectedBlocks(right))
		return nil
	})
	r := b.Validate()
	require.False(t, r.Valid)
	require.Contains(t, r.Issues, "1 block(s) disconnected from the main structure")
}

func TestPlace_UnknownTypeAndCapacity(t *testing.T) {
	b, _, _ := newTestBuilder(t, func(tun *tuning.Tuning) { tun.MaxBlocks = 1 })
	_, err := b.Place(geom.V(0, 0), "warp_core")
	require.ErrorIs(t, err, ErrUnknownType)
	require.False(t, b.CanPlace(geom.V(0, 0), "warp_core"))

	mustPlace(t, b, "hull", 0, 0)
	_, err = b.Place(geom.V(32, 0), "hull")
	require.ErrorIs(t, err, ErrShipCapacity)
}

func TestPlace_CornerContactDoesNotConnect(t *testing.T) {
	b, _, _ := newTestBuilder(t, nil)
	mustPlace(t, b, "hull", 0, 0)
	mustPlace(t, b, "hull", 32, 32)
	_, conns := counts(b)
	require.Zero(t, conns)

	// The face points stay free for a block filling the gap.
	gap := mustPlace(t, b, "hull", 32, 0)
	_ = b.View(func(s *ship.Ship) error {
		require.Len(t, mustBlock(t, s, gap).Links(), 2)
		return nil
	})
}

func TestPlace_ConnectsToEveryFlushNeighborOnce(t *testing.T) {
	b, _, _ := newTestBuilder(t, nil)
	mustPlace(t, b, "hull", -32, 0)
	mustPlace(t, b, "hull", 32, 0)
	mustPlace(t, b, "hull", 0, -32)
	center := mustPlace(t, b, "cockpit", 0, 0)

	_ = b.View(func(s *ship.Ship) error {
		blk := mustBlock(t, s, center)
		require.Len(t, blk.Links(), 3)
		peers := map[ship.BlockID]int{}
		for _, l := range blk.Links() {
			peers[l.Peer]++
		}
		require.Len(t, peers, 3)
		return nil
	})
}

func TestPlace_WideBlockUsesNearestPoints(t *testing.T) {
	b, _, _ := newTestBuilder(t, nil)
	wide := mustPlace(t, b, "heavy_hull", 16, 0)
	left := mustPlace(t, b, "hull", 0, -32)
	right := mustPlace(t, b, "hull", 32, -32)

	_ = b.View(func(s *ship.Ship) error {
		w := mustBlock(t, s, wide)
		ref, ok := w.LinkAt(0)
		require.True(t, ok)
		require.Equal(t, left, ref.Block)
		ref, ok = w.LinkAt(1)
		require.True(t, ok)
		require.Equal(t, right, ref.Block)
		return nil
	})
}

func TestPlaceRotated_UsesRotatedFootprint(t *testing.T) {
	b, _, _ := newTestBuilder(t, nil)
	id, err := b.PlaceRotated(geom.V(0, 0), "heavy_thruster", 90)
	require.NoError(t, err)

	_ = b.View(func(s *ship.Ship) error {
		bounds := mustBlock(t, s, id).Bounds()
		require.InDelta(t, 32, bounds.HalfW, 1e-9)
		require.InDelta(t, 16, bounds.HalfH, 1e-9)
		return nil
	})
	require.False(t, b.CanPlace(geom.V(40, 0), "hull"))
	require.True(t, b.CanPlace(geom.V(0, 32), "hull"))

	mustPlace(t, b, "hull", 0, 32)
	_, conns := counts(b)
	require.Equal(t, 1, conns)
}

func TestConnectDisconnectThroughBuilder(t *testing.T) {
	b, w, sink := newTestBuilder(t, nil)
	a := mustPlace(t, b, "hull", 0, 0)
	c := mustPlace(t, b, "hull", 32, 0)

	require.NoError(t, b.Disconnect(c, a))
	require.Zero(t, w.ConstraintCount())
	require.ErrorIs(t, b.Disconnect(c, a), ship.ErrNotConnected)

	require.NoError(t, b.Connect(a, c, 1, 3))
	require.ErrorIs(t, b.Connect(a, c, 1, 0), ship.ErrPointInUse)
	_, conns := counts(b)
	require.Equal(t, 1, conns)

	ops := []Op{}
	for _, e := range sink.entries {
		ops = append(ops, e.Op)
	}
	require.Equal(t, []Op{OpPlace, OpPlace, OpDisconnect, OpDisconnect, OpConnect, OpConnect}, ops)
}

func TestAutoConnect_ReconnectsAfterManualDisconnect(t *testing.T) {
	b, _, _ := newTestBuilder(t, nil)
	a := mustPlace(t, b, "hull", 0, 0)
	c := mustPlace(t, b, "hull", 32, 0)
	require.NoError(t, b.Disconnect(a, c))

	n, err := b.AutoConnect(a)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, conns := counts(b)
	require.Equal(t, 1, conns)

	_, err = b.AutoConnect(99)
	require.ErrorIs(t, err, ship.ErrUnknownBlock)
}

func TestTest_FreezesOnlyValidShips(t *testing.T) {
	b, w, _ := newTestBuilder(t, nil)
	mustPlace(t, b, "hull", 0, 0)

	r, _, err := b.Test()
	require.ErrorIs(t, err, ErrInvalidShip)
	require.False(t, r.Valid)
	_, err = b.Place(geom.V(0, 32), "thruster")
	require.NoError(t, err, "a failed test leaves the ship editable")

	r, body, err := b.Test()
	require.NoError(t, err)
	require.True(t, r.Valid)
	require.NotZero(t, body)
	require.Equal(t, 1, w.BodyCount())

	_, err = b.Place(geom.V(64, 64), "hull")
	require.ErrorIs(t, err, ship.ErrFrozen)
	require.False(t, b.CanPlace(geom.V(64, 64), "hull"))
	_, err = b.RemoveAt(geom.V(0, 0))
	require.ErrorIs(t, err, ship.ErrFrozen)
}

func TestClose_ReleasesEngineResources(t *testing.T) {
	b, w, _ := newTestBuilder(t, nil)
	mustPlace(t, b, "hull", 0, 0)
	mustPlace(t, b, "thruster", 32, 0)
	b.Close()
	require.Zero(t, w.BodyCount())
	require.Zero(t, w.ConstraintCount())
}

func mustBlock(t *testing.T, s *ship.Ship, id ship.BlockID) *ship.Block {
	t.Helper()
	blk, ok := s.Block(id)
	require.True(t, ok, "block %d", id)
	return blk
}
