package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeQuarterTurns_AcceptsDegreesAndQuarterTurns(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{in: 0, want: 0},
		{in: 1, want: 1},
		{in: 3, want: 3},
		{in: 4, want: 0},
		{in: -1, want: 3},
		{in: 90, want: 1},
		{in: 180, want: 2},
		{in: 270, want: 3},
		{in: 360, want: 0},
		{in: -90, want: 3},
	}
	for _, c := range cases {
		require.Equal(t, c.want, NormalizeQuarterTurns(c.in), "in=%d", c.in)
	}
}

func TestVec2_RotateQuarterTurn(t *testing.T) {
	got := V(16, 0).Rotate(math.Pi / 2)
	require.True(t, got.ApproxEqual(V(0, 16), 1e-9), "got %+v", got)

	local := V(3, -2)
	origin := V(10, 5)
	w := Transform(local, origin, 0.7)
	back := InverseTransform(w, origin, 0.7)
	require.True(t, back.ApproxEqual(local, 1e-9), "round trip %+v", back)
}

func TestAABB_OverlapsIgnoresSharedEdges(t *testing.T) {
	a := Box(V(0, 0), 16, 16)
	require.False(t, a.Overlaps(Box(V(32, 0), 16, 16)))
	require.False(t, a.Overlaps(Box(V(32, 32), 16, 16)))
	require.True(t, a.Overlaps(Box(V(31, 0), 16, 16)))
	require.True(t, a.Overlaps(Box(V(0, 0), 16, 16)))
}

func TestAABB_Within(t *testing.T) {
	require.True(t, Box(V(0, 0), 16, 16).Within(100, 100))
	require.True(t, Box(V(84, 0), 16, 16).Within(100, 100))
	require.False(t, Box(V(85, 0), 16, 16).Within(100, 100))
	require.False(t, Box(V(0, -90), 16, 16).Within(100, 100))
}

func TestRotatedExtents_QuarterTurnSwaps(t *testing.T) {
	hw, hh := RotatedExtents(32, 16, math.Pi/2)
	require.InDelta(t, 16, hw, 1e-9)
	require.InDelta(t, 32, hh, 1e-9)
}

func TestSnapAxis(t *testing.T) {
	require.Equal(t, 32.0, SnapAxis(40, 32, false))
	require.Equal(t, 0.0, SnapAxis(-10, 32, false))
	require.Equal(t, 48.0, SnapAxis(40, 32, true))
	require.Equal(t, -16.0, SnapAxis(-10, 32, true))
	require.Equal(t, 7.5, SnapAxis(7.5, 0, false))
}
