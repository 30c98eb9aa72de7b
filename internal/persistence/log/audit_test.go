package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hullcraft.io/internal/sim/build"
	"hullcraft.io/internal/sim/geom"
)

func TestAuditLogger_RoundTrip(t *testing.T) {
	l := NewAuditLogger(t.TempDir())
	at := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	l.now = func() time.Time { return at }

	in := []build.AuditEntry{
		{Time: at, Ship: "s1", Op: build.OpPlace, TypeID: "hull", Pos: geom.V(32, 0), Block: 2, Connections: 1, OK: true},
		{Time: at, Ship: "s1", Op: build.OpPlace, TypeID: "hull", Pos: geom.V(32, 0), Reason: "cannot place block: overlaps block 2"},
	}
	for _, e := range in {
		require.NoError(t, l.WriteAudit(e))
	}
	require.NoError(t, l.Close())

	files, err := l.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Contains(t, files[0], "audit-2026-03-01-10.jsonl.zst")

	got, err := ReadAuditFile(files[0])
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestAuditLogger_RotatesHourlyAndAppends(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)

	l := NewAuditLogger(dir)
	l.now = func() time.Time { return at }
	require.NoError(t, l.WriteAudit(build.AuditEntry{Ship: "s1", Op: build.OpPlace, OK: true}))
	at = at.Add(2 * time.Minute)
	require.NoError(t, l.WriteAudit(build.AuditEntry{Ship: "s1", Op: build.OpTest, OK: true}))
	require.NoError(t, l.Close())

	// A second logger appends a new frame to the same hour file.
	l2 := NewAuditLogger(dir)
	l2.now = func() time.Time { return at }
	require.NoError(t, l2.WriteAudit(build.AuditEntry{Ship: "s2", Op: build.OpRemove}))
	require.NoError(t, l2.Close())

	files, err := l2.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)

	first, err := ReadAuditFile(files[0])
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := ReadAuditFile(files[1])
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, build.OpTest, second[0].Op)
	require.Equal(t, "s2", second[1].Ship)
}
