package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"hullcraft.io/internal/persistence/snapshot"
)

func writeSave(t *testing.T, path string, savedAt int64, digest string) {
	t.Helper()
	snap := snapshot.ShipV1{
		Header: snapshot.Header{Version: snapshot.Version, ShipID: "s1", Name: "Kestrel", SavedAt: savedAt, Digest: digest},
		Blocks: []snapshot.BlockV1{}, Connections: []snapshot.ConnectionV1{},
	}
	require.NoError(t, snapshot.Write(path, snap))
}

func TestKeepRevision_MissingSaveIsNoop(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := KeepRevision(dir, filepath.Join(dir, "s1.ship.zst"), 3)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeepRevision_CopiesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s1.ship.zst")

	for i := int64(1); i <= 4; i++ {
		writeSave(t, path, i*1000, "d")
		dst, ok, err := KeepRevision(dir, path, 2)
		require.NoError(t, err)
		require.True(t, ok)
		require.FileExists(t, dst)
		require.FileExists(t, dst+".json")
	}

	revs, err := Revisions(dir, "s1")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(Dir(dir, "s1"), "0000000003000.ship.zst"),
		filepath.Join(Dir(dir, "s1"), "0000000004000.ship.zst"),
	}, revs)
	_, err = os.Stat(filepath.Join(Dir(dir, "s1"), "0000000001000.ship.zst.json"))
	require.True(t, os.IsNotExist(err))

	hdr, err := snapshot.ReadHeader(revs[1])
	require.NoError(t, err)
	require.Equal(t, int64(4000), hdr.SavedAt)
}
