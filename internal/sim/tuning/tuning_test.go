package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grid_size: 16
build_envelope:
  half_width: 200
max_blocks: 50
`), 0o644))

	tu, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 16.0, tu.GridSize)
	require.Equal(t, 200.0, tu.Envelope.HalfWidth)
	require.Equal(t, Defaults().Envelope.HalfHeight, tu.Envelope.HalfHeight)
	require.Equal(t, 50, tu.MaxBlocks)
	require.Equal(t, 16.0, tu.EffectiveConnectTolerance())
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid_size: -1\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("grid_size: [\n"), 0o644))
	_, err = Load(path)
	require.ErrorContains(t, err, "tuning.yaml")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.True(t, os.IsNotExist(err))
}
