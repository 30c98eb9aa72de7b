package catalogs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"hullcraft.io/internal/sim/geom"
)

func TestCatalog_RegisterOverwritesAndGet(t *testing.T) {
	c := New()
	c.Register("plate", BlockDef{Category: CategoryStructural, Shape: ShapeRectangle, Width: 32, Height: 32, Mass: 1, MaxHealth: 1})
	c.Register("plate", BlockDef{Category: CategoryStructural, Shape: ShapeRectangle, Width: 16, Height: 16, Mass: 1, MaxHealth: 1})

	d, ok := c.Get("plate")
	require.True(t, ok)
	require.Equal(t, 16.0, d.Width)
	require.Equal(t, 1, c.Len())

	_, ok = c.Get("missing")
	require.False(t, ok)
}

func TestCatalog_ByCategorySorted(t *testing.T) {
	c := Builtin()
	got := c.ByCategory(CategoryStructural)
	ids := make([]string, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.ID)
		require.Equal(t, CategoryStructural, e.Def.Category)
	}
	require.Equal(t, []string{"heavy_hull", "hull", "wedge"}, ids)
	require.Len(t, c.ByCategory(CategoryPropulsion), 2)
	require.Empty(t, New().ByCategory(CategoryArmament))
}

func TestCatalog_DefaultProperties(t *testing.T) {
	c := Builtin()
	require.Equal(t, Properties{Thrust: 150, FuelDraw: 1}, c.DefaultProperties("thruster"))
	// cockpit has no per-id entry; falls back to the utility row.
	require.Equal(t, Properties{Capacity: 50}, c.DefaultProperties("cockpit"))
	require.Equal(t, Properties{}, c.DefaultProperties("nope"))
}

func TestBuiltin_AllDefinitionsValid(t *testing.T) {
	c := Builtin()
	for _, id := range c.IDs() {
		d, _ := c.Get(id)
		require.NoError(t, d.Validate(), id)
		require.NotEmpty(t, d.AttachPoints, id)
	}
}

func TestBlockDef_Validate(t *testing.T) {
	cases := []struct {
		name string
		def  BlockDef
		ok   bool
	}{
		{"rect", BlockDef{Category: CategoryUtility, Shape: ShapeRectangle, Width: 1, Height: 1, Mass: 1, MaxHealth: 1}, true},
		{"rect missing height", BlockDef{Category: CategoryUtility, Shape: ShapeRectangle, Width: 1, Mass: 1, MaxHealth: 1}, false},
		{"circle", BlockDef{Category: CategoryUtility, Shape: ShapeCircle, Radius: 4, Mass: 1, MaxHealth: 1}, true},
		{"circle missing radius", BlockDef{Category: CategoryUtility, Shape: ShapeCircle, Width: 8, Height: 8, Mass: 1, MaxHealth: 1}, false},
		{"polygon two vertices", BlockDef{Category: CategoryUtility, Shape: ShapePolygon, Vertices: []geom.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}}, Mass: 1, MaxHealth: 1}, false},
		{"polygon", BlockDef{Category: CategoryUtility, Shape: ShapePolygon, Vertices: []geom.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}, Mass: 1, MaxHealth: 1}, true},
		{"bad category", BlockDef{Category: "decor", Shape: ShapeRectangle, Width: 1, Height: 1, Mass: 1, MaxHealth: 1}, false},
		{"zero mass", BlockDef{Category: CategoryUtility, Shape: ShapeRectangle, Width: 1, Height: 1, MaxHealth: 1}, false},
	}
	for _, tc := range cases {
		err := tc.def.Validate()
		if tc.ok {
			require.NoError(t, err, tc.name)
			continue
		}
		require.Error(t, err, tc.name)
		require.True(t, errors.Is(err, ErrMalformedDefinition), tc.name)
	}
}

func TestBlockDef_HalfExtents(t *testing.T) {
	hw, hh := BlockDef{Shape: ShapeCircle, Radius: 10}.HalfExtents()
	require.Equal(t, 10.0, hw)
	require.Equal(t, 10.0, hh)

	hw, hh = BlockDef{Shape: ShapePolygon, Vertices: []geom.Vec2{{X: -3, Y: 0}, {X: 5, Y: 2}, {X: 0, Y: -4}}}.HalfExtents()
	require.Equal(t, 5.0, hw)
	require.Equal(t, 4.0, hh)
}

func TestParse_ValidatesSchema(t *testing.T) {
	_, err := Parse([]byte(`[{"id":"x","category":"structural","shape":"rectangle","mass":1,"max_health":1,"attach_points":[]}]`))
	require.ErrorContains(t, err, "schema")

	_, err = Parse([]byte(`[{"id":"x","category":"decor","shape":"rectangle","width":1,"height":1,"mass":1,"max_health":1,"attach_points":[]}]`))
	require.ErrorContains(t, err, "schema")

	_, err = Parse([]byte(`[
	  {"id":"x","category":"utility","shape":"circle","radius":1,"mass":1,"max_health":1,"attach_points":[]},
	  {"id":"x","category":"utility","shape":"circle","radius":1,"mass":1,"max_health":1,"attach_points":[]}
	]`))
	require.ErrorContains(t, err, "duplicate")
}

func TestLoadFile_ShippedCatalog(t *testing.T) {
	c, err := LoadFile(filepath.Join("..", "..", "..", "configs", "blocks.json"))
	require.NoError(t, err)
	require.Equal(t, Builtin().IDs(), c.IDs())
	require.NotEmpty(t, c.Digest())
	require.Equal(t, Builtin().DefaultProperties("cannon"), c.DefaultProperties("cannon"))
	for _, id := range c.IDs() {
		got, _ := c.Get(id)
		want, _ := Builtin().Get(id)
		require.Equal(t, want, got, id)
	}
}

func TestDigest_TracksDefinitionsAndDefaults(t *testing.T) {
	c := Builtin()
	first := c.Digest()
	require.Len(t, first, 64)
	require.Equal(t, first, c.Digest())
	require.Equal(t, first, Builtin().Digest())

	c.SetDefaultProperties("hull", Properties{Armor: 11})
	bumped := c.Digest()
	require.NotEqual(t, first, bumped)

	wedge, _ := c.Get("wedge")
	wedge.Vertices = []geom.Vec2{{X: -16, Y: 16}, {X: 16, Y: 16}, {X: 16, Y: -16}}
	c.Register("wedge", wedge)
	require.NotEqual(t, bumped, c.Digest())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "blocks.json"))
	require.True(t, os.IsNotExist(err))
}
