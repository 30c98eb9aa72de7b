package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"hullcraft.io/internal/sim/geom"
)

// Category is the closed set of block roles.
type Category string

const (
	CategoryStructural Category = "structural"
	CategoryPropulsion Category = "propulsion"
	CategoryArmament   Category = "armament"
	CategoryUtility    Category = "utility"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryStructural, CategoryPropulsion, CategoryArmament, CategoryUtility:
		return true
	}
	return false
}

type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapePolygon   ShapeKind = "polygon"
)

var ErrMalformedDefinition = errors.New("malformed block definition")

// BlockDef is an immutable block type. Attachment points are in block-local
// space, origin at the block center.
type BlockDef struct {
	Name      string      `json:"name,omitempty"`
	Category  Category    `json:"category"`
	Shape     ShapeKind   `json:"shape"`
	Width     float64     `json:"width,omitempty"`
	Height    float64     `json:"height,omitempty"`
	Radius    float64     `json:"radius,omitempty"`
	Vertices  []geom.Vec2 `json:"vertices,omitempty"`
	Mass      float64     `json:"mass"`
	MaxHealth float64     `json:"max_health"`
	Color     string      `json:"color,omitempty"`

	AttachPoints []geom.Vec2 `json:"attach_points"`
}

// Validate checks that the shape fields match the shape kind.
func (d BlockDef) Validate() error {
	if !d.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrMalformedDefinition, d.Category)
	}
	switch d.Shape {
	case ShapeRectangle:
		if d.Width <= 0 || d.Height <= 0 {
			return fmt.Errorf("%w: rectangle needs width and height", ErrMalformedDefinition)
		}
	case ShapeCircle:
		if d.Radius <= 0 {
			return fmt.Errorf("%w: circle needs radius", ErrMalformedDefinition)
		}
	case ShapePolygon:
		if len(d.Vertices) < 3 {
			return fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrMalformedDefinition, len(d.Vertices))
		}
	default:
		return fmt.Errorf("%w: unknown shape %q", ErrMalformedDefinition, d.Shape)
	}
	if d.Mass <= 0 {
		return fmt.Errorf("%w: mass must be > 0", ErrMalformedDefinition)
	}
	if d.MaxHealth <= 0 {
		return fmt.Errorf("%w: max_health must be > 0", ErrMalformedDefinition)
	}
	return nil
}

// HalfExtents returns the axis-aligned footprint used for bounds and overlap
// tests, whatever the visual shape is.
func (d BlockDef) HalfExtents() (float64, float64) {
	hw, hh := d.Width/2, d.Height/2
	if d.Shape == ShapeCircle {
		if hw <= 0 {
			hw = d.Radius
		}
		if hh <= 0 {
			hh = d.Radius
		}
	}
	if d.Shape == ShapePolygon && (hw <= 0 || hh <= 0) {
		var mx, my float64
		for _, v := range d.Vertices {
			mx = max(mx, abs(v.X))
			my = max(my, abs(v.Y))
		}
		if hw <= 0 {
			hw = mx
		}
		if hh <= 0 {
			hh = my
		}
	}
	return hw, hh
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Properties is the per-block property bag. Only the fields relevant to a
// block's category are meaningful.
type Properties struct {
	Thrust   float64 `json:"thrust,omitempty"`
	FuelDraw float64 `json:"fuel_draw,omitempty"`
	Damage   float64 `json:"damage,omitempty"`
	FireRate float64 `json:"fire_rate,omitempty"`
	Range    float64 `json:"range,omitempty"`
	Armor    float64 `json:"armor,omitempty"`
	Capacity float64 `json:"capacity,omitempty"`
}

type Entry struct {
	ID  string
	Def BlockDef
}

// Catalog maps block type ids to definitions. Register everything at startup
// before sharing the catalog between goroutines.
type Catalog struct {
	defs     map[string]BlockDef
	defaults map[string]Properties
	digest   string
}

func New() *Catalog {
	return &Catalog{
		defs:     map[string]BlockDef{},
		defaults: map[string]Properties{},
	}
}

// Register stores or overwrites a definition.
func (c *Catalog) Register(id string, def BlockDef) {
	c.defs[id] = def
	c.digest = ""
}

// SetDefaultProperties overrides the category default for one block type.
func (c *Catalog) SetDefaultProperties(id string, p Properties) {
	c.defaults[id] = p
	c.digest = ""
}

func (c *Catalog) Get(id string) (BlockDef, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// ByCategory lists the definitions in cat, sorted by id.
func (c *Catalog) ByCategory(cat Category) []Entry {
	var out []Entry
	for id, d := range c.defs {
		if d.Category == cat {
			out = append(out, Entry{ID: id, Def: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Catalog) Len() int { return len(c.defs) }

// DefaultProperties returns the per-id table entry, falling back to the
// per-category table. Unknown ids yield the zero bag.
func (c *Catalog) DefaultProperties(id string) Properties {
	if p, ok := c.defaults[id]; ok {
		return p
	}
	d, ok := c.defs[id]
	if !ok {
		return Properties{}
	}
	return categoryDefaults[d.Category]
}

// Digest identifies the catalog contents for clients that cache it.
func (c *Catalog) Digest() string {
	if c.digest != "" {
		return c.digest
	}
	h := sha256.New()
	for _, id := range c.IDs() {
		d := c.defs[id]
		fmt.Fprintf(h, "%s|%s|%s|%g|%g|%g|%g|%g|%d|%d\n", id, d.Category, d.Shape,
			d.Width, d.Height, d.Radius, d.Mass, d.MaxHealth, len(d.Vertices), len(d.AttachPoints))
		for _, v := range d.Vertices {
			fmt.Fprintf(h, "v%g,%g;", v.X, v.Y)
		}
		for _, p := range d.AttachPoints {
			fmt.Fprintf(h, "%g,%g;", p.X, p.Y)
		}
		fmt.Fprintf(h, "\n%+v\n", c.DefaultProperties(id))
	}
	c.digest = hex.EncodeToString(h.Sum(nil))
	return c.digest
}

var categoryDefaults = map[Category]Properties{
	CategoryStructural: {Armor: 5},
	CategoryPropulsion: {Thrust: 100, FuelDraw: 1},
	CategoryArmament:   {Damage: 10, FireRate: 1, Range: 300},
	CategoryUtility:    {Capacity: 50},
}
