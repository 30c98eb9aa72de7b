package catalogs

import "hullcraft.io/internal/sim/geom"

// squarePoints are the edge midpoints of a size x size square.
func squarePoints(size float64) []geom.Vec2 {
	h := size / 2
	return []geom.Vec2{{X: 0, Y: -h}, {X: h, Y: 0}, {X: 0, Y: h}, {X: -h, Y: 0}}
}

// Builtin returns the stock block set. Sizes assume a 32 unit grid.
func Builtin() *Catalog {
	c := New()

	c.Register("hull", BlockDef{
		Name: "Hull Plate", Category: CategoryStructural, Shape: ShapeRectangle,
		Width: 32, Height: 32, Mass: 10, MaxHealth: 100, Color: "#8a8f98",
		AttachPoints: squarePoints(32),
	})
	c.Register("heavy_hull", BlockDef{
		Name: "Heavy Hull", Category: CategoryStructural, Shape: ShapeRectangle,
		Width: 64, Height: 32, Mass: 30, MaxHealth: 300, Color: "#5d626b",
		AttachPoints: []geom.Vec2{
			{X: -16, Y: -16}, {X: 16, Y: -16},
			{X: 32, Y: 0},
			{X: 16, Y: 16}, {X: -16, Y: 16},
			{X: -32, Y: 0},
		},
	})
	c.Register("wedge", BlockDef{
		Name: "Wedge", Category: CategoryStructural, Shape: ShapePolygon,
		Width: 32, Height: 32, Mass: 6, MaxHealth: 60, Color: "#a3a8b0",
		Vertices:     []geom.Vec2{{X: -16, Y: 16}, {X: 16, Y: 16}, {X: -16, Y: -16}},
		AttachPoints: []geom.Vec2{{X: 0, Y: 16}, {X: -16, Y: 0}},
	})
	c.Register("thruster", BlockDef{
		Name: "Thruster", Category: CategoryPropulsion, Shape: ShapeRectangle,
		Width: 32, Height: 32, Mass: 8, MaxHealth: 60, Color: "#e07b39",
		AttachPoints: squarePoints(32),
	})
	c.Register("heavy_thruster", BlockDef{
		Name: "Heavy Thruster", Category: CategoryPropulsion, Shape: ShapeRectangle,
		Width: 32, Height: 64, Mass: 20, MaxHealth: 120, Color: "#c4562a",
		AttachPoints: []geom.Vec2{
			{X: 0, Y: -32},
			{X: 16, Y: -16}, {X: 16, Y: 16},
			{X: -16, Y: 16}, {X: -16, Y: -16},
		},
	})
	c.Register("cannon", BlockDef{
		Name: "Cannon", Category: CategoryArmament, Shape: ShapeRectangle,
		Width: 32, Height: 32, Mass: 12, MaxHealth: 80, Color: "#b03a2e",
		AttachPoints: squarePoints(32),
	})
	c.Register("laser", BlockDef{
		Name: "Laser Turret", Category: CategoryArmament, Shape: ShapeCircle,
		Width: 32, Height: 32, Radius: 16, Mass: 9, MaxHealth: 50, Color: "#d64f8a",
		AttachPoints: squarePoints(32),
	})
	c.Register("cockpit", BlockDef{
		Name: "Cockpit", Category: CategoryUtility, Shape: ShapeCircle,
		Width: 32, Height: 32, Radius: 16, Mass: 5, MaxHealth: 70, Color: "#3a7bd5",
		AttachPoints: squarePoints(32),
	})
	c.Register("fuel_tank", BlockDef{
		Name: "Fuel Tank", Category: CategoryUtility, Shape: ShapeRectangle,
		Width: 32, Height: 32, Mass: 7, MaxHealth: 40, Color: "#3fa34d",
		AttachPoints: squarePoints(32),
	})

	c.SetDefaultProperties("hull", Properties{Armor: 10})
	c.SetDefaultProperties("heavy_hull", Properties{Armor: 25})
	c.SetDefaultProperties("wedge", Properties{Armor: 6})
	c.SetDefaultProperties("thruster", Properties{Thrust: 150, FuelDraw: 1})
	c.SetDefaultProperties("heavy_thruster", Properties{Thrust: 400, FuelDraw: 3})
	c.SetDefaultProperties("cannon", Properties{Damage: 20, FireRate: 1, Range: 400})
	c.SetDefaultProperties("laser", Properties{Damage: 8, FireRate: 4, Range: 600})
	c.SetDefaultProperties("fuel_tank", Properties{Capacity: 100})

	return c
}
