package ship

import (
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/geom"
)

// Stats is the aggregate snapshot of a ship. It is cached until the next
// structural mutation.
type Stats struct {
	Mass          float64   `json:"mass"`
	CenterOfMass  geom.Vec2 `json:"center_of_mass"`
	TotalThrust   float64   `json:"total_thrust"`
	TotalArmor    float64   `json:"total_armor"`
	ArmamentCount int       `json:"armament_count"`
	BlockCount    int       `json:"block_count"`

	TotalHealth  float64 `json:"total_health"`
	MaxHealth    float64 `json:"max_health"`
	FuelDraw     float64 `json:"fuel_draw"`
	Capacity     float64 `json:"capacity"`
	Firepower    float64 `json:"firepower"`
	ThrustToMass float64 `json:"thrust_to_mass"`
}

// CalculateStats returns the cached snapshot or recomputes it in one pass
// over the blocks in id order, so repeated recomputation is bit-identical.
func (s *Ship) CalculateStats() Stats {
	if s.stats != nil {
		return *s.stats
	}
	var st Stats
	var weighted geom.Vec2
	for _, b := range s.Blocks() {
		m := b.def.Mass
		st.Mass += m
		weighted = weighted.Add(b.pos.Scale(m))
		st.BlockCount++
		st.TotalHealth += b.health
		st.MaxHealth += b.maxHealth

		switch b.def.Category {
		case catalogs.CategoryPropulsion:
			st.TotalThrust += b.Props.Thrust
			st.FuelDraw += b.Props.FuelDraw
		case catalogs.CategoryStructural:
			st.TotalArmor += b.Props.Armor
		case catalogs.CategoryArmament:
			st.ArmamentCount++
			st.Firepower += b.Props.Damage * b.Props.FireRate
		case catalogs.CategoryUtility:
			st.Capacity += b.Props.Capacity
		}
	}
	if st.Mass > 0 {
		st.CenterOfMass = weighted.Scale(1 / st.Mass)
		st.ThrustToMass = st.TotalThrust / st.Mass
	}
	s.stats = &st
	return st
}
