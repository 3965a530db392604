package disaster

import "github.com/pixil98/go-settle/internal/settlement"

// BaseDamage returns the damage pool for one impact interval before
// variance. Resilience dampens linearly; a fully resilient settlement
// takes half damage.
func BaseDamage(severity, resilience int, scale float64) float64 {
	return float64(severity) * scale * (1 - float64(resilience)/200)
}

// Variance maps a uniform roll in [0,1) to a damage factor in [0.8, 1.2).
func Variance(roll float64) float64 {
	return 0.8 + roll*0.4
}

// StructureDamage records one structure's share of a damage interval. The
// instance is a snapshot taken after the hit landed.
type StructureDamage struct {
	Structure settlement.StructureInstance
	Amount    float64
	Destroyed bool
}

// DamageReport is the outcome of one damage interval.
type DamageReport struct {
	Total      float64
	Structures []StructureDamage
}
