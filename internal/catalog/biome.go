package catalog

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-settle/internal/settlement"
)

// BiomeSpec describes how a biome shapes the settlements placed on it.
type BiomeSpec struct {
	Name string `json:"name"`

	// Efficiency scales production per resource. Resources absent from the
	// map are neutral (1.0).
	Efficiency map[settlement.Resource]float64 `json:"efficiency,omitempty"`

	// Vulnerability weights disaster rolls per disaster type. Types absent
	// from the map are neutral (1.0); an explicit 0 makes the type
	// impossible in this biome.
	Vulnerability map[string]float64 `json:"vulnerability,omitempty"`
}

func (b *BiomeSpec) Validate() error {
	el := errors.NewErrorList()

	if b.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}

	el.Add(validateResourceMap("efficiency", b.Efficiency))

	for typ, w := range b.Vulnerability {
		if typ == "" {
			el.Add(fmt.Errorf("vulnerability: disaster type must be set"))
		}
		if w < 0 {
			el.Add(fmt.Errorf("vulnerability: %s must not be negative", typ))
		}
	}

	return el.Err()
}

// EfficiencyFor returns the production factor for a resource, defaulting
// to neutral when the biome doesn't mention it.
func (b *BiomeSpec) EfficiencyFor(r settlement.Resource) float64 {
	if eff, ok := b.Efficiency[r]; ok {
		return eff
	}
	return 1.0
}

// VulnerabilityFor returns the roll weight factor for a disaster type,
// defaulting to neutral when the biome doesn't mention it.
func (b *BiomeSpec) VulnerabilityFor(disasterType string) float64 {
	if w, ok := b.Vulnerability[disasterType]; ok {
		return w
	}
	return 1.0
}
