package catalog

import (
	"fmt"
	"math"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-settle/internal/settlement"
)

// DefaultLevelMultiplier is the geometric production growth per structure
// level when a spec doesn't set its own.
const DefaultLevelMultiplier = 1.5

// StructureSpec describes a buildable structure type: what it produces,
// what it costs to build, and how it changes the settlement that owns it.
type StructureSpec struct {
	Name             string                          `json:"name"`
	MaxLevel         int                             `json:"max_level"`
	BuildTimeSeconds int                             `json:"build_time_seconds"`
	BuildCost        map[settlement.Resource]float64 `json:"build_cost,omitempty"`

	// BaseProduction is the amount produced per production phase at level 1
	// on a quality-100 tile. Types with no production are not extractors.
	BaseProduction  map[settlement.Resource]float64 `json:"base_production,omitempty"`
	LevelMultiplier float64                         `json:"level_multiplier,omitempty"`

	// Resistance (0-100) shrinks the share of disaster damage this
	// structure type absorbs.
	Resistance float64 `json:"resistance"`

	HappinessModifier int                             `json:"happiness_modifier,omitempty"`
	HousingCapacity   int                             `json:"housing_capacity,omitempty"`
	StorageCapacity   map[settlement.Resource]float64 `json:"storage_capacity,omitempty"`
}

func (s *StructureSpec) Validate() error {
	el := errors.NewErrorList()

	if s.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}
	if s.MaxLevel < 1 {
		el.Add(fmt.Errorf("max level must be at least 1"))
	}
	if s.BuildTimeSeconds < 0 {
		el.Add(fmt.Errorf("build time must not be negative"))
	}
	if s.LevelMultiplier < 0 {
		el.Add(fmt.Errorf("level multiplier must not be negative"))
	}
	if s.Resistance < 0 || s.Resistance > 100 {
		el.Add(fmt.Errorf("resistance %v out of range [0,100]", s.Resistance))
	}
	if s.HousingCapacity < 0 {
		el.Add(fmt.Errorf("housing capacity must not be negative"))
	}

	el.Add(validateResourceMap("build cost", s.BuildCost))
	el.Add(validateResourceMap("base production", s.BaseProduction))
	el.Add(validateResourceMap("storage capacity", s.StorageCapacity))

	return el.Err()
}

// IsExtractor reports whether this type converts tile quality into
// resources.
func (s *StructureSpec) IsExtractor() bool {
	return len(s.BaseProduction) > 0
}

// BuildTime returns the base construction time.
func (s *StructureSpec) BuildTime() time.Duration {
	return time.Duration(s.BuildTimeSeconds) * time.Second
}

// LevelFactor returns the production multiplier for a structure at the
// given level.
func (s *StructureSpec) LevelFactor(level int) float64 {
	mult := s.LevelMultiplier
	if mult == 0 {
		mult = DefaultLevelMultiplier
	}
	return math.Pow(mult, float64(level-1))
}

func validateResourceMap(name string, m map[settlement.Resource]float64) error {
	el := errors.NewErrorList()

	for r, v := range m {
		if !r.IsValid() {
			el.Add(fmt.Errorf("%s: unknown resource %q", name, r))
		}
		if v < 0 {
			el.Add(fmt.Errorf("%s: %s must not be negative", name, r))
		}
	}

	return el.Err()
}
