package economy

import (
	"github.com/pixil98/go-settle/internal/settlement"
)

// ConsumptionRates is the per-capita draw per production phase.
type ConsumptionRates map[settlement.Resource]float64

// DefaultRates covers the survival resources; everything else is drawn
// only when configured.
func DefaultRates() ConsumptionRates {
	return ConsumptionRates{
		settlement.ResourceFood:  0.1,
		settlement.ResourceWater: 0.05,
	}
}

// ConsumptionCalculator turns a settlement's population into a negative
// resource delta.
type ConsumptionCalculator struct {
	rates ConsumptionRates
}

func NewConsumptionCalculator(rates ConsumptionRates) *ConsumptionCalculator {
	return &ConsumptionCalculator{rates: rates}
}

// Calculate returns what s's population draws this phase, as negative
// amounts. A settlement with no population data draws nothing; production
// is never blocked on a missing consumption figure.
func (c *ConsumptionCalculator) Calculate(s *settlement.Settlement) settlement.ResourceDelta {
	delta := settlement.ResourceDelta{}

	if s.Population == nil || s.Population.Current <= 0 {
		return delta
	}

	pop := float64(s.Population.Current)
	for r, rate := range c.rates {
		if rate == 0 {
			continue
		}
		delta[r] = -rate * pop
	}

	return delta
}
