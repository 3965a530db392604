package population

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-settle/internal/settlement"
)

// Band is a happiness bracket. Bands drive the growth rate and the
// reported population status.
type Band string

const (
	BandVeryHappy   Band = "very_happy"
	BandHappy       Band = "happy"
	BandContent     Band = "content"
	BandUnhappy     Band = "unhappy"
	BandVeryUnhappy Band = "very_unhappy"
)

// BandFor returns the happiness band for a 0-100 score.
func BandFor(happiness int) Band {
	switch {
	case happiness >= 80:
		return BandVeryHappy
	case happiness >= 60:
		return BandHappy
	case happiness >= 40:
		return BandContent
	case happiness >= 20:
		return BandUnhappy
	default:
		return BandVeryUnhappy
	}
}

// StatusFor maps a band to the population trend.
func StatusFor(b Band) settlement.PopulationStatus {
	switch b {
	case BandVeryHappy, BandHappy:
		return settlement.StatusGrowing
	case BandContent:
		return settlement.StatusStable
	default:
		return settlement.StatusDeclining
	}
}

// Warning names a population risk condition raised during an update.
type Warning string

const (
	WarnLowHappiness   Warning = "low_happiness"
	WarnEmigrationRisk Warning = "emigration_risk"
	WarnNoHousing      Warning = "no_housing"
)

// Tuning holds the knobs of the population model. Zero values are not
// usable; start from DefaultTuning.
type Tuning struct {
	// BaseHappiness is the happiness of a settlement with no modifier
	// structures.
	BaseHappiness int

	// GrowthRates is the per-phase natural growth fraction per band.
	GrowthRates map[Band]float64

	// Immigration rolls happen at or above the threshold, emigration
	// rolls at or below theirs.
	ImmigrationThreshold int
	ImmigrationChance    float64
	MaxArrivals          int
	EmigrationThreshold  int
	EmigrationChance     float64
	MaxDepartures        int

	// LowHappinessWarning is the happiness below which the low_happiness
	// warning fires.
	LowHappinessWarning int
}

func DefaultTuning() Tuning {
	return Tuning{
		BaseHappiness: 50,
		GrowthRates: map[Band]float64{
			BandVeryHappy:   0.05,
			BandHappy:       0.02,
			BandContent:     0,
			BandUnhappy:     -0.02,
			BandVeryUnhappy: -0.05,
		},
		ImmigrationThreshold: 75,
		ImmigrationChance:    0.25,
		MaxArrivals:          3,
		EmigrationThreshold:  25,
		EmigrationChance:     0.25,
		MaxDepartures:        2,
		LowHappinessWarning:  30,
	}
}

func (t Tuning) Validate() error {
	el := errors.NewErrorList()

	if t.BaseHappiness < 0 || t.BaseHappiness > 100 {
		el.Add(fmt.Errorf("base happiness %d out of range [0,100]", t.BaseHappiness))
	}

	for _, b := range []Band{BandVeryHappy, BandHappy, BandContent, BandUnhappy, BandVeryUnhappy} {
		if _, ok := t.GrowthRates[b]; !ok {
			el.Add(fmt.Errorf("growth rate for band %s must be set", b))
		}
	}

	if t.ImmigrationThreshold < 0 || t.ImmigrationThreshold > 100 {
		el.Add(fmt.Errorf("immigration threshold %d out of range [0,100]", t.ImmigrationThreshold))
	}
	if t.ImmigrationChance < 0 || t.ImmigrationChance > 1 {
		el.Add(fmt.Errorf("immigration chance %v out of range [0,1]", t.ImmigrationChance))
	}
	if t.MaxArrivals < 1 {
		el.Add(fmt.Errorf("max arrivals must be at least 1"))
	}
	if t.EmigrationThreshold < 0 || t.EmigrationThreshold > 100 {
		el.Add(fmt.Errorf("emigration threshold %d out of range [0,100]", t.EmigrationThreshold))
	}
	if t.EmigrationChance < 0 || t.EmigrationChance > 1 {
		el.Add(fmt.Errorf("emigration chance %v out of range [0,1]", t.EmigrationChance))
	}
	if t.MaxDepartures < 1 {
		el.Add(fmt.Errorf("max departures must be at least 1"))
	}
	if t.LowHappinessWarning < 0 || t.LowHappinessWarning > 100 {
		el.Add(fmt.Errorf("low happiness warning %d out of range [0,100]", t.LowHappinessWarning))
	}

	return el.Err()
}
