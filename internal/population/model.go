package population

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/pixil98/go-settle/internal/catalog"
	"github.com/pixil98/go-settle/internal/settlement"
	"github.com/pixil98/go-settle/internal/storage"
)

// Roller is the randomness the model draws on. *rand.Rand satisfies it.
type Roller interface {
	Float64() float64
	IntN(n int) int
}

// defaultRoller defers to the shared top-level source, which is safe for
// concurrent use without locking.
type defaultRoller struct{}

func (defaultRoller) Float64() float64 { return rand.Float64() }
func (defaultRoller) IntN(n int) int   { return rand.IntN(n) }

// Result reports what one population update did to a settlement.
type Result struct {
	Happiness int
	Band      Band
	Status    settlement.PopulationStatus

	// Growth is the natural change applied, which may be negative.
	// Arrived and Departed count settlers moved by immigration and
	// emigration rolls (including overcrowding).
	Growth   int
	Arrived  int
	Departed int

	Warnings []Warning
}

// Model advances settlement populations on the population phase.
type Model struct {
	structures storage.Storer[*catalog.StructureSpec]
	tuning     Tuning
	roll       Roller
}

func NewModel(structures storage.Storer[*catalog.StructureSpec], tuning Tuning) *Model {
	return &Model{
		structures: structures,
		tuning:     tuning,
		roll:       defaultRoller{},
	}
}

// Update recomputes housing and happiness from the settlement's structures,
// applies band growth, and rolls immigration and emigration. The population
// state is mutated in place; nothing else on the settlement is touched.
// A settlement without population data is left alone.
func (m *Model) Update(ctx context.Context, s *settlement.Settlement) Result {
	p := s.Population
	if p == nil {
		return Result{}
	}

	capacity, happiness := m.survey(ctx, s)
	band := BandFor(happiness)
	rate := m.tuning.GrowthRates[band]

	res := Result{
		Happiness: happiness,
		Band:      band,
		Status:    StatusFor(band),
	}

	cur := p.Current

	// Natural growth. Small settlements still move by at least one
	// settler per phase in a growing or declining band.
	if cur > 0 && rate != 0 {
		natural := int(math.Round(float64(cur) * rate))
		if natural == 0 {
			if rate > 0 {
				natural = 1
			} else {
				natural = -1
			}
		}
		if natural > 0 && cur+natural > capacity {
			natural = capacity - cur
			if natural < 0 {
				natural = 0
			}
		}
		if cur+natural < 0 {
			natural = -cur
		}
		res.Growth = natural
		cur += natural
	}

	// Immigration needs high happiness and free housing.
	if happiness >= m.tuning.ImmigrationThreshold && cur < capacity {
		if m.roll.Float64() < m.tuning.ImmigrationChance {
			arrivals := 1 + m.roll.IntN(m.tuning.MaxArrivals)
			if cur+arrivals > capacity {
				arrivals = capacity - cur
			}
			res.Arrived = arrivals
			cur += arrivals
		}
	}

	// Emigration rolls on low happiness.
	if happiness <= m.tuning.EmigrationThreshold && cur > 0 {
		if m.roll.Float64() < m.tuning.EmigrationChance {
			departures := 1 + m.roll.IntN(m.tuning.MaxDepartures)
			if departures > cur {
				departures = cur
			}
			res.Departed += departures
			cur -= departures
		}
	}

	// Overcrowding beyond capacity forces the excess out.
	if cur > capacity {
		res.Departed += cur - capacity
		cur = capacity
	}

	p.Current = cur
	p.Capacity = capacity
	p.Happiness = happiness
	p.GrowthRate = rate
	p.Status = res.Status

	if happiness < m.tuning.LowHappinessWarning {
		res.Warnings = append(res.Warnings, WarnLowHappiness)
	}
	if happiness <= m.tuning.EmigrationThreshold {
		res.Warnings = append(res.Warnings, WarnEmigrationRisk)
	}
	if cur >= capacity {
		res.Warnings = append(res.Warnings, WarnNoHousing)
	}

	return res
}

// survey tallies housing capacity and happiness from the settlement's
// standing structures. Unknown structure types contribute nothing.
func (m *Model) survey(ctx context.Context, s *settlement.Settlement) (capacity, happiness int) {
	happiness = m.tuning.BaseHappiness

	for _, st := range s.Structures {
		if st.Health <= 0 {
			continue
		}

		spec := m.structures.Get(storage.Identifier(st.Type))
		if spec == nil {
			slog.WarnContext(ctx, "unknown structure type, skipping", "settlement", s.Id, "type", st.Type)
			continue
		}

		capacity += spec.HousingCapacity
		happiness += spec.HappinessModifier
	}

	if happiness < 0 {
		happiness = 0
	}
	if happiness > 100 {
		happiness = 100
	}

	return capacity, happiness
}
