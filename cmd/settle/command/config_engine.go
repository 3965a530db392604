package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-settle/internal/construction"
	"github.com/pixil98/go-settle/internal/disaster"
	"github.com/pixil98/go-settle/internal/economy"
	"github.com/pixil98/go-settle/internal/engine"
	"github.com/pixil98/go-settle/internal/events"
	"github.com/pixil98/go-settle/internal/population"
	"github.com/pixil98/go-settle/internal/schedule"
	"github.com/pixil98/go-settle/internal/settlement"
)

// EngineConfig tunes the tick orchestrator. Every field is optional; zero
// values keep the package defaults.
type EngineConfig struct {
	TickLength      string                     `json:"tick_length"`
	Workers         int                        `json:"workers"`
	Phases          []PhaseConfig              `json:"phases"`
	Consumption     map[string]float64         `json:"consumption"`
	QueueSlots      int                        `json:"queue_slots"`
	BuildTimeFactor float64                    `json:"build_time_factor"`
	Repair          *construction.RepairTuning `json:"repair,omitempty"`
	Disaster        *disaster.Tuning           `json:"disaster,omitempty"`
	Population      *PopulationConfig          `json:"population,omitempty"`
}

type PhaseConfig struct {
	Name   string `json:"name"`
	Period int    `json:"period"`
	Offset int    `json:"offset"`
}

func (c *EngineConfig) Validate() error {
	el := errors.NewErrorList()

	if c.TickLength != "" {
		d, err := time.ParseDuration(c.TickLength)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_length: %w", err))
		} else if d <= 0 || d > time.Second {
			// Phase offsets resolve at one-second granularity; a slower
			// tick can step over a due second entirely.
			el.Add(fmt.Errorf("tick_length must be within (0s,1s]"))
		}
	}
	if c.Workers < 0 {
		el.Add(fmt.Errorf("workers must not be negative"))
	}
	if _, err := schedule.NewScheduler(c.buildPhases()); err != nil {
		el.Add(fmt.Errorf("phases: %w", err))
	}
	for r, rate := range c.Consumption {
		if !validResource(r) {
			el.Add(fmt.Errorf("consumption: unknown resource %q", r))
		}
		if rate < 0 {
			el.Add(fmt.Errorf("consumption: rate for %s must not be negative", r))
		}
	}
	if c.QueueSlots < 0 {
		el.Add(fmt.Errorf("queue_slots must not be negative"))
	}
	if c.BuildTimeFactor < 0 {
		el.Add(fmt.Errorf("build_time_factor must not be negative"))
	}
	if c.Repair != nil {
		el.Add(c.Repair.Validate())
	}
	if c.Disaster != nil {
		el.Add(c.Disaster.Validate())
	}
	if c.Population != nil {
		el.Add(c.Population.Validate())
	}

	return el.Err()
}

// BuildEngine assembles the orchestrator and its phase processors from the
// loaded catalogs.
func (c *EngineConfig) BuildEngine(repo settlement.Repository, publisher events.Publisher, catalogs *Catalogs) (*engine.Engine, error) {
	scheduler, err := schedule.NewScheduler(c.buildPhases())
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	slots := c.QueueSlots
	if slots == 0 {
		slots = 1
	}
	factor := c.BuildTimeFactor
	if factor == 0 {
		factor = 1
	}
	repairTuning := construction.DefaultRepairTuning()
	if c.Repair != nil {
		repairTuning = *c.Repair
	}
	disasterTuning := disaster.DefaultTuning()
	if c.Disaster != nil {
		disasterTuning = *c.Disaster
	}
	popTuning := population.DefaultTuning()
	if c.Population != nil {
		popTuning = c.Population.buildTuning()
	}

	handlers := engine.Handlers{
		Production:   economy.NewProductionCalculator(catalogs.Structures, catalogs.Tiles, catalogs.Biomes),
		Consumption:  economy.NewConsumptionCalculator(c.buildConsumption()),
		Population:   population.NewModel(catalogs.Structures, popTuning),
		Construction: construction.NewQueue(catalogs.Structures, catalogs.Tiles, slots, factor),
		Repair:       construction.NewRepairer(catalogs.Structures, repairTuning),
		Disaster:     disaster.NewDirector(catalogs.Disasters, catalogs.Biomes, catalogs.Tiles, catalogs.Structures, disasterTuning),
	}

	var opts []engine.EngineOpt
	if c.Workers > 0 {
		opts = append(opts, engine.WithWorkers(c.Workers))
	}

	return engine.NewEngine(repo, scheduler, publisher, handlers, opts...), nil
}

func (c *EngineConfig) buildPhases() []schedule.Phase {
	if len(c.Phases) == 0 {
		return engine.DefaultPhases()
	}

	phases := make([]schedule.Phase, len(c.Phases))
	for i, p := range c.Phases {
		phases[i] = schedule.Phase{Name: p.Name, Period: p.Period, Offset: p.Offset}
	}
	return phases
}

func (c *EngineConfig) buildConsumption() economy.ConsumptionRates {
	if len(c.Consumption) == 0 {
		return economy.DefaultRates()
	}

	rates := make(economy.ConsumptionRates, len(c.Consumption))
	for r, rate := range c.Consumption {
		rates[settlement.Resource(r)] = rate
	}
	return rates
}

func validResource(name string) bool {
	for _, r := range settlement.AllResources() {
		if settlement.Resource(name) == r {
			return true
		}
	}
	return false
}

// PopulationConfig overrides the population model defaults. Band keys are
// very_happy, happy, content, unhappy, very_unhappy. Zero fields keep
// their defaults.
type PopulationConfig struct {
	BaseHappiness        int                `json:"base_happiness"`
	GrowthRates          map[string]float64 `json:"growth_rates"`
	ImmigrationThreshold int                `json:"immigration_threshold"`
	ImmigrationChance    float64            `json:"immigration_chance"`
	MaxArrivals          int                `json:"max_arrivals"`
	EmigrationThreshold  int                `json:"emigration_threshold"`
	EmigrationChance     float64            `json:"emigration_chance"`
	MaxDepartures        int                `json:"max_departures"`
	LowHappinessWarning  int                `json:"low_happiness_warning"`
}

func (c *PopulationConfig) Validate() error {
	el := errors.NewErrorList()

	for b := range c.GrowthRates {
		if !validBand(b) {
			el.Add(fmt.Errorf("growth_rates: unknown band %q", b))
		}
	}
	el.Add(c.buildTuning().Validate())

	return el.Err()
}

func (c *PopulationConfig) buildTuning() population.Tuning {
	t := population.DefaultTuning()

	if c.BaseHappiness != 0 {
		t.BaseHappiness = c.BaseHappiness
	}
	for b, rate := range c.GrowthRates {
		if validBand(b) {
			t.GrowthRates[population.Band(b)] = rate
		}
	}
	if c.ImmigrationThreshold != 0 {
		t.ImmigrationThreshold = c.ImmigrationThreshold
	}
	if c.ImmigrationChance != 0 {
		t.ImmigrationChance = c.ImmigrationChance
	}
	if c.MaxArrivals != 0 {
		t.MaxArrivals = c.MaxArrivals
	}
	if c.EmigrationThreshold != 0 {
		t.EmigrationThreshold = c.EmigrationThreshold
	}
	if c.EmigrationChance != 0 {
		t.EmigrationChance = c.EmigrationChance
	}
	if c.MaxDepartures != 0 {
		t.MaxDepartures = c.MaxDepartures
	}
	if c.LowHappinessWarning != 0 {
		t.LowHappinessWarning = c.LowHappinessWarning
	}

	return t
}

func validBand(name string) bool {
	switch population.Band(name) {
	case population.BandVeryHappy, population.BandHappy, population.BandContent,
		population.BandUnhappy, population.BandVeryUnhappy:
		return true
	}
	return false
}
