package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-settle/internal/catalog"
	"github.com/pixil98/go-settle/internal/construction"
	"github.com/pixil98/go-settle/internal/disaster"
	"github.com/pixil98/go-settle/internal/economy"
	"github.com/pixil98/go-settle/internal/events"
	"github.com/pixil98/go-settle/internal/population"
	"github.com/pixil98/go-settle/internal/schedule"
	"github.com/pixil98/go-settle/internal/settlement"
	"github.com/pixil98/go-settle/internal/storage"
	"github.com/pixil98/go-testutil"
)

type fakeStore[T storage.ValidatingSpec] struct {
	records map[storage.Identifier]T

	// panicOn makes Get blow up for one id, standing in for a faulty
	// catalog backend.
	panicOn storage.Identifier
}

func (f *fakeStore[T]) Save(id storage.Identifier, spec T) error {
	f.records[id] = spec
	return nil
}

func (f *fakeStore[T]) Get(id storage.Identifier) T {
	if f.panicOn != "" && id == f.panicOn {
		panic("catalog backend gone")
	}
	return f.records[id]
}

func (f *fakeStore[T]) GetAll() map[storage.Identifier]T {
	return f.records
}

type fakePublisher struct {
	mu   sync.Mutex
	evs  []events.Event
	fail bool
}

func (f *fakePublisher) Publish(ctx context.Context, ev events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return fmt.Errorf("broker gone")
	}
	f.evs = append(f.evs, ev)
	return nil
}

func (f *fakePublisher) kinds() []events.Kind {
	out := make([]events.Kind, 0, len(f.evs))
	for _, ev := range f.evs {
		out = append(out, ev.Kind)
	}
	return out
}

func (f *fakePublisher) reset() {
	f.evs = nil
}

type fakeRepo struct {
	*settlement.MemoryRepository

	mu       sync.Mutex
	failSave map[string]bool
	saves    int
}

func (f *fakeRepo) Save(ctx context.Context, s *settlement.Settlement) error {
	f.mu.Lock()
	if f.failSave[s.Id] {
		f.mu.Unlock()
		return fmt.Errorf("disk full")
	}
	f.saves++
	f.mu.Unlock()

	return f.MemoryRepository.Save(ctx, s)
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func testCatalog() (*fakeStore[*catalog.StructureSpec], *fakeStore[*catalog.TileSpec], *fakeStore[*catalog.BiomeSpec], *fakeStore[*catalog.DisasterSpec]) {
	structures := &fakeStore[*catalog.StructureSpec]{records: map[storage.Identifier]*catalog.StructureSpec{
		"sawmill": {
			Name:             "Sawmill",
			MaxLevel:         3,
			BuildTimeSeconds: 1800,
			BuildCost:        map[settlement.Resource]float64{settlement.ResourceTimber: 30},
			BaseProduction:   map[settlement.Resource]float64{settlement.ResourceTimber: 10},
		},
		"hall": {
			Name:              "Hall",
			MaxLevel:          1,
			BuildTimeSeconds:  3600,
			BuildCost:         map[settlement.Resource]float64{settlement.ResourceTimber: 50},
			Resistance:        50,
			HappinessModifier: 20,
			HousingCapacity:   200,
		},
	}}
	tiles := &fakeStore[*catalog.TileSpec]{records: map[storage.Identifier]*catalog.TileSpec{
		"tile-1": {
			Biome:   "forest",
			Quality: map[settlement.Resource]int{settlement.ResourceTimber: 100},
			Slots:   4,
		},
	}}
	biomes := &fakeStore[*catalog.BiomeSpec]{records: map[storage.Identifier]*catalog.BiomeSpec{
		"forest": {
			Name:          "Forest",
			Vulnerability: map[string]float64{"quake": 1},
		},
	}}
	disasters := &fakeStore[*catalog.DisasterSpec]{records: map[storage.Identifier]*catalog.DisasterSpec{
		"quake": {
			Name:                     "Quake",
			BaseWeight:               1,
			DamageScale:              1,
			MinSeverity:              60,
			MaxSeverity:              60,
			LeadTimeSeconds:          3600,
			ImminentLeadSeconds:      600,
			ImpactDurationSeconds:    1800,
			AftermathDurationSeconds: 3600,
			CasualtyRate:             0.1,
			LossFraction:             0.2,
		},
	}}

	return structures, tiles, biomes, disasters
}

type testEngine struct {
	*Engine

	repo       *fakeRepo
	pub        *fakePublisher
	clk        *fakeClock
	structures *fakeStore[*catalog.StructureSpec]
}

func newTestEngine(t *testing.T, phases []schedule.Phase, now time.Time) *testEngine {
	t.Helper()

	structures, tiles, biomes, disasters := testCatalog()

	sched, err := schedule.NewScheduler(phases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo := &fakeRepo{
		MemoryRepository: settlement.NewMemoryRepository(),
		failSave:         map[string]bool{},
	}
	pub := &fakePublisher{}
	clk := &fakeClock{now: now}

	// Stochastic rolls pinned down: population never rolls arrivals or
	// departures, disasters always roll when one is eligible.
	popTuning := population.DefaultTuning()
	popTuning.ImmigrationChance = 0
	popTuning.EmigrationChance = 0

	disTuning := disaster.DefaultTuning()
	disTuning.RollChance = 1

	eng := NewEngine(repo, sched, pub, Handlers{
		Production:   economy.NewProductionCalculator(structures, tiles, biomes),
		Consumption:  economy.NewConsumptionCalculator(economy.ConsumptionRates{settlement.ResourceFood: 0.1}),
		Population:   population.NewModel(structures, popTuning),
		Construction: construction.NewQueue(structures, tiles, 1, 1),
		Repair:       construction.NewRepairer(structures, construction.DefaultRepairTuning()),
		Disaster:     disaster.NewDirector(disasters, biomes, tiles, structures, disTuning),
	}, WithClock(clk), WithWorkers(2))

	return &testEngine{
		Engine:     eng,
		repo:       repo,
		pub:        pub,
		clk:        clk,
		structures: structures,
	}
}

func testEngineSettlement(id string) *settlement.Settlement {
	return &settlement.Settlement{
		Id:         id,
		Player:     "p1",
		Tile:       "tile-1",
		Resilience: 50,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Storage: settlement.Storage{
			settlement.ResourceFood:   {Amount: 20, Capacity: 100},
			settlement.ResourceTimber: {Amount: 95, Capacity: 100},
		},
		Population: &settlement.PopulationState{Current: 50, Capacity: 200, Happiness: 70},
		Structures: []*settlement.StructureInstance{
			{Id: "b1", Type: "sawmill", Level: 1, Health: 100},
			{Id: "b2", Type: "hall", Level: 1, Health: 100},
		},
	}
}

func TestDefaultPhases(t *testing.T) {
	sched, err := schedule.NewScheduler(DefaultPhases())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]struct {
		now time.Time
		exp string
	}{
		"top of hour": {
			now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
			exp: PhaseProduction,
		},
		"half hour": {
			now: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
			exp: PhasePopulation,
		},
		"quarter to": {
			now: time.Date(2026, 3, 14, 10, 45, 0, 0, time.UTC),
			exp: PhaseRepair,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			due := sched.Due(tt.now)

			testutil.AssertEqual(t, "due count", len(due), 1)
			testutil.AssertEqual(t, "phase", due[0].Name, tt.exp)
		})
	}
}

func TestEngine_Tick_Production(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	te := newTestEngine(t, []schedule.Phase{{Name: PhaseProduction, Period: 3600, Offset: 0}}, now)

	err := te.repo.MemoryRepository.Save(context.Background(), testEngineSettlement("s1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = te.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := te.repo.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The sawmill adds 10 timber against 5 free capacity; 50 settlers eat
	// 5 food.
	testutil.AssertEqual(t, "timber", s.Storage[settlement.ResourceTimber].Amount, 100.0)
	testutil.AssertEqual(t, "food", s.Storage[settlement.ResourceFood].Amount, 15.0)

	testutil.AssertEqual(t, "event count", len(te.pub.evs), 1)
	testutil.AssertEqual(t, "event kind", te.pub.evs[0].Kind, events.KindResourceTick)
	testutil.AssertEqual(t, "event settlement", te.pub.evs[0].Settlement, "s1")

	payload, ok := te.pub.evs[0].Payload.(events.ResourceTickPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", te.pub.evs[0].Payload)
	}
	testutil.AssertEqual(t, "produced", payload.Produced[settlement.ResourceTimber], 10.0)
	testutil.AssertEqual(t, "consumed", payload.Consumed[settlement.ResourceFood], -5.0)
	testutil.AssertEqual(t, "waste", payload.Waste[settlement.ResourceTimber], 5.0)
}

func TestEngine_Run_AggregatesSummary(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	te := newTestEngine(t, []schedule.Phase{{Name: PhaseProduction, Period: 3600, Offset: 0}}, now)

	for _, id := range []string{"s1", "s2"} {
		if err := te.repo.MemoryRepository.Save(context.Background(), testEngineSettlement(id)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	sums, ran := te.run(context.Background())

	testutil.AssertEqual(t, "ran", ran, true)
	testutil.AssertEqual(t, "summary count", len(sums), 1)
	testutil.AssertEqual(t, "phase", sums[0].Phase, PhaseProduction)
	testutil.AssertEqual(t, "settlements", sums[0].Settlements, 2)
	testutil.AssertEqual(t, "failed", sums[0].Failed, 0)
	testutil.AssertEqual(t, "waste", sums[0].Waste, 10.0)
}

func TestEngine_Run_SkipsWhileBusy(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	te := newTestEngine(t, []schedule.Phase{{Name: PhaseProduction, Period: 3600, Offset: 0}}, now)

	te.busy.Store(true)
	sums, ran := te.run(context.Background())

	testutil.AssertEqual(t, "ran", ran, false)
	testutil.AssertEqual(t, "summaries", len(sums), 0)
	testutil.AssertEqual(t, "ack", te.RunOnce(context.Background()), "skipped: a pass is already in flight")

	te.busy.Store(false)
	_, ran = te.run(context.Background())
	testutil.AssertEqual(t, "ran after release", ran, true)
}

func TestEngine_Run_IsolatesFailingSettlement(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	te := newTestEngine(t, []schedule.Phase{{Name: PhaseProduction, Period: 3600, Offset: 0}}, now)

	for _, id := range []string{"s1", "s2"} {
		if err := te.repo.MemoryRepository.Save(context.Background(), testEngineSettlement(id)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	te.repo.failSave["s1"] = true

	sums, _ := te.run(context.Background())

	testutil.AssertEqual(t, "settlements", sums[0].Settlements, 1)
	testutil.AssertEqual(t, "failed", sums[0].Failed, 1)
	testutil.AssertEqual(t, "waste", sums[0].Waste, 5.0)

	// The failed settlement keeps its old state and announces nothing.
	s1, err := te.repo.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "s1 food", s1.Storage[settlement.ResourceFood].Amount, 20.0)

	for _, ev := range te.pub.evs {
		testutil.AssertEqual(t, "event settlement", ev.Settlement, "s2")
	}
}

func TestEngine_Run_RecoversPanic(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	te := newTestEngine(t, []schedule.Phase{{Name: PhaseProduction, Period: 3600, Offset: 0}}, now)

	if err := te.repo.MemoryRepository.Save(context.Background(), testEngineSettlement("s1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	te.structures.panicOn = "sawmill"

	sums, _ := te.run(context.Background())

	testutil.AssertEqual(t, "settlements", sums[0].Settlements, 0)
	testutil.AssertEqual(t, "failed", sums[0].Failed, 1)
	testutil.AssertEqual(t, "events", len(te.pub.evs), 0)

	s1, err := te.repo.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "s1 food", s1.Storage[settlement.ResourceFood].Amount, 20.0)
}

func TestEngine_Run_PublishFailureKeepsState(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	te := newTestEngine(t, []schedule.Phase{{Name: PhaseProduction, Period: 3600, Offset: 0}}, now)

	if err := te.repo.MemoryRepository.Save(context.Background(), testEngineSettlement("s1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	te.pub.fail = true

	sums, _ := te.run(context.Background())

	// Notification failure is not a settlement failure: the write stands.
	testutil.AssertEqual(t, "settlements", sums[0].Settlements, 1)
	testutil.AssertEqual(t, "failed", sums[0].Failed, 0)

	s1, err := te.repo.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "s1 food", s1.Storage[settlement.ResourceFood].Amount, 15.0)
}

func TestEngine_RunOnce(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 1, 0, time.UTC)
	te := newTestEngine(t, []schedule.Phase{{Name: PhaseProduction, Period: 3600, Offset: 0}}, now)

	if err := te.repo.MemoryRepository.Save(context.Background(), testEngineSettlement("s1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "off boundary", te.RunOnce(context.Background()), "no phases due")

	te.clk.now = time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	ack := te.RunOnce(context.Background())

	if !strings.Contains(ack, "production: 1 settlements") {
		t.Errorf("ack %q does not mention the production run", ack)
	}
}
