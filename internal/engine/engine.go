package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixil98/go-settle/internal/clock"
	"github.com/pixil98/go-settle/internal/construction"
	"github.com/pixil98/go-settle/internal/disaster"
	"github.com/pixil98/go-settle/internal/economy"
	"github.com/pixil98/go-settle/internal/events"
	"github.com/pixil98/go-settle/internal/population"
	"github.com/pixil98/go-settle/internal/schedule"
	"github.com/pixil98/go-settle/internal/settlement"
)

// Phase names the engine dispatches on.
const (
	PhaseProduction      = "production"
	PhasePopulation      = "population"
	PhaseRepair          = "repair"
	PhaseDisasterRoll    = "disaster-roll"
	PhaseDisasterAdvance = "disaster-advance"
	PhaseConstruction    = "construction"
)

// DefaultWorkers caps how many settlements one phase processes concurrently.
const DefaultWorkers = 4

// DefaultPhases returns the stock phase table. Offsets are staggered so no
// two phases are ever due in the same second.
func DefaultPhases() []schedule.Phase {
	return []schedule.Phase{
		{Name: PhaseProduction, Period: 3600, Offset: 0},
		{Name: PhasePopulation, Period: 3600, Offset: 1800},
		{Name: PhaseRepair, Period: 3600, Offset: 2700},
		{Name: PhaseDisasterRoll, Period: 900, Offset: 30},
		{Name: PhaseDisasterAdvance, Period: 60, Offset: 5},
		{Name: PhaseConstruction, Period: 300, Offset: 120},
	}
}

// Handlers bundles the per-phase processors the engine drives. All fields
// must be set.
type Handlers struct {
	Production   *economy.ProductionCalculator
	Consumption  *economy.ConsumptionCalculator
	Population   *population.Model
	Construction *construction.Queue
	Repair       *construction.Repairer
	Disaster     *disaster.Director
}

// Summary reports one phase's processing for observability.
type Summary struct {
	Phase       string
	Settlements int
	Failed      int
	Waste       float64
	Elapsed     time.Duration
}

// Engine is the tick orchestrator: it asks the scheduler what is due,
// walks every settlement through the due phases inside an isolating
// boundary, persists the result, and publishes events strictly after the
// state write.
type Engine struct {
	repo      settlement.Repository
	scheduler *schedule.Scheduler
	publisher events.Publisher
	handlers  Handlers
	clock     clock.Clock
	workers   int

	// busy keeps passes from overlapping when processing outruns the
	// driver's tick interval.
	busy atomic.Bool
}

func NewEngine(repo settlement.Repository, scheduler *schedule.Scheduler, publisher events.Publisher, handlers Handlers, opts ...EngineOpt) *Engine {
	e := &Engine{
		repo:      repo,
		scheduler: scheduler,
		publisher: publisher,
		handlers:  handlers,
		clock:     clock.RealClock{},
		workers:   DefaultWorkers,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.workers < 1 {
		e.workers = 1
	}

	return e
}

// Tick runs one orchestrator pass. Per-settlement failures are isolated
// and logged, so a pass never returns an error that would stop the
// driver loop.
func (e *Engine) Tick(ctx context.Context) error {
	e.run(ctx)
	return nil
}

// RunOnce services the external single-shot trigger: it executes one
// orchestrator pass and reports what ran.
func (e *Engine) RunOnce(ctx context.Context) string {
	sums, ran := e.run(ctx)
	if !ran {
		return "skipped: a pass is already in flight"
	}
	if len(sums) == 0 {
		return "no phases due"
	}

	parts := make([]string, 0, len(sums))
	for _, sum := range sums {
		parts = append(parts, fmt.Sprintf("%s: %d settlements, %.1f waste", sum.Phase, sum.Settlements, sum.Waste))
	}
	return "ran " + strings.Join(parts, "; ")
}

func (e *Engine) run(ctx context.Context) ([]Summary, bool) {
	if !e.busy.CompareAndSwap(false, true) {
		slog.WarnContext(ctx, "previous pass still in flight, skipping tick")
		return nil, false
	}
	defer e.busy.Store(false)

	now := e.clock.Now()

	var sums []Summary
	for _, p := range e.scheduler.Due(now) {
		if !knownPhase(p.Name) {
			slog.WarnContext(ctx, "no handler for phase, skipping", "phase", p.Name)
			continue
		}

		sum := e.runPhase(ctx, p.Name, now)
		sums = append(sums, sum)
		slog.InfoContext(ctx, "phase complete",
			"phase", sum.Phase,
			"settlements", sum.Settlements,
			"failed", sum.Failed,
			"waste", sum.Waste,
			"elapsed", sum.Elapsed)
	}

	return sums, true
}

// runPhase fans the phase out over all settlements through a bounded
// worker pool. Settlements share no mutable state, so the only
// synchronization needed is around the summary.
func (e *Engine) runPhase(ctx context.Context, phase string, now time.Time) Summary {
	start := time.Now()
	sum := Summary{Phase: phase}

	all, err := e.repo.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "listing settlements", "phase", phase, "error", err)
		sum.Elapsed = time.Since(start)
		return sum
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	sem := make(chan struct{}, e.workers)

	for _, s := range all {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			waste, err := e.processSettlement(ctx, phase, s, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Failed++
				slog.ErrorContext(ctx, "settlement update failed", "phase", phase, "settlement", s.Id, "error", err)
				return
			}
			sum.Settlements++
			sum.Waste += waste
		}()
	}
	wg.Wait()

	sum.Elapsed = time.Since(start)
	return sum
}

// processSettlement applies one phase to one settlement. A panic or a
// persistence failure is contained here: the settlement's update is
// dropped whole and retried on the phase's next due second, and its
// events are only published once the state write has landed.
func (e *Engine) processSettlement(ctx context.Context, phase string, s *settlement.Settlement, now time.Time) (waste float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s phase: %v", phase, r)
		}
	}()

	out := e.applyPhase(ctx, phase, s, now)

	for _, ev := range out.archives {
		if aerr := e.repo.ArchiveDisaster(ctx, s.Id, ev); aerr != nil {
			return 0, fmt.Errorf("archiving disaster %s: %w", ev.Id, aerr)
		}
	}

	if out.changed {
		if serr := e.repo.Save(ctx, s); serr != nil {
			return 0, fmt.Errorf("saving settlement: %w", serr)
		}
	}

	e.publish(ctx, out.events)
	return out.waste, nil
}

func (e *Engine) publish(ctx context.Context, evs []events.Event) {
	for _, ev := range evs {
		if err := e.publisher.Publish(ctx, ev); err != nil {
			slog.WarnContext(ctx, "publishing event", "kind", ev.Kind, "settlement", ev.Settlement, "error", err)
		}
	}
}

func knownPhase(name string) bool {
	switch name {
	case PhaseProduction, PhasePopulation, PhaseRepair, PhaseDisasterRoll, PhaseDisasterAdvance, PhaseConstruction:
		return true
	}
	return false
}
