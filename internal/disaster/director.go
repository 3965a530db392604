package disaster

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-settle/internal/catalog"
	"github.com/pixil98/go-settle/internal/economy"
	"github.com/pixil98/go-settle/internal/settlement"
	"github.com/pixil98/go-settle/internal/storage"
)

// Roller is the randomness the director draws on. *rand.Rand satisfies it.
type Roller interface {
	Float64() float64
	IntN(n int) int
}

// defaultRoller defers to the shared top-level source, which is safe for
// concurrent use without locking.
type defaultRoller struct{}

func (defaultRoller) Float64() float64 { return rand.Float64() }
func (defaultRoller) IntN(n int) int   { return rand.IntN(n) }

// Tuning holds the director's world-level knobs.
type Tuning struct {
	// RollChance is the base chance a disaster spawns on each roll phase,
	// before biome vulnerability scales it.
	RollChance float64 `json:"roll_chance"`

	// ResilienceGain is awarded when a disaster resolves.
	ResilienceGain int `json:"resilience_gain"`
}

func DefaultTuning() Tuning {
	return Tuning{
		RollChance:     0.05,
		ResilienceGain: 5,
	}
}

func (t Tuning) Validate() error {
	el := errors.NewErrorList()

	if t.RollChance < 0 || t.RollChance > 1 {
		el.Add(fmt.Errorf("roll chance %v out of range [0,1]", t.RollChance))
	}
	if t.ResilienceGain < 0 {
		el.Add(fmt.Errorf("resilience gain must not be negative"))
	}

	return el.Err()
}

// StepKind labels one observable lifecycle change produced by Advance.
type StepKind string

const (
	StepImminent  StepKind = "imminent"
	StepImpact    StepKind = "impact"
	StepDamage    StepKind = "damage"
	StepAftermath StepKind = "aftermath"
	StepResolved  StepKind = "resolved"
)

// Step is one lifecycle change. Event is a snapshot taken right after the
// change applied; Damage is set on damage steps only.
type Step struct {
	Kind   StepKind
	Event  settlement.DisasterEvent
	Damage *DamageReport
}

// Director rolls new disasters and walks active ones through their
// lifecycle. It mutates the settlement aggregate in place; persistence and
// event emission stay with the caller.
type Director struct {
	disasters  storage.Storer[*catalog.DisasterSpec]
	biomes     storage.Storer[*catalog.BiomeSpec]
	tiles      storage.Storer[*catalog.TileSpec]
	structures storage.Storer[*catalog.StructureSpec]
	tuning     Tuning
	roll       Roller
}

func NewDirector(disasters storage.Storer[*catalog.DisasterSpec], biomes storage.Storer[*catalog.BiomeSpec], tiles storage.Storer[*catalog.TileSpec], structures storage.Storer[*catalog.StructureSpec], tuning Tuning) *Director {
	return &Director{
		disasters:  disasters,
		biomes:     biomes,
		tiles:      tiles,
		structures: structures,
		tuning:     tuning,
		roll:       defaultRoller{},
	}
}

// Roll decides whether a new disaster spawns against s. At most one
// disaster is in flight per settlement, so rolls are suppressed until the
// active one resolves. The spawn chance scales with how vulnerable the
// settlement's biome is to the catalog's types; the type pick is weighted
// the same way. The whole timeline is stamped here so later catalog edits
// can't reorder an in-flight lifecycle. Returns the warning event, or nil.
func (d *Director) Roll(ctx context.Context, s *settlement.Settlement, now time.Time) *settlement.DisasterEvent {
	if s.Disaster != nil {
		return nil
	}

	tile := d.tiles.Get(storage.Identifier(s.Tile))
	if tile == nil {
		slog.WarnContext(ctx, "tile not found, skipping disaster roll", "settlement", s.Id, "tile", s.Tile)
		return nil
	}
	biome := d.biomes.Get(storage.Identifier(tile.Biome))
	if biome == nil {
		slog.WarnContext(ctx, "biome not found, skipping disaster roll", "settlement", s.Id, "biome", tile.Biome)
		return nil
	}

	all := d.disasters.GetAll()
	ids := make([]storage.Identifier, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	type candidate struct {
		id     storage.Identifier
		spec   *catalog.DisasterSpec
		weight float64
	}
	var cands []candidate
	var base, weighted float64
	for _, id := range ids {
		spec := all[id]
		base += spec.BaseWeight
		w := spec.BaseWeight * biome.VulnerabilityFor(string(id))
		if w <= 0 {
			continue
		}
		weighted += w
		cands = append(cands, candidate{id: id, spec: spec, weight: w})
	}
	if base <= 0 || len(cands) == 0 {
		return nil
	}

	chance := d.tuning.RollChance * weighted / base
	if chance > 1 {
		chance = 1
	}
	if d.roll.Float64() >= chance {
		return nil
	}

	pick := d.roll.Float64() * weighted
	chosen := cands[len(cands)-1]
	for _, c := range cands {
		pick -= c.weight
		if pick < 0 {
			chosen = c
			break
		}
	}

	spec := chosen.spec
	severity := spec.MinSeverity + d.roll.IntN(spec.MaxSeverity-spec.MinSeverity+1)

	impactAt := now.Add(spec.LeadTime())
	ev := &settlement.DisasterEvent{
		Id:           uuid.New().String(),
		Type:         string(chosen.id),
		Severity:     severity,
		Biome:        tile.Biome,
		Phase:        settlement.PhaseWarning,
		WarnedAt:     now,
		ImminentAt:   impactAt.Add(-spec.ImminentLead()),
		ImpactAt:     impactAt,
		ImpactEndsAt: impactAt.Add(spec.ImpactDuration()),
	}
	ev.ResolvesAt = ev.ImpactEndsAt.Add(spec.AftermathDuration())

	s.Disaster = ev
	return ev
}

// Advance walks the active disaster toward now, applying every transition
// and damage interval that has come due. Transitions stay strictly ordered;
// a late call after downtime catches up step by step rather than jumping
// phases. On resolve the settlement's resilience rises, the aggregate's
// disaster slot clears, and the final step carries the snapshot to archive.
func (d *Director) Advance(ctx context.Context, s *settlement.Settlement, now time.Time) []Step {
	ev := s.Disaster
	if ev == nil {
		return nil
	}

	spec := d.disasters.Get(storage.Identifier(ev.Type))
	if spec == nil {
		// The catalog lost the type mid-lifecycle. The timeline was fixed
		// at roll time so phases still advance, but damage and the impact
		// toll need the spec and are skipped.
		slog.WarnContext(ctx, "disaster type not found, advancing without damage", "settlement", s.Id, "type", ev.Type)
	}

	var steps []Step
	for {
		switch ev.Phase {
		case settlement.PhaseWarning:
			if now.Before(ev.ImminentAt) {
				return steps
			}
			ev.Phase = settlement.PhaseImminent
			steps = append(steps, Step{Kind: StepImminent, Event: *ev})

		case settlement.PhaseImminent:
			if now.Before(ev.ImpactAt) {
				return steps
			}
			ev.Phase = settlement.PhaseImpact
			ev.LastDamageAt = ev.ImpactAt
			steps = append(steps, Step{Kind: StepImpact, Event: *ev})

		case settlement.PhaseImpact:
			if spec != nil {
				steps = append(steps, d.damageSteps(s, ev, spec, now)...)
			}
			if now.Before(ev.ImpactEndsAt) {
				return steps
			}
			d.applyImpactEnd(s, ev, spec)
			ev.Phase = settlement.PhaseAftermath
			ev.Progress = 100
			steps = append(steps, Step{Kind: StepAftermath, Event: *ev})

		case settlement.PhaseAftermath:
			if now.Before(ev.ResolvesAt) {
				return steps
			}
			ev.Phase = settlement.PhaseResolved
			s.Resilience += d.tuning.ResilienceGain
			if s.Resilience > 100 {
				s.Resilience = 100
			}
			steps = append(steps, Step{Kind: StepResolved, Event: *ev})
			s.Disaster = nil
			return steps

		default:
			return steps
		}
	}
}

// damageSteps lands every damage interval due between the last one and
// min(now, impact end). Each interval rolls its own variance.
func (d *Director) damageSteps(s *settlement.Settlement, ev *settlement.DisasterEvent, spec *catalog.DisasterSpec, now time.Time) []Step {
	interval := spec.DamageInterval()
	limit := now
	if ev.ImpactEndsAt.Before(limit) {
		limit = ev.ImpactEndsAt
	}

	var steps []Step
	for {
		next := ev.LastDamageAt.Add(interval)
		if next.After(limit) {
			return steps
		}
		rep := d.applyDamage(s, ev, spec)
		ev.LastDamageAt = next
		ev.Progress = impactProgress(ev, next)
		steps = append(steps, Step{Kind: StepDamage, Event: *ev, Damage: rep})
	}
}

// applyDamage spends one interval's damage pool against standing
// structures, split by how little resistance each one has. A structure
// reaching zero health is destroyed and removed.
func (d *Director) applyDamage(s *settlement.Settlement, ev *settlement.DisasterEvent, spec *catalog.DisasterSpec) *DamageReport {
	rep := &DamageReport{}

	pool := BaseDamage(ev.Severity, s.Resilience, spec.DamageScale) * Variance(d.roll.Float64())
	if pool <= 0 {
		return rep
	}

	type target struct {
		si     *settlement.StructureInstance
		weight float64
	}
	var targets []target
	var total float64
	for _, si := range s.Structures {
		if si.Health <= 0 {
			continue
		}
		weight := 1.0
		if st := d.structures.Get(storage.Identifier(si.Type)); st != nil {
			weight = 1 - float64(st.Resistance)/100
		}
		if weight <= 0 {
			continue
		}
		targets = append(targets, target{si: si, weight: weight})
		total += weight
	}
	if total <= 0 {
		return rep
	}

	damaged := make(map[string]bool, len(ev.DamagedIds))
	for _, id := range ev.DamagedIds {
		damaged[id] = true
	}

	var destroyed []string
	for _, t := range targets {
		amt := pool * t.weight / total
		t.si.Health -= amt
		rep.Total += amt

		if !damaged[t.si.Id] {
			damaged[t.si.Id] = true
			ev.DamagedIds = append(ev.DamagedIds, t.si.Id)
			ev.StructuresDamaged++
		}

		dead := t.si.Health <= 0
		if dead {
			t.si.Health = 0
			ev.StructuresDestroyed++
			destroyed = append(destroyed, t.si.Id)
		}

		rep.Structures = append(rep.Structures, StructureDamage{
			Structure: *t.si,
			Amount:    amt,
			Destroyed: dead,
		})
	}

	for _, id := range destroyed {
		s.RemoveStructure(id)
	}

	return rep
}

// applyImpactEnd settles the impact's toll: casualties against the
// population, and the loss fraction against storage through the ledger so
// the clamping rules hold.
func (d *Director) applyImpactEnd(s *settlement.Settlement, ev *settlement.DisasterEvent, spec *catalog.DisasterSpec) {
	if spec == nil {
		return
	}

	if p := s.Population; p != nil && p.Current > 0 && spec.CasualtyRate > 0 {
		casualties := int(math.Round(float64(p.Current) * spec.CasualtyRate * float64(ev.Severity) / 100))
		if casualties > p.Current {
			casualties = p.Current
		}
		p.Current -= casualties
		ev.Casualties = casualties
	}

	if spec.LossFraction > 0 {
		frac := spec.LossFraction * float64(ev.Severity) / 100
		loss := settlement.ResourceDelta{}
		for r, stock := range s.Storage {
			if amt := stock.Amount * frac; amt > 0 {
				loss[r] = -amt
			}
		}
		if len(loss) == 0 {
			return
		}

		st, _ := economy.ApplyDelta(s.Storage, loss)
		s.Storage = st

		lost := make(settlement.ResourceDelta, len(loss))
		for r, amt := range loss {
			lost[r] = -amt
		}
		ev.ResourcesLost = lost
	}
}

// impactProgress is how far through the impact window t is, as a percent.
func impactProgress(ev *settlement.DisasterEvent, t time.Time) int {
	total := ev.ImpactEndsAt.Sub(ev.ImpactAt)
	if total <= 0 {
		return 100
	}
	p := int(100 * float64(t.Sub(ev.ImpactAt)) / float64(total))
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}
