package settlement

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

// Resource identifies a stockpiled resource type.
type Resource string

const (
	ResourceFood   Resource = "food"
	ResourceWater  Resource = "water"
	ResourceTimber Resource = "timber"
	ResourceStone  Resource = "stone"
	ResourceOre    Resource = "ore"
)

// AllResources lists every resource type in canonical order.
func AllResources() []Resource {
	return []Resource{ResourceFood, ResourceWater, ResourceTimber, ResourceStone, ResourceOre}
}

// IsValid reports whether r is one of the known resource types.
func (r Resource) IsValid() bool {
	switch r {
	case ResourceFood, ResourceWater, ResourceTimber, ResourceStone, ResourceOre:
		return true
	}
	return false
}

// ResourceDelta maps resource types to signed amounts. It communicates
// production and consumption results into the storage ledger and is never
// persisted.
type ResourceDelta map[Resource]float64

// Merge adds every amount in other into d.
func (d ResourceDelta) Merge(other ResourceDelta) {
	for r, amt := range other {
		d[r] += amt
	}
}

// IsZero reports whether every amount in the delta is zero.
func (d ResourceDelta) IsZero() bool {
	for _, amt := range d {
		if amt != 0 {
			return false
		}
	}
	return true
}

// Stock is the stored amount and capacity for a single resource.
type Stock struct {
	Amount   float64 `json:"amount"`
	Capacity float64 `json:"capacity"`
}

// Storage maps resource types to their stock.
type Storage map[Resource]Stock

// Clone returns an independent copy of the storage map.
func (s Storage) Clone() Storage {
	out := make(Storage, len(s))
	for r, st := range s {
		out[r] = st
	}
	return out
}

// PopulationStatus is the coarse direction of a settlement's population.
type PopulationStatus string

const (
	StatusGrowing   PopulationStatus = "growing"
	StatusStable    PopulationStatus = "stable"
	StatusDeclining PopulationStatus = "declining"
)

// PopulationState tracks a settlement's settlers. Mutated only by the
// population model.
type PopulationState struct {
	Current    int              `json:"current"`
	Capacity   int              `json:"capacity"`
	Happiness  int              `json:"happiness"`
	GrowthRate float64          `json:"growth_rate"`
	Status     PopulationStatus `json:"status"`
}

// StructureInstance is a built structure belonging to one settlement.
// Health runs 0-100; a structure at 0 is destroyed and removed.
type StructureInstance struct {
	Id     string  `json:"id"`
	Type   string  `json:"type"`
	Level  int     `json:"level"`
	Health float64 `json:"health"`
	Slot   int     `json:"slot,omitempty"`
}

// ConstructionQueueEntry is one queued build. Position 0 is the active
// build; timestamps are stamped when the entry becomes active.
type ConstructionQueueEntry struct {
	Type        string    `json:"type"`
	Position    int       `json:"position"`
	StartedAt   time.Time `json:"started_at"`
	CompletesAt time.Time `json:"completes_at"`
}

// DisasterPhase is one state in the disaster lifecycle. Transitions are
// strictly monotonic: warning, imminent, impact, aftermath, resolved.
type DisasterPhase string

const (
	PhaseWarning   DisasterPhase = "warning"
	PhaseImminent  DisasterPhase = "imminent"
	PhaseImpact    DisasterPhase = "impact"
	PhaseAftermath DisasterPhase = "aftermath"
	PhaseResolved  DisasterPhase = "resolved"
)

// Next returns the phase that follows p, or "" when p is terminal.
func (p DisasterPhase) Next() DisasterPhase {
	switch p {
	case PhaseWarning:
		return PhaseImminent
	case PhaseImminent:
		return PhaseImpact
	case PhaseImpact:
		return PhaseAftermath
	case PhaseAftermath:
		return PhaseResolved
	default:
		return ""
	}
}

// DisasterEvent is an in-flight disaster against one settlement. The
// schedule timestamps are fixed when the warning is rolled so a catalog
// change mid-lifecycle cannot reorder phases.
type DisasterEvent struct {
	Id       string        `json:"id"`
	Type     string        `json:"type"`
	Severity int           `json:"severity"`
	Biome    string        `json:"biome"`
	Phase    DisasterPhase `json:"phase"`

	WarnedAt     time.Time `json:"warned_at"`
	ImminentAt   time.Time `json:"imminent_at"`
	ImpactAt     time.Time `json:"impact_at"`
	ImpactEndsAt time.Time `json:"impact_ends_at"`
	ResolvesAt   time.Time `json:"resolves_at"`
	LastDamageAt time.Time `json:"last_damage_at"`

	Progress            int           `json:"progress"`
	Casualties          int           `json:"casualties"`
	StructuresDamaged   int           `json:"structures_damaged"`
	StructuresDestroyed int           `json:"structures_destroyed"`
	ResourcesLost       ResourceDelta `json:"resources_lost,omitempty"`

	// DamagedIds tracks which structures this disaster has already hit so
	// the damaged count stays distinct across damage intervals.
	DamagedIds []string `json:"damaged_ids,omitempty"`
}

// Settlement is the aggregate the simulation owns: storage, population,
// structures, and in-flight construction and disaster state.
type Settlement struct {
	Id         string    `json:"id"`
	Player     string    `json:"player"`
	Tile       string    `json:"tile"`
	Resilience int       `json:"resilience"`
	CreatedAt  time.Time `json:"created_at"`

	Storage    Storage                   `json:"storage"`
	Population *PopulationState          `json:"population"`
	Structures []*StructureInstance      `json:"structures"`
	Queue      []*ConstructionQueueEntry `json:"queue"`
	Disaster   *DisasterEvent            `json:"disaster,omitempty"`
}

// Validate checks the aggregate's invariants. Repositories call this at the
// read boundary; a failing settlement is skipped by the tick, never fatal.
func (s *Settlement) Validate() error {
	el := errors.NewErrorList()

	if s.Id == "" {
		el.Add(fmt.Errorf("id is required"))
	}
	if s.Resilience < 0 || s.Resilience > 100 {
		el.Add(fmt.Errorf("resilience %d out of range [0,100]", s.Resilience))
	}

	for r, st := range s.Storage {
		if st.Amount < 0 {
			el.Add(fmt.Errorf("storage %s: amount %f is negative", r, st.Amount))
		}
		if st.Capacity < 0 {
			el.Add(fmt.Errorf("storage %s: capacity %f is negative", r, st.Capacity))
		}
		if st.Amount > st.Capacity {
			el.Add(fmt.Errorf("storage %s: amount %f exceeds capacity %f", r, st.Amount, st.Capacity))
		}
	}

	if p := s.Population; p != nil {
		if p.Current < 0 {
			el.Add(fmt.Errorf("population: current %d is negative", p.Current))
		}
		if p.Happiness < 0 || p.Happiness > 100 {
			el.Add(fmt.Errorf("population: happiness %d out of range [0,100]", p.Happiness))
		}
	}

	for i, si := range s.Structures {
		if si.Id == "" {
			el.Add(fmt.Errorf("structure %d: id is required", i))
		}
		if si.Type == "" {
			el.Add(fmt.Errorf("structure %d: type is required", i))
		}
		if si.Level < 1 {
			el.Add(fmt.Errorf("structure %d: level %d must be at least 1", i, si.Level))
		}
		if si.Health < 0 || si.Health > 100 {
			el.Add(fmt.Errorf("structure %d: health %f out of range [0,100]", i, si.Health))
		}
	}

	for i, qe := range s.Queue {
		if qe.Type == "" {
			el.Add(fmt.Errorf("queue entry %d: type is required", i))
		}
		if qe.Position != i {
			el.Add(fmt.Errorf("queue entry %d: position %d out of order", i, qe.Position))
		}
	}

	if d := s.Disaster; d != nil {
		switch d.Phase {
		case PhaseWarning, PhaseImminent, PhaseImpact, PhaseAftermath, PhaseResolved:
		default:
			el.Add(fmt.Errorf("disaster: invalid phase %q", d.Phase))
		}
		if d.Severity < 0 || d.Severity > 100 {
			el.Add(fmt.Errorf("disaster: severity %d out of range [0,100]", d.Severity))
		}
	}

	return el.Err()
}

// Clone returns a deep copy so callers can mutate without sharing state.
func (s *Settlement) Clone() *Settlement {
	out := *s
	out.Storage = s.Storage.Clone()

	if s.Population != nil {
		p := *s.Population
		out.Population = &p
	}

	out.Structures = make([]*StructureInstance, len(s.Structures))
	for i, si := range s.Structures {
		c := *si
		out.Structures[i] = &c
	}

	out.Queue = make([]*ConstructionQueueEntry, len(s.Queue))
	for i, qe := range s.Queue {
		c := *qe
		out.Queue[i] = &c
	}

	if s.Disaster != nil {
		d := *s.Disaster
		if s.Disaster.ResourcesLost != nil {
			d.ResourcesLost = make(ResourceDelta, len(s.Disaster.ResourcesLost))
			for r, amt := range s.Disaster.ResourcesLost {
				d.ResourcesLost[r] = amt
			}
		}
		if s.Disaster.DamagedIds != nil {
			d.DamagedIds = append([]string(nil), s.Disaster.DamagedIds...)
		}
		out.Disaster = &d
	}

	return &out
}

// Structure returns the structure instance with the given id, or nil.
func (s *Settlement) Structure(id string) *StructureInstance {
	for _, si := range s.Structures {
		if si.Id == id {
			return si
		}
	}
	return nil
}

// RemoveStructure deletes the structure instance with the given id.
func (s *Settlement) RemoveStructure(id string) {
	for i, si := range s.Structures {
		if si.Id == id {
			s.Structures = append(s.Structures[:i], s.Structures[i+1:]...)
			return
		}
	}
}

// InAftermath reports whether a disaster aftermath discount window is open.
func (s *Settlement) InAftermath() bool {
	return s.Disaster != nil && s.Disaster.Phase == PhaseAftermath
}
