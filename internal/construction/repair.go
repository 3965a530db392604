package construction

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-settle/internal/catalog"
	"github.com/pixil98/go-settle/internal/economy"
	"github.com/pixil98/go-settle/internal/settlement"
	"github.com/pixil98/go-settle/internal/storage"
)

// fullHealth is the ceiling structures repair toward.
const fullHealth = 100

// RepairTuning holds the passive repair knobs.
type RepairTuning struct {
	// Rate is how many health points one repair pass restores per
	// structure.
	Rate float64 `json:"rate"`

	// CostFraction is the share of a structure's build cost a full repair
	// from zero would cost. Each restored point charges proportionally.
	CostFraction float64 `json:"cost_fraction"`

	// AftermathDiscount multiplies repair costs while a disaster
	// aftermath window is open.
	AftermathDiscount float64 `json:"aftermath_discount"`
}

func DefaultRepairTuning() RepairTuning {
	return RepairTuning{
		Rate:              5,
		CostFraction:      0.5,
		AftermathDiscount: 0.5,
	}
}

func (t RepairTuning) Validate() error {
	el := errors.NewErrorList()

	if t.Rate < 0 {
		el.Add(fmt.Errorf("rate must not be negative"))
	}
	if t.CostFraction < 0 {
		el.Add(fmt.Errorf("cost fraction must not be negative"))
	}
	if t.AftermathDiscount < 0 || t.AftermathDiscount > 1 {
		el.Add(fmt.Errorf("aftermath discount %v out of range [0,1]", t.AftermathDiscount))
	}

	return el.Err()
}

// RepairedStructure records one structure's repair in a pass. The instance
// is a snapshot taken after the repair applied.
type RepairedStructure struct {
	Structure settlement.StructureInstance
	Restored  float64
	Cost      settlement.ResourceDelta
}

// RepairResult reports what one repair pass did.
type RepairResult struct {
	Repaired []RepairedStructure
	Spent    settlement.ResourceDelta
	Changed  bool
}

// Repairer restores damaged structures on the repair phase.
type Repairer struct {
	structures storage.Storer[*catalog.StructureSpec]
	tuning     RepairTuning
}

func NewRepairer(structures storage.Storer[*catalog.StructureSpec], tuning RepairTuning) *Repairer {
	return &Repairer{
		structures: structures,
		tuning:     tuning,
	}
}

// Repair restores up to the tuned rate of health to each damaged structure,
// worst first, charging a share of the build cost per restored point. The
// pass stops at the first structure storage can't cover. Destroyed
// structures are not repairable.
func (r *Repairer) Repair(ctx context.Context, s *settlement.Settlement) RepairResult {
	res := RepairResult{Spent: settlement.ResourceDelta{}}
	if r.tuning.Rate <= 0 {
		return res
	}

	type job struct {
		si   *settlement.StructureInstance
		spec *catalog.StructureSpec
	}
	var jobs []job
	for _, si := range s.Structures {
		if si.Health <= 0 || si.Health >= fullHealth {
			continue
		}
		spec := r.structures.Get(storage.Identifier(si.Type))
		if spec == nil {
			slog.WarnContext(ctx, "unknown structure type, skipping repair", "settlement", s.Id, "type", si.Type)
			continue
		}
		jobs = append(jobs, job{si: si, spec: spec})
	}

	// Worst first; ties break on id so passes are deterministic.
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].si.Health != jobs[j].si.Health {
			return jobs[i].si.Health < jobs[j].si.Health
		}
		return jobs[i].si.Id < jobs[j].si.Id
	})

	discount := 1.0
	if s.InAftermath() {
		discount = r.tuning.AftermathDiscount
	}

	for _, j := range jobs {
		restore := r.tuning.Rate
		if over := j.si.Health + restore - fullHealth; over > 0 {
			restore -= over
		}

		cost := settlement.ResourceDelta{}
		affordable := true
		for rsc, amt := range j.spec.BuildCost {
			c := amt * r.tuning.CostFraction * restore / fullHealth * discount
			if c <= 0 {
				continue
			}
			cost[rsc] = c
			if s.Storage[rsc].Amount < c {
				affordable = false
			}
		}
		if !affordable {
			break
		}

		charge := make(settlement.ResourceDelta, len(cost))
		for rsc, amt := range cost {
			charge[rsc] = -amt
			res.Spent[rsc] += amt
		}
		st, _ := economy.ApplyDelta(s.Storage, charge)
		s.Storage = st

		j.si.Health += restore
		res.Changed = true
		res.Repaired = append(res.Repaired, RepairedStructure{
			Structure: *j.si,
			Restored:  restore,
			Cost:      cost,
		})
	}

	return res
}
