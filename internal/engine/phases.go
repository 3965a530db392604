package engine

import (
	"context"
	"time"

	"github.com/pixil98/go-settle/internal/disaster"
	"github.com/pixil98/go-settle/internal/economy"
	"github.com/pixil98/go-settle/internal/events"
	"github.com/pixil98/go-settle/internal/settlement"
)

// phaseOutcome is what one phase did to one settlement. Events are held
// back until the write in archives/changed has landed.
type phaseOutcome struct {
	changed  bool
	waste    float64
	archives []*settlement.DisasterEvent
	events   []events.Event
}

func (e *Engine) applyPhase(ctx context.Context, phase string, s *settlement.Settlement, now time.Time) phaseOutcome {
	switch phase {
	case PhaseProduction:
		return e.runProduction(ctx, s, now)
	case PhasePopulation:
		return e.runPopulation(ctx, s, now)
	case PhaseRepair:
		return e.runRepair(ctx, s, now)
	case PhaseDisasterRoll:
		return e.runDisasterRoll(ctx, s, now)
	case PhaseDisasterAdvance:
		return e.runDisasterAdvance(ctx, s, now)
	case PhaseConstruction:
		return e.runConstruction(ctx, s, now)
	}
	return phaseOutcome{}
}

func (e *Engine) runProduction(ctx context.Context, s *settlement.Settlement, now time.Time) phaseOutcome {
	produced := e.handlers.Production.Calculate(ctx, s)
	consumed := e.handlers.Consumption.Calculate(s)

	delta := settlement.ResourceDelta{}
	delta.Merge(produced)
	delta.Merge(consumed)

	st, waste := economy.ApplyDelta(s.Storage, delta)
	s.Storage = st

	return phaseOutcome{
		changed: true,
		waste:   economy.TotalWaste(waste),
		events: []events.Event{{
			Kind:       events.KindResourceTick,
			Settlement: s.Id,
			At:         now,
			Payload: events.ResourceTickPayload{
				Produced: produced,
				Consumed: consumed,
				Waste:    waste,
				Storage:  s.Storage,
			},
		}},
	}
}

func (e *Engine) runPopulation(ctx context.Context, s *settlement.Settlement, now time.Time) phaseOutcome {
	if s.Population == nil {
		return phaseOutcome{}
	}

	res := e.handlers.Population.Update(ctx, s)
	out := phaseOutcome{changed: true}

	p := s.Population
	base := events.PopulationPayload{
		Current:   p.Current,
		Capacity:  p.Capacity,
		Happiness: p.Happiness,
		Status:    p.Status,
	}

	if res.Growth != 0 {
		payload := base
		payload.Change = res.Growth
		out.events = append(out.events, events.Event{
			Kind:       events.KindPopulationGrowth,
			Settlement: s.Id,
			At:         now,
			Payload:    payload,
		})
	}
	if res.Arrived > 0 {
		payload := base
		payload.Change = res.Arrived
		out.events = append(out.events, events.Event{
			Kind:       events.KindSettlerArrived,
			Settlement: s.Id,
			At:         now,
			Payload:    payload,
		})
	}
	if res.Departed > 0 {
		payload := base
		payload.Change = res.Departed
		out.events = append(out.events, events.Event{
			Kind:       events.KindSettlerDeparted,
			Settlement: s.Id,
			At:         now,
			Payload:    payload,
		})
	}
	for _, w := range res.Warnings {
		payload := base
		payload.Warning = string(w)
		out.events = append(out.events, events.Event{
			Kind:       events.KindPopulationWarning,
			Settlement: s.Id,
			At:         now,
			Payload:    payload,
		})
	}

	return out
}

func (e *Engine) runRepair(ctx context.Context, s *settlement.Settlement, now time.Time) phaseOutcome {
	res := e.handlers.Repair.Repair(ctx, s)
	if !res.Changed {
		return phaseOutcome{}
	}

	out := phaseOutcome{changed: true}
	for _, r := range res.Repaired {
		out.events = append(out.events, events.Event{
			Kind:       events.KindStructureRepaired,
			Settlement: s.Id,
			At:         now,
			Payload: events.StructurePayload{
				Structure: r.Structure,
				Repaired:  r.Restored,
			},
		})
	}

	return out
}

func (e *Engine) runDisasterRoll(ctx context.Context, s *settlement.Settlement, now time.Time) phaseOutcome {
	ev := e.handlers.Disaster.Roll(ctx, s, now)
	if ev == nil {
		return phaseOutcome{}
	}

	return phaseOutcome{
		changed: true,
		events: []events.Event{{
			Kind:       events.KindDisasterWarning,
			Settlement: s.Id,
			At:         now,
			Payload: events.DisasterPayload{
				Disaster: *ev,
				Advisory: e.handlers.Disaster.Advisory(ctx, s, ev),
			},
		}},
	}
}

func (e *Engine) runDisasterAdvance(ctx context.Context, s *settlement.Settlement, now time.Time) phaseOutcome {
	steps := e.handlers.Disaster.Advance(ctx, s, now)
	if len(steps) == 0 {
		return phaseOutcome{}
	}

	out := phaseOutcome{changed: true}
	for _, step := range steps {
		switch step.Kind {
		case disaster.StepImminent:
			out.events = append(out.events, disasterEvent(events.KindDisasterImminent, s.Id, now, step.Event, 0))

		case disaster.StepImpact:
			out.events = append(out.events, disasterEvent(events.KindDisasterImpactStart, s.Id, now, step.Event, 0))

		case disaster.StepDamage:
			out.events = append(out.events, disasterEvent(events.KindDisasterDamageUpdate, s.Id, now, step.Event, step.Damage.Total))
			for _, hit := range step.Damage.Structures {
				out.events = append(out.events, events.Event{
					Kind:       events.KindStructureDamaged,
					Settlement: s.Id,
					At:         now,
					Payload: events.StructurePayload{
						Structure: hit.Structure,
						Damage:    hit.Amount,
						Disaster:  step.Event.Id,
					},
				})
				if hit.Destroyed {
					out.events = append(out.events, events.Event{
						Kind:       events.KindStructureDestroyed,
						Settlement: s.Id,
						At:         now,
						Payload: events.StructurePayload{
							Structure: hit.Structure,
							Disaster:  step.Event.Id,
						},
					})
				}
			}

		case disaster.StepAftermath:
			out.events = append(out.events,
				disasterEvent(events.KindDisasterImpactEnd, s.Id, now, step.Event, 0),
				disasterEvent(events.KindDisasterAftermath, s.Id, now, step.Event, 0))

		case disaster.StepResolved:
			out.events = append(out.events, disasterEvent(events.KindDisasterResolved, s.Id, now, step.Event, 0))
			resolved := step.Event
			out.archives = append(out.archives, &resolved)
		}
	}

	return out
}

func (e *Engine) runConstruction(ctx context.Context, s *settlement.Settlement, now time.Time) phaseOutcome {
	res := e.handlers.Construction.Advance(ctx, s, now)

	out := phaseOutcome{changed: res.Changed}
	for _, inst := range res.Completed {
		out.events = append(out.events, events.Event{
			Kind:       events.KindConstructionComplete,
			Settlement: s.Id,
			At:         now,
			Payload: events.ConstructionPayload{
				Type:        inst.Type,
				CompletesAt: now,
				Structure:   inst,
			},
		})
	}
	for _, en := range res.Started {
		out.events = append(out.events, events.Event{
			Kind:       events.KindConstructionStarted,
			Settlement: s.Id,
			At:         now,
			Payload: events.ConstructionPayload{
				Type:        en.Type,
				Position:    en.Position,
				CompletesAt: en.CompletesAt,
			},
		})
	}
	for _, u := range res.Updates {
		out.events = append(out.events, events.Event{
			Kind:       events.KindConstructionProgress,
			Settlement: s.Id,
			At:         now,
			Payload: events.ConstructionPayload{
				Type:        u.Entry.Type,
				Position:    u.Entry.Position,
				Percent:     int(u.Percent),
				CompletesAt: u.Entry.CompletesAt,
			},
		})
	}
	if res.Changed {
		out.events = append(out.events, events.Event{
			Kind:       events.KindQueueUpdated,
			Settlement: s.Id,
			At:         now,
			Payload: events.ConstructionPayload{
				QueueLength: len(s.Queue),
			},
		})
	}

	return out
}

func disasterEvent(kind events.Kind, settlementId string, at time.Time, ev settlement.DisasterEvent, damage float64) events.Event {
	return events.Event{
		Kind:       kind,
		Settlement: settlementId,
		At:         at,
		Payload: events.DisasterPayload{
			Disaster: ev,
			Damage:   damage,
		},
	}
}
