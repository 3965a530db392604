package events

import (
	"context"
	"time"

	"github.com/pixil98/go-settle/internal/settlement"
)

// Kind identifies what happened to a settlement.
type Kind string

const (
	KindResourceTick Kind = "resource-tick"

	KindPopulationGrowth  Kind = "population-growth"
	KindSettlerArrived    Kind = "settler-arrived"
	KindSettlerDeparted   Kind = "settler-departed"
	KindPopulationWarning Kind = "population-warning"

	KindDisasterWarning      Kind = "disaster-warning"
	KindDisasterImminent     Kind = "disaster-imminent"
	KindDisasterImpactStart  Kind = "disaster-impact-start"
	KindDisasterDamageUpdate Kind = "disaster-damage-update"
	KindDisasterImpactEnd    Kind = "disaster-impact-end"
	KindDisasterAftermath    Kind = "disaster-aftermath"
	KindDisasterResolved     Kind = "disaster-resolved"

	KindStructureDamaged   Kind = "structure-damaged"
	KindStructureDestroyed Kind = "structure-destroyed"
	KindStructureRepaired  Kind = "structure-repaired"

	KindConstructionStarted  Kind = "construction-started"
	KindConstructionProgress Kind = "construction-progress"
	KindConstructionComplete Kind = "construction-complete"
	KindQueueUpdated         Kind = "queue-updated"
)

// Event is the JSON envelope published on a settlement's subject. Payload
// shape depends on the kind.
type Event struct {
	Kind       Kind      `json:"kind"`
	Settlement string    `json:"settlement"`
	At         time.Time `json:"at"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher sends settlement events out. Emission is fire and forget:
// callers log failures and move on, never retry or roll back state.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// ResourceTickPayload reports one production phase's ledger movement.
type ResourceTickPayload struct {
	Produced settlement.ResourceDelta `json:"produced,omitempty"`
	Consumed settlement.ResourceDelta `json:"consumed,omitempty"`
	Waste    settlement.ResourceDelta `json:"waste,omitempty"`
	Storage  settlement.Storage       `json:"storage"`
}

// PopulationPayload reports population movement and warnings. Change is the
// settler count the kind refers to: growth for population-growth, arrivals
// for settler-arrived, departures for settler-departed.
type PopulationPayload struct {
	Current   int                         `json:"current"`
	Capacity  int                         `json:"capacity"`
	Happiness int                         `json:"happiness"`
	Status    settlement.PopulationStatus `json:"status"`
	Change    int                         `json:"change,omitempty"`
	Warning   string                      `json:"warning,omitempty"`
}

// DisasterPayload carries the lifecycle snapshot for disaster events.
// Advisory is set on warnings; Damage on damage updates.
type DisasterPayload struct {
	Disaster settlement.DisasterEvent `json:"disaster"`
	Advisory string                   `json:"advisory,omitempty"`
	Damage   float64                  `json:"damage,omitempty"`
}

// StructurePayload reports damage to, destruction of, or repair of a single
// structure.
type StructurePayload struct {
	Structure settlement.StructureInstance `json:"structure"`
	Damage    float64                      `json:"damage,omitempty"`
	Repaired  float64                      `json:"repaired,omitempty"`
	Disaster  string                       `json:"disaster,omitempty"`
}

// ConstructionPayload reports queue movement. Structure is set on
// completion events only.
type ConstructionPayload struct {
	Type        string                        `json:"type"`
	Position    int                           `json:"position"`
	Percent     int                           `json:"percent,omitempty"`
	CompletesAt time.Time                     `json:"completes_at"`
	Structure   *settlement.StructureInstance `json:"structure,omitempty"`
	QueueLength int                           `json:"queue_length,omitempty"`
}
