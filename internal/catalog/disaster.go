package catalog

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

// DefaultDamageInterval is how often damage lands during an impact when a
// spec doesn't set its own sub-interval.
const DefaultDamageInterval = 10 * time.Minute

// DisasterSpec describes one disaster type: how likely it is, how its
// lifecycle is timed, and how hard it hits.
type DisasterSpec struct {
	Name        string  `json:"name"`
	BaseWeight  float64 `json:"base_weight"`
	DamageScale float64 `json:"damage_scale"`

	MinSeverity int `json:"min_severity"`
	MaxSeverity int `json:"max_severity"`

	// LeadTimeSeconds is warning to impact; ImminentLeadSeconds is how far
	// before impact the imminent notice fires.
	LeadTimeSeconds          int `json:"lead_time_seconds"`
	ImminentLeadSeconds      int `json:"imminent_lead_seconds"`
	ImpactDurationSeconds    int `json:"impact_duration_seconds"`
	DamageIntervalSeconds    int `json:"damage_interval_seconds,omitempty"`
	AftermathDurationSeconds int `json:"aftermath_duration_seconds"`

	// CasualtyRate is the fraction of population lost at full severity.
	// LossFraction is the fraction of stored resources lost at full
	// severity.
	CasualtyRate float64 `json:"casualty_rate"`
	LossFraction float64 `json:"loss_fraction"`

	// Advisory is a template body for the recommended-actions text sent
	// with the warning event.
	Advisory string `json:"advisory,omitempty"`
}

func (d *DisasterSpec) Validate() error {
	el := errors.NewErrorList()

	if d.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}
	if d.BaseWeight < 0 {
		el.Add(fmt.Errorf("base weight must not be negative"))
	}
	if d.DamageScale < 0 {
		el.Add(fmt.Errorf("damage scale must not be negative"))
	}
	if d.MinSeverity < 0 || d.MinSeverity > 100 {
		el.Add(fmt.Errorf("min severity %d out of range [0,100]", d.MinSeverity))
	}
	if d.MaxSeverity < 1 || d.MaxSeverity > 100 {
		el.Add(fmt.Errorf("max severity %d out of range [1,100]", d.MaxSeverity))
	}
	if d.MinSeverity > d.MaxSeverity {
		el.Add(fmt.Errorf("min severity %d exceeds max severity %d", d.MinSeverity, d.MaxSeverity))
	}
	if d.LeadTimeSeconds <= 0 {
		el.Add(fmt.Errorf("lead time must be positive"))
	}
	if d.ImminentLeadSeconds <= 0 || d.ImminentLeadSeconds >= d.LeadTimeSeconds {
		el.Add(fmt.Errorf("imminent lead must be positive and shorter than the lead time"))
	}
	if d.ImpactDurationSeconds <= 0 {
		el.Add(fmt.Errorf("impact duration must be positive"))
	}
	if d.DamageIntervalSeconds < 0 {
		el.Add(fmt.Errorf("damage interval must not be negative"))
	}
	if d.AftermathDurationSeconds < 0 {
		el.Add(fmt.Errorf("aftermath duration must not be negative"))
	}
	if d.CasualtyRate < 0 || d.CasualtyRate > 1 {
		el.Add(fmt.Errorf("casualty rate %v out of range [0,1]", d.CasualtyRate))
	}
	if d.LossFraction < 0 || d.LossFraction > 1 {
		el.Add(fmt.Errorf("loss fraction %v out of range [0,1]", d.LossFraction))
	}

	return el.Err()
}

func (d *DisasterSpec) LeadTime() time.Duration {
	return time.Duration(d.LeadTimeSeconds) * time.Second
}

func (d *DisasterSpec) ImminentLead() time.Duration {
	return time.Duration(d.ImminentLeadSeconds) * time.Second
}

func (d *DisasterSpec) ImpactDuration() time.Duration {
	return time.Duration(d.ImpactDurationSeconds) * time.Second
}

func (d *DisasterSpec) AftermathDuration() time.Duration {
	return time.Duration(d.AftermathDurationSeconds) * time.Second
}

// DamageInterval returns how often damage lands during impact, falling
// back to the default when the spec doesn't set one.
func (d *DisasterSpec) DamageInterval() time.Duration {
	if d.DamageIntervalSeconds == 0 {
		return DefaultDamageInterval
	}
	return time.Duration(d.DamageIntervalSeconds) * time.Second
}
