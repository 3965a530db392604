package schedule

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

// Phase is one recurring processing phase. It is due whenever
// floor(epochSeconds) % Period == Offset, so firing decisions depend only
// on absolute wall-clock time and survive process restarts.
type Phase struct {
	Name   string
	Period int
	Offset int
}

func (p Phase) Validate() error {
	el := errors.NewErrorList()

	if p.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}
	if p.Period <= 0 {
		el.Add(fmt.Errorf("phase %s: period must be positive", p.Name))
	}
	if p.Offset < 0 || (p.Period > 0 && p.Offset >= p.Period) {
		el.Add(fmt.Errorf("phase %s: offset %d out of range [0,%d)", p.Name, p.Offset, p.Period))
	}

	return el.Err()
}

// Scheduler decides which phases are due at a given wall-clock instant. It
// records the last epoch second each phase fired so sub-second invocations
// trigger a phase at most once per qualifying second. Not safe for
// concurrent use; the driver owns it from a single goroutine.
type Scheduler struct {
	phases    []Phase
	lastFired map[string]int64
}

// NewScheduler validates the phase set and rejects any pair of phases that
// could ever be due in the same second.
func NewScheduler(phases []Phase) (*Scheduler, error) {
	el := errors.NewErrorList()

	names := map[string]bool{}
	for _, p := range phases {
		el.Add(p.Validate())

		if names[p.Name] {
			el.Add(fmt.Errorf("duplicate phase name %q", p.Name))
		}
		names[p.Name] = true
	}

	err := el.Err()
	if err != nil {
		return nil, err
	}

	for i := 0; i < len(phases); i++ {
		for j := i + 1; j < len(phases); j++ {
			if collides(phases[i], phases[j]) {
				return nil, fmt.Errorf("phases %q and %q can fire in the same second", phases[i].Name, phases[j].Name)
			}
		}
	}

	return &Scheduler{
		phases:    phases,
		lastFired: map[string]int64{},
	}, nil
}

// Due returns the phases due at now, in the order they were configured.
// A phase already fired for this epoch second is suppressed.
func (s *Scheduler) Due(now time.Time) []Phase {
	sec := now.Unix()

	var due []Phase
	for _, p := range s.phases {
		if sec%int64(p.Period) != int64(p.Offset) {
			continue
		}

		if last, ok := s.lastFired[p.Name]; ok && last == sec {
			continue
		}

		s.lastFired[p.Name] = sec
		due = append(due, p)
	}

	return due
}

// collides reports whether two phases share a due second. The periods
// repeat together every lcm(a,b) seconds, and a shared second exists
// exactly when the offset difference is divisible by gcd(a,b).
func collides(a, b Phase) bool {
	return (a.Offset-b.Offset)%gcd(a.Period, b.Period) == 0
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
