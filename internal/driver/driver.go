package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-settle/internal/messaging"
)

const (
	// DefaultTickLength keeps invocations sub-second so a phase's due
	// second is never skipped; the scheduler dedupes repeats within the
	// same second.
	DefaultTickLength = 500 * time.Millisecond

	// SubjectRunOnce is the request/reply subject of the single-shot
	// trigger.
	SubjectRunOnce = "sim.run-once"
)

// Manager is a unit of work the driver invokes every tick.
type Manager interface {
	Tick(context.Context) error
}

// Runner services the single-shot trigger with one orchestrator pass.
type Runner interface {
	RunOnce(ctx context.Context) string
}

// TickDriver owns the recurring timer that drives tick processing and,
// when wired with a messaging server, the subscription for external
// single-shot triggers.
type TickDriver struct {
	tickLength time.Duration
	managers   []Manager

	control *messaging.NatsServer
	runner  Runner
}

func NewTickDriver(managers []Manager, opts ...TickDriverOpt) *TickDriver {
	d := &TickDriver{
		tickLength: DefaultTickLength,
		managers:   managers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start runs the tick loop until the context is canceled. An in-flight
// tick always finishes before Start returns.
func (d *TickDriver) Start(ctx context.Context) error {
	if d.control != nil && d.runner != nil {
		select {
		case <-ctx.Done():
			return nil
		case <-d.control.Ready():
		}

		unsub, err := d.control.SubscribeReply(SubjectRunOnce, func(data []byte) []byte {
			return []byte(d.runner.RunOnce(ctx))
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", SubjectRunOnce, err)
		}
		defer unsub()

		slog.InfoContext(ctx, "single-shot trigger listening", "subject", SubjectRunOnce)
	}

	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// Tick runs every manager once, in order.
func (d *TickDriver) Tick(ctx context.Context) error {
	for _, m := range d.managers {
		if err := m.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}
