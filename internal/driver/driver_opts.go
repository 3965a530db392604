package driver

import (
	"time"

	"github.com/pixil98/go-settle/internal/messaging"
)

type TickDriverOpt func(*TickDriver)

func WithTickLength(tickLength time.Duration) TickDriverOpt {
	return func(d *TickDriver) {
		d.tickLength = tickLength
	}
}

// WithRunOnce exposes the single-shot trigger over the messaging server.
func WithRunOnce(server *messaging.NatsServer, runner Runner) TickDriverOpt {
	return func(d *TickDriver) {
		d.control = server
		d.runner = runner
	}
}
