package engine

import "github.com/pixil98/go-settle/internal/clock"

type EngineOpt func(*Engine)

// WithWorkers sets how many settlements one phase processes concurrently.
func WithWorkers(workers int) EngineOpt {
	return func(e *Engine) {
		e.workers = workers
	}
}

// WithClock swaps the time source scheduling decisions are made from.
func WithClock(c clock.Clock) EngineOpt {
	return func(e *Engine) {
		e.clock = c
	}
}
