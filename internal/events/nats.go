package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-settle/internal/messaging"
)

// NatsPublisher publishes settlement events to per-settlement NATS subjects.
type NatsPublisher struct {
	server *messaging.NatsServer
}

// NewNatsPublisher wraps a NatsServer for per-settlement event delivery.
func NewNatsPublisher(server *messaging.NatsServer) *NatsPublisher {
	return &NatsPublisher{server: server}
}

func (p *NatsPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", ev.Kind, err)
	}
	return p.server.Publish(fmt.Sprintf("settlement-%s", ev.Settlement), data)
}
