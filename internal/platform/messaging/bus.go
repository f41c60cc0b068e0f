package messaging

import (
	"context"
	"log/slog"

	"shepherd/contexts/giving/campaign-service/ports"
)

// Bus is the event bus adapter used by the outbox relay. This service only
// publishes; consumption belongs to downstream services. Current
// implementation logs the delivery while runtime wiring is finalized for
// external brokers.
type Bus struct {
	logger *slog.Logger
}

func NewBus(_ []string, logger *slog.Logger) (*Bus, error) {
	return &Bus{logger: logger}, nil
}

func (b *Bus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.logger != nil {
		b.logger.Info("event published",
			"event", "bus_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}
