package messaging

import (
	"context"
)

// Broker publishes and consumes status-change events. The scheduling
// service only emits; delivery to patients/doctors is the consumer's job.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
