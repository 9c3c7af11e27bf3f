package messaging

import "context"

// Broker is the message transport used by the outbox processor to fan
// out domain events.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
