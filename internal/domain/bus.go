package domain

import "context"

// SignalBus is fire-and-forget fanout messaging. Every subscriber of a
// channel receives every message; there is no routing key and no delivery
// guarantee beyond at-most-once.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
