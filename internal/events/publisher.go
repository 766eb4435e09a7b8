package events

import "context"

// Publisher delivers serialized envelopes to a channel. Delivery is
// fire-and-forget; the core never awaits it inside a transaction.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Message is one delivery received by a Subscriber.
type Message struct {
	Channel string
	Payload []byte
}

// Subscriber streams messages published on channels matching pattern
// until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string) (<-chan Message, error)
}
