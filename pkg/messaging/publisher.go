package messaging

import (
	"context"
)

// SalesSubject is the JetStream subject sale lifecycle events are published on.
const SalesSubject = "sales.events"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
