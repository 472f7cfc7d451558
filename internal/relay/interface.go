package relay

import (
	"context"
	"encoding/json"
	"errors"
)

// DefaultChannel is the Pub/Sub channel gateways share
const DefaultChannel = "d20duel:events"

// ErrNilSink is returned when Subscribe is called without a sink
var ErrNilSink = errors.New("sink cannot be nil")

// Envelope is an encoded event addressed to connection ids. A gateway
// delivers it to the ids it holds and ignores the rest.
type Envelope struct {
	To   []string        `json:"to"`
	Data json.RawMessage `json:"data"`
}

// Sink receives envelopes from a subscription
type Sink interface {
	Deliver(env *Envelope)
}

// Relay fans envelopes out to every subscribed gateway
type Relay interface {
	// Publish sends env to all current subscribers
	Publish(ctx context.Context, env *Envelope) error

	// Subscribe starts delivering to sink and returns once the subscription
	// is live. Delivery stops when ctx is done or stop is called.
	Subscribe(ctx context.Context, sink Sink) (stop func() error, err error)
}
