// Package transport implements the three wire shapes components exchange
// envelopes over: a synchronous request/response call, a server-sent
// event stream, and a framed full-duplex socket. The message shell's
// connection pool is built on these, not on raw net/http.
package transport

import (
	"context"
	"encoding/json"
)

// Envelope is the uniform payload shape carried over any transport: a
// logical message with routing metadata attached by the sender.
type Envelope struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Purpose string          `json:"purpose,omitempty"`
	Body    json.RawMessage `json:"body"`
}

// Transport is implemented by each of the three wire shapes below.
type Transport interface {
	// Send delivers envelope to the endpoint this Transport was built for
	// and returns the reply, if the shape supports one.
	Send(ctx context.Context, envelope Envelope) (*Envelope, error)
	// Close releases any held connection resources.
	Close() error
}
