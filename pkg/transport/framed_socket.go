package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// FramedSocket implements Transport over a full-duplex websocket
// connection, one JSON-framed Envelope per message. Used where a
// component needs to both push and receive on the same long-lived
// connection (team-chat fan-out, terminal inter-session messaging).
type FramedSocket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialFramedSocket opens a websocket connection to endpoint (a ws:// or
// wss:// URL).
func DialFramedSocket(ctx context.Context, endpoint string) (*FramedSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial framed socket %s: %w", endpoint, err)
	}
	return &FramedSocket{conn: conn}, nil
}

// NewFramedSocket wraps an already-established websocket connection, used
// on the server side of an upgraded HTTP request.
func NewFramedSocket(conn *websocket.Conn) *FramedSocket {
	return &FramedSocket{conn: conn}
}

// Send writes envelope as a JSON text frame and blocks for the next frame
// on the connection as the reply.
func (t *FramedSocket) Send(ctx context.Context, envelope Envelope) (*Envelope, error) {
	t.mu.Lock()
	err := t.conn.WriteJSON(envelope)
	t.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("framed socket write failed: %w", err)
	}

	var reply Envelope
	if err := t.conn.ReadJSON(&reply); err != nil {
		return nil, fmt.Errorf("framed socket read failed: %w", err)
	}
	return &reply, nil
}

// WriteEnvelope writes envelope without waiting for a reply, for
// fire-and-forget fan-out (e.g. team-chat broadcast).
func (t *FramedSocket) WriteEnvelope(envelope Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(envelope)
}

// ReadEnvelope blocks for the next frame, decoding it into an Envelope.
func (t *FramedSocket) ReadEnvelope() (Envelope, error) {
	var envelope Envelope
	err := t.conn.ReadJSON(&envelope)
	return envelope, err
}

// Close closes the underlying websocket connection with a normal closure
// frame.
func (t *FramedSocket) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}
