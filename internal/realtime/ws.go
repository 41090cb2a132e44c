package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// clientEnvelope is the frame format for client-originated traffic.
type clientEnvelope struct {
	Kind     models.EventKind `json:"kind"`
	RoomID   string           `json:"roomId,omitempty"`
	Identity *models.Identity `json:"identity,omitempty"`
	Payload  any              `json:"payload,omitempty"`
}

const handshakeKind models.EventKind = "hello"

// WSTransport is the websocket-backed Transport.
type WSTransport struct {
	url   string
	hooks Hooks

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSTransport(url string) *WSTransport {
	return &WSTransport{url: url}
}

func (t *WSTransport) SetHooks(hooks Hooks) {
	t.hooks = hooks
}

func (t *WSTransport) Connect(ctx context.Context, id models.Identity) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}

	// Handshake: identify ourselves and wait for the server ack.
	if err := conn.WriteJSON(clientEnvelope{Kind: handshakeKind, Identity: &id}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("handshake write: %w", err)
	}

	ackCh := make(chan error, 1)
	go func() {
		var ack models.Event
		ackCh <- conn.ReadJSON(&ack)
	}()

	select {
	case err := <-ackCh:
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("handshake ack: %w", err)
		}
	case <-ctx.Done():
		_ = conn.Close()
		return fmt.Errorf("handshake: %w", ctx.Err())
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.readPump(conn)
	return nil
}

// readPump reads inbound events until the connection drops, then reports the
// drop with its graceful/non-graceful classification.
func (t *WSTransport) readPump(conn *websocket.Conn) {
	for {
		var ev models.Event
		if err := conn.ReadJSON(&ev); err != nil {
			graceful := websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
			)
			if t.hooks.OnDisconnect != nil {
				t.hooks.OnDisconnect(graceful, err)
			}
			return
		}
		if t.hooks.OnEvent != nil {
			t.hooks.OnEvent(ev)
		}
	}
}

func (t *WSTransport) Send(kind models.EventKind, roomID string, payload any) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("transport not connected")
	}
	return conn.WriteJSON(clientEnvelope{Kind: kind, RoomID: roomID, Payload: payload})
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	// Best effort: tell the server we are leaving before slamming the door.
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	return conn.Close()
}
