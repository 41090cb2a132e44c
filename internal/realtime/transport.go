package realtime

import (
	"context"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// Transport is the raw bidirectional connection the manager drives. The
// engine never touches the wire directly; anything that can dial, push
// envelopes both ways and report drops can back a session.
type Transport interface {
	// Connect dials and performs the handshake with the given identity.
	// It returns once the server acknowledged the connection or ctx expires.
	Connect(ctx context.Context, id models.Identity) error

	// Send pushes one client-originated event. Fire-and-forget at this layer.
	Send(kind models.EventKind, roomID string, payload any) error

	// Close tears the connection down client-side.
	Close() error

	// SetHooks registers the callbacks invoked by the read side. Must be
	// called before Connect.
	SetHooks(hooks Hooks)
}

// Hooks are the transport-to-manager callbacks.
type Hooks struct {
	// OnEvent is called for every inbound event, in wire order.
	OnEvent func(ev models.Event)

	// OnDisconnect is called exactly once per established connection when it
	// drops. graceful means the server deliberately ended the session.
	OnDisconnect func(graceful bool, err error)
}
