package testserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// clientEnvelope mirrors the client-to-server frame format.
type clientEnvelope struct {
	Kind     models.EventKind `json:"kind"`
	RoomID   string           `json:"roomId"`
	Identity *models.Identity `json:"identity"`
	Payload  any              `json:"payload"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan models.Event
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]struct{})}
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *hub) broadcast(ev models.Event) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case c.send <- ev:
		default:
			h.remove(c)
		}
	}
}

// CloseAll gracefully closes every live connection, as a server shutdown
// would. Clients must not auto-reconnect after this.
func (s *Server) CloseAll() {
	s.hub.mu.Lock()
	clients := make([]*wsClient, 0, len(s.hub.clients))
	for c := range s.hub.clients {
		clients = append(clients, c)
	}
	s.hub.clients = make(map[*wsClient]struct{})
	s.hub.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		c.close()
	}
}

// DropAll kills every live connection without a close frame, simulating a
// network failure. Clients should reconnect on their own.
func (s *Server) DropAll() {
	s.hub.mu.Lock()
	clients := make([]*wsClient, 0, len(s.hub.clients))
	for c := range s.hub.clients {
		clients = append(clients, c)
	}
	s.hub.clients = make(map[*wsClient]struct{})
	s.hub.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Handshake: the first frame must identify the client.
	var hello clientEnvelope
	if err := conn.ReadJSON(&hello); err != nil || hello.Kind != "hello" || hello.Identity == nil {
		_ = conn.Close()
		return
	}

	// Ack so the client can finish its handshake.
	if err := conn.WriteJSON(models.Event{Kind: "hello:ack"}); err != nil {
		_ = conn.Close()
		return
	}

	client := &wsClient{conn: conn, send: make(chan models.Event, 64)}
	s.hub.add(client)

	go func() {
		for ev := range client.send {
			if err := conn.WriteJSON(ev); err != nil {
				s.hub.remove(client)
				return
			}
		}
	}()

	for {
		var env clientEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			s.hub.remove(client)
			return
		}
		// The only client-originated realtime traffic is the typing signal;
		// rebroadcast it to the room.
		if env.Kind == models.EventTypingChanged {
			payload, err := json.Marshal(env.Payload)
			if err != nil {
				continue
			}
			s.hub.broadcast(models.Event{Kind: env.Kind, RoomID: env.RoomID, Payload: payload})
		}
	}
}
