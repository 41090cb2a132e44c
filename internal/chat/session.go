// Package chat composes the connection manager, event bus, caches and the
// optimistic mutator into one open chat room: send, receive, read receipts,
// typing and delete.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/cache"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/content"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/optimistic"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/realtime"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/rest"
)

// deletedPlaceholder is what a deleted message shows instead of its content.
const deletedPlaceholder = "This message was deleted"

// roomAPI is the slice of the REST client the session needs.
type roomAPI interface {
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	ListMessages(ctx context.Context, roomID string, page int) (rest.Page[models.Message], error)
	SendMessage(ctx context.Context, roomID string, req rest.SendMessageRequest) (models.Message, error)
	DeleteMessage(ctx context.Context, roomID, messageID string) error
	MarkRead(ctx context.Context, roomID, messageID string) error
	MarkAllRead(ctx context.Context, roomID string) error
}

// typingSender pushes typing signals over the open connection.
type typingSender interface {
	Send(kind models.EventKind, roomID string, payload any) error
}

// SessionState is the lifecycle of one open room.
type SessionState string

const (
	SessionIdle    SessionState = "idle"
	SessionJoining SessionState = "joining"
	SessionJoined  SessionState = "joined"
	SessionLeaving SessionState = "leaving"
)

// Session controls one open chat room for the current user.
type Session struct {
	api     roomAPI
	sender  typingSender
	bus     *realtime.Bus
	store   *cache.Store
	mutator *optimistic.Mutator
	self    models.Identity
	logger  *slog.Logger

	typingTTL time.Duration

	mu       sync.Mutex
	state    SessionState
	roomID   string
	messages *cache.Collection[models.Message]
	room     *cache.Entity[models.Room]
	cancels  []func()

	typing      map[string]bool
	typingTimer *time.Timer
}

type SessionConfig struct {
	API       roomAPI
	Sender    typingSender
	Bus       *realtime.Bus
	Store     *cache.Store
	Mutator   *optimistic.Mutator
	Self      models.Identity
	TypingTTL time.Duration
	Logger    *slog.Logger
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.TypingTTL <= 0 {
		cfg.TypingTTL = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		api:       cfg.API,
		sender:    cfg.Sender,
		bus:       cfg.Bus,
		store:     cfg.Store,
		mutator:   cfg.Mutator,
		self:      cfg.Self,
		logger:    cfg.Logger,
		typingTTL: cfg.TypingTTL,
		state:     SessionIdle,
		typing:    make(map[string]bool),
	}
}

func (s *Session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State returns the current session lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns the room's shared message collection. Nil before Join.
func (s *Session) Messages() *cache.Collection[models.Message] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages
}

// Room returns the room's shared entity box. Nil before Join.
func (s *Session) Room() *cache.Entity[models.Room] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Join opens the room: loads its summary and first message page, subscribes
// the room-scoped event kinds and optimistically zeroes the unread counter.
func (s *Session) Join(ctx context.Context, roomID string) error {
	s.mu.Lock()
	if s.state != SessionIdle {
		s.mu.Unlock()
		return fmt.Errorf("session is %s, not idle", s.state)
	}
	s.state = SessionJoining
	s.roomID = roomID
	s.mu.Unlock()

	room, err := s.api.GetRoom(ctx, roomID)
	if err != nil {
		s.setState(SessionIdle)
		return fmt.Errorf("join room %s: %w", roomID, err)
	}

	roomEnt := s.store.Room(roomID)
	roomEnt.Set(room)

	col := s.store.Messages(roomID, s.messageFetcher(roomID))
	if err := col.LoadMore(ctx); err != nil {
		s.setState(SessionIdle)
		return err
	}

	s.mu.Lock()
	s.room = roomEnt
	s.messages = col
	s.cancels = []func(){
		s.bus.Subscribe(models.EventNewMessage, s.filtered(s.onNewMessage)),
		s.bus.Subscribe(models.EventMessageRead, s.filtered(s.onMessageRead)),
		s.bus.Subscribe(models.EventMessageAllRead, s.filtered(s.onMessageAllRead)),
		s.bus.Subscribe(models.EventMessageDeleted, s.filtered(s.onMessageDeleted)),
		s.bus.Subscribe(models.EventTypingChanged, s.filtered(s.onTypingChanged)),
	}
	s.state = SessionJoined
	s.mu.Unlock()

	s.MarkAllAsRead(ctx)
	return nil
}

// Leave tears the session down. All subscriptions are cancelled before Leave
// returns; in-flight optimistic operations keep resolving against the
// store-keyed caches, which outlive the session.
func (s *Session) Leave() {
	s.mu.Lock()
	if s.state != SessionJoined {
		s.mu.Unlock()
		return
	}
	s.state = SessionLeaving
	cancels := s.cancels
	s.cancels = nil
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	s.mu.Lock()
	s.typing = make(map[string]bool)
	s.state = SessionIdle
	s.mu.Unlock()
}

// filtered wraps a handler so it only sees events for this session's room.
func (s *Session) filtered(fn func(models.Event)) realtime.Handler {
	return func(ev models.Event) {
		s.mu.Lock()
		roomID := s.roomID
		s.mu.Unlock()
		if ev.RoomID != roomID {
			return
		}
		fn(ev)
	}
}

func (s *Session) messageFetcher(roomID string) cache.PageFetcher[models.Message] {
	return func(ctx context.Context, page int) (cache.Page[models.Message], error) {
		resp, err := s.api.ListMessages(ctx, roomID, page)
		if err != nil {
			return cache.Page[models.Message]{}, err
		}
		items := make([]models.Message, len(resp.Items))
		for i, m := range resp.Items {
			items[i] = normalize(m)
		}
		return cache.Page[models.Message]{
			Items:      items,
			Page:       resp.Page,
			TotalPages: resp.TotalPages,
			HasMore:    resp.HasMore,
		}, nil
	}
}

// normalize sanitizes and renders an inbound message body before it enters
// the cache.
func normalize(m models.Message) models.Message {
	m.Content = content.Sanitize(m.Content)
	if html, err := content.RenderMarkdown(m.Content); err == nil {
		m.ContentHTML = html
	} else {
		m.ContentHTML = content.Escape(m.Content)
	}
	if m.Status == "" {
		m.Status = models.DeliverySent
	}
	return m
}

// Send creates a pending message visible immediately and confirms or marks
// it failed once the server answers. The returned message carries the
// temporary client id. The outcome channel yields nil on confirmation or the
// surfaced MutationError after the pending entry was marked failed.
func (s *Session) Send(ctx context.Context, body string, attachment *models.Attachment) (models.Message, <-chan error) {
	s.mu.Lock()
	col := s.messages
	roomID := s.roomID
	s.mu.Unlock()

	out := make(chan error, 1)
	if col == nil {
		out <- fmt.Errorf("session not joined")
		return models.Message{}, out
	}

	pending := normalize(models.Message{
		ID:         "tmp-" + uuid.NewString(),
		RoomID:     roomID,
		SenderID:   s.self.UserID,
		Content:    body,
		Type:       messageType(attachment),
		Attachment: attachment,
		CreatedAt:  time.Now(),
		Status:     models.DeliveryPending,
	})

	op := optimistic.Op{
		Key:     "message/" + pending.ID,
		Targets: []optimistic.Target{col.Target(pending.ID)},
		Apply: func() {
			col.MergeLive(pending)
		},
		Network: func(ctx context.Context) (any, error) {
			return s.api.SendMessage(ctx, roomID, rest.SendMessageRequest{
				Content:    pending.Content,
				Type:       pending.Type,
				Attachment: attachment,
			})
		},
		Confirm: func(result any) {
			confirmed, ok := result.(models.Message)
			if !ok {
				return
			}
			confirmed = normalize(confirmed)
			if _, exists := col.Get(confirmed.ID); exists {
				// The live echo beat the response; drop the pending twin.
				col.Remove(pending.ID)
				return
			}
			col.Replace(pending.ID, confirmed)
		},
	}

	settled := s.mutator.MutateAsync(ctx, op)
	go func() {
		err := <-settled
		if err != nil {
			// Rollback removed the pending entry; keep the message visible
			// as failed so the user can retry or dismiss it.
			failed := pending
			failed.Status = models.DeliveryFailed
			col.MergeLive(failed)
			s.logger.Warn("send failed", "room_id", roomID, "message_id", pending.ID, "error", err)
		}
		out <- err
	}()

	return pending, out
}

// DeleteMessage optimistically swaps the message content for a system
// placeholder and restores it if the server rejects the delete.
func (s *Session) DeleteMessage(ctx context.Context, messageID string) <-chan error {
	s.mu.Lock()
	col := s.messages
	roomID := s.roomID
	s.mu.Unlock()

	out := make(chan error, 1)
	if col == nil {
		out <- fmt.Errorf("session not joined")
		return out
	}

	op := optimistic.Op{
		Key:     "message/" + messageID,
		Targets: []optimistic.Target{col.Target(messageID)},
		Apply: func() {
			col.Update(messageID, func(m models.Message) models.Message {
				m.Deleted = true
				m.Content = deletedPlaceholder
				m.ContentHTML = ""
				m.Type = models.MessageTypeSystem
				m.Attachment = nil
				return m
			})
		},
		Network: func(ctx context.Context) (any, error) {
			return nil, s.api.DeleteMessage(ctx, roomID, messageID)
		},
	}
	return s.mutator.MutateAsync(ctx, op)
}

// MarkAsRead optimistically zeroes the unread counter and records a receipt
// for one message. The server write is fire-and-forget: a failed receipt is
// not user-visible and reopening the room retries it.
func (s *Session) MarkAsRead(ctx context.Context, messageID string) {
	s.zeroUnread()
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()

	go func() {
		if err := s.api.MarkRead(ctx, roomID, messageID); err != nil {
			s.logger.Debug("mark read dropped", "room_id", roomID, "message_id", messageID, "error", err)
		}
	}()
}

// MarkAllAsRead optimistically zeroes the unread counter for the whole room.
// Fire-and-forget like MarkAsRead.
func (s *Session) MarkAllAsRead(ctx context.Context) {
	s.zeroUnread()
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()

	go func() {
		if err := s.api.MarkAllRead(ctx, roomID); err != nil {
			s.logger.Debug("mark all read dropped", "room_id", roomID, "error", err)
		}
	}()
}

func (s *Session) zeroUnread() {
	s.mu.Lock()
	room := s.room
	s.mu.Unlock()
	if room == nil {
		return
	}
	room.Update(func(r models.Room) models.Room {
		r.Unread = 0
		return r
	})
}

// UnreadReaders reports how many other members have not read the message:
// member count minus the sender minus distinct readers excluding self,
// clamped at zero.
func (s *Session) UnreadReaders(m models.Message) int {
	s.mu.Lock()
	room := s.room
	s.mu.Unlock()
	if room == nil {
		return 0
	}
	r, ok := room.Get()
	if !ok {
		return 0
	}

	readers := 0
	for _, receipt := range m.Receipts {
		if receipt.UserID != s.self.UserID {
			readers++
		}
	}
	n := r.MemberCount - 1 - readers
	if n < 0 {
		return 0
	}
	return n
}

func (s *Session) onNewMessage(ev models.Event) {
	var p models.NewMessagePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		s.logger.Warn("bad new-message payload", "error", err)
		return
	}
	s.messages.MergeLive(normalize(p.Message))
}

func (s *Session) onMessageRead(ev models.Event) {
	var p models.MessageReadPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return
	}
	s.messages.Update(p.MessageID, func(m models.Message) models.Message {
		return withReceipt(m, p.Receipt)
	})
}

func (s *Session) onMessageAllRead(ev models.Event) {
	var p models.MessageAllReadPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return
	}
	for _, m := range s.messages.Items() {
		if m.HasReceiptFrom(p.Receipt.UserID) {
			continue
		}
		s.messages.Update(m.ID, func(m models.Message) models.Message {
			return withReceipt(m, p.Receipt)
		})
		if m.ID == p.LastMessageID {
			break
		}
	}
}

// withReceipt appends a receipt unless one from that user is already there.
// A duplicate is a normal no-op, not a failure.
func withReceipt(m models.Message, r models.ReadReceipt) models.Message {
	if m.HasReceiptFrom(r.UserID) {
		return m
	}
	m.Receipts = append(append([]models.ReadReceipt(nil), m.Receipts...), r)
	return m
}

func (s *Session) onMessageDeleted(ev models.Event) {
	var p models.MessageDeletedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return
	}
	s.messages.Update(p.MessageID, func(m models.Message) models.Message {
		m.Deleted = true
		m.Content = deletedPlaceholder
		m.ContentHTML = ""
		m.Type = models.MessageTypeSystem
		m.Attachment = nil
		return m
	})
}

func messageType(attachment *models.Attachment) models.MessageType {
	if attachment == nil {
		return models.MessageTypeText
	}
	if attachment.Type == models.AttachmentTypeImage {
		return models.MessageTypeImage
	}
	return models.MessageTypeFile
}
