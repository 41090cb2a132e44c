package models

import "encoding/json"

// EventKind tags a realtime event delivered over the open connection.
type EventKind string

const (
	EventNewMessage     EventKind = "message:new"
	EventMessageRead    EventKind = "message:read"
	EventMessageAllRead EventKind = "message:read_all"
	EventMessageDeleted EventKind = "message:deleted"
	EventTypingChanged  EventKind = "typing:changed"
)

// Event is the wire envelope for realtime events. The transport delivers
// events at least once; duplicates are possible on reconnect replay and are
// deduplicated downstream by id.
type Event struct {
	Kind    EventKind       `json:"kind"`
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessagePayload accompanies EventNewMessage.
type NewMessagePayload struct {
	Message Message `json:"message"`
}

// MessageReadPayload accompanies EventMessageRead.
type MessageReadPayload struct {
	MessageID string      `json:"messageId"`
	Receipt   ReadReceipt `json:"receipt"`
}

// MessageAllReadPayload accompanies EventMessageAllRead: one user read
// everything in the room up to and including LastMessageID.
type MessageAllReadPayload struct {
	Receipt       ReadReceipt `json:"receipt"`
	LastMessageID string      `json:"lastMessageId,omitempty"`
}

// MessageDeletedPayload accompanies EventMessageDeleted.
type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
}

// TypingChangedPayload accompanies EventTypingChanged.
type TypingChangedPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}
