package models

import "time"

// MessageType classifies the payload of a chat message.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// DeliveryStatus tracks the lifecycle of a locally created message.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryPending DeliveryStatus = "pending"
	DeliveryFailed  DeliveryStatus = "failed"
)

// ReadReceipt marks that a user has read a message.
type ReadReceipt struct {
	UserID string    `json:"userId" msgpack:"userId"`
	ReadAt time.Time `json:"readAt" msgpack:"readAt"`
}

type AttachmentType string

const (
	AttachmentTypeImage AttachmentType = "image"
	AttachmentTypeFile  AttachmentType = "file"
)

type Attachment struct {
	Type     AttachmentType `json:"type" msgpack:"type"`
	Name     string         `json:"name" msgpack:"name"`
	MimeType string         `json:"mimeType" msgpack:"mimeType"`
	FileID   string         `json:"fileId" msgpack:"fileId"`
}

// Message is a chat message as held in the local cache. ID is the
// server-assigned id, or a temporary client id while the message is pending.
type Message struct {
	ID          string         `json:"id" msgpack:"id"`
	RoomID      string         `json:"roomId" msgpack:"roomId"`
	SenderID    string         `json:"senderId" msgpack:"senderId"`
	Content     string         `json:"content" msgpack:"content"`
	ContentHTML string         `json:"contentHtml,omitempty" msgpack:"contentHtml"`
	Type        MessageType    `json:"type" msgpack:"type"`
	Attachment  *Attachment    `json:"attachment,omitempty" msgpack:"attachment"`
	CreatedAt   time.Time      `json:"createdAt" msgpack:"createdAt"`
	Receipts    []ReadReceipt  `json:"receipts,omitempty" msgpack:"receipts"`
	Status      DeliveryStatus `json:"status,omitempty" msgpack:"status"`
	Deleted     bool           `json:"deleted,omitempty" msgpack:"deleted"`
}

// Key implements cache.Keyed.
func (m Message) Key() string { return m.ID }

// HasReceiptFrom reports whether userID already has a read receipt on m.
func (m Message) HasReceiptFrom(userID string) bool {
	for _, r := range m.Receipts {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// Room is a chat room summary as tracked by the client.
type Room struct {
	ID          string `json:"id" msgpack:"id"`
	Name        string `json:"name" msgpack:"name"`
	MemberCount int    `json:"memberCount" msgpack:"memberCount"`
	Unread      int    `json:"unread" msgpack:"unread"`
	IsDM        bool   `json:"isDm,omitempty" msgpack:"isDm"`
}

func (r Room) Key() string { return r.ID }

// User is a member profile as denormalized into local caches.
type User struct {
	ID          string `json:"id" msgpack:"id"`
	UserName    string `json:"userName" msgpack:"userName"`
	DisplayName string `json:"displayName" msgpack:"displayName"`
	AvatarURL   string `json:"avatarUrl" msgpack:"avatarUrl"`
}

func (u User) Key() string { return u.ID }

// Post is a feed post with the denormalized counters the engine keeps
// consistent across feed, profile-grid and single-post caches.
type Post struct {
	ID           string    `json:"id" msgpack:"id"`
	AuthorID     string    `json:"authorId" msgpack:"authorId"`
	Body         string    `json:"body" msgpack:"body"`
	LikeCount    int       `json:"likeCount" msgpack:"likeCount"`
	Liked        bool      `json:"liked" msgpack:"liked"`
	CommentCount int       `json:"commentCount" msgpack:"commentCount"`
	CreatedAt    time.Time `json:"createdAt" msgpack:"createdAt"`
}

func (p Post) Key() string { return p.ID }

// Comment is a post comment. ID may be a temporary client id while pending.
type Comment struct {
	ID        string         `json:"id" msgpack:"id"`
	PostID    string         `json:"postId" msgpack:"postId"`
	AuthorID  string         `json:"authorId" msgpack:"authorId"`
	Body      string         `json:"body" msgpack:"body"`
	CreatedAt time.Time      `json:"createdAt" msgpack:"createdAt"`
	Status    DeliveryStatus `json:"status,omitempty" msgpack:"status"`
}

func (c Comment) Key() string { return c.ID }

// Identity is the opaque payload carried by the realtime handshake.
type Identity struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}
