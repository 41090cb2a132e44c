// Package testserver is an in-process Socialspace backend stub: the REST
// routes and the realtime websocket endpoint the sync engine talks to. It
// backs the integration tests and the demo's local mode.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/stubs"
)

const PageSize = 2

type Server struct {
	mu       sync.Mutex
	rooms    map[string]models.Room
	messages map[string][]models.Message
	posts    []models.Post
	comments map[string][]models.Comment
	liked    map[string]bool
	seq      int

	hub      *hub
	upgrader websocket.Upgrader

	// FailSends makes message/comment creation return 500, for tests that
	// exercise the rollback paths.
	FailSends bool
}

func New() *Server {
	s := &Server{
		rooms:    make(map[string]models.Room),
		messages: make(map[string][]models.Message),
		comments: make(map[string][]models.Comment),
		liked:    make(map[string]bool),
		hub:      newHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, r := range stubs.Rooms {
		s.rooms[r.ID] = r
	}
	for _, m := range stubs.Messages {
		s.messages[m.RoomID] = append(s.messages[m.RoomID], m)
	}
	s.posts = append(s.posts, stubs.Posts...)
	for _, c := range stubs.Comments {
		s.comments[c.PostID] = append(s.comments[c.PostID], c)
	}
	return s
}

// Handler returns the full route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/ws", s.handleWS)

	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Get("/", s.handleGetRoom)
		r.Get("/messages", s.handleListMessages)
		r.Post("/messages", s.handleSendMessage)
		r.Delete("/messages/{messageID}", s.handleDeleteMessage)
		r.Post("/messages/{messageID}/read", s.handleMarkRead)
		r.Post("/read", s.handleMarkAllRead)
		r.Post("/typing", s.handleTyping)
	})

	r.Route("/posts/{postID}", func(r chi.Router) {
		r.Post("/like", s.handleToggleLike)
		r.Get("/comments", s.handleListComments)
		r.Post("/comments", s.handleCreateComment)
	})

	r.Get("/feed", s.handleFeed)

	return r
}

// Broadcast pushes an arbitrary event to every connected client. Tests use
// it to simulate server-originated traffic like reconnect replays.
func (s *Server) Broadcast(ev models.Event) {
	s.hub.broadcast(ev)
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	s.mu.Lock()
	room, ok := s.rooms[roomID]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

type pageResponse struct {
	Items      any  `json:"items"`
	Page       int  `json:"page"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

func paginate[T any](items []T, page int) ([]T, pageResponse) {
	total := (len(items) + PageSize - 1) / PageSize
	if total == 0 {
		total = 1
	}
	start := (page - 1) * PageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + PageSize
	if end > len(items) {
		end = len(items)
	}
	slice := items[start:end]
	return slice, pageResponse{
		Items:      slice,
		Page:       page,
		TotalPages: total,
		HasMore:    page < total,
	}
}

func pageParam(r *http.Request) int {
	page := 1
	if _, err := fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page); err != nil || page < 1 {
		page = 1
	}
	return page
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	s.mu.Lock()
	msgs := append([]models.Message(nil), s.messages[roomID]...)
	s.mu.Unlock()

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	_, resp := paginate(msgs, pageParam(r))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	if s.FailSends {
		writeError(w, http.StatusInternalServerError, "send rejected")
		return
	}

	var req struct {
		Content    string             `json:"content"`
		Type       models.MessageType `json:"type"`
		Attachment *models.Attachment `json:"attachment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	s.mu.Lock()
	msg := models.Message{
		ID:         s.nextID("srv"),
		RoomID:     roomID,
		SenderID:   senderID(r),
		Content:    req.Content,
		Type:       req.Type,
		Attachment: req.Attachment,
		CreatedAt:  time.Now(),
	}
	s.messages[roomID] = append(s.messages[roomID], msg)
	s.mu.Unlock()

	// Echo to every connected client, the sender included.
	payload, _ := json.Marshal(models.NewMessagePayload{Message: msg})
	s.hub.broadcast(models.Event{Kind: models.EventNewMessage, RoomID: roomID, Payload: payload})

	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	messageID := chi.URLParam(r, "messageID")

	s.mu.Lock()
	found := false
	msgs := s.messages[roomID]
	for i, m := range msgs {
		if m.ID == messageID {
			msgs[i].Deleted = true
			msgs[i].Content = ""
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}

	payload, _ := json.Marshal(models.MessageDeletedPayload{MessageID: messageID})
	s.hub.broadcast(models.Event{Kind: models.EventMessageDeleted, RoomID: roomID, Payload: payload})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	messageID := chi.URLParam(r, "messageID")

	receipt := models.ReadReceipt{UserID: senderID(r), ReadAt: time.Now()}
	payload, _ := json.Marshal(models.MessageReadPayload{MessageID: messageID, Receipt: receipt})
	s.hub.broadcast(models.Event{Kind: models.EventMessageRead, RoomID: roomID, Payload: payload})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	receipt := models.ReadReceipt{UserID: senderID(r), ReadAt: time.Now()}
	payload, _ := json.Marshal(models.MessageAllReadPayload{Receipt: receipt})
	s.hub.broadcast(models.Event{Kind: models.EventMessageAllRead, RoomID: roomID, Payload: payload})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleTyping(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req struct {
		IsTyping bool `json:"isTyping"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	payload, _ := json.Marshal(models.TypingChangedPayload{UserID: senderID(r), IsTyping: req.IsTyping})
	s.hub.broadcast(models.Event{Kind: models.EventTypingChanged, RoomID: roomID, Payload: payload})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")

	var req struct {
		Liked bool `json:"liked"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.posts {
		if p.ID != postID {
			continue
		}
		if req.Liked != s.liked[postID] {
			if req.Liked {
				s.posts[i].LikeCount++
			} else {
				s.posts[i].LikeCount--
			}
			s.liked[postID] = req.Liked
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"postId":    postID,
			"liked":     s.liked[postID],
			"likeCount": s.posts[i].LikeCount,
		})
		return
	}
	writeError(w, http.StatusNotFound, "post not found")
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")

	s.mu.Lock()
	comments := append([]models.Comment(nil), s.comments[postID]...)
	s.mu.Unlock()

	_, resp := paginate(comments, pageParam(r))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")

	if s.FailSends {
		writeError(w, http.StatusInternalServerError, "comment rejected")
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	s.mu.Lock()
	comment := models.Comment{
		ID:        s.nextID("c"),
		PostID:    postID,
		AuthorID:  senderID(r),
		Body:      req.Body,
		CreatedAt: time.Now(),
	}
	s.comments[postID] = append(s.comments[postID], comment)
	for i, p := range s.posts {
		if p.ID == postID {
			s.posts[i].CommentCount++
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	posts := append([]models.Post(nil), s.posts...)
	s.mu.Unlock()

	_, resp := paginate(posts, pageParam(r))
	writeJSON(w, http.StatusOK, resp)
}

// senderID extracts the acting user from the bearer token. The stub treats
// the token as the raw user id for simplicity.
func senderID(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) {
		return auth[len(prefix):]
	}
	return "u1"
}
