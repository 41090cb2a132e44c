package chat

import (
	"encoding/json"
	"time"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// SendTyping signals the current user's typing state over the open
// connection. Fire-and-forget: a dropped signal self-heals because the
// server expires typing liveness on its own. A typing=true signal schedules
// an automatic typing=false after the TTL unless another keystroke resets it.
func (s *Session) SendTyping(isTyping bool) {
	s.mu.Lock()
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	if s.state != SessionJoined {
		s.mu.Unlock()
		return
	}
	roomID := s.roomID
	if isTyping {
		s.typingTimer = time.AfterFunc(s.typingTTL, func() {
			s.SendTyping(false)
		})
	}
	s.mu.Unlock()
	payload := models.TypingChangedPayload{UserID: s.self.UserID, IsTyping: isTyping}
	if err := s.sender.Send(models.EventTypingChanged, roomID, payload); err != nil {
		s.logger.Debug("typing signal dropped", "room_id", roomID, "error", err)
	}
}

// TypingUsers lists the other members currently typing in the room.
func (s *Session) TypingUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for userID, typing := range s.typing {
		if typing {
			out = append(out, userID)
		}
	}
	return out
}

func (s *Session) onTypingChanged(ev models.Event) {
	var p models.TypingChangedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return
	}
	if p.UserID == s.self.UserID {
		return
	}

	s.mu.Lock()
	if p.IsTyping {
		s.typing[p.UserID] = true
	} else {
		delete(s.typing, p.UserID)
	}
	s.mu.Unlock()
}
