// Package rest is the HTTP collaborator the sync engine drives for CRUD
// calls. Every method returns a typed result or an *APIError carrying the
// server's status code and message verbatim.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return nil, &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	return respBody, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	respBody, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// ListMessages fetches one page of a room's message history, oldest first.
func (c *Client) ListMessages(ctx context.Context, roomID string, page int) (Page[models.Message], error) {
	var out Page[models.Message]
	err := c.get(ctx, fmt.Sprintf("/rooms/%s/messages?page=%d", roomID, page), &out)
	return out, err
}

// SendMessageRequest is the body for message creation.
type SendMessageRequest struct {
	Content    string             `json:"content"`
	Type       models.MessageType `json:"type"`
	Attachment *models.Attachment `json:"attachment,omitempty"`
}

// SendMessage creates a message and returns the confirmed server copy.
func (c *Client) SendMessage(ctx context.Context, roomID string, req SendMessageRequest) (models.Message, error) {
	var out models.Message
	err := c.post(ctx, fmt.Sprintf("/rooms/%s/messages", roomID), req, &out)
	return out, err
}

// DeleteMessage removes a message's content server-side.
func (c *Client) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/rooms/%s/messages/%s", roomID, messageID), nil)
	return err
}

// MarkRead records a read receipt for one message. Fire-and-forget from the
// engine's point of view.
func (c *Client) MarkRead(ctx context.Context, roomID, messageID string) error {
	return c.post(ctx, fmt.Sprintf("/rooms/%s/messages/%s/read", roomID, messageID), nil, nil)
}

// MarkAllRead records read receipts for everything in the room.
func (c *Client) MarkAllRead(ctx context.Context, roomID string) error {
	return c.post(ctx, fmt.Sprintf("/rooms/%s/read", roomID), nil, nil)
}

// SendTyping signals the current typing state. Fire-and-forget.
func (c *Client) SendTyping(ctx context.Context, roomID string, isTyping bool) error {
	return c.post(ctx, fmt.Sprintf("/rooms/%s/typing", roomID), map[string]bool{"isTyping": isTyping}, nil)
}

// LikeResult is the authoritative state after a like toggle.
type LikeResult struct {
	PostID    string `json:"postId"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"likeCount"`
}

// ToggleLike flips the like state of a post for the current user.
func (c *Client) ToggleLike(ctx context.Context, postID string, liked bool) (LikeResult, error) {
	var out LikeResult
	err := c.post(ctx, fmt.Sprintf("/posts/%s/like", postID), map[string]bool{"liked": liked}, &out)
	return out, err
}

// CreateComment creates a comment and returns the confirmed server copy.
func (c *Client) CreateComment(ctx context.Context, postID, body string) (models.Comment, error) {
	var out models.Comment
	err := c.post(ctx, fmt.Sprintf("/posts/%s/comments", postID), map[string]string{"body": body}, &out)
	return out, err
}

// ListComments fetches one page of a post's comments.
func (c *Client) ListComments(ctx context.Context, postID string, page int) (Page[models.Comment], error) {
	var out Page[models.Comment]
	err := c.get(ctx, fmt.Sprintf("/posts/%s/comments?page=%d", postID, page), &out)
	return out, err
}

// ListFeed fetches one page of the home feed.
func (c *Client) ListFeed(ctx context.Context, page int) (Page[models.Post], error) {
	var out Page[models.Post]
	err := c.get(ctx, fmt.Sprintf("/feed?page=%d", page), &out)
	return out, err
}

// GetRoom fetches a room summary (member count, unread).
func (c *Client) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	var out models.Room
	err := c.get(ctx, fmt.Sprintf("/rooms/%s", roomID), &out)
	return out, err
}
