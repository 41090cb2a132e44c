package rest

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/testserver"
)

func newTestClient(t *testing.T) (*Client, *testserver.Server) {
	t.Helper()
	backend := testserver.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "u1"), backend
}

func TestClient_GetRoom(t *testing.T) {
	c, _ := newTestClient(t)

	room, err := c.GetRoom(context.Background(), "lounge")
	require.NoError(t, err)
	require.Equal(t, "lounge", room.ID)
	require.Equal(t, 3, room.MemberCount)

	_, err = c.GetRoom(context.Background(), "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 404, apiErr.Status)
	require.Equal(t, "room not found", apiErr.Message)
}

func TestClient_ListMessagesPaginated(t *testing.T) {
	c, _ := newTestClient(t)

	page1, err := c.ListMessages(context.Background(), "lounge", 1)
	require.NoError(t, err)
	require.Len(t, page1.Items, testserver.PageSize)
	require.Equal(t, 1, page1.Page)
	require.Equal(t, 2, page1.TotalPages)
	require.True(t, page1.HasMore)

	page2, err := c.ListMessages(context.Background(), "lounge", 2)
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	require.False(t, page2.HasMore)

	// Oldest first, no overlap between pages.
	require.Equal(t, "m1", page1.Items[0].ID)
	require.Equal(t, "m2", page1.Items[1].ID)
	require.Equal(t, "m3", page2.Items[0].ID)
}

func TestClient_SendAndDeleteMessage(t *testing.T) {
	c, _ := newTestClient(t)

	msg, err := c.SendMessage(context.Background(), "lounge", SendMessageRequest{
		Content: "hello",
		Type:    models.MessageTypeText,
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	require.Equal(t, "u1", msg.SenderID)
	require.Equal(t, "hello", msg.Content)

	require.NoError(t, c.DeleteMessage(context.Background(), "lounge", msg.ID))

	err = c.DeleteMessage(context.Background(), "lounge", "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 404, apiErr.Status)
}

func TestClient_SendMessageRejected(t *testing.T) {
	c, backend := newTestClient(t)
	backend.FailSends = true

	_, err := c.SendMessage(context.Background(), "lounge", SendMessageRequest{Content: "hello"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 500, apiErr.Status)
}

func TestClient_ToggleLike(t *testing.T) {
	c, _ := newTestClient(t)

	res, err := c.ToggleLike(context.Background(), "p1", true)
	require.NoError(t, err)
	require.True(t, res.Liked)
	require.Equal(t, 3, res.LikeCount)

	// Toggling to the same state is idempotent server-side.
	res, err = c.ToggleLike(context.Background(), "p1", true)
	require.NoError(t, err)
	require.Equal(t, 3, res.LikeCount)

	res, err = c.ToggleLike(context.Background(), "p1", false)
	require.NoError(t, err)
	require.False(t, res.Liked)
	require.Equal(t, 2, res.LikeCount)
}

func TestClient_CommentsAndFeed(t *testing.T) {
	c, _ := newTestClient(t)

	created, err := c.CreateComment(context.Background(), "p1", "good stuff")
	require.NoError(t, err)
	require.Equal(t, "p1", created.PostID)
	require.Equal(t, "u1", created.AuthorID)

	comments, err := c.ListComments(context.Background(), "p1", 1)
	require.NoError(t, err)
	require.Len(t, comments.Items, 2)

	feed, err := c.ListFeed(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	require.Equal(t, 2, feed.Items[0].CommentCount)
}

func TestClient_ReadAndTyping(t *testing.T) {
	c, _ := newTestClient(t)

	require.NoError(t, c.MarkRead(context.Background(), "lounge", "m1"))
	require.NoError(t, c.MarkAllRead(context.Background(), "lounge"))
	require.NoError(t, c.SendTyping(context.Background(), "lounge", true))
}
