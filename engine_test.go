package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/cache"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/chat"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/feed"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/identity"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/optimistic"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/realtime"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/rest"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/testserver"
)

type engineFixture struct {
	backend *testserver.Server
	manager *realtime.Manager
	session *chat.Session
	bus     *realtime.Bus
	lists   *feed.Lists
}

func startEngine(t *testing.T) *engineFixture {
	t.Helper()

	backend := testserver.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	api := rest.NewClient(srv.URL, "u1")
	bus := realtime.NewBus()
	transport := realtime.NewWSTransport(wsURL)
	ident := identity.Static{Identity: models.Identity{UserID: "u1", UserName: "alice"}}
	manager := realtime.NewManager(transport, ident, bus, realtime.ManagerConfig{
		BackoffBase: 10 * time.Millisecond,
		BackoffCap:  50 * time.Millisecond,
		MaxAttempts: 5,
		Logger:      logger,
	})

	store := cache.NewStore()
	session := chat.NewSession(chat.SessionConfig{
		API:     api,
		Sender:  transport,
		Bus:     bus,
		Store:   store,
		Mutator: optimistic.NewMutator(logger),
		Self:    models.Identity{UserID: "u1", UserName: "alice"},
		Logger:  logger,
	})

	t.Cleanup(func() {
		session.Leave()
		_ = manager.Disconnect()
	})

	return &engineFixture{
		backend: backend,
		manager: manager,
		session: session,
		bus:     bus,
		lists:   feed.NewLists(api, store),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestEngine_FullSession(t *testing.T) {
	fx := startEngine(t)
	ctx := context.Background()

	require.NoError(t, fx.manager.Connect(ctx))
	require.Equal(t, realtime.StatusConnected, fx.manager.Status())

	require.NoError(t, fx.session.Join(ctx, "lounge"))
	require.Equal(t, chat.SessionJoined, fx.session.State())

	// First page only on join; the rest on demand.
	require.Equal(t, testserver.PageSize, fx.session.Messages().Len())
	require.True(t, fx.session.Messages().HasMore())
	require.NoError(t, fx.session.Messages().LoadMore(ctx))
	require.Equal(t, 3, fx.session.Messages().Len())
	require.False(t, fx.session.Messages().HasMore())

	// Unread was reset optimistically on join.
	room, ok := fx.session.Room().Get()
	require.True(t, ok)
	require.Zero(t, room.Unread)

	// Send settles against the real backend; the websocket echo and the REST
	// confirmation race, but exactly one copy with the server id survives.
	pending, outcome := fx.session.Send(ctx, "hello **world**", nil)
	require.True(t, strings.HasPrefix(pending.ID, "tmp-"))
	require.NoError(t, <-outcome)

	waitFor(t, "confirmed message", func() bool {
		if fx.session.Messages().Len() != 4 {
			return false
		}
		for _, m := range fx.session.Messages().Items() {
			if strings.HasPrefix(m.ID, "tmp-") {
				return false
			}
		}
		return true
	})
	last := fx.session.Messages().Items()[3]
	require.Equal(t, "u1", last.SenderID)
	require.Equal(t, models.DeliverySent, last.Status)
	require.Contains(t, last.ContentHTML, "<strong>world</strong>")
}

func TestEngine_FeedResolvesThroughLists(t *testing.T) {
	fx := startEngine(t)
	ctx := context.Background()

	home := fx.lists.Feed()
	require.Same(t, home, fx.lists.Feed())
	require.NoError(t, home.LoadMore(ctx))
	require.Equal(t, 2, home.Len())

	// Profile grids filter the same backend data by author.
	alice := fx.lists.Profile("u1")
	require.NoError(t, alice.LoadMore(ctx))
	require.Equal(t, 1, alice.Len())
	p, ok := alice.Get("p1")
	require.True(t, ok)
	require.Equal(t, "u1", p.AuthorID)

	stranger := fx.lists.Profile("u3")
	require.NoError(t, stranger.LoadMore(ctx))
	require.Zero(t, stranger.Len())
	require.False(t, stranger.HasMore())
}

func TestEngine_TypingRoundtrip(t *testing.T) {
	fx := startEngine(t)
	ctx := context.Background()

	require.NoError(t, fx.manager.Connect(ctx))
	require.NoError(t, fx.session.Join(ctx, "lounge"))

	payload := mustMarshal(t, models.TypingChangedPayload{UserID: "u2", IsTyping: true})
	waitFor(t, "typing indicator", func() bool {
		fx.backend.Broadcast(models.Event{Kind: models.EventTypingChanged, RoomID: "lounge", Payload: payload})
		users := fx.session.TypingUsers()
		return len(users) == 1 && users[0] == "u2"
	})
}

func TestEngine_ReconnectAfterDrop(t *testing.T) {
	fx := startEngine(t)
	ctx := context.Background()

	require.NoError(t, fx.manager.Connect(ctx))
	require.NoError(t, fx.session.Join(ctx, "lounge"))

	// A dropped link (no close frame) triggers automatic reconnection.
	fx.backend.DropAll()
	waitFor(t, "reconnect", func() bool {
		return fx.manager.Status() == realtime.StatusConnected
	})

	// The re-established connection delivers events again.
	late := models.Message{
		ID: "m-late", RoomID: "lounge", SenderID: "u2",
		Content: "back online", Type: models.MessageTypeText, CreatedAt: time.Now(),
	}
	payload := mustMarshal(t, models.NewMessagePayload{Message: late})
	waitFor(t, "post-reconnect event", func() bool {
		fx.backend.Broadcast(models.Event{Kind: models.EventNewMessage, RoomID: "lounge", Payload: payload})
		_, ok := fx.session.Messages().Get("m-late")
		return ok
	})
}

func TestEngine_GracefulCloseStaysDown(t *testing.T) {
	fx := startEngine(t)
	ctx := context.Background()

	require.NoError(t, fx.manager.Connect(ctx))

	fx.backend.CloseAll()
	waitFor(t, "disconnect", func() bool {
		return fx.manager.Status() == realtime.StatusDisconnected
	})

	// Graceful server close means no auto-reconnect.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, realtime.StatusDisconnected, fx.manager.Status())

	// An explicit Reconnect brings it back.
	require.NoError(t, fx.manager.Reconnect(ctx))
	require.Equal(t, realtime.StatusConnected, fx.manager.Status())
}
