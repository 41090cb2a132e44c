// Command socialspace-sync is a terminal demo of the sync engine: it
// connects to the realtime backend, joins a room and tails its events.
// With -local it spins up the in-process stub backend first.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http/httptest"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/cache"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/chat"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/config"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/feed"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/identity"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/optimistic"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/realtime"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/rest"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/testserver"
)

func run(ctx context.Context) error {
	local := flag.Bool("local", false, "run against an in-process stub backend")
	roomID := flag.String("room", "lounge", "room to join")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var ident identity.Provider
	if *local {
		srv := httptest.NewServer(testserver.New().Handler())
		defer srv.Close()
		cfg.APIBaseURL = srv.URL
		cfg.WSURL = "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		cfg.SessionToken = "u1"
		ident = identity.Static{Identity: models.Identity{UserID: "u1", UserName: "alice", DisplayName: "Alice"}}
		slog.Info("local backend up", "url", srv.URL)
	} else {
		ident = identity.NewTokenProvider(ctx, cfg.SessionSecret, cfg.SessionToken)
	}

	api := rest.NewClient(cfg.APIBaseURL, cfg.SessionToken)
	bus := realtime.NewBus()
	transport := realtime.NewWSTransport(cfg.WSURL)
	manager := realtime.NewManager(transport, ident, bus, realtime.ManagerConfig{
		BackoffBase:      cfg.BackoffBase,
		BackoffCap:       cfg.BackoffCap,
		MaxAttempts:      cfg.MaxAttempts,
		HandshakeTimeout: cfg.HandshakeTimeout,
	})
	manager.OnStatusChange(func(s realtime.Status) {
		slog.Info("connection status", "status", s)
	})

	if err := manager.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = manager.Disconnect() }()

	self, err := ident.Resolve(ctx)
	if err != nil {
		return err
	}

	store := cache.NewStore()
	mutator := optimistic.NewMutator(slog.Default())

	lists := feed.NewLists(api, store)
	home := lists.Feed()
	if err := home.LoadMore(ctx); err != nil {
		slog.Warn("feed unavailable", "error", err)
	}
	for _, p := range home.Items() {
		fmt.Printf("feed %s by %s: %s (%d likes)\n", p.ID, p.AuthorID, p.Body, p.LikeCount)
	}

	session := chat.NewSession(chat.SessionConfig{
		API:       api,
		Sender:    transport,
		Bus:       bus,
		Store:     store,
		Mutator:   mutator,
		Self:      self,
		TypingTTL: cfg.TypingTTL,
	})

	if err := session.Join(ctx, *roomID); err != nil {
		return err
	}
	defer session.Leave()

	for _, m := range session.Messages().Items() {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format(time.Kitchen), m.SenderID, m.Content)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cancel := bus.Subscribe(models.EventNewMessage, func(ev models.Event) {
			if ev.RoomID != *roomID {
				return
			}
			items := session.Messages().Items()
			if len(items) > 0 {
				m := items[len(items)-1]
				fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format(time.Kitchen), m.SenderID, m.Content)
			}
		})
		defer cancel()
		<-gCtx.Done()
		return nil
	})

	if *local {
		// Exercise the send path against the stub backend.
		g.Go(func() error {
			msg, outcome := session.Send(gCtx, "hello from the demo", nil)
			slog.Info("sent", "temp_id", msg.ID)
			select {
			case err := <-outcome:
				if err != nil {
					slog.Warn("send settled with error", "error", err)
				}
			case <-gCtx.Done():
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
