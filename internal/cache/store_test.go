package cache

import (
	"testing"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

func TestStore_SharedInstances(t *testing.T) {
	s := NewStore()

	a := s.Messages("lounge", nil)
	b := s.Messages("lounge", nil)
	if a != b {
		t.Error("two lookups of one room must share the collection")
	}
	if s.Messages("other", nil) == a {
		t.Error("different rooms must not share a collection")
	}

	// A mutation through one handle is visible through the other.
	a.MergeLive(models.Message{ID: "m1", RoomID: "lounge"})
	if _, ok := b.Get("m1"); !ok {
		t.Error("mutation not visible through the second handle")
	}

	if s.Post("p1") != s.Post("p1") {
		t.Error("post entity must be shared")
	}
	if s.Room("lounge") != s.Room("lounge") {
		t.Error("room entity must be shared")
	}
}

func TestStore_PostListsFanOut(t *testing.T) {
	s := NewStore()

	feed := s.PostList(FeedKey(), nil)
	profile := s.PostList(ProfileKey("u2"), nil)
	other := s.PostList(ProfileKey("u3"), nil)

	post := models.Post{ID: "p1", AuthorID: "u2"}
	feed.MergeLive(post)
	profile.MergeLive(post)
	other.MergeLive(models.Post{ID: "p9", AuthorID: "u3"})

	lists := s.PostLists("p1")
	if len(lists) != 2 {
		t.Fatalf("expected 2 lists holding p1, got %d", len(lists))
	}
	for _, col := range lists {
		if col == other {
			t.Error("fan-out must not include lists without the post")
		}
	}
}

func TestStore_KeyBuilders(t *testing.T) {
	if MessagesKey("r1") == MessagesKey("r2") {
		t.Error("distinct rooms must derive distinct keys")
	}
	if PostKey("p1") == CommentsKey("p1") {
		t.Error("post and comment keys must not collide")
	}
	if FeedKey() == ProfileKey("u1") {
		t.Error("feed and profile keys must not collide")
	}
}
