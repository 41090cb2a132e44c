package cache

import (
	"fmt"

	"github.com/c-pro/geche"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// Key builders for the shared registries. Views that render the same data
// must derive the same key so they share one collection instance.
func MessagesKey(roomID string) string { return "room/" + roomID + "/messages" }
func CommentsKey(postID string) string { return "post/" + postID + "/comments" }
func FeedKey() string                  { return "feed" }
func ProfileKey(userID string) string  { return fmt.Sprintf("profile/%s/posts", userID) }
func PostKey(postID string) string     { return "post/" + postID }
func RoomKey(roomID string) string     { return "room/" + roomID }

// Store is the explicit keyed registry of all mutable client caches. Every
// consumer resolves its cache through the store, which is what guarantees
// that two simultaneously mounted views of one room or post share state.
type Store struct {
	messages *geche.Locker[string, *Collection[models.Message]]
	comments *geche.Locker[string, *Collection[models.Comment]]
	posts    *geche.Locker[string, *Collection[models.Post]]
	post     *geche.Locker[string, *Entity[models.Post]]
	rooms    *geche.Locker[string, *Entity[models.Room]]
}

func NewStore() *Store {
	return &Store{
		messages: geche.NewLocker[string, *Collection[models.Message]](geche.NewMapCache[string, *Collection[models.Message]]()),
		comments: geche.NewLocker[string, *Collection[models.Comment]](geche.NewMapCache[string, *Collection[models.Comment]]()),
		posts:    geche.NewLocker[string, *Collection[models.Post]](geche.NewMapCache[string, *Collection[models.Post]]()),
		post:     geche.NewLocker[string, *Entity[models.Post]](geche.NewMapCache[string, *Entity[models.Post]]()),
		rooms:    geche.NewLocker[string, *Entity[models.Room]](geche.NewMapCache[string, *Entity[models.Room]]()),
	}
}

// Messages returns the room's message collection, creating it with fetch on
// first use. Later callers share the existing instance; their fetcher is
// ignored.
func (s *Store) Messages(roomID string, fetch PageFetcher[models.Message]) *Collection[models.Message] {
	tx := s.messages.Lock()
	defer tx.Unlock()

	key := MessagesKey(roomID)
	if col, err := tx.Get(key); err == nil {
		return col
	}
	col := NewCollection(fetch)
	tx.Set(key, col)
	return col
}

// Comments returns the post's comment collection.
func (s *Store) Comments(postID string, fetch PageFetcher[models.Comment]) *Collection[models.Comment] {
	tx := s.comments.Lock()
	defer tx.Unlock()

	key := CommentsKey(postID)
	if col, err := tx.Get(key); err == nil {
		return col
	}
	col := NewCollection(fetch)
	tx.Set(key, col)
	return col
}

// PostList returns a named post-list collection (feed, profile grid).
func (s *Store) PostList(key string, fetch PageFetcher[models.Post]) *Collection[models.Post] {
	tx := s.posts.Lock()
	defer tx.Unlock()

	if col, err := tx.Get(key); err == nil {
		return col
	}
	col := NewCollection(fetch)
	tx.Set(key, col)
	return col
}

// PostLists returns every already materialized post-list collection that
// currently holds the given post. This is the declared fan-out set for
// denormalized post mutations.
func (s *Store) PostLists(postID string) []*Collection[models.Post] {
	tx := s.posts.Lock()
	defer tx.Unlock()

	var out []*Collection[models.Post]
	for _, col := range tx.Snapshot() {
		if _, ok := col.Get(postID); ok {
			out = append(out, col)
		}
	}
	return out
}

// Post returns the single-post entity box.
func (s *Store) Post(postID string) *Entity[models.Post] {
	tx := s.post.Lock()
	defer tx.Unlock()

	key := PostKey(postID)
	if ent, err := tx.Get(key); err == nil {
		return ent
	}
	ent := NewEntity[models.Post]()
	tx.Set(key, ent)
	return ent
}

// Room returns the room entity box (member count, unread counter).
func (s *Store) Room(roomID string) *Entity[models.Room] {
	tx := s.rooms.Lock()
	defer tx.Unlock()

	key := RoomKey(roomID)
	if ent, err := tx.Get(key); err == nil {
		return ent
	}
	ent := NewEntity[models.Room]()
	tx.Set(key, ent)
	return ent
}
