package feed

import (
	"context"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/cache"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/rest"
)

type postListAPI interface {
	ListFeed(ctx context.Context, page int) (rest.Page[models.Post], error)
}

// Lists resolves the shared post-list collections. Screens go through here
// so two mounted views of the feed (or of one profile grid) share state.
type Lists struct {
	api   postListAPI
	store *cache.Store
}

func NewLists(api postListAPI, store *cache.Store) *Lists {
	return &Lists{api: api, store: store}
}

// Feed returns the home feed collection.
func (l *Lists) Feed() *cache.Collection[models.Post] {
	return l.store.PostList(cache.FeedKey(), func(ctx context.Context, page int) (cache.Page[models.Post], error) {
		resp, err := l.api.ListFeed(ctx, page)
		if err != nil {
			return cache.Page[models.Post]{}, err
		}
		return cache.Page[models.Post]{
			Items:      resp.Items,
			Page:       resp.Page,
			TotalPages: resp.TotalPages,
			HasMore:    resp.HasMore,
		}, nil
	})
}

// Profile returns a user's profile-grid collection, filtered client-side
// from the same backing feed endpoint until a dedicated route ships.
func (l *Lists) Profile(userID string) *cache.Collection[models.Post] {
	return l.store.PostList(cache.ProfileKey(userID), func(ctx context.Context, page int) (cache.Page[models.Post], error) {
		resp, err := l.api.ListFeed(ctx, page)
		if err != nil {
			return cache.Page[models.Post]{}, err
		}
		items := make([]models.Post, 0, len(resp.Items))
		for _, p := range resp.Items {
			if p.AuthorID == userID {
				items = append(items, p)
			}
		}
		return cache.Page[models.Post]{
			Items:      items,
			Page:       resp.Page,
			TotalPages: resp.TotalPages,
			HasMore:    resp.HasMore,
		}, nil
	})
}
