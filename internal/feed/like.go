// Package feed keeps the denormalized post counters (likes, comments)
// consistent across every cache that holds a copy of a post: the home feed,
// profile grids and the single-post view. Each mutation declares its full
// fan-out up front so a rollback restores every copy.
package feed

import (
	"context"
	"log/slog"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/cache"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/optimistic"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/rest"
)

type likeAPI interface {
	ToggleLike(ctx context.Context, postID string, liked bool) (rest.LikeResult, error)
}

// LikeController flips like state optimistically across all post caches.
type LikeController struct {
	api     likeAPI
	store   *cache.Store
	mutator *optimistic.Mutator
	logger  *slog.Logger
}

func NewLikeController(api likeAPI, store *cache.Store, mutator *optimistic.Mutator, logger *slog.Logger) *LikeController {
	if logger == nil {
		logger = slog.Default()
	}
	return &LikeController{api: api, store: store, mutator: mutator, logger: logger}
}

// Toggle flips the post's liked flag and adjusts its like count by one, in
// the single-post box and every list cache currently holding the post. The
// network call settles in the background; the returned channel yields nil on
// confirmation or the MutationError after all copies were rolled back.
//
// Rapid double-toggles on the same post merge: the second apply supersedes
// the first's pending call, so a late failure of the first cannot undo the
// second's intent.
func (l *LikeController) Toggle(ctx context.Context, postID string) <-chan error {
	ent := l.store.Post(postID)
	lists := l.store.PostLists(postID)

	targets := []optimistic.Target{ent.Target()}
	for _, col := range lists {
		targets = append(targets, col.Target(postID))
	}

	flip := func(p models.Post) models.Post {
		if p.Liked {
			p.Liked = false
			p.LikeCount--
		} else {
			p.Liked = true
			p.LikeCount++
		}
		return p
	}

	// The network call reports the intent captured at apply time.
	var wantLiked bool

	op := optimistic.Op{
		Key:     cache.PostKey(postID),
		Targets: targets,
		Apply: func() {
			if p, ok := ent.Get(); ok {
				wantLiked = !p.Liked
			} else if len(lists) > 0 {
				if p, ok := lists[0].Get(postID); ok {
					wantLiked = !p.Liked
				}
			}
			ent.Update(flip)
			for _, col := range lists {
				col.Update(postID, flip)
			}
		},
		Network: func(ctx context.Context) (any, error) {
			return l.api.ToggleLike(ctx, postID, wantLiked)
		},
		Confirm: func(result any) {
			res, ok := result.(rest.LikeResult)
			if !ok {
				return
			}
			// Reconcile the canonical count without refetching.
			reconcile := func(p models.Post) models.Post {
				p.Liked = res.Liked
				p.LikeCount = res.LikeCount
				return p
			}
			ent.Update(reconcile)
			for _, col := range lists {
				col.Update(postID, reconcile)
			}
		},
	}

	return l.mutator.MutateAsync(ctx, op)
}
