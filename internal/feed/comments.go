package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/cache"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/content"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/optimistic"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/rest"
)

type commentAPI interface {
	CreateComment(ctx context.Context, postID, body string) (models.Comment, error)
	ListComments(ctx context.Context, postID string, page int) (rest.Page[models.Comment], error)
}

// CommentController creates comments optimistically and keeps the parent
// post's denormalized comment count in step across every cache holding it.
type CommentController struct {
	api     commentAPI
	store   *cache.Store
	mutator *optimistic.Mutator
	self    models.Identity
	logger  *slog.Logger
}

func NewCommentController(api commentAPI, store *cache.Store, mutator *optimistic.Mutator, self models.Identity, logger *slog.Logger) *CommentController {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentController{api: api, store: store, mutator: mutator, self: self, logger: logger}
}

// Comments returns the post's shared comment collection.
func (c *CommentController) Comments(postID string) *cache.Collection[models.Comment] {
	return c.store.Comments(postID, c.fetcher(postID))
}

func (c *CommentController) fetcher(postID string) cache.PageFetcher[models.Comment] {
	return func(ctx context.Context, page int) (cache.Page[models.Comment], error) {
		resp, err := c.api.ListComments(ctx, postID, page)
		if err != nil {
			return cache.Page[models.Comment]{}, err
		}
		return cache.Page[models.Comment]{
			Items:      resp.Items,
			Page:       resp.Page,
			TotalPages: resp.TotalPages,
			HasMore:    resp.HasMore,
		}, nil
	}
}

// Create inserts a pending comment into the post's comment list and bumps
// the comment count on the single-post box and every list cache holding the
// post, all in one declared fan-out. On failure every copy rolls back.
func (c *CommentController) Create(ctx context.Context, postID, body string) (models.Comment, <-chan error) {
	comments := c.Comments(postID)
	ent := c.store.Post(postID)
	lists := c.store.PostLists(postID)

	pending := models.Comment{
		ID:        "tmp-" + uuid.NewString(),
		PostID:    postID,
		AuthorID:  c.self.UserID,
		Body:      content.Sanitize(body),
		CreatedAt: time.Now(),
		Status:    models.DeliveryPending,
	}

	targets := []optimistic.Target{comments.Target(pending.ID), ent.Target()}
	for _, col := range lists {
		targets = append(targets, col.Target(postID))
	}

	bump := func(delta int) func(models.Post) models.Post {
		return func(p models.Post) models.Post {
			p.CommentCount += delta
			return p
		}
	}

	op := optimistic.Op{
		Key:     "comment/" + pending.ID,
		Targets: targets,
		Apply: func() {
			comments.MergeLive(pending)
			ent.Update(bump(1))
			for _, col := range lists {
				col.Update(postID, bump(1))
			}
		},
		Network: func(ctx context.Context) (any, error) {
			return c.api.CreateComment(ctx, postID, pending.Body)
		},
		Confirm: func(result any) {
			confirmed, ok := result.(models.Comment)
			if !ok {
				return
			}
			confirmed.Status = models.DeliverySent
			if _, exists := comments.Get(confirmed.ID); exists {
				comments.Remove(pending.ID)
				return
			}
			comments.Replace(pending.ID, confirmed)
		},
	}

	return pending, c.mutator.MutateAsync(ctx, op)
}
