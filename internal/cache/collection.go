// Package cache holds the mutable shared state of the sync engine: keyed,
// incrementally paginated collections and single-entity boxes. All views that
// look up the same key observe the same instance, so a mutation through one
// view is visible to every other.
package cache

import (
	"context"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// Keyed is anything identified by a stable id.
type Keyed interface {
	Key() string
}

// Page is one fetched page of items.
type Page[T Keyed] struct {
	Items      []T
	Page       int
	TotalPages int
	HasMore    bool
}

// PageFetcher loads one page from the backend.
type PageFetcher[T Keyed] func(ctx context.Context, page int) (Page[T], error)

type loadedPage[T Keyed] struct {
	num   int
	items []T
}

// Collection is an ordered, deduplicated, incrementally growable sequence of
// pages plus a live tail for realtime-inserted items. Flattening it never
// yields two items with the same id.
type Collection[T Keyed] struct {
	mu      sync.Mutex
	fetch   PageFetcher[T]
	pages   []loadedPage[T]
	live    []T
	total   int // 0 while unknown
	hasMore bool
	loaded  bool

	group singleflight.Group
}

func NewCollection[T Keyed](fetch PageFetcher[T]) *Collection[T] {
	return &Collection[T]{fetch: fetch, hasMore: true}
}

// Items returns the flattened view: historical pages in server order followed
// by live-inserted items in append order.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []T
	for _, p := range c.pages {
		out = append(out, p.items...)
	}
	out = append(out, c.live...)
	return out
}

// Len reports the flattened item count.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.live)
	for _, p := range c.pages {
		n += len(p.items)
	}
	return n
}

// HasMore reports whether further historical pages exist.
func (c *Collection[T]) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Get returns the item with the given id, if present on any page.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locate(id)
}

func (c *Collection[T]) locate(id string) (T, bool) {
	for _, p := range c.pages {
		for _, it := range p.items {
			if it.Key() == id {
				return it, true
			}
		}
	}
	for _, it := range c.live {
		if it.Key() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// LoadPage fetches and merges one page. Requesting a page beyond the last
// known total fails with PageFetchError without touching the backend. A
// failed fetch leaves the collection unchanged.
func (c *Collection[T]) LoadPage(ctx context.Context, n int) error {
	c.mu.Lock()
	total := c.total
	c.mu.Unlock()

	if n < 1 || (total > 0 && n > total) {
		return &models.PageFetchError{Page: n, Err: models.ErrNotFound}
	}

	page, err := c.fetch(ctx, n)
	if err != nil {
		return &models.PageFetchError{Page: n, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mergePage(n, page)
	return nil
}

// mergePage installs a fetched page, keeping the flattened view unique by id.
// Items already present in the live tail keep their live position and are
// refreshed in place instead of entering the page.
func (c *Collection[T]) mergePage(n int, page Page[T]) {
	items := make([]T, 0, len(page.Items))
	for _, it := range page.Items {
		if c.refreshLive(it) {
			continue
		}
		if c.onOtherPage(n, it.Key()) {
			continue
		}
		items = append(items, it)
	}

	replaced := false
	for i, p := range c.pages {
		if p.num == n {
			c.pages[i].items = items
			replaced = true
			break
		}
	}
	if !replaced {
		// Pages arrive in ascending order via LoadMore; keep them sorted
		// for out-of-order LoadPage calls too.
		pos := len(c.pages)
		for i, p := range c.pages {
			if p.num > n {
				pos = i
				break
			}
		}
		c.pages = append(c.pages, loadedPage[T]{})
		copy(c.pages[pos+1:], c.pages[pos:])
		c.pages[pos] = loadedPage[T]{num: n, items: items}
	}

	c.loaded = true
	if page.TotalPages > 0 {
		c.total = page.TotalPages
	}
	c.hasMore = page.HasMore || (c.total > 0 && c.highestPage() < c.total)
}

func (c *Collection[T]) refreshLive(it T) bool {
	for i, l := range c.live {
		if l.Key() == it.Key() {
			c.live[i] = it
			return true
		}
	}
	return false
}

func (c *Collection[T]) onOtherPage(n int, id string) bool {
	for _, p := range c.pages {
		if p.num == n {
			continue
		}
		for _, it := range p.items {
			if it.Key() == id {
				return true
			}
		}
	}
	return false
}

func (c *Collection[T]) highestPage() int {
	highest := 0
	for _, p := range c.pages {
		if p.num > highest {
			highest = p.num
		}
	}
	return highest
}

// LoadMore loads the page after the highest currently loaded one. It resolves
// immediately when no further pages exist, and concurrent calls coalesce into
// the same in-flight fetch.
func (c *Collection[T]) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loaded && !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	next := c.highestPage() + 1
	c.mu.Unlock()

	_, err, _ := c.group.Do("loadmore", func() (any, error) {
		return nil, c.LoadPage(ctx, next)
	})
	return err
}

// Revalidate discards all pages and the live tail and reloads from page 1.
// On fetch failure the stale state is kept untouched.
func (c *Collection[T]) Revalidate(ctx context.Context) error {
	page, err := c.fetch(ctx, 1)
	if err != nil {
		return &models.PageFetchError{Page: 1, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = []loadedPage[T]{{num: 1, items: append([]T(nil), page.Items...)}}
	c.live = nil
	c.loaded = true
	c.total = page.TotalPages
	c.hasMore = page.HasMore || (c.total > 0 && c.total > 1)
	return nil
}

// MergeLive inserts or updates one item without a reload: update-in-place
// when the id is already present anywhere, append to the live tail otherwise.
func (c *Collection[T]) MergeLive(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := item.Key()
	for pi, p := range c.pages {
		for i, it := range p.items {
			if it.Key() == id {
				c.pages[pi].items[i] = item
				return
			}
		}
	}
	if c.refreshLive(item) {
		return
	}
	c.live = append(c.live, item)
}

// Replace swaps the item stored under oldID for item, keeping its position.
// Used to promote a pending entry to its confirmed server identity. Returns
// false when oldID is not present.
func (c *Collection[T]) Replace(oldID string, item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for pi, p := range c.pages {
		for i, it := range p.items {
			if it.Key() == oldID {
				c.pages[pi].items[i] = item
				return true
			}
		}
	}
	for i, it := range c.live {
		if it.Key() == oldID {
			c.live[i] = item
			return true
		}
	}
	return false
}

// Update applies fn to the item with the given id, in place. Returns false
// when the id is absent.
func (c *Collection[T]) Update(id string, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for pi, p := range c.pages {
		for i, it := range p.items {
			if it.Key() == id {
				c.pages[pi].items[i] = fn(it)
				return true
			}
		}
	}
	for i, it := range c.live {
		if it.Key() == id {
			c.live[i] = fn(it)
			return true
		}
	}
	return false
}

// Remove deletes the item with the given id. Unknown ids are a silent no-op.
func (c *Collection[T]) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for pi, p := range c.pages {
		for i, it := range p.items {
			if it.Key() == id {
				c.pages[pi].items = append(p.items[:i:i], p.items[i+1:]...)
				return
			}
		}
	}
	for i, it := range c.live {
		if it.Key() == id {
			c.live = append(c.live[:i:i], c.live[i+1:]...)
			return
		}
	}
}

// itemSnapshot is the msgpack envelope for single-item snapshots. Absence is
// part of the snapshot so restoring can delete an item that apply created.
type itemSnapshot[T Keyed] struct {
	Present bool `msgpack:"present"`
	Item    T    `msgpack:"item"`
}

// ItemTarget scopes snapshot/restore to a single id inside the collection,
// so rolling one entity back never clobbers concurrent mutations of other
// entities in the same collection.
type ItemTarget[T Keyed] struct {
	col *Collection[T]
	id  string
}

// Target returns a snapshot/restore handle for one item id.
func (c *Collection[T]) Target(id string) *ItemTarget[T] {
	return &ItemTarget[T]{col: c, id: id}
}

func (t *ItemTarget[T]) Snapshot() ([]byte, error) {
	snap := itemSnapshot[T]{}
	if it, ok := t.col.Get(t.id); ok {
		snap.Present = true
		snap.Item = it
	}
	return msgpack.Marshal(&snap)
}

func (t *ItemTarget[T]) Restore(data []byte) error {
	var snap itemSnapshot[T]
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return err
	}
	if !snap.Present {
		t.col.Remove(t.id)
		return nil
	}
	if !t.col.Replace(t.id, snap.Item) {
		t.col.MergeLive(snap.Item)
	}
	return nil
}
