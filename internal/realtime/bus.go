package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// Handler consumes one realtime event.
type Handler func(ev models.Event)

type subscription struct {
	fn        Handler
	cancelled atomic.Bool
}

// Bus is the in-process fan-out between the transport and its consumers.
// Dispatch is synchronous and delivers to subscribers of one kind in
// subscription order. Events of one kind are delivered in the order Publish
// is called, which the manager guarantees matches wire order.
//
// The subscriber list is snapshotted before each dispatch pass, so a callback
// may subscribe or unsubscribe (itself included) without corrupting the pass.
// A cancelled subscription never fires again, even if the pass that would
// have delivered to it is already underway.
type Bus struct {
	mu   sync.Mutex
	subs map[models.EventKind][]*subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[models.EventKind][]*subscription)}
}

// Subscribe registers fn for events of the given kind and returns a cancel
// function. Cancel is idempotent and safe to call during a dispatch.
func (b *Bus) Subscribe(kind models.EventKind, fn Handler) func() {
	sub := &subscription{fn: fn}

	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], sub)
	b.mu.Unlock()

	return func() {
		if !sub.cancelled.CompareAndSwap(false, true) {
			return
		}
		b.mu.Lock()
		list := b.subs[kind]
		for i, s := range list {
			if s == sub {
				b.subs[kind] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}
}

// Publish delivers ev to every live subscriber of its kind.
func (b *Bus) Publish(ev models.Event) {
	b.mu.Lock()
	snapshot := make([]*subscription, len(b.subs[ev.Kind]))
	copy(snapshot, b.subs[ev.Kind])
	b.mu.Unlock()

	for _, sub := range snapshot {
		if sub.cancelled.Load() {
			continue
		}
		sub.fn(ev)
	}
}

// SubscriberCount reports how many live subscriptions exist for a kind.
func (b *Bus) SubscriberCount(kind models.EventKind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[kind])
}
