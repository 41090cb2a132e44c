package cache

import (
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Entity is a single-record box (one post, one room) shared by every view
// that looks the record up by key.
type Entity[T Keyed] struct {
	mu      sync.Mutex
	value   T
	present bool
}

func NewEntity[T Keyed]() *Entity[T] {
	return &Entity[T]{}
}

func (e *Entity[T]) Get() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, e.present
}

func (e *Entity[T]) Set(v T) {
	e.mu.Lock()
	e.value = v
	e.present = true
	e.mu.Unlock()
}

// Update applies fn when a value is present.
func (e *Entity[T]) Update(fn func(T) T) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.present {
		return false
	}
	e.value = fn(e.value)
	return true
}

func (e *Entity[T]) Clear() {
	e.mu.Lock()
	var zero T
	e.value = zero
	e.present = false
	e.mu.Unlock()
}

// EntityTarget adapts an Entity to the optimistic snapshot protocol.
type EntityTarget[T Keyed] struct {
	ent *Entity[T]
}

func (e *Entity[T]) Target() *EntityTarget[T] {
	return &EntityTarget[T]{ent: e}
}

func (t *EntityTarget[T]) Snapshot() ([]byte, error) {
	snap := itemSnapshot[T]{}
	if v, ok := t.ent.Get(); ok {
		snap.Present = true
		snap.Item = v
	}
	return msgpack.Marshal(&snap)
}

func (t *EntityTarget[T]) Restore(data []byte) error {
	var snap itemSnapshot[T]
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return err
	}
	if !snap.Present {
		t.ent.Clear()
		return nil
	}
	t.ent.Set(snap.Item)
	return nil
}
