// Package optimistic implements the apply-now, confirm-or-rollback protocol
// used for every speculative local edit: message sends, likes, comments,
// deletes and unread resets.
package optimistic

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// Target is one view affected by a mutation. Snapshots are taken before
// apply and must restore the view to exactly that state, byte for byte.
// Targets are entity-scoped (one item in one cache) so restoring them
// commutes with interleaved mutations of unrelated entities.
type Target interface {
	Snapshot() ([]byte, error)
	Restore(snap []byte) error
}

// Op is one optimistic operation over a declared fan-out of target views.
type Op struct {
	// Key identifies the entity being mutated. Operations sharing a key
	// serialize their apply/confirm/rollback; a later apply supersedes an
	// earlier op still waiting on the network.
	Key string

	// Targets is the declared set of views the mutation touches.
	Targets []Target

	// Apply performs the local mutation synchronously. It must express the
	// change as a delta on current state (flip, increment), not an absolute
	// write, so merged same-key operations stay arithmetically consistent.
	Apply func()

	// Network performs the authoritative call.
	Network func(ctx context.Context) (any, error)

	// Confirm optionally reconciles fields the optimistic guess got wrong
	// (server ids, canonical counts). Skipped when the op was superseded.
	Confirm func(result any)
}

type pending struct {
	id    string
	gen   uint64
	snaps [][]byte
}

// settleMark records how a key's current generation last settled. low is the
// lowest generation whose snapshot has been restored since that failure; it
// keeps late rollbacks from reapplying deltas an older snapshot already
// unwound.
type settleMark struct {
	gen    uint64
	failed bool
	low    uint64
}

// staleRollback is the snapshot of a superseded op that failed while the op
// superseding it was still in flight. If that newer op fails too, these are
// unwound beneath its own rollback.
type staleRollback struct {
	gen     uint64
	targets []Target
	snaps   [][]byte
}

// Mutator coordinates optimistic operations. Different keys proceed fully
// independently; same-key operations are serialized and merged by
// generation: once a newer apply lands, an older op's network outcome defers
// to it. A confirmed newer op owns the key's state (its Confirm reconciles
// anything the older op got wrong); when every op in a supersede chain fails,
// the rollbacks chain until the key is back at its last confirmed state.
type Mutator struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	gens    map[string]uint64
	settled map[string]settleMark
	stale   map[string][]staleRollback
	logger  *slog.Logger
}

func NewMutator(logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		locks:   make(map[string]*sync.Mutex),
		gens:    make(map[string]uint64),
		settled: make(map[string]settleMark),
		stale:   make(map[string][]staleRollback),
		logger:  logger,
	}
}

func (m *Mutator) keyLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// MutateAsync applies op synchronously — the optimistic state is visible the
// moment it returns — and settles the network call in the background. The
// returned channel yields the final outcome: nil on confirm, nil when a
// newer same-key op took over the state, *models.MutationError after the
// op's delta was rolled back.
func (m *Mutator) MutateAsync(ctx context.Context, op Op) <-chan error {
	done := make(chan error, 1)

	p, err := m.begin(op)
	if err != nil {
		done <- err
		return done
	}

	go func() {
		done <- m.settle(ctx, op, p)
	}()
	return done
}

// Mutate is MutateAsync for callers that want to wait for the outcome.
func (m *Mutator) Mutate(ctx context.Context, op Op) error {
	return <-m.MutateAsync(ctx, op)
}

// begin snapshots every target, applies the mutation and claims the key's
// next generation, all under the key lock. Nothing is applied if any
// snapshot fails.
func (m *Mutator) begin(op Op) (pending, error) {
	lock := m.keyLock(op.Key)
	lock.Lock()
	defer lock.Unlock()

	p := pending{id: uuid.NewString(), snaps: make([][]byte, len(op.Targets))}
	for i, t := range op.Targets {
		snap, err := t.Snapshot()
		if err != nil {
			return pending{}, err
		}
		p.snaps[i] = snap
	}

	op.Apply()

	m.mu.Lock()
	m.gens[op.Key]++
	p.gen = m.gens[op.Key]
	m.mu.Unlock()

	return p, nil
}

func (m *Mutator) settle(ctx context.Context, op Op, p pending) error {
	result, netErr := op.Network(ctx)

	lock := m.keyLock(op.Key)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	current := m.gens[op.Key]
	m.mu.Unlock()

	if current != p.gen {
		return m.settleSuperseded(op, p, netErr, current)
	}

	if netErr != nil {
		m.restore(op.Key, p.id, op.Targets, p.snaps)
		low := p.gen

		// Superseded ops that failed while we were in flight left their
		// deltas beneath ours; unwind them newest first.
		m.mu.Lock()
		stale := m.stale[op.Key]
		delete(m.stale, op.Key)
		m.mu.Unlock()
		sort.Slice(stale, func(i, j int) bool { return stale[i].gen > stale[j].gen })
		for _, s := range stale {
			m.restore(op.Key, p.id, s.targets, s.snaps)
			if s.gen < low {
				low = s.gen
			}
		}

		m.mu.Lock()
		m.settled[op.Key] = settleMark{gen: p.gen, failed: true, low: low}
		m.mu.Unlock()
		return &models.MutationError{Key: op.Key, Err: netErr}
	}

	m.mu.Lock()
	m.settled[op.Key] = settleMark{gen: p.gen}
	delete(m.stale, op.Key)
	m.mu.Unlock()

	if op.Confirm != nil {
		op.Confirm(result)
	}
	return nil
}

// settleSuperseded resolves an op whose key moved to a newer generation
// while its network call was in flight. A server-accepted outcome defers
// entirely to the newer op (its Confirm reconciles canonical state). A
// failure defers too while the newer op is pending or confirmed; only once
// the newer op has itself rolled back does this op's delta still linger, so
// it is unwound here.
func (m *Mutator) settleSuperseded(op Op, p pending, netErr error, current uint64) error {
	if netErr == nil {
		m.logger.Debug("optimistic op superseded", "key", op.Key, "op", p.id)
		return nil
	}

	m.mu.Lock()
	mark := m.settled[op.Key]
	settledFailed := mark.gen == current && mark.failed
	if !settledFailed && mark.gen != current {
		// The current generation is still in flight; park our snapshot for
		// its failure path.
		m.stale[op.Key] = append(m.stale[op.Key], staleRollback{gen: p.gen, targets: op.Targets, snaps: p.snaps})
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if !settledFailed {
		// The newer op confirmed; the key's state is reconciled and our
		// failed delta is already accounted for.
		m.logger.Debug("optimistic op superseded", "key", op.Key, "op", p.id)
		return nil
	}

	// The op that superseded us rolled back to its own snapshot, which still
	// contains our delta. Restore ours beneath it, unless an even older
	// snapshot was already restored.
	if p.gen < mark.low {
		m.restore(op.Key, p.id, op.Targets, p.snaps)
		m.mu.Lock()
		mark.low = p.gen
		m.settled[op.Key] = mark
		m.mu.Unlock()
	}
	return &models.MutationError{Key: op.Key, Err: netErr}
}

func (m *Mutator) restore(key, opID string, targets []Target, snaps [][]byte) {
	for i := len(targets) - 1; i >= 0; i-- {
		if err := targets[i].Restore(snaps[i]); err != nil {
			m.logger.Error("rollback restore failed", "key", key, "op", opID, "error", err)
		}
	}
}
