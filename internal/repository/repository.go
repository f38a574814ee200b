// Package repository holds the generic record collection every family is stored in.
//
// A Repository keeps its records in memory, rewrites the whole family blob through
// its codec after each mutation, and publishes one change event per mutation.
// Collections are copy-on-write: a mutation builds and encodes the next slice before
// swapping it in, so iterators handed out earlier keep walking a consistent snapshot.
package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"fintrack/internal/codec"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/storage"
)

type (
	// Option configures a Repository.
	Option[T core.Record[T]] func(*Repository[T])

	// RemoveHook runs before a record is removed. A non-nil error aborts the removal.
	RemoveHook[T core.Record[T]] func(ctx context.Context, rec T) error
)

// WithValidator adds a check run after T.Validate on every add and update.
func WithValidator[T core.Record[T]](fn func(T) error) Option[T] {
	return func(r *Repository[T]) { r.validators = append(r.validators, fn) }
}

// WithBeforeRemove adds a hook run before each removal, in registration order.
func WithBeforeRemove[T core.Record[T]](fn RemoveHook[T]) Option[T] {
	return func(r *Repository[T]) { r.beforeRemove = append(r.beforeRemove, fn) }
}

type Repository[T core.Record[T]] struct {
	family   core.Family
	store    storage.Store
	codec    codec.Codec[T]
	notifier *notify.Notifier
	logger   *log.Logger
	events   *log.StructuredLogger

	validators   []func(T) error
	beforeRemove []RemoveHook[T]

	mu      sync.RWMutex
	items   []T // replaced wholesale, never written in place
	index   map[core.ID]int
	version uint64
	dirty   bool
	busy    bool
}

func New[T core.Record[T]](family core.Family, store storage.Store, c codec.Codec[T], n *notify.Notifier, logger *log.Logger, opts ...Option[T]) *Repository[T] {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentRepository).With(log.FieldFamily, family.String())
	r := &Repository[T]{
		family:   family,
		store:    store,
		codec:    c,
		notifier: n,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
		index:    map[core.ID]int{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository[T]) Family() core.Family { return r.family }

// Restore replaces the collection with the decoded blob. It neither persists nor
// notifies. On a decode failure the collection is left empty and the error, wrapping
// core.ErrDecode, is returned so the caller can report it.
func (r *Repository[T]) Restore(blob []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return fmt.Errorf("restore %s: %w", r.family, core.ErrReentrant)
	}

	items, err := r.codec.Decode(blob)
	if err == nil {
		err = checkUnique(items)
	}
	if err != nil {
		r.items, r.index = nil, map[core.ID]int{}
		r.version++
		return fmt.Errorf("restore %s: %w", r.family, err)
	}
	r.items = items
	r.index = indexOf(items)
	r.version++
	r.dirty = false
	return nil
}

// Add inserts rec. The ID must be new to the family.
func (r *Repository[T]) Add(ctx context.Context, rec T) error {
	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	id := rec.RecordID()
	if _, ok := r.lookup(id); ok {
		return fmt.Errorf("add %s %q: %w", r.family, id, core.ErrDuplicateID)
	}
	if err := r.validate(rec); err != nil {
		return fmt.Errorf("add %s %q: %w", r.family, id, err)
	}

	next := append(r.snapshot(), rec.Clone())
	return r.commit(ctx, next, notify.OpAdded, []core.ID{id}, log.OpCreate)
}

// Update applies mutate to a copy of the record and stores the result. Errors from
// mutate are returned unchanged and leave the collection untouched.
func (r *Repository[T]) Update(ctx context.Context, id core.ID, mutate func(*T) error) error {
	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	cur, ok := r.lookup(id)
	if !ok {
		return fmt.Errorf("update %s %q: %w", r.family, id, core.ErrNotFound)
	}
	next, err := r.applyUpdate(cur, mutate)
	if err != nil {
		return err
	}

	items := r.snapshot()
	items[r.position(id)] = next
	return r.commit(ctx, items, notify.OpUpdated, []core.ID{id}, log.OpUpdate)
}

// UpdateWhere applies mutate to every record matching pred as one mutation: one
// write and one event. It returns the number of records changed.
func (r *Repository[T]) UpdateWhere(ctx context.Context, pred func(T) bool, mutate func(*T) error) (int, error) {
	if err := r.begin(); err != nil {
		return 0, err
	}
	defer r.end()

	items := r.snapshot()
	var ids []core.ID
	for i, cur := range items {
		if !pred(cur) {
			continue
		}
		next, err := r.applyUpdate(cur, mutate)
		if err != nil {
			return 0, err
		}
		items[i] = next
		ids = append(ids, cur.RecordID())
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return len(ids), r.commit(ctx, items, notify.OpUpdated, ids, log.OpUpdate)
}

// Remove deletes the record after running the before-remove hooks.
func (r *Repository[T]) Remove(ctx context.Context, id core.ID) error {
	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	cur, ok := r.lookup(id)
	if !ok {
		return fmt.Errorf("remove %s %q: %w", r.family, id, core.ErrNotFound)
	}
	if err := r.runHooks(ctx, cur); err != nil {
		return err
	}

	items := r.snapshot()
	items = slices.Delete(items, r.position(id), r.position(id)+1)
	return r.commit(ctx, items, notify.OpRemoved, []core.ID{id}, log.OpDelete)
}

// RemoveWhere deletes every record matching pred as one mutation and returns how many
// were removed. Hooks run for each record before anything is removed.
func (r *Repository[T]) RemoveWhere(ctx context.Context, pred func(T) bool) (int, error) {
	if err := r.begin(); err != nil {
		return 0, err
	}
	defer r.end()

	var ids []core.ID
	kept := make([]T, 0, r.Len())
	for _, cur := range r.snapshot() {
		if !pred(cur) {
			kept = append(kept, cur)
			continue
		}
		if err := r.runHooks(ctx, cur); err != nil {
			return 0, err
		}
		ids = append(ids, cur.RecordID())
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return len(ids), r.commit(ctx, kept, notify.OpRemoved, ids, log.OpDelete)
}

// CheckUpdateWhere runs mutate and the validators over copies of every record
// matching pred and reports the first failure. Nothing is committed. It fails with
// core.ErrReentrant when the repository could not take a mutation right now.
func (r *Repository[T]) CheckUpdateWhere(pred func(T) bool, mutate func(*T) error) error {
	if err := r.Idle(); err != nil {
		return err
	}
	for _, cur := range r.snapshot() {
		if !pred(cur) {
			continue
		}
		if _, err := r.applyUpdate(cur, mutate); err != nil {
			return err
		}
	}
	return nil
}

// Idle returns core.ErrReentrant while a mutation or its event delivery is running.
func (r *Repository[T]) Idle() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.busy {
		return fmt.Errorf("%s: %w", r.family, core.ErrReentrant)
	}
	return nil
}

// Flush rewrites the current collection to the store. It is how a caller retries
// after a mutation reported core.ErrPersistence.
func (r *Repository[T]) Flush(ctx context.Context) error {
	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	data, err := r.codec.Encode(r.snapshot())
	if err != nil {
		return fmt.Errorf("flush %s: %w", r.family, err)
	}
	return r.persist(ctx, data, log.OpFlush)
}

// Get returns a copy of the record with the given id.
func (r *Repository[T]) Get(id core.ID) (T, bool) {
	rec, ok := r.lookup(id)
	if !ok {
		return rec, false
	}
	return rec.Clone(), true
}

// Has reports whether id exists, without copying the record.
func (r *Repository[T]) Has(id core.ID) bool {
	_, ok := r.lookup(id)
	return ok
}

func (r *Repository[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Version increases on every committed mutation and every Restore.
func (r *Repository[T]) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Dirty reports whether the last write to the store failed.
func (r *Repository[T]) Dirty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dirty
}

// All yields every record in insertion order.
func (r *Repository[T]) All() iter.Seq[T] {
	return r.Query(nil)
}

// List returns copies of every record.
func (r *Repository[T]) List() []T {
	return slices.Collect(r.All())
}

// Query returns a lazy sequence of copies of the records matching pred (all records
// when pred is nil). Each range over it reads the collection as it is at that moment.
func (r *Repository[T]) Query(pred func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		r.mu.RLock()
		items := r.items
		r.mu.RUnlock()
		for _, it := range items {
			c := it.Clone()
			if pred != nil && !pred(c) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// begin marks the repository busy. A mutation that starts while another is running,
// or while this repository's event is being delivered, is rejected.
func (r *Repository[T]) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return fmt.Errorf("%s: %w", r.family, core.ErrReentrant)
	}
	r.busy = true
	return nil
}

func (r *Repository[T]) end() {
	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
}

func (r *Repository[T]) applyUpdate(cur T, mutate func(*T) error) (T, error) {
	id := cur.RecordID()
	next := cur.Clone()
	if err := mutate(&next); err != nil {
		return next, err
	}
	if next.RecordID() != id {
		return next, fmt.Errorf("update %s %q: %w", r.family, id, core.ErrImmutableID)
	}
	if err := r.validate(next); err != nil {
		return next, fmt.Errorf("update %s %q: %w", r.family, id, err)
	}
	return next, nil
}

func (r *Repository[T]) validate(rec T) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	for _, fn := range r.validators {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository[T]) runHooks(ctx context.Context, rec T) error {
	for _, hook := range r.beforeRemove {
		if err := hook(ctx, rec.Clone()); err != nil {
			return fmt.Errorf("remove %s %q: %w", r.family, rec.RecordID(), err)
		}
	}
	return nil
}

// commit encodes next, swaps it in, persists and notifies. Encoding happens first so
// a codec failure leaves the collection untouched. A store failure does not roll back.
func (r *Repository[T]) commit(ctx context.Context, next []T, op notify.Op, ids []core.ID, logOp string) error {
	data, err := r.codec.Encode(next)
	if err != nil {
		return fmt.Errorf("%s %s: %w", logOp, r.family, err)
	}

	r.mu.Lock()
	r.items = next
	r.index = indexOf(next)
	r.version++
	version := r.version
	r.mu.Unlock()

	persistErr := r.persist(ctx, data, logOp)
	r.events.LogMutation(ctx, r.family.String(), logOp, idStrings(ids), version)

	if r.notifier != nil {
		r.notifier.Publish(notify.Event{Family: r.family, Op: op, IDs: ids, Version: version})
	}
	return persistErr
}

func (r *Repository[T]) persist(ctx context.Context, data []byte, logOp string) error {
	err := r.store.Put(ctx, r.family.Key(), data)

	r.mu.Lock()
	r.dirty = err != nil
	r.mu.Unlock()

	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrPersistence) {
		err = fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	r.events.LogError(ctx, "Failed to persist collection", err, log.ErrorTypePersistence, logOp,
		log.NewFields().WithFamily(r.family.String()))
	return fmt.Errorf("write %s: %w", r.family, err)
}

func (r *Repository[T]) lookup(id core.ID) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return r.items[i], true
}

func (r *Repository[T]) position(id core.ID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index[id]
}

// snapshot returns a fresh copy of the item slice, ready to be modified.
func (r *Repository[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

func indexOf[T core.Record[T]](items []T) map[core.ID]int {
	idx := make(map[core.ID]int, len(items))
	for i, it := range items {
		idx[it.RecordID()] = i
	}
	return idx
}

func checkUnique[T core.Record[T]](items []T) error {
	seen := make(map[core.ID]struct{}, len(items))
	for _, it := range items {
		id := it.RecordID()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: duplicate id %q", core.ErrDecode, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func idStrings(ids []core.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
