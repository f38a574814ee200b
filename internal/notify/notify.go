// Package notify delivers change events from repositories to observers.
//
// Delivery is synchronous: Publish returns after every observer registered at the
// time of the call, and still registered when its turn comes, has been called.
package notify

import (
	"slices"
	"sync"

	"fintrack/internal/core"
)

const (
	OpAdded   Op = "added"
	OpUpdated Op = "updated"
	OpRemoved Op = "removed"
)

type (
	Op string

	// Event describes one successful mutation of a family.
	Event struct {
		Family  core.Family
		Op      Op
		IDs     []core.ID
		Version uint64 // collection version after the mutation
	}

	// Observer receives events. It must not mutate the repository that published the
	// event before returning; schedule such work for later instead.
	Observer func(Event)
)

type subscription struct {
	id       uint64
	families []core.Family
	fn       Observer
	active   bool
}

type Notifier struct {
	mu         sync.Mutex
	nextID     uint64
	subs       []*subscription
	delivering int
}

func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers fn for events of the given families, or all families when none
// are given. The returned function deregisters it and is safe to call more than once.
func (n *Notifier) Subscribe(fn Observer, families ...core.Family) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	sub := &subscription{id: n.nextID, families: slices.Clone(families), fn: fn, active: true}
	n.subs = append(n.subs, sub)

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		sub.active = false
		n.subs = slices.DeleteFunc(n.subs, func(s *subscription) bool { return s == sub })
	}
}

// Publish delivers ev to every matching observer, in registration order.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	snapshot := slices.Clone(n.subs)
	n.delivering++
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.delivering--
		n.mu.Unlock()
	}()

	for _, sub := range snapshot {
		if !sub.wants(ev.Family) {
			continue
		}
		// An observer may deregister another one during this delivery.
		n.mu.Lock()
		active := sub.active
		n.mu.Unlock()
		if !active {
			continue
		}
		sub.fn(ev)
	}
}

// Delivering reports whether a Publish call is in progress.
func (n *Notifier) Delivering() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.delivering > 0
}

// Len returns the number of registered observers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func (s *subscription) wants(f core.Family) bool {
	return len(s.families) == 0 || slices.Contains(s.families, f)
}
