package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
)

var (
	// ErrNotFound is returned for an unknown item id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when the transition table forbids a status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Options tells a Tracker how to read and write its items.
type Options[T any, S comparable] struct {
	ID         func(T) int
	Status     func(T) S
	SetStatus  func(*T, S)
	SearchText func(T) string
	// Transitions lists the statuses reachable from each status.
	// A nil table permits every transition.
	Transitions map[S][]S
}

// Filter selects items whose search text contains Search (case-insensitive)
// and whose status equals Status. The zero value of either matches everything.
type Filter[S comparable] struct {
	Search string
	Status S
}

// Tracker is an ordered, concurrency-safe collection of items with a status.
type Tracker[T any, S comparable] struct {
	mu    sync.RWMutex
	items []T
	opts  Options[T, S]
}

// New creates a tracker holding a copy of items in their given order.
func New[T any, S comparable](items []T, opts Options[T, S]) *Tracker[T, S] {
	return &Tracker[T, S]{items: append([]T(nil), items...), opts: opts}
}

// List returns a snapshot of every item.
func (t *Tracker[T, S]) List() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]T{}, t.items...)
}

// Get returns the item with id.
func (t *Tracker[T, S]) Get(id int) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, _, ok := lo.FindIndexOf(t.items, func(it T) bool { return t.opts.ID(it) == id })
	if !ok {
		var zero T
		return zero, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return item, nil
}

// Filter returns the items matching f, in order.
func (t *Tracker[T, S]) Filter(f Filter[S]) []T {
	var zero S
	search := strings.ToLower(f.Search)

	t.mu.RLock()
	defer t.mu.RUnlock()
	return lo.Filter(t.items, func(it T, _ int) bool {
		if f.Status != zero && t.opts.Status(it) != f.Status {
			return false
		}
		if search == "" || t.opts.SearchText == nil {
			return true
		}
		return strings.Contains(strings.ToLower(t.opts.SearchText(it)), search)
	})
}

// CanTransition reports whether the table allows moving from one status to another.
func (t *Tracker[T, S]) CanTransition(from, to S) bool {
	if t.opts.Transitions == nil {
		return true
	}
	return lo.Contains(t.opts.Transitions[from], to)
}

// Transition moves the item with id to status to.
func (t *Tracker[T, S]) Transition(id int, to S) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	idx := t.indexOf(id)
	if idx < 0 {
		return zero, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	from := t.opts.Status(t.items[idx])
	if !t.CanTransition(from, to) {
		return zero, fmt.Errorf("item %d from %v to %v: %w", id, from, to, ErrInvalidTransition)
	}
	t.opts.SetStatus(&t.items[idx], to)
	return t.items[idx], nil
}

// Update applies fn to the item with id. The id cannot be changed.
func (t *Tracker[T, S]) Update(id int, fn func(*T)) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	idx := t.indexOf(id)
	if idx < 0 {
		return zero, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	updated := t.items[idx]
	fn(&updated)
	if t.opts.ID(updated) != id {
		return zero, fmt.Errorf("item %d: id is immutable", id)
	}
	t.items[idx] = updated
	return updated, nil
}

func (t *Tracker[T, S]) indexOf(id int) int {
	_, idx, ok := lo.FindIndexOf(t.items, func(it T) bool { return t.opts.ID(it) == id })
	if !ok {
		return -1
	}
	return idx
}

// parseTab maps a tab label to a status. "all" and "" select every status.
func parseTab[S ~string](tab string, statuses ...S) (S, error) {
	var zero S
	normalized := strings.ToLower(strings.TrimSpace(tab))
	if normalized == "" || normalized == "all" {
		return zero, nil
	}
	for _, s := range statuses {
		if string(s) == normalized {
			return s, nil
		}
	}
	return zero, fmt.Errorf("unknown tab %q", tab)
}
