package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
)

// Pageable is implemented by filters that carry limit/offset pagination
type Pageable interface {
	GetLimit() int
	GetOffset() int
}

// InMemoryStore is a goroutine safe map keyed by id, used as the backing store of the
// in-memory repositories
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{items: make(map[string]T)}
}

func (s *InMemoryStore[T]) Create(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; ok {
		return ierr.NewErrorf("item %s already exists", id).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

func (s *InMemoryStore[T]) Update(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	s.items[id] = item
	return nil
}

// CompareAndSwap replaces the item only if match accepts the stored value
func (s *InMemoryStore[T]) CompareAndSwap(_ context.Context, id string, match func(T) bool, item T) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[id]
	if !ok {
		return false, nil
	}
	if !match(current) {
		return false, nil
	}
	s.items[id] = item
	return true, nil
}

// Upsert creates or replaces the item. next receives the stored value, if any, and returns
// the value to store.
func (s *InMemoryStore[T]) Upsert(_ context.Context, id string, next func(current T, exists bool) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[id]
	item := next(current, ok)
	s.items[id] = item
	return item
}

func (s *InMemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// List returns the items accepted by filterFn ordered by sortFn, paged by filter
func (s *InMemoryStore[T]) List(
	ctx context.Context,
	filter Pageable,
	filterFn func(ctx context.Context, item T, filter interface{}) bool,
	sortFn func(i, j T) bool,
) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item, filter) {
			out = append(out, item)
		}
	}
	if sortFn != nil {
		sort.SliceStable(out, func(i, j int) bool { return sortFn(out[i], out[j]) })
	}

	if filter == nil {
		return out, nil
	}
	offset := filter.GetOffset()
	if offset >= len(out) {
		return []T{}, nil
	}
	end := len(out)
	if limit := filter.GetLimit(); limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (s *InMemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}

var _ Pageable = (*types.QueryFilter)(nil)
