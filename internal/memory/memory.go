// Package memory implements dao.Store on a map held in process memory.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/jbweber/homelab/dao"
)

// Store keeps entities in a map guarded by a RWMutex. Identifiers start at 1
// and are never reused after a delete.
type Store[T any] struct {
	mu       sync.RWMutex
	entities map[int32]T
	lastID   int32
	closed   bool
}

var _ dao.Store[string] = (*Store[string])(nil)

// New creates an empty in-memory store
func New[T any]() *Store[T] {
	return &Store[T]{
		entities: make(map[int32]T),
	}
}

// Exists reports whether an entity is stored under id
func (s *Store[T]) Exists(ctx context.Context, id int32) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, dao.Wrap("exists", dao.ErrClosed)
	}
	_, ok := s.entities[id]
	return ok, nil
}

// Get retrieves the entity stored under id
func (s *Store[T]) Get(ctx context.Context, id int32) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	if s.closed {
		return zero, false, dao.Wrap("get", dao.ErrClosed)
	}
	value, ok := s.entities[id]
	return value, ok, nil
}

// GetMapping retrieves the entity stored under id with its identifier
func (s *Store[T]) GetMapping(ctx context.Context, id int32) (dao.Mapping[T], bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return dao.Mapping[T]{}, false, dao.Wrap("get mapping", dao.ErrClosed)
	}
	value, ok := s.entities[id]
	if !ok {
		return dao.Mapping[T]{}, false, nil
	}
	return dao.Mapping[T]{ID: id, Value: value}, true, nil
}

// GetAll retrieves every stored entity
func (s *Store[T]) GetAll(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, dao.Wrap("get all", dao.ErrClosed)
	}
	values := make([]T, 0, len(s.entities))
	for _, v := range s.entities {
		values = append(values, v)
	}
	return values, nil
}

// GetMap retrieves every stored entity keyed by identifier
func (s *Store[T]) GetMap(ctx context.Context) (map[int32]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, dao.Wrap("get map", dao.ErrClosed)
	}
	m := make(map[int32]T, len(s.entities))
	for id, v := range s.entities {
		m[id] = v
	}
	return m, nil
}

// Update replaces the entity stored under id
func (s *Store[T]) Update(ctx context.Context, id int32, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dao.Wrap("update", dao.ErrClosed)
	}
	if _, ok := s.entities[id]; !ok {
		return dao.Wrap("update", fmt.Errorf("entity with ID %d: %w", id, dao.ErrNotFound))
	}
	s.entities[id] = value
	return nil
}

// Add stores value under the next free identifier
func (s *Store[T]) Add(ctx context.Context, value T) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, dao.Wrap("add", dao.ErrClosed)
	}
	if s.lastID == math.MaxInt32 {
		return 0, dao.Wrap("add", dao.ErrIDOverflow)
	}
	s.lastID++
	s.entities[s.lastID] = value
	return s.lastID, nil
}

// AddAll stores every value, or none of them if the identifier space
// cannot hold them all
func (s *Store[T]) AddAll(ctx context.Context, values []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dao.Wrap("add all", dao.ErrClosed)
	}
	if int64(s.lastID)+int64(len(values)) > math.MaxInt32 {
		return dao.Wrap("add all", dao.ErrIDOverflow)
	}
	for _, v := range values {
		s.lastID++
		s.entities[s.lastID] = v
	}
	return nil
}

// Delete removes the entity stored under id
func (s *Store[T]) Delete(ctx context.Context, id int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dao.Wrap("delete", dao.ErrClosed)
	}
	if _, ok := s.entities[id]; !ok {
		return dao.Wrap("delete", fmt.Errorf("entity with ID %d: %w", id, dao.ErrNotFound))
	}
	delete(s.entities, id)
	return nil
}

// Close drops the stored entities. Later operations fail with dao.ErrClosed.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.entities = nil
	return nil
}
