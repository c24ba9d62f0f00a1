// Package boltstore implements dao.Store on a bolt database file. Each
// store owns one bucket; identifiers come from the bucket sequence.
package boltstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/jbweber/homelab/dao"
	"github.com/jbweber/homelab/dao/internal/codec"
)

// Option configures a Store
type Option func(*settings)

type settings struct {
	logger  *slog.Logger
	timeout time.Duration
	codec   any
}

// WithLogger sets the logger of the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLockTimeout bounds how long Open waits for the file lock
func WithLockTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithCodec sets the codec used for values. It must be a codec.Codec of the
// store's entity type; the default is codec.Gob.
func WithCodec[T any](c codec.Codec[T]) Option {
	return func(s *settings) {
		s.codec = c
	}
}

// Store is a dao.Store backed by a bolt bucket
type Store[T any] struct {
	db     *bolt.DB
	bucket []byte
	codec  codec.Codec[T]
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ dao.Store[string] = (*Store[string])(nil)

// Open opens or creates the bolt file at path and the bucket inside it
func Open[T any](path, bucket string, opts ...Option) (*Store[T], error) {
	s := settings{logger: slog.Default(), timeout: time.Second}
	for _, opt := range opts {
		opt(&s)
	}

	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	c := codec.Gob[T]()
	if s.codec != nil {
		typed, ok := s.codec.(codec.Codec[T])
		if !ok {
			return nil, fmt.Errorf("codec %T does not match the entity type", s.codec)
		}
		c = typed
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	s.logger.Debug("opened bolt store", "path", path, "bucket", bucket)

	return &Store[T]{
		db:     db,
		bucket: []byte(bucket),
		codec:  c,
		logger: s.logger,
	}, nil
}

func key(id int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

func idOf(k []byte) int32 {
	return int32(binary.BigEndian.Uint32(k))
}

func (s *Store[T]) view(op string, fn func(*bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dao.Wrap(op, dao.ErrClosed)
	}

	return dao.Wrap(op, s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s is missing", s.bucket)
		}
		return fn(b)
	}))
}

func (s *Store[T]) update(op string, fn func(*bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dao.Wrap(op, dao.ErrClosed)
	}

	return dao.Wrap(op, s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s is missing", s.bucket)
		}
		return fn(b)
	}))
}

// Exists reports whether a value is stored under id
func (s *Store[T]) Exists(ctx context.Context, id int32) (bool, error) {
	var found bool
	err := s.view("exists", func(b *bolt.Bucket) error {
		found = b.Get(key(id)) != nil
		return nil
	})
	return found, err
}

// Get retrieves the value stored under id
func (s *Store[T]) Get(ctx context.Context, id int32) (T, bool, error) {
	m, ok, err := s.getMapping("get", id)
	return m.Value, ok, err
}

// GetMapping retrieves the value stored under id with its identifier
func (s *Store[T]) GetMapping(ctx context.Context, id int32) (dao.Mapping[T], bool, error) {
	return s.getMapping("get mapping", id)
}

func (s *Store[T]) getMapping(op string, id int32) (dao.Mapping[T], bool, error) {
	var m dao.Mapping[T]
	var found bool
	err := s.view(op, func(b *bolt.Bucket) error {
		data := b.Get(key(id))
		if data == nil {
			return nil
		}
		value, err := s.codec.Decode(data)
		if err != nil {
			return fmt.Errorf("entity %d: %w", id, err)
		}
		m = dao.Mapping[T]{ID: id, Value: value}
		found = true
		return nil
	})
	if err != nil {
		return dao.Mapping[T]{}, false, err
	}
	return m, found, nil
}

// GetAll retrieves every value, ordered by identifier
func (s *Store[T]) GetAll(ctx context.Context) ([]T, error) {
	var values []T
	err := s.forEach("get all", func(id int32, value T) {
		values = append(values, value)
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// GetMap retrieves every value keyed by identifier
func (s *Store[T]) GetMap(ctx context.Context) (map[int32]T, error) {
	m := make(map[int32]T)
	err := s.forEach("get map", func(id int32, value T) {
		m[id] = value
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store[T]) forEach(op string, fn func(int32, T)) error {
	return s.view(op, func(b *bolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			value, err := s.codec.Decode(v)
			if err != nil {
				return fmt.Errorf("entity %d: %w", idOf(k), err)
			}
			fn(idOf(k), value)
			return nil
		})
	})
}

// Update replaces the value stored under id
func (s *Store[T]) Update(ctx context.Context, id int32, value T) error {
	return s.update("update", func(b *bolt.Bucket) error {
		k := key(id)
		if b.Get(k) == nil {
			return fmt.Errorf("entity with ID %d: %w", id, dao.ErrNotFound)
		}
		data, err := s.codec.Encode(value)
		if err != nil {
			return err
		}
		return b.Put(k, data)
	})
}

// Add stores value under the next bucket sequence number
func (s *Store[T]) Add(ctx context.Context, value T) (int32, error) {
	var id int32
	err := s.update("add", func(b *bolt.Bucket) error {
		var err error
		id, err = s.put(b, value)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AddAll stores every value in one transaction. Either all values are
// stored or none is.
func (s *Store[T]) AddAll(ctx context.Context, values []T) error {
	return s.update("add all", func(b *bolt.Bucket) error {
		for i, value := range values {
			if _, err := s.put(b, value); err != nil {
				return fmt.Errorf("value %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *Store[T]) put(b *bolt.Bucket, value T) (int32, error) {
	data, err := s.codec.Encode(value)
	if err != nil {
		return 0, err
	}
	seq, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	if seq > math.MaxInt32 {
		return 0, dao.ErrIDOverflow
	}
	id := int32(seq)
	return id, b.Put(key(id), data)
}

// Delete removes the value stored under id
func (s *Store[T]) Delete(ctx context.Context, id int32) error {
	return s.update("delete", func(b *bolt.Bucket) error {
		k := key(id)
		if b.Get(k) == nil {
			return fmt.Errorf("entity with ID %d: %w", id, dao.ErrNotFound)
		}
		return b.Delete(k)
	})
}

// Close releases the database file and its lock. Closing twice is a no-op.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return dao.Wrap("close", s.db.Close())
}
