// Package dao defines a storage-agnostic Data Access Object contract for
// entities keyed by int32 identifiers.
//
// A Store carries the strict operations, which report failures as
// *AccessError. A DAO adds the soft operations (UpdateValue, AddValue,
// DeleteValue) that report failures as false. New builds a DAO from any
// Store, so concrete stores only implement the strict family.
package dao

import (
	"context"
	"io"
	"log/slog"
)

// Mapping pairs an identifier with the entity stored under it.
type Mapping[T any] struct {
	ID    int32 `json:"id"`
	Value T     `json:"value"`
}

// Store defines the strict operations over a set of entities of type T.
// Identifiers are assigned by the store on Add and are unique within it.
type Store[T any] interface {
	// Exists reports whether an entity is stored under id
	Exists(ctx context.Context, id int32) (bool, error)

	// Get retrieves the entity stored under id
	// ok is false if nothing is stored under id
	Get(ctx context.Context, id int32) (value T, ok bool, err error)

	// GetMapping retrieves the entity stored under id together with its identifier
	// ok is false if nothing is stored under id
	GetMapping(ctx context.Context, id int32) (m Mapping[T], ok bool, err error)

	// GetAll retrieves every stored entity, in no particular order
	GetAll(ctx context.Context) ([]T, error)

	// GetMap retrieves every stored entity keyed by its identifier
	GetMap(ctx context.Context) (map[int32]T, error)

	// Update replaces the entity stored under id
	// Returns an error wrapping ErrNotFound if nothing is stored under id
	Update(ctx context.Context, id int32, value T) error

	// Add stores value and returns the identifier assigned to it
	Add(ctx context.Context, value T) (int32, error)

	// AddAll stores every value in values
	AddAll(ctx context.Context, values []T) error

	// Delete removes the entity stored under id
	// Returns an error wrapping ErrNotFound if nothing is stored under id
	Delete(ctx context.Context, id int32) error

	// Close releases any resource held by the store. It is a no-op for
	// stores that hold none.
	io.Closer
}

// DAO is a Store with the soft operations, which never return an error and
// report any failure as false.
type DAO[T any] interface {
	Store[T]

	// UpdateValue is Update reporting failure as false
	UpdateValue(ctx context.Context, id int32, value T) bool

	// AddValue is Add reporting failure as false
	AddValue(ctx context.Context, value T) bool

	// DeleteValue is Delete reporting failure as false
	DeleteValue(ctx context.Context, id int32) bool
}

// Option configures the DAO built by New.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger that receives the errors discarded by the soft
// operations. They are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New wraps store into a DAO. The soft operations delegate to the strict
// ones on store.
func New[T any](store Store[T], opts ...Option) DAO[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if d, ok := store.(*dao[T]); ok {
		store = d.Store
	}
	return &dao[T]{Store: store, logger: o.logger}
}

type dao[T any] struct {
	Store[T]
	logger *slog.Logger
}

func (d *dao[T]) UpdateValue(ctx context.Context, id int32, value T) bool {
	return d.ok(ctx, d.Update(ctx, id, value))
}

func (d *dao[T]) AddValue(ctx context.Context, value T) bool {
	_, err := d.Add(ctx, value)
	return d.ok(ctx, err)
}

func (d *dao[T]) DeleteValue(ctx context.Context, id int32) bool {
	return d.ok(ctx, d.Delete(ctx, id))
}

func (d *dao[T]) ok(ctx context.Context, err error) bool {
	if err != nil {
		d.logger.DebugContext(ctx, "soft operation failed", "error", err)
		return false
	}
	return true
}
