// Package metrics records prometheus metrics for dao.Store operations.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jbweber/homelab/dao"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Collector holds the metric vectors shared by every instrumented store
type Collector struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCollector creates the metric vectors and registers them with reg
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dao_operations_total",
				Help: "Store operations by outcome",
			},
			[]string{"store", "op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dao_operation_duration_seconds",
				Help:    "Store operation latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"store", "op"},
		),
	}

	for _, collector := range []prometheus.Collector{c.operations, c.duration} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) observe(store, op string, start time.Time, err error) {
	outcome := OutcomeOK
	switch {
	case errors.Is(err, dao.ErrNotFound):
		outcome = OutcomeNotFound
	case err != nil:
		outcome = OutcomeError
	}
	c.operations.WithLabelValues(store, op, outcome).Inc()
	c.duration.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
}

// Instrument decorates store so that every operation is counted and timed
// under the store label name
func Instrument[T any](c *Collector, name string, store dao.Store[T]) dao.Store[T] {
	return &instrumented[T]{next: store, c: c, name: name}
}

type instrumented[T any] struct {
	next dao.Store[T]
	c    *Collector
	name string
}

func (s *instrumented[T]) Exists(ctx context.Context, id int32) (bool, error) {
	start := time.Now()
	ok, err := s.next.Exists(ctx, id)
	s.c.observe(s.name, "exists", start, err)
	return ok, err
}

func (s *instrumented[T]) Get(ctx context.Context, id int32) (T, bool, error) {
	start := time.Now()
	value, ok, err := s.next.Get(ctx, id)
	s.c.observe(s.name, "get", start, err)
	return value, ok, err
}

func (s *instrumented[T]) GetMapping(ctx context.Context, id int32) (dao.Mapping[T], bool, error) {
	start := time.Now()
	m, ok, err := s.next.GetMapping(ctx, id)
	s.c.observe(s.name, "get_mapping", start, err)
	return m, ok, err
}

func (s *instrumented[T]) GetAll(ctx context.Context) ([]T, error) {
	start := time.Now()
	values, err := s.next.GetAll(ctx)
	s.c.observe(s.name, "get_all", start, err)
	return values, err
}

func (s *instrumented[T]) GetMap(ctx context.Context) (map[int32]T, error) {
	start := time.Now()
	m, err := s.next.GetMap(ctx)
	s.c.observe(s.name, "get_map", start, err)
	return m, err
}

func (s *instrumented[T]) Update(ctx context.Context, id int32, value T) error {
	start := time.Now()
	err := s.next.Update(ctx, id, value)
	s.c.observe(s.name, "update", start, err)
	return err
}

func (s *instrumented[T]) Add(ctx context.Context, value T) (int32, error) {
	start := time.Now()
	id, err := s.next.Add(ctx, value)
	s.c.observe(s.name, "add", start, err)
	return id, err
}

func (s *instrumented[T]) AddAll(ctx context.Context, values []T) error {
	start := time.Now()
	err := s.next.AddAll(ctx, values)
	s.c.observe(s.name, "add_all", start, err)
	return err
}

func (s *instrumented[T]) Delete(ctx context.Context, id int32) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.c.observe(s.name, "delete", start, err)
	return err
}

func (s *instrumented[T]) Close() error {
	start := time.Now()
	err := s.next.Close()
	s.c.observe(s.name, "close", start, err)
	return err
}
