// Package sqlstore implements dao.Store on a relational table. SQLite and
// PostgreSQL are supported; entities are kept as encoded payloads next to
// an auto-incremented identifier.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jbweber/homelab/dao"
	"github.com/jbweber/homelab/dao/internal/codec"
	"github.com/jbweber/homelab/dao/internal/migrations"
	"github.com/jmoiron/sqlx"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidTable is returned by New for table names that are not plain SQL identifiers
var ErrInvalidTable = errors.New("invalid table name")

type record struct {
	ID      int64  `db:"id"`
	Payload []byte `db:"payload"`
}

type queries struct {
	exists string
	get    string
	all    string
	insert string
	update string
	delete string
}

func buildQueries(dialect migrations.Dialect, table string) (queries, error) {
	var format sq.PlaceholderFormat = sq.Question
	if dialect == migrations.Postgres {
		format = sq.Dollar
	}
	sb := sq.StatementBuilder.PlaceholderFormat(format)

	var q queries
	var err error
	build := func(dst *string, b sq.Sqlizer) {
		if err != nil {
			return
		}
		*dst, _, err = b.ToSql()
	}

	build(&q.exists, sb.Select("COUNT(*)").From(table).Where("id = ?"))
	build(&q.get, sb.Select("id", "payload").From(table).Where("id = ?"))
	build(&q.all, sb.Select("id", "payload").From(table).OrderBy("id"))
	build(&q.insert, sb.Insert(table).Columns("payload").Values(sq.Expr("?")).Suffix("RETURNING id"))
	build(&q.update, sb.Update(table).
		Set("payload", sq.Expr("?")).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where("id = ?"))
	build(&q.delete, sb.Delete(table).Where("id = ?"))

	return q, err
}

// Option configures a Store
type Option func(*settings)

type settings struct {
	logger *slog.Logger
	ownsDB bool
	codec  any
}

// WithLogger sets the logger of the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithOwnedDB makes Close also close the database handle
func WithOwnedDB() Option {
	return func(s *settings) {
		s.ownsDB = true
	}
}

// WithCodec sets the codec used for payloads. It must be a codec.Codec of
// the store's entity type; the default is codec.Gob.
func WithCodec[T any](c codec.Codec[T]) Option {
	return func(s *settings) {
		s.codec = c
	}
}

// Store is a dao.Store backed by one SQL table
type Store[T any] struct {
	db      *sqlx.DB
	dialect migrations.Dialect
	table   string
	codec   codec.Codec[T]
	stmts   *PreparedStatementCache
	q       queries
	ownsDB  bool
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ dao.Store[string] = (*Store[string])(nil)

// New creates a store on table, creating or upgrading the table first. The
// dialect follows the driver name db was opened with.
func New[T any](ctx context.Context, db *sqlx.DB, table string, opts ...Option) (*Store[T], error) {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	dialect, err := migrations.DialectOf(db.DriverName())
	if err != nil {
		return nil, err
	}

	c := codec.Gob[T]()
	if s.codec != nil {
		typed, ok := s.codec.(codec.Codec[T])
		if !ok {
			return nil, fmt.Errorf("codec %T does not match the entity type", s.codec)
		}
		c = typed
	}

	migrator := migrations.NewMigrator(db, table)
	migrator.SetLogger(s.logger)
	for _, migration := range migrations.EntityTableMigrations(dialect, table) {
		migrator.AddMigration(migration)
	}
	if err := migrator.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate table %s: %w", table, err)
	}

	q, err := buildQueries(dialect, table)
	if err != nil {
		return nil, fmt.Errorf("failed to build queries: %w", err)
	}

	s.logger.DebugContext(ctx, "opened sql store", "dialect", dialect, "table", table)

	return &Store[T]{
		db:      db,
		dialect: dialect,
		table:   table,
		codec:   c,
		stmts:   NewPreparedStatementCache(db),
		q:       q,
		ownsDB:  s.ownsDB,
		logger:  s.logger,
	}, nil
}

// Exists reports whether a row with id is present
func (s *Store[T]) Exists(ctx context.Context, id int32) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, dao.Wrap("exists", dao.ErrClosed)
	}

	stmt, err := s.stmts.Get(ctx, s.q.exists)
	if err != nil {
		return false, dao.Wrap("exists", fmt.Errorf("failed to prepare query: %w", err))
	}

	var count int
	if err := stmt.GetContext(ctx, &count, id); err != nil {
		s.evict(ctx, s.q.exists)
		return false, dao.Wrap("exists", fmt.Errorf("failed to check entity existence: %w", err))
	}
	return count > 0, nil
}

// Get retrieves the entity with id
func (s *Store[T]) Get(ctx context.Context, id int32) (T, bool, error) {
	m, ok, err := s.getMapping(ctx, "get", id)
	return m.Value, ok, err
}

// GetMapping retrieves the entity with id together with its identifier
func (s *Store[T]) GetMapping(ctx context.Context, id int32) (dao.Mapping[T], bool, error) {
	return s.getMapping(ctx, "get mapping", id)
}

func (s *Store[T]) getMapping(ctx context.Context, op string, id int32) (dao.Mapping[T], bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dao.Mapping[T]{}, false, dao.Wrap(op, dao.ErrClosed)
	}

	stmt, err := s.stmts.Get(ctx, s.q.get)
	if err != nil {
		return dao.Mapping[T]{}, false, dao.Wrap(op, fmt.Errorf("failed to prepare query: %w", err))
	}

	var rec record
	if err := stmt.GetContext(ctx, &rec, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dao.Mapping[T]{}, false, nil
		}
		s.evict(ctx, s.q.get)
		return dao.Mapping[T]{}, false, dao.Wrap(op, fmt.Errorf("failed to find entity %d: %w", id, err))
	}

	value, err := s.codec.Decode(rec.Payload)
	if err != nil {
		return dao.Mapping[T]{}, false, dao.Wrap(op, fmt.Errorf("entity %d: %w", id, err))
	}
	return dao.Mapping[T]{ID: id, Value: value}, true, nil
}

// GetAll retrieves every entity, ordered by identifier
func (s *Store[T]) GetAll(ctx context.Context) ([]T, error) {
	mappings, err := s.list(ctx, "get all")
	if err != nil {
		return nil, err
	}
	values := make([]T, 0, len(mappings))
	for _, m := range mappings {
		values = append(values, m.Value)
	}
	return values, nil
}

// GetMap retrieves every entity keyed by identifier
func (s *Store[T]) GetMap(ctx context.Context) (map[int32]T, error) {
	mappings, err := s.list(ctx, "get map")
	if err != nil {
		return nil, err
	}
	m := make(map[int32]T, len(mappings))
	for _, mapping := range mappings {
		m[mapping.ID] = mapping.Value
	}
	return m, nil
}

func (s *Store[T]) list(ctx context.Context, op string) ([]dao.Mapping[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, dao.Wrap(op, dao.ErrClosed)
	}

	stmt, err := s.stmts.Get(ctx, s.q.all)
	if err != nil {
		return nil, dao.Wrap(op, fmt.Errorf("failed to prepare query: %w", err))
	}

	var recs []record
	if err := stmt.SelectContext(ctx, &recs); err != nil {
		s.evict(ctx, s.q.all)
		return nil, dao.Wrap(op, fmt.Errorf("failed to list entities: %w", err))
	}

	mappings := make([]dao.Mapping[T], 0, len(recs))
	for _, rec := range recs {
		value, err := s.codec.Decode(rec.Payload)
		if err != nil {
			return nil, dao.Wrap(op, fmt.Errorf("entity %d: %w", rec.ID, err))
		}
		mappings = append(mappings, dao.Mapping[T]{ID: int32(rec.ID), Value: value})
	}
	return mappings, nil
}

// Update replaces the payload of the row with id
func (s *Store[T]) Update(ctx context.Context, id int32, value T) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dao.Wrap("update", dao.ErrClosed)
	}

	payload, err := s.codec.Encode(value)
	if err != nil {
		return dao.Wrap("update", err)
	}

	stmt, err := s.stmts.Get(ctx, s.q.update)
	if err != nil {
		return dao.Wrap("update", fmt.Errorf("failed to prepare query: %w", err))
	}

	res, err := stmt.ExecContext(ctx, payload, id)
	if err != nil {
		s.evict(ctx, s.q.update)
		return dao.Wrap("update", fmt.Errorf("failed to update entity %d: %w", id, err))
	}
	return dao.Wrap("update", requireRow(res, id))
}

// Add inserts value and returns the identifier the database assigned
func (s *Store[T]) Add(ctx context.Context, value T) (int32, error) {
	var id int32
	err := s.inTx(ctx, "add", func(tx *sqlx.Tx, insert *sqlx.Stmt) error {
		var err error
		id, err = s.insert(ctx, insert, value)
		return err
	})
	return id, err
}

// AddAll inserts every value in one transaction. Either all values are
// stored or none is.
func (s *Store[T]) AddAll(ctx context.Context, values []T) error {
	return s.inTx(ctx, "add all", func(tx *sqlx.Tx, insert *sqlx.Stmt) error {
		for i, value := range values {
			if _, err := s.insert(ctx, insert, value); err != nil {
				return fmt.Errorf("value %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *Store[T]) insert(ctx context.Context, stmt *sqlx.Stmt, value T) (int32, error) {
	payload, err := s.codec.Encode(value)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := stmt.QueryRowxContext(ctx, payload).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert entity: %w", err)
	}
	if id > math.MaxInt32 {
		return 0, dao.ErrIDOverflow
	}
	return int32(id), nil
}

func (s *Store[T]) inTx(ctx context.Context, op string, fn func(*sqlx.Tx, *sqlx.Stmt) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dao.Wrap(op, dao.ErrClosed)
	}

	stmt, err := s.stmts.Get(ctx, s.q.insert)
	if err != nil {
		return dao.Wrap(op, fmt.Errorf("failed to prepare query: %w", err))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dao.Wrap(op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "failed to roll back transaction", "table", s.table, "error", rollbackErr)
		}
	}()

	if err := fn(tx, tx.StmtxContext(ctx, stmt)); err != nil {
		if !errors.Is(err, dao.ErrInvalidEntity) && !errors.Is(err, dao.ErrIDOverflow) {
			s.evict(ctx, s.q.insert)
		}
		return dao.Wrap(op, err)
	}

	if err := tx.Commit(); err != nil {
		return dao.Wrap(op, fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Delete removes the row with id
func (s *Store[T]) Delete(ctx context.Context, id int32) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dao.Wrap("delete", dao.ErrClosed)
	}

	stmt, err := s.stmts.Get(ctx, s.q.delete)
	if err != nil {
		return dao.Wrap("delete", fmt.Errorf("failed to prepare query: %w", err))
	}

	res, err := stmt.ExecContext(ctx, id)
	if err != nil {
		s.evict(ctx, s.q.delete)
		return dao.Wrap("delete", fmt.Errorf("failed to delete entity %d: %w", id, err))
	}
	return dao.Wrap("delete", requireRow(res, id))
}

// Close releases the prepared statements, and the database handle when the
// store owns it. Closing twice is a no-op.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.logger.Debug("closing sql store", "table", s.table, "statements", s.stmts.Size())
	err := s.stmts.Close()
	if s.ownsDB {
		if dbErr := s.db.Close(); dbErr != nil {
			err = dbErr
		}
	}
	return dao.Wrap("close", err)
}

// evict drops a statement whose execution failed so the next call prepares
// it again against the current schema
func (s *Store[T]) evict(ctx context.Context, query string) {
	if err := s.stmts.Clear(query); err != nil {
		s.logger.DebugContext(ctx, "failed to close evicted statement", "table", s.table, "error", err)
	}
}

func requireRow(res sql.Result, id int32) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entity with ID %d: %w", id, dao.ErrNotFound)
	}
	return nil
}
