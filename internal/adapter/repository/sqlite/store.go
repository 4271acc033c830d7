package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/simaogato/jellysave-store/internal/domain"
)

const defaultSlowThreshold = 200 * time.Millisecond

// Store owns the backing file. It hands out one shared read context and any
// number of write contexts, and commits write contexts one at a time.
//
// Conflicts between write contexts resolve per field, last committed write
// wins: an update writes only the columns its context changed, so two
// contexts editing different fields of a row both persist, and the later
// save of the same field overwrites the earlier one.
type Store struct {
	db     *DB
	schema *Registry
	logger *zap.Logger
	now    func() time.Time
	slow   time.Duration

	view     *ReadContext
	commitMu sync.Mutex

	// beforeCommit runs inside the transaction right before COMMIT; tests use it to inject failures
	beforeCommit func(ctx context.Context, tx *sql.Tx) error
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for slow statements and rollbacks
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for minted timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSlowThreshold sets the duration above which statements are logged as warnings
func WithSlowThreshold(d time.Duration) Option {
	return func(s *Store) {
		s.slow = d
	}
}

// OpenStore opens the store file at path, creating it and its schema when
// absent. Opening an existing store never alters its data.
func OpenStore(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, &domain.StoreError{Op: "open", Err: err}
	}

	s := &Store{
		db:     db,
		schema: Schema(),
		logger: zap.NewNop(),
		now:    time.Now,
		slow:   defaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.view = &ReadContext{store: s, q: db}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, &domain.StoreError{Op: "migrate", Err: err}
	}

	s.logger.Info("store opened", zap.String("path", path))
	return s, nil
}

// migrate creates the schema tables that do not exist yet
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.schema.DDL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the backing file
func (s *Store) Close() error {
	return s.db.Close()
}

// Schema returns the entity registry the store was opened with
func (s *Store) Schema() *Registry {
	return s.schema
}

// Now returns the current time in UTC to the second, as stamped on new and updated rows
func (s *Store) Now() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// ReadContext returns the shared read-only view. It always observes the
// latest committed state.
func (s *Store) ReadContext() *ReadContext {
	return s.view
}

// NewWriteContext returns a fresh, isolated mutation scope
func (s *Store) NewWriteContext() *WriteContext {
	return &WriteContext{store: s}
}

// Save commits every pending change of wc as one transaction. The context
// is emptied either way: on failure nothing was applied and a
// *domain.StoreError is returned.
//
// Cancelling ctx does not abort a commit that has started.
func (s *Store) Save(ctx context.Context, wc *WriteContext) error {
	changes := wc.take()
	if len(changes) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	start := time.Now()
	err := s.commit(ctx, changes)
	s.observe("commit", start, zap.Int("changes", len(changes)))
	if errors.Is(err, domain.ErrNotEmpty) {
		s.logger.Debug("save skipped", zap.Error(err))
		return err
	}
	if err != nil {
		s.logger.Warn("save rolled back", zap.Int("changes", len(changes)), zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) commit(ctx context.Context, changes []change) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin", err)
	}
	defer tx.Rollback()

	for _, c := range changes {
		if err := s.apply(ctx, tx, c); err != nil {
			return err
		}
	}

	if s.beforeCommit != nil {
		if err := s.beforeCommit(ctx, tx); err != nil {
			return storeError("commit", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit", err)
	}
	return nil
}

// apply executes one pending change inside tx
func (s *Store) apply(ctx context.Context, tx *sql.Tx, c change) error {
	if c.kind == changeRequireEmpty {
		return s.requireEmpty(ctx, tx, c.entity)
	}

	var builder sq.Sqlizer
	switch c.kind {
	case changeInsert:
		builder = sq.Insert(c.entity.Table).SetMap(c.values)
	case changeUpdate:
		builder = sq.Update(c.entity.Table).SetMap(c.values).Where(sq.Eq{"id": c.id.String()})
	case changeDelete:
		builder = sq.Delete(c.entity.Table).Where(sq.Eq{"id": c.id.String()})
	case changeDeleteAll:
		builder = sq.Delete(c.entity.Table)
	default:
		return storeError("apply", fmt.Errorf("unknown change kind %d", c.kind))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return storeError(c.kind.String(), err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return storeError(c.kind.String(), fmt.Errorf("failed to %s %s: %w", c.kind, c.entity.Name, err))
	}

	if c.kind == changeUpdate || c.kind == changeDelete {
		n, err := res.RowsAffected()
		if err != nil {
			return storeError(c.kind.String(), err)
		}
		if n == 0 {
			return storeError(c.kind.String(), &domain.NotFoundError{Entity: c.entity.Name, ID: c.id})
		}
	}
	return nil
}

// requireEmpty fails with domain.ErrNotEmpty when e has a row visible to tx
func (s *Store) requireEmpty(ctx context.Context, tx *sql.Tx, e *Entity) error {
	query, args, err := sq.Select("1").From(e.Table).Limit(1).ToSql()
	if err != nil {
		return storeError(changeRequireEmpty.String(), err)
	}

	var one int
	err = tx.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return storeError(changeRequireEmpty.String(), fmt.Errorf("failed to check %s: %w", e.Table, err))
	}
	return fmt.Errorf("%s: %w", e.Table, domain.ErrNotEmpty)
}

// observe logs how long a statement took, as a warning when it was slow
func (s *Store) observe(op string, start time.Time, fields ...zap.Field) {
	elapsed := time.Since(start)
	fields = append(fields, zap.String("op", op), zap.Duration("elapsed", elapsed))
	if s.slow > 0 && elapsed > s.slow {
		s.logger.Warn("slow store operation", fields...)
		return
	}
	s.logger.Debug("store operation", fields...)
}

func storeError(op string, err error) *domain.StoreError {
	var sqliteErr sqlite3.Error
	constraint := errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
	return &domain.StoreError{Op: op, Constraint: constraint, Err: err}
}
