package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/jellysave-store/internal/domain"
)

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
	changeDeleteAll
	changeRequireEmpty
)

func (k changeKind) String() string {
	switch k {
	case changeInsert:
		return "insert"
	case changeUpdate:
		return "update"
	case changeDelete:
		return "delete"
	case changeDeleteAll:
		return "delete all"
	case changeRequireEmpty:
		return "require empty"
	default:
		return "unknown"
	}
}

// change is one pending mutation of a write context
type change struct {
	kind   changeKind
	entity *Entity
	id     uuid.UUID
	values record
}

// Query narrows and orders a listing
type Query struct {
	Where   sq.Sqlizer
	OrderBy []string
	Limit   uint64
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ReadContext is a read-only view of committed state
type ReadContext struct {
	store *Store
	q     querier
}

// Get returns the committed row with the given id
func (r *ReadContext) Get(ctx context.Context, e *Entity, id uuid.UUID) (record, bool, error) {
	rows, err := r.List(ctx, e, Query{Where: sq.Eq{"id": id.String()}, Limit: 1})
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// List returns the committed rows matching q
func (r *ReadContext) List(ctx context.Context, e *Entity, q Query) ([]record, error) {
	builder := sq.Select(e.ColumnNames()...).From(e.Table)
	if q.Where != nil {
		builder = builder.Where(q.Where)
	}
	if len(q.OrderBy) > 0 {
		builder = builder.OrderBy(q.OrderBy...)
	}
	if q.Limit > 0 {
		builder = builder.Limit(q.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, storeError("fetch", err)
	}

	start := time.Now()
	defer r.store.observe("fetch", start, zap.String("table", e.Table))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("fetch", fmt.Errorf("failed to query %s: %w", e.Table, err))
	}
	defer rows.Close()

	var out []record
	for rows.Next() {
		rec, err := scanRecord(e, rows)
		if err != nil {
			return nil, storeError("fetch", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("fetch", fmt.Errorf("error iterating %s: %w", e.Table, err))
	}
	return out, nil
}

// Count returns the number of rows of e. A positive limit caps the scan,
// so Count(ctx, e, 1) is a cheap existence check.
func (r *ReadContext) Count(ctx context.Context, e *Entity, limit int) (int, error) {
	inner := sq.Select("1").From(e.Table)
	if limit > 0 {
		inner = inner.Limit(uint64(limit))
	}
	query, args, err := sq.Select("COUNT(*)").FromSelect(inner, "capped").ToSql()
	if err != nil {
		return 0, storeError("count", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, storeError("count", fmt.Errorf("failed to count %s: %w", e.Table, err))
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, storeError("count", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, storeError("count", err)
	}
	return n, nil
}

// Consistent runs fn against a single point-in-time view, so that several
// reads see the same committed state even if a save lands in between
func (r *ReadContext) Consistent(ctx context.Context, fn func(view *ReadContext) error) error {
	tx, err := r.store.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return storeError("fetch", err)
	}
	defer tx.Rollback()

	if err := fn(&ReadContext{store: r.store, q: tx}); err != nil {
		return err
	}
	return nil
}

// WriteContext accumulates pending changes until the store saves it.
// Reads through a write context see its own pending changes.
type WriteContext struct {
	store   *Store
	mu      sync.Mutex
	pending []change
}

// Insert queues a new row
func (w *WriteContext) Insert(e *Entity, id uuid.UUID, values record) {
	values = values.clone()
	values["id"] = id.String()
	w.push(change{kind: changeInsert, entity: e, id: id, values: values})
}

// Update queues new values for some columns of a row; other columns are left as committed
func (w *WriteContext) Update(e *Entity, id uuid.UUID, values record) {
	values = values.without("id")
	if len(values) == 0 {
		return
	}
	w.push(change{kind: changeUpdate, entity: e, id: id, values: values})
}

// Delete queues the removal of a row
func (w *WriteContext) Delete(e *Entity, id uuid.UUID) {
	w.push(change{kind: changeDelete, entity: e, id: id})
}

// DeleteAll queues the removal of every row of e
func (w *WriteContext) DeleteAll(e *Entity) {
	w.push(change{kind: changeDeleteAll, entity: e})
}

// RequireEmpty makes the save fail with domain.ErrNotEmpty when e holds any
// row at commit time. The check runs in the commit transaction, ahead of
// the changes queued after it.
func (w *WriteContext) RequireEmpty(e *Entity) {
	w.push(change{kind: changeRequireEmpty, entity: e})
}

// HasChanges reports whether anything is pending
func (w *WriteContext) HasChanges() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) > 0
}

// Discard drops every pending change
func (w *WriteContext) Discard() {
	w.take()
}

func (w *WriteContext) push(c change) {
	w.mu.Lock()
	w.pending = append(w.pending, c)
	w.mu.Unlock()
}

func (w *WriteContext) take() []change {
	w.mu.Lock()
	defer w.mu.Unlock()
	changes := w.pending
	w.pending = nil
	return changes
}

func (w *WriteContext) snapshot() []change {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]change(nil), w.pending...)
}

// Get returns the row with the given id as this context sees it
func (w *WriteContext) Get(ctx context.Context, e *Entity, id uuid.UUID) (record, bool, error) {
	rec, found, err := w.store.view.Get(ctx, e, id)
	if err != nil {
		return nil, false, err
	}
	for _, c := range w.snapshot() {
		if c.entity != e {
			continue
		}
		switch {
		case c.kind == changeDeleteAll:
			rec, found = nil, false
		case c.id != id:
		case c.kind == changeInsert:
			rec, found = c.values.clone(), true
		case c.kind == changeUpdate && found:
			rec = merge(rec, c.values)
		case c.kind == changeDelete:
			rec, found = nil, false
		}
	}
	return rec, found, nil
}

// List returns the committed rows matching q with this context's pending
// changes overlaid. Rows inserted by the context follow the committed ones
// and are not filtered by q.Where.
func (w *WriteContext) List(ctx context.Context, e *Entity, q Query) ([]record, error) {
	committed, err := w.store.view.List(ctx, e, q)
	if err != nil {
		return nil, err
	}

	type row struct {
		id  string
		rec record
	}
	rows := make([]row, 0, len(committed))
	for _, rec := range committed {
		id, _ := rec["id"].(string)
		rows = append(rows, row{id: id, rec: rec})
	}

	for _, c := range w.snapshot() {
		if c.entity != e {
			continue
		}
		switch c.kind {
		case changeDeleteAll:
			rows = rows[:0]
		case changeInsert:
			rows = append(rows, row{id: c.id.String(), rec: c.values.clone()})
		case changeUpdate:
			for i := range rows {
				if rows[i].id == c.id.String() {
					rows[i].rec = merge(rows[i].rec, c.values)
				}
			}
		case changeDelete:
			kept := rows[:0]
			for _, r := range rows {
				if r.id != c.id.String() {
					kept = append(kept, r)
				}
			}
			rows = kept
		}
	}

	out := make([]record, len(rows))
	for i, r := range rows {
		out[i] = r.rec
	}
	return out, nil
}

func merge(base, overlay record) record {
	out := base.clone()
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// notFound builds the error repositories return for a missing row
func notFound(e *Entity, id uuid.UUID) error {
	return &domain.NotFoundError{Entity: e.Name, ID: id}
}
