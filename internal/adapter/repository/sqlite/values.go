package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// record is one row keyed by column name. Values are string, int64 or nil.
type record map[string]any

func (r record) clone() record {
	out := make(record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// without returns a copy of r minus the named columns
func (r record) without(cols ...string) record {
	out := r.clone()
	for _, c := range cols {
		delete(out, c)
	}
	return out
}

// diff returns the columns of next whose value differs from prev
func diff(prev, next record) record {
	changed := record{}
	for col, v := range next {
		if old, ok := prev[col]; !ok || old != v {
			changed[col] = v
		}
	}
	return changed
}

// timestamps are stored fixed-width in UTC so text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timeValue(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func optionalTimeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeValue(*t)
}

func optionalStringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optionalUUIDValue(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// scanRecord reads the current row of rows into a record following the entity columns
func scanRecord(e *Entity, rows *sql.Rows) (record, error) {
	dest := make([]any, len(e.Columns))
	for i, c := range e.Columns {
		if c.Kind == IntegerColumn {
			dest[i] = new(sql.NullInt64)
		} else {
			dest[i] = new(sql.NullString)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", e.Name, err)
	}

	rec := make(record, len(e.Columns))
	for i, c := range e.Columns {
		switch v := dest[i].(type) {
		case *sql.NullInt64:
			if v.Valid {
				rec[c.Name] = v.Int64
			} else {
				rec[c.Name] = nil
			}
		case *sql.NullString:
			if v.Valid {
				rec[c.Name] = v.String
			} else {
				rec[c.Name] = nil
			}
		}
	}
	return rec, nil
}

// recordReader decodes typed values out of a record, keeping the first error
type recordReader struct {
	entity *Entity
	rec    record
	err    error
}

func newRecordReader(e *Entity, rec record) *recordReader {
	return &recordReader{entity: e, rec: rec}
}

func (r *recordReader) fail(col string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("failed to parse %s.%s: %w", r.entity.Table, col, err)
	}
}

func (r *recordReader) optionalText(col string) *string {
	v, ok := r.rec[col].(string)
	if !ok {
		return nil
	}
	return &v
}

func (r *recordReader) text(col string) string {
	v := r.optionalText(col)
	if v == nil {
		r.fail(col, fmt.Errorf("missing value"))
		return ""
	}
	return *v
}

func (r *recordReader) boolean(col string) bool {
	v, _ := r.rec[col].(int64)
	return v != 0
}

func (r *recordReader) uuid(col string) uuid.UUID {
	id, err := uuid.Parse(r.text(col))
	if err != nil {
		r.fail(col, err)
	}
	return id
}

func (r *recordReader) optionalUUID(col string) *uuid.UUID {
	s := r.optionalText(col)
	if s == nil {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &id
}

func (r *recordReader) decimal(col string) decimal.Decimal {
	d, err := decimal.NewFromString(r.text(col))
	if err != nil {
		r.fail(col, err)
	}
	return d
}

func (r *recordReader) time(col string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.text(col))
	if err != nil {
		r.fail(col, err)
	}
	return t
}

func (r *recordReader) optionalTime(col string) *time.Time {
	s := r.optionalText(col)
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &t
}
