package sqlite

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/simaogato/jellysave-store/internal/domain"
)

// mapper converts between a domain value and its column record
type mapper[T any] struct {
	id     func(T) uuid.UUID
	encode func(T) record
	decode func(*recordReader) T
}

// repository implements the row operations shared by every entity
type repository[T any] struct {
	store  *Store
	entity *Entity
	mapper mapper[T]
}

func newRepository[T any](store *Store, entity *Entity, m mapper[T]) repository[T] {
	return repository[T]{store: store, entity: entity, mapper: m}
}

func (r repository[T]) decodeAll(recs []record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := r.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r repository[T]) decode(rec record) (T, error) {
	reader := newRecordReader(r.entity, rec)
	v := r.mapper.decode(reader)
	if reader.err != nil {
		var zero T
		return zero, &domain.StoreError{Op: "decode", Err: reader.err}
	}
	return v, nil
}

// list reads committed rows through view
func (r repository[T]) list(ctx context.Context, view *ReadContext, q Query) ([]T, error) {
	recs, err := view.List(ctx, r.entity, q)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(recs)
}

func (r repository[T]) get(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	rec, found, err := r.store.ReadContext().Get(ctx, r.entity, id)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, notFound(r.entity, id)
	}
	return r.decode(rec)
}

func (r repository[T]) count(ctx context.Context, limit int) (int, error) {
	return r.store.ReadContext().Count(ctx, r.entity, limit)
}

// create inserts v in its own write context and returns the committed row
func (r repository[T]) create(ctx context.Context, v T) (T, error) {
	var zero T
	wc := r.store.NewWriteContext()
	id := r.mapper.id(v)
	wc.Insert(r.entity, id, r.mapper.encode(v))
	if err := r.store.Save(ctx, wc); err != nil {
		return zero, translate(err)
	}
	return r.get(ctx, id)
}

// update reads the committed row, lets mutate derive the next value and
// writes only the columns that changed. The committed row is returned, so
// fields another context saved in the meantime show through.
func (r repository[T]) update(ctx context.Context, id uuid.UUID, mutate func(T) (T, error)) (T, error) {
	var zero T
	current, err := r.get(ctx, id)
	if err != nil {
		return zero, err
	}
	next, err := mutate(current)
	if err != nil {
		return zero, err
	}

	wc := r.store.NewWriteContext()
	wc.Update(r.entity, id, diff(r.mapper.encode(current), r.mapper.encode(next)))
	if err := r.store.Save(ctx, wc); err != nil {
		return zero, translate(err)
	}
	return r.get(ctx, id)
}

func (r repository[T]) delete(ctx context.Context, id uuid.UUID) error {
	wc := r.store.NewWriteContext()
	wc.Delete(r.entity, id)
	if err := r.store.Save(ctx, wc); err != nil {
		return translate(err)
	}
	return nil
}

// translate surfaces a missing row as *domain.NotFoundError and leaves other errors as they are
func translate(err error) error {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return nf
	}
	return err
}
