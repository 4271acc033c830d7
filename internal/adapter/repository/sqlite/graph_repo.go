package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/simaogato/jellysave-store/internal/domain"
)

// graphRepository implements domain.GraphRepository
type graphRepository struct {
	store     *Store
	accounts  repository[domain.Account]
	snapshots repository[domain.AssetSnapshot]
	goals     repository[domain.SavingGoal]
	settings  repository[domain.NotificationSettings]
}

// NewGraphRepository creates the bulk repository used by backup and seeding
func NewGraphRepository(store *Store) domain.GraphRepository {
	schema := store.Schema()
	return &graphRepository{
		store:     store,
		accounts:  newRepository(store, schema.Account, accountMapper),
		snapshots: newRepository(store, schema.Snapshot, snapshotMapper),
		goals:     newRepository(store, schema.Goal, goalMapper),
		settings:  newRepository(store, schema.Settings, settingsMapper),
	}
}

// Load reads every entity from one consistent view of committed state
func (r *graphRepository) Load(ctx context.Context) (domain.Graph, error) {
	var g domain.Graph
	err := r.store.ReadContext().Consistent(ctx, func(view *ReadContext) error {
		var err error
		if g.Accounts, err = r.accounts.list(ctx, view, Query{OrderBy: accountOrder(domain.AccountSortOldest)}); err != nil {
			return fmt.Errorf("failed to load accounts: %w", err)
		}
		if g.Snapshots, err = r.snapshots.list(ctx, view, Query{OrderBy: snapshotOrder(domain.SnapshotSortDate)}); err != nil {
			return fmt.Errorf("failed to load snapshots: %w", err)
		}
		if g.Goals, err = r.goals.list(ctx, view, Query{OrderBy: goalOrder(domain.GoalSortDeadline)}); err != nil {
			return fmt.Errorf("failed to load goals: %w", err)
		}
		settings, err := r.settings.list(ctx, view, Query{OrderBy: latestSettings, Limit: 1})
		if err != nil {
			return fmt.Errorf("failed to load notification settings: %w", err)
		}
		if len(settings) > 0 {
			g.Settings = &settings[0]
		}
		return nil
	})
	if err != nil {
		return domain.Graph{}, err
	}
	return g, nil
}

// Replace swaps the whole store content for g in a single save
func (r *graphRepository) Replace(ctx context.Context, g domain.Graph) error {
	schema := r.store.Schema()
	wc := r.store.NewWriteContext()
	wc.DeleteAll(schema.Snapshot)
	wc.DeleteAll(schema.Account)
	wc.DeleteAll(schema.Goal)
	wc.DeleteAll(schema.Settings)
	r.queueInserts(wc, g)
	if g.Settings != nil {
		wc.Insert(schema.Settings, g.Settings.ID, settingsMapper.encode(*g.Settings))
	}
	if err := r.store.Save(ctx, wc); err != nil {
		return fmt.Errorf("failed to replace store content: %w", err)
	}
	return nil
}

// Insert adds g to the existing rows in a single save. The settings row is
// updated in place when one exists.
func (r *graphRepository) Insert(ctx context.Context, g domain.Graph) error {
	return r.insert(ctx, r.store.NewWriteContext(), g)
}

// InsertIfEmpty is Insert guarded by an account check made inside the commit,
// so an account created after any earlier check still prevents the insert
func (r *graphRepository) InsertIfEmpty(ctx context.Context, g domain.Graph) (bool, error) {
	wc := r.store.NewWriteContext()
	wc.RequireEmpty(r.store.Schema().Account)
	err := r.insert(ctx, wc, g)
	if errors.Is(err, domain.ErrNotEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *graphRepository) insert(ctx context.Context, wc *WriteContext, g domain.Graph) error {
	schema := r.store.Schema()
	r.queueInserts(wc, g)
	if g.Settings != nil {
		existing, err := wc.List(ctx, schema.Settings, Query{OrderBy: latestSettings, Limit: 1})
		if err != nil {
			wc.Discard()
			return err
		}
		values := settingsMapper.encode(*g.Settings)
		if len(existing) > 0 {
			current, err := r.settings.decode(existing[0])
			if err != nil {
				wc.Discard()
				return err
			}
			wc.Update(schema.Settings, current.ID, values)
		} else {
			wc.Insert(schema.Settings, g.Settings.ID, values)
		}
	}
	if err := r.store.Save(ctx, wc); err != nil {
		return fmt.Errorf("failed to insert graph: %w", err)
	}
	return nil
}

// queueInserts adds accounts before the snapshots that reference them
func (r *graphRepository) queueInserts(wc *WriteContext, g domain.Graph) {
	schema := r.store.Schema()
	for _, a := range g.Accounts {
		wc.Insert(schema.Account, a.ID, accountMapper.encode(a))
	}
	for _, s := range g.Snapshots {
		wc.Insert(schema.Snapshot, s.ID, snapshotMapper.encode(s))
	}
	for _, goal := range g.Goals {
		wc.Insert(schema.Goal, goal.ID, goalMapper.encode(goal))
	}
}

// Counts returns the number of rows of every entity type
func (r *graphRepository) Counts(ctx context.Context) (domain.Counts, error) {
	var c domain.Counts
	var err error
	if c.Accounts, err = r.accounts.count(ctx, 0); err != nil {
		return domain.Counts{}, err
	}
	if c.Goals, err = r.goals.count(ctx, 0); err != nil {
		return domain.Counts{}, err
	}
	if c.Snapshots, err = r.snapshots.count(ctx, 0); err != nil {
		return domain.Counts{}, err
	}
	if c.Settings, err = r.settings.count(ctx, 0); err != nil {
		return domain.Counts{}, err
	}
	return c, nil
}
