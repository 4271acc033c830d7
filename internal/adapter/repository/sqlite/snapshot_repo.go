package sqlite

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/simaogato/jellysave-store/internal/domain"
)

var snapshotMapper = mapper[domain.AssetSnapshot]{
	id: func(s domain.AssetSnapshot) uuid.UUID { return s.ID },
	encode: func(s domain.AssetSnapshot) record {
		return record{
			"id":           s.ID.String(),
			"account_id":   optionalUUIDValue(s.AccountID),
			"date":         timeValue(s.Date),
			"created_at":   timeValue(s.CreatedAt),
			"total_assets": s.TotalAssets.String(),
		}
	},
	decode: func(r *recordReader) domain.AssetSnapshot {
		return domain.AssetSnapshot{
			ID:          r.uuid("id"),
			AccountID:   r.optionalUUID("account_id"),
			Date:        r.time("date"),
			CreatedAt:   r.time("created_at"),
			TotalAssets: r.decimal("total_assets"),
		}
	},
}

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	repository[domain.AssetSnapshot]
}

// NewSnapshotRepository creates a new asset snapshot repository
func NewSnapshotRepository(store *Store) domain.SnapshotRepository {
	return &snapshotRepository{newRepository(store, store.Schema().Snapshot, snapshotMapper)}
}

func snapshotOrder(sort domain.SnapshotSort) []string {
	if sort == domain.SnapshotSortDateDesc {
		return []string{"date DESC", "created_at DESC"}
	}
	return []string{"date ASC", "created_at ASC"}
}

// FetchAll lists every snapshot in the requested order
func (r *snapshotRepository) FetchAll(ctx context.Context, sort domain.SnapshotSort) ([]domain.AssetSnapshot, error) {
	snapshots, err := r.list(ctx, r.store.ReadContext(), Query{OrderBy: snapshotOrder(sort)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshots: %w", err)
	}
	return snapshots, nil
}

// FetchRecent returns the latest n snapshots by date, oldest first
func (r *snapshotRepository) FetchRecent(ctx context.Context, n int) ([]domain.AssetSnapshot, error) {
	if n <= 0 {
		return nil, nil
	}
	snapshots, err := r.list(ctx, r.store.ReadContext(), Query{
		OrderBy: snapshotOrder(domain.SnapshotSortDateDesc),
		Limit:   uint64(n),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent snapshots: %w", err)
	}
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}
	return snapshots, nil
}

// FetchForAccount lists the snapshots linked to an account by date
func (r *snapshotRepository) FetchForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.AssetSnapshot, error) {
	snapshots, err := r.list(ctx, r.store.ReadContext(), Query{
		Where:   sq.Eq{"account_id": accountID.String()},
		OrderBy: snapshotOrder(domain.SnapshotSortDate),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshots for account: %w", err)
	}
	return snapshots, nil
}

// Create records a new snapshot. A linked account must exist.
func (r *snapshotRepository) Create(ctx context.Context, in domain.NewSnapshot) (domain.AssetSnapshot, error) {
	snapshot, err := in.Build(r.store.Now())
	if err != nil {
		return domain.AssetSnapshot{}, err
	}
	if snapshot.AccountID != nil {
		accounts := r.store.Schema().Account
		_, found, err := r.store.ReadContext().Get(ctx, accounts, *snapshot.AccountID)
		if err != nil {
			return domain.AssetSnapshot{}, err
		}
		if !found {
			return domain.AssetSnapshot{}, notFound(accounts, *snapshot.AccountID)
		}
	}
	return r.create(ctx, snapshot)
}

// Update changes the date or total of a snapshot
func (r *snapshotRepository) Update(ctx context.Context, id uuid.UUID, patch domain.SnapshotPatch) (domain.AssetSnapshot, error) {
	return r.update(ctx, id, func(s domain.AssetSnapshot) (domain.AssetSnapshot, error) {
		return s.Apply(patch)
	})
}

// Delete removes a snapshot; the account is not affected
func (r *snapshotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.delete(ctx, id)
}
