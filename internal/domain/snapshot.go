package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetSnapshot records the total value of assets at a point in time.
// It is optionally linked to the account it was taken from; deleting that
// account deletes the snapshot too.
type AssetSnapshot struct {
	ID          uuid.UUID
	AccountID   *uuid.UUID
	Date        time.Time
	CreatedAt   time.Time
	TotalAssets decimal.Decimal
}

// NewSnapshot carries the caller-supplied fields of a snapshot to create
type NewSnapshot struct {
	AccountID   *uuid.UUID
	Date        time.Time // defaults to the creation time when zero
	TotalAssets decimal.Decimal
}

// SnapshotPatch lists the fields to change on a snapshot
type SnapshotPatch struct {
	Date        *time.Time
	TotalAssets *decimal.Decimal
}

// Build mints a new snapshot from the input
func (in NewSnapshot) Build(now time.Time) (AssetSnapshot, error) {
	date := in.Date
	if date.IsZero() {
		date = now
	}
	s := AssetSnapshot{
		ID:          uuid.New(),
		AccountID:   in.AccountID,
		Date:        date,
		CreatedAt:   now,
		TotalAssets: in.TotalAssets,
	}
	if err := s.Validate(); err != nil {
		return AssetSnapshot{}, err
	}
	return s, nil
}

// Apply returns a copy of the snapshot with the patch applied
func (s AssetSnapshot) Apply(p SnapshotPatch) (AssetSnapshot, error) {
	next := s
	if p.Date != nil {
		next.Date = *p.Date
	}
	if p.TotalAssets != nil {
		next.TotalAssets = *p.TotalAssets
	}
	if err := next.Validate(); err != nil {
		return AssetSnapshot{}, err
	}
	return next, nil
}

// Validate ensures the snapshot adheres to domain rules
func (s *AssetSnapshot) Validate() error {
	if s.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "snapshot date is required"}
	}
	if s.AccountID != nil && *s.AccountID == uuid.Nil {
		return &ValidationError{Field: "accountId", Message: "must be a valid account id"}
	}
	return nil
}
