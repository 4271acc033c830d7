package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountSort selects the order of FetchAll results
type AccountSort int

const (
	// AccountSortNewest orders by creation time, newest first
	AccountSortNewest AccountSort = iota
	AccountSortOldest
	AccountSortName
)

// SnapshotSort selects the order of snapshot listings
type SnapshotSort int

const (
	// SnapshotSortDate orders by snapshot date, oldest first
	SnapshotSortDate SnapshotSort = iota
	SnapshotSortDateDesc
)

// GoalSort selects the order of goal listings
type GoalSort int

const (
	// GoalSortDefault puts open goals first, each group by nearest deadline
	GoalSortDefault GoalSort = iota
	GoalSortDeadline
	GoalSortNewest
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// FetchAll lists every account in the requested order
	FetchAll(ctx context.Context, sort AccountSort) ([]Account, error)

	// Get retrieves an account by its ID
	Get(ctx context.Context, id uuid.UUID) (Account, error)

	// Count returns the number of accounts, stopping at limit when limit > 0
	Count(ctx context.Context, limit int) (int, error)

	// Create mints and stores a new account
	Create(ctx context.Context, in NewAccount) (Account, error)

	// Update applies a patch and returns the committed account
	Update(ctx context.Context, id uuid.UUID, patch AccountPatch) (Account, error)

	// Delete removes an account and, through the store, its snapshots
	Delete(ctx context.Context, id uuid.UUID) error

	// TotalBalance sums every account balance exactly
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
}

// SnapshotRepository defines the interface for asset snapshot persistence operations
type SnapshotRepository interface {
	FetchAll(ctx context.Context, sort SnapshotSort) ([]AssetSnapshot, error)

	// FetchRecent returns the latest n snapshots, oldest first
	FetchRecent(ctx context.Context, n int) ([]AssetSnapshot, error)

	FetchForAccount(ctx context.Context, accountID uuid.UUID) ([]AssetSnapshot, error)
	Create(ctx context.Context, in NewSnapshot) (AssetSnapshot, error)
	Update(ctx context.Context, id uuid.UUID, patch SnapshotPatch) (AssetSnapshot, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GoalRepository defines the interface for saving goal persistence operations
type GoalRepository interface {
	FetchAll(ctx context.Context, sort GoalSort) ([]SavingGoal, error)
	Get(ctx context.Context, id uuid.UUID) (SavingGoal, error)
	Create(ctx context.Context, in NewGoal) (SavingGoal, error)

	// Update applies a patch; completion follows the resulting amounts
	Update(ctx context.Context, id uuid.UUID, patch GoalPatch) (SavingGoal, error)

	// Complete marks a goal whose target has been reached as completed
	Complete(ctx context.Context, id uuid.UUID) (SavingGoal, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsRepository defines the interface for the notification settings singleton
type SettingsRepository interface {
	// Fetch returns the settings row, creating the default one when the store has none
	Fetch(ctx context.Context) (NotificationSettings, error)

	// Update upserts the settings row
	Update(ctx context.Context, patch SettingsPatch) (NotificationSettings, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// Graph is the whole object graph held by a store
type Graph struct {
	Accounts  []Account
	Goals     []SavingGoal
	Snapshots []AssetSnapshot
	Settings  *NotificationSettings
}

// Counts holds the number of rows of every entity type
type Counts struct {
	Accounts  int
	Goals     int
	Snapshots int
	Settings  int
}

// GraphRepository is the bulk surface used by backup and seeding.
// Every call runs inside a single write context and commits all or nothing.
type GraphRepository interface {
	// Load reads the whole graph from committed state
	Load(ctx context.Context) (Graph, error)

	// Replace deletes every row of every entity type, then inserts the graph preserving ids.
	// An empty graph clears the store.
	Replace(ctx context.Context, g Graph) error

	// Insert adds the graph to the existing rows; the settings row is upserted
	Insert(ctx context.Context, g Graph) error

	// InsertIfEmpty inserts the graph only when no account exists when the write commits.
	// It reports whether the graph was inserted.
	InsertIfEmpty(ctx context.Context, g Graph) (bool, error)

	Counts(ctx context.Context) (Counts, error)
}
