package seeder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/jellysave-store/internal/domain"
	"github.com/simaogato/jellysave-store/internal/usecase/async"
	"github.com/simaogato/jellysave-store/internal/usecase/changes"
)

// Demo content inserted on first run
const (
	DemoAccountName = "Everyday Cash"
	DemoSnapshots   = 6
)

// DemoBalance is the starting balance of the demo account
var DemoBalance = decimal.NewFromInt(128000)

// demoSnapshotStep is the growth between two consecutive demo snapshots
var demoSnapshotStep = decimal.NewFromInt(8000)

// DemoGoal describes one of the seeded saving goals
type DemoGoal struct {
	Title    string
	Category string
	Target   decimal.Decimal
	Current  decimal.Decimal
	Months   int // deadline, in months from the seeding time
}

// DemoGoals are the seeded saving goals, nearest deadline first
var DemoGoals = []DemoGoal{
	{Title: "Emergency Fund", Category: "safety", Target: decimal.NewFromInt(60000), Current: decimal.NewFromInt(18000), Months: 3},
	{Title: "Japan Trip", Category: "travel", Target: decimal.NewFromInt(45000), Current: decimal.NewFromInt(12000), Months: 6},
	{Title: "New Laptop", Category: "gadget", Target: decimal.NewFromInt(52000), Current: decimal.NewFromInt(5000), Months: 12},
}

// DemoSeeder fills an empty store with demo data on first run
type DemoSeeder struct {
	accounts domain.AccountRepository
	graphs   domain.GraphRepository
	notifier changes.Publisher
	now      func() time.Time
	logger   *zap.Logger

	mu sync.Mutex
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(accounts domain.AccountRepository, graphs domain.GraphRepository, notifier changes.Publisher, logger *zap.Logger) *DemoSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemoSeeder{
		accounts: accounts,
		graphs:   graphs,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// SeedIfNeeded inserts the demo data when the store holds no account.
// It reports whether anything was inserted. The data commits all at once
// or not at all.
func (s *DemoSeeder) SeedIfNeeded(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Cheap existence check
	n, err := s.accounts.Count(ctx, 1)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing accounts: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	// 2. Build the demo graph
	g, err := DemoGraph(s.now().UTC().Truncate(time.Second))
	if err != nil {
		return false, err
	}

	// 3. Insert it in a single save, unless an account landed since the check
	inserted, err := s.graphs.InsertIfEmpty(ctx, g)
	if err != nil {
		s.logger.Error("demo seed rolled back", zap.Error(err))
		return false, fmt.Errorf("failed to seed demo data: %w", err)
	}
	if !inserted {
		s.logger.Info("demo seed skipped, accounts appeared before commit")
		return false, nil
	}

	s.logger.Info("demo data seeded",
		zap.Int("accounts", len(g.Accounts)),
		zap.Int("snapshots", len(g.Snapshots)),
		zap.Int("goals", len(g.Goals)),
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx)
	}
	return true, nil
}

// SeedIfNeededAsync runs SeedIfNeeded on its own goroutine
func (s *DemoSeeder) SeedIfNeededAsync(ctx context.Context) <-chan async.Result[bool] {
	return async.Go(ctx, s.SeedIfNeeded)
}

// DemoGraph builds the demo content as of now: one account, monthly
// snapshots growing up to its balance, the demo goals and enabled reminders.
func DemoGraph(now time.Time) (domain.Graph, error) {
	account, err := domain.NewAccount{
		Name:     DemoAccountName,
		Category: domain.AccountCategoryCash,
		Currency: domain.DefaultCurrency,
		Balance:  DemoBalance,
	}.Build(now)
	if err != nil {
		return domain.Graph{}, fmt.Errorf("failed to build demo account: %w", err)
	}

	g := domain.Graph{Accounts: []domain.Account{account}}

	for i := 0; i < DemoSnapshots; i++ {
		monthsAgo := DemoSnapshots - 1 - i
		snapshot, err := domain.NewSnapshot{
			AccountID:   &account.ID,
			Date:        now.AddDate(0, -monthsAgo, 0),
			TotalAssets: DemoBalance.Sub(demoSnapshotStep.Mul(decimal.NewFromInt(int64(monthsAgo)))),
		}.Build(now)
		if err != nil {
			return domain.Graph{}, fmt.Errorf("failed to build demo snapshot: %w", err)
		}
		g.Snapshots = append(g.Snapshots, snapshot)
	}

	for _, demo := range DemoGoals {
		category := demo.Category
		goal, err := domain.NewGoal{
			Title:         demo.Title,
			TargetAmount:  demo.Target,
			CurrentAmount: demo.Current,
			Deadline:      now.AddDate(0, demo.Months, 0),
			Category:      &category,
		}.Build(now)
		if err != nil {
			return domain.Graph{}, fmt.Errorf("failed to build demo goal: %w", err)
		}
		g.Goals = append(g.Goals, goal)
	}

	settings := domain.DefaultNotificationSettings(now)
	settings.IsEnabled = true
	settings.Time = domain.TimeOfDay{Hour: 9, Minute: 30}
	g.Settings = &settings

	return g, nil
}
