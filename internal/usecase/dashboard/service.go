package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/jellysave-store/internal/domain"
)

// TrendLength is the number of snapshots shown in the trend
const TrendLength = 12

// syntheticTrendMonths is the length of the trend derived from the total when no snapshot exists
const syntheticTrendMonths = 6

// Summary holds the headline figures of the home screen
type Summary struct {
	TotalAssets           decimal.Decimal
	AccountCount          int
	ActiveGoalCount       int
	MonthlySavingRequired decimal.Decimal
	MonthlyChange         decimal.Decimal
	MonthlyChangeRatio    decimal.Decimal
	LastUpdated           time.Time
}

// TrendPoint is one point of the total assets trend
type TrendPoint struct {
	Date   time.Time
	Amount decimal.Decimal
}

// DashboardService computes the home screen figures
type DashboardService struct {
	AccountRepo  domain.AccountRepository
	SnapshotRepo domain.SnapshotRepository
	GoalRepo     domain.GoalRepository
	Now          func() time.Time
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(
	accountRepo domain.AccountRepository,
	snapshotRepo domain.SnapshotRepository,
	goalRepo domain.GoalRepository,
) *DashboardService {
	return &DashboardService{
		AccountRepo:  accountRepo,
		SnapshotRepo: snapshotRepo,
		GoalRepo:     goalRepo,
		Now:          time.Now,
	}
}

// GetSummary computes the totals.
// Logic:
//   - TotalAssets: exact sum of every account balance
//   - MonthlySavingRequired: sum over open goals of what each still needs per month
//   - MonthlyChange: difference between the last two trend points
//   - LastUpdated: latest account update, now when there is no account
func (s *DashboardService) GetSummary(ctx context.Context) (*Summary, error) {
	accounts, err := s.AccountRepo.FetchAll(ctx, domain.AccountSortNewest)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	goals, err := s.GoalRepo.FetchAll(ctx, domain.GoalSortDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	trend, err := s.trend(ctx, domain.TotalBalance(accounts))
	if err != nil {
		return nil, err
	}

	now := s.Now()
	summary := &Summary{
		TotalAssets:           domain.TotalBalance(accounts),
		AccountCount:          len(accounts),
		MonthlySavingRequired: decimal.Zero,
		MonthlyChange:         decimal.Zero,
		MonthlyChangeRatio:    decimal.Zero,
		LastUpdated:           now,
	}

	for _, g := range goals {
		if g.IsCompleted {
			continue
		}
		summary.ActiveGoalCount++
		summary.MonthlySavingRequired = summary.MonthlySavingRequired.Add(g.MonthlySavingRequired(now))
	}

	for i, a := range accounts {
		if i == 0 || a.UpdatedAt.After(summary.LastUpdated) {
			summary.LastUpdated = a.UpdatedAt
		}
	}

	if n := len(trend); n >= 2 {
		latest, previous := trend[n-1].Amount, trend[n-2].Amount
		summary.MonthlyChange = latest.Sub(previous)
		if !previous.IsZero() {
			summary.MonthlyChangeRatio = summary.MonthlyChange.DivRound(previous, 4)
		}
	}

	return summary, nil
}

// GetTrend returns the latest snapshots, oldest first
func (s *DashboardService) GetTrend(ctx context.Context) ([]TrendPoint, error) {
	total, err := s.AccountRepo.TotalBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum balances: %w", err)
	}
	return s.trend(ctx, total)
}

// trend falls back to a synthetic series ramping up to the total when there is no snapshot
func (s *DashboardService) trend(ctx context.Context, total decimal.Decimal) ([]TrendPoint, error) {
	snapshots, err := s.SnapshotRepo.FetchRecent(ctx, TrendLength)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		now := s.Now()
		points := make([]TrendPoint, syntheticTrendMonths)
		for i := range points {
			// 0.88, 0.90, ... 0.98 of the total
			factor := decimal.NewFromInt(1).Sub(decimal.New(int64(2*(syntheticTrendMonths-i)), -2))
			points[i] = TrendPoint{
				Date:   now.AddDate(0, i-(syntheticTrendMonths-1), 0),
				Amount: total.Mul(factor),
			}
		}
		return points, nil
	}

	points := make([]TrendPoint, len(snapshots))
	for i, snap := range snapshots {
		points[i] = TrendPoint{Date: snap.Date, Amount: snap.TotalAssets}
	}
	return points, nil
}
