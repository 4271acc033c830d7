package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/jellysave-store/internal/domain"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FetchAll(ctx context.Context, sort domain.AccountSort) ([]domain.Account, error) {
	args := m.Called(ctx, sort)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Account), args.Error(1)
}

func (m *MockAccountRepository) Count(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, in domain.NewAccount) (domain.Account, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Account), args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, id uuid.UUID, patch domain.AccountPatch) (domain.Account, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.Account), args.Error(1)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) FetchAll(ctx context.Context, sort domain.SnapshotSort) ([]domain.AssetSnapshot, error) {
	args := m.Called(ctx, sort)
	return args.Get(0).([]domain.AssetSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) FetchRecent(ctx context.Context, n int) ([]domain.AssetSnapshot, error) {
	args := m.Called(ctx, n)
	return args.Get(0).([]domain.AssetSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) FetchForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.AssetSnapshot, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]domain.AssetSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) Create(ctx context.Context, in domain.NewSnapshot) (domain.AssetSnapshot, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.AssetSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) Update(ctx context.Context, id uuid.UUID, patch domain.SnapshotPatch) (domain.AssetSnapshot, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.AssetSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockGoalRepository is a mock implementation of GoalRepository
type MockGoalRepository struct {
	mock.Mock
}

func (m *MockGoalRepository) FetchAll(ctx context.Context, sort domain.GoalSort) ([]domain.SavingGoal, error) {
	args := m.Called(ctx, sort)
	return args.Get(0).([]domain.SavingGoal), args.Error(1)
}

func (m *MockGoalRepository) Get(ctx context.Context, id uuid.UUID) (domain.SavingGoal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.SavingGoal), args.Error(1)
}

func (m *MockGoalRepository) Create(ctx context.Context, in domain.NewGoal) (domain.SavingGoal, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.SavingGoal), args.Error(1)
}

func (m *MockGoalRepository) Update(ctx context.Context, id uuid.UUID, patch domain.GoalPatch) (domain.SavingGoal, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.SavingGoal), args.Error(1)
}

func (m *MockGoalRepository) Complete(ctx context.Context, id uuid.UUID) (domain.SavingGoal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.SavingGoal), args.Error(1)
}

func (m *MockGoalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newService() (*DashboardService, *MockAccountRepository, *MockSnapshotRepository, *MockGoalRepository) {
	accounts := new(MockAccountRepository)
	snapshots := new(MockSnapshotRepository)
	goals := new(MockGoalRepository)
	svc := NewDashboardService(accounts, snapshots, goals)
	svc.Now = func() time.Time { return now }
	return svc, accounts, snapshots, goals
}

func TestDashboardService_GetSummary(t *testing.T) {
	ctx := context.Background()
	svc, accounts, snapshots, goals := newService()

	accounts.On("FetchAll", ctx, domain.AccountSortNewest).Return([]domain.Account{
		{ID: uuid.New(), Balance: decimal.RequireFromString("1000.10"), UpdatedAt: now.AddDate(0, 0, -3)},
		{ID: uuid.New(), Balance: decimal.RequireFromString("500.05"), UpdatedAt: now.AddDate(0, 0, -1)},
	}, nil)
	goals.On("FetchAll", ctx, domain.GoalSortDefault).Return([]domain.SavingGoal{
		// 600 left over 3 months
		{ID: uuid.New(), TargetAmount: decimal.NewFromInt(1000), CurrentAmount: decimal.NewFromInt(400), Deadline: now.AddDate(0, 3, 0)},
		// overdue, counted as one month
		{ID: uuid.New(), TargetAmount: decimal.NewFromInt(100), CurrentAmount: decimal.NewFromInt(50), Deadline: now.AddDate(0, -1, 0)},
		{ID: uuid.New(), TargetAmount: decimal.NewFromInt(10), CurrentAmount: decimal.NewFromInt(10), IsCompleted: true, Deadline: now},
	}, nil)
	snapshots.On("FetchRecent", ctx, TrendLength).Return([]domain.AssetSnapshot{
		{Date: now.AddDate(0, -2, 0), TotalAssets: decimal.NewFromInt(1000)},
		{Date: now.AddDate(0, -1, 0), TotalAssets: decimal.NewFromInt(1200)},
		{Date: now, TotalAssets: decimal.NewFromInt(1500)},
	}, nil)

	summary, err := svc.GetSummary(ctx)

	require.NoError(t, err)
	assert.Equal(t, "1500.15", summary.TotalAssets.String())
	assert.Equal(t, 2, summary.AccountCount)
	assert.Equal(t, 2, summary.ActiveGoalCount)
	assert.Equal(t, "250", summary.MonthlySavingRequired.String())
	assert.Equal(t, "300", summary.MonthlyChange.String())
	assert.Equal(t, "0.25", summary.MonthlyChangeRatio.String())
	assert.True(t, summary.LastUpdated.Equal(now.AddDate(0, 0, -1)))
}

func TestDashboardService_GetTrend(t *testing.T) {
	tests := []struct {
		name       string
		snapshots  []domain.AssetSnapshot
		total      decimal.Decimal
		wantAmount []string
	}{
		{
			name: "From snapshots",
			snapshots: []domain.AssetSnapshot{
				{Date: now.AddDate(0, -1, 0), TotalAssets: decimal.NewFromInt(10)},
				{Date: now, TotalAssets: decimal.NewFromInt(20)},
			},
			total:      decimal.NewFromInt(999),
			wantAmount: []string{"10", "20"},
		},
		{
			name:       "Synthetic when there is no snapshot",
			snapshots:  []domain.AssetSnapshot{},
			total:      decimal.NewFromInt(1000),
			wantAmount: []string{"880", "900", "920", "940", "960", "980"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, accounts, snapshots, _ := newService()
			accounts.On("TotalBalance", ctx).Return(tt.total, nil)
			snapshots.On("FetchRecent", ctx, TrendLength).Return(tt.snapshots, nil)

			points, err := svc.GetTrend(ctx)

			require.NoError(t, err)
			require.Len(t, points, len(tt.wantAmount))
			for i, want := range tt.wantAmount {
				assert.True(t, points[i].Amount.Equal(decimal.RequireFromString(want)), "point %d: %s", i, points[i].Amount)
			}
			assert.True(t, points[len(points)-1].Date.Equal(now))
		})
	}
}
