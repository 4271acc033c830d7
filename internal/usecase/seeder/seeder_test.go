package seeder

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/jellysave-store/internal/adapter/repository/sqlite"
	"github.com/simaogato/jellysave-store/internal/domain"
	"github.com/simaogato/jellysave-store/internal/usecase/changes"
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

// MockGraphRepository is a mock implementation of GraphRepository
type MockGraphRepository struct {
	mock.Mock
}

func (m *MockGraphRepository) Load(ctx context.Context) (domain.Graph, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Graph), args.Error(1)
}

func (m *MockGraphRepository) Replace(ctx context.Context, g domain.Graph) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGraphRepository) Insert(ctx context.Context, g domain.Graph) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGraphRepository) InsertIfEmpty(ctx context.Context, g domain.Graph) (bool, error) {
	args := m.Called(ctx, g)
	return args.Bool(0), args.Error(1)
}

func (m *MockGraphRepository) Counts(ctx context.Context) (domain.Counts, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Counts), args.Error(1)
}

func TestDemoSeeder_SeedIfNeeded_EmptyStore(t *testing.T) {
	ctx := context.Background()
	mockAccounts := new(MockAccountRepository)
	mockGraphs := new(MockGraphRepository)
	notifier := changes.NewNotifier(nil)
	fired := 0
	notifier.Subscribe(func(context.Context) { fired++ })
	seeder := NewDemoSeeder(mockAccounts, mockGraphs, notifier, nil)

	mockAccounts.On("Count", ctx, 1).Return(0, nil)
	mockGraphs.On("InsertIfEmpty", ctx, mock.MatchedBy(func(g domain.Graph) bool {
		return len(g.Accounts) == 1 &&
			g.Accounts[0].Name == DemoAccountName &&
			g.Accounts[0].Balance.Equal(DemoBalance) &&
			len(g.Snapshots) == DemoSnapshots &&
			len(g.Goals) == len(DemoGoals) &&
			g.Settings != nil && g.Settings.IsEnabled
	})).Return(true, nil)

	// Execute
	seeded, err := seeder.SeedIfNeeded(ctx)

	// Assert
	assert.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, 1, fired)
	mockAccounts.AssertExpectations(t)
	mockGraphs.AssertExpectations(t)
}

func TestDemoSeeder_SeedIfNeeded_AccountsExist(t *testing.T) {
	ctx := context.Background()
	mockAccounts := new(MockAccountRepository)
	mockGraphs := new(MockGraphRepository)
	seeder := NewDemoSeeder(mockAccounts, mockGraphs, nil, nil)

	mockAccounts.On("Count", ctx, 1).Return(1, nil)

	seeded, err := seeder.SeedIfNeeded(ctx)

	assert.NoError(t, err)
	assert.False(t, seeded)
	mockGraphs.AssertNotCalled(t, "InsertIfEmpty", mock.Anything, mock.Anything)
}

func TestDemoSeeder_SeedIfNeeded_InsertFails(t *testing.T) {
	ctx := context.Background()
	mockAccounts := new(MockAccountRepository)
	mockGraphs := new(MockGraphRepository)
	notifier := changes.NewNotifier(nil)
	fired := 0
	notifier.Subscribe(func(context.Context) { fired++ })
	seeder := NewDemoSeeder(mockAccounts, mockGraphs, notifier, nil)

	storeErr := &domain.StoreError{Op: "commit", Err: errors.New("disk full")}
	mockAccounts.On("Count", ctx, 1).Return(0, nil)
	mockGraphs.On("InsertIfEmpty", ctx, mock.Anything).Return(false, storeErr)

	seeded, err := seeder.SeedIfNeeded(ctx)

	assert.ErrorIs(t, err, storeErr)
	assert.False(t, seeded)
	assert.Equal(t, 0, fired)
}

func TestDemoSeeder_SeedIfNeeded_AccountLandsBeforeCommit(t *testing.T) {
	ctx := context.Background()
	mockAccounts := new(MockAccountRepository)
	mockGraphs := new(MockGraphRepository)
	notifier := changes.NewNotifier(nil)
	fired := 0
	notifier.Subscribe(func(context.Context) { fired++ })
	seeder := NewDemoSeeder(mockAccounts, mockGraphs, notifier, nil)

	mockAccounts.On("Count", ctx, 1).Return(0, nil)
	mockGraphs.On("InsertIfEmpty", ctx, mock.Anything).Return(false, nil)

	seeded, err := seeder.SeedIfNeeded(ctx)

	assert.NoError(t, err)
	assert.False(t, seeded)
	assert.Equal(t, 0, fired)
	mockGraphs.AssertExpectations(t)
}

// racingAccounts reports the count it sees, then creates a user account
// before the caller gets to commit
type racingAccounts struct {
	domain.AccountRepository
	t *testing.T
}

func (r racingAccounts) Count(ctx context.Context, limit int) (int, error) {
	n, err := r.AccountRepository.Count(ctx, limit)
	_, createErr := r.AccountRepository.Create(ctx, domain.NewAccount{Name: "My Bank", Category: domain.AccountCategoryCash, Balance: decimal.NewFromInt(10)})
	require.NoError(r.t, createErr)
	return n, err
}

func TestDemoSeeder_DoesNotSeedNextToUserAccount(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.OpenStore(ctx, filepath.Join(t.TempDir(), "jellysave.db"))
	require.NoError(t, err)
	defer store.Close()

	accounts := sqlite.NewAccountRepository(store)
	graphs := sqlite.NewGraphRepository(store)
	seeder := NewDemoSeeder(racingAccounts{AccountRepository: accounts, t: t}, graphs, nil, nil)

	seeded, err := seeder.SeedIfNeeded(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	counts, err := graphs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Accounts: 1}, counts)

	all, err := accounts.FetchAll(ctx, domain.AccountSortNewest)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "My Bank", all[0].Name)
}

func TestDemoGraph(t *testing.T) {
	now := time.Date(2024, 8, 31, 10, 0, 0, 0, time.UTC)
	g, err := DemoGraph(now)
	require.NoError(t, err)

	require.Len(t, g.Snapshots, DemoSnapshots)
	for i, s := range g.Snapshots {
		require.NotNil(t, s.AccountID)
		assert.Equal(t, g.Accounts[0].ID, *s.AccountID)
		if i > 0 {
			prev := g.Snapshots[i-1]
			assert.True(t, s.TotalAssets.GreaterThan(prev.TotalAssets), "totals must increase")
			assert.True(t, s.Date.After(prev.Date), "dates must increase")
		}
	}
	assert.True(t, g.Snapshots[DemoSnapshots-1].TotalAssets.Equal(DemoBalance))

	require.Len(t, g.Goals, 3)
	wantDeadlines := []time.Time{now.AddDate(0, 3, 0), now.AddDate(0, 6, 0), now.AddDate(0, 12, 0)}
	for i, goal := range g.Goals {
		assert.True(t, goal.Deadline.Equal(wantDeadlines[i]))
		assert.False(t, goal.IsCompleted)
	}

	require.NotNil(t, g.Settings)
	assert.Equal(t, "09:30", g.Settings.Time.String())
	assert.Equal(t, domain.QuoteCategorySaving, g.Settings.QuoteCategory)
}

func TestDemoSeeder_Idempotent(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.OpenStore(ctx, filepath.Join(t.TempDir(), "jellysave.db"))
	require.NoError(t, err)
	defer store.Close()

	accounts := sqlite.NewAccountRepository(store)
	graphs := sqlite.NewGraphRepository(store)
	notifier := changes.NewNotifier(nil)
	var mu sync.Mutex
	fired := 0
	notifier.Subscribe(func(context.Context) {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	seeder := NewDemoSeeder(accounts, graphs, notifier, nil)

	// concurrent callers seed once
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := <-seeder.SeedIfNeededAsync(ctx)
			assert.NoError(t, res.Err)
		}()
	}
	wg.Wait()

	seeded, err := seeder.SeedIfNeeded(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	counts, err := graphs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Accounts: 1, Snapshots: 6, Goals: 3, Settings: 1}, counts)
	assert.Equal(t, 1, fired)

	all, err := accounts.FetchAll(ctx, domain.AccountSortNewest)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, DemoAccountName, all[0].Name)
	assert.True(t, all[0].Balance.Equal(DemoBalance))
}

func TestDemoSeeder_KeepsExistingSettingsRow(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.OpenStore(ctx, filepath.Join(t.TempDir(), "jellysave.db"))
	require.NoError(t, err)
	defer store.Close()

	settingsRepo := sqlite.NewSettingsRepository(store)
	existing, err := settingsRepo.Fetch(ctx)
	require.NoError(t, err)

	seeder := NewDemoSeeder(sqlite.NewAccountRepository(store), sqlite.NewGraphRepository(store), nil, nil)
	seeded, err := seeder.SeedIfNeeded(ctx)
	require.NoError(t, err)
	require.True(t, seeded)

	settings, err := settingsRepo.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, settings.ID)
	assert.True(t, settings.IsEnabled)
	assert.Equal(t, domain.TimeOfDay{Hour: 9, Minute: 30}, settings.Time)
}
