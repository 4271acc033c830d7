package backup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
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

// countingNotifier counts Notify calls
type countingNotifier struct {
	calls atomic.Int32
}

func (n *countingNotifier) Notify(context.Context) { n.calls.Add(1) }

var fixedNow = time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestService_ExportEmptyStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mockRepo := new(MockGraphRepository)
	svc := NewService(mockRepo, nil, dir)

	// snapshots alone do not make a backup
	mockRepo.On("Load", ctx).Return(domain.Graph{
		Snapshots: []domain.AssetSnapshot{{ID: uuid.New(), Date: fixedNow, CreatedAt: fixedNow}},
	}, nil)

	backup, err := svc.Export(ctx)

	assert.Nil(t, backup)
	assert.ErrorIs(t, err, domain.ErrEmptyBackup)
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	mockRepo.AssertExpectations(t)
}

func TestService_ImportMalformedLeavesStoreUntouched(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantPath string
	}{
		{name: "Not JSON", content: "{ nope"},
		{name: "Empty file", content: ""},
		{name: "Wrong type", content: `{"generatedAt":"2024-01-01T00:00:00Z","accounts":[{"name":5}]}`},
		{name: "Amount is not a number", content: `{"generatedAt":"2024-01-01T00:00:00Z","accounts":[{"balance":true}]}`},
		{name: "Bad id", content: `{"generatedAt":"2024-01-01T00:00:00Z","accounts":[{"id":"xyz","balance":1}]}`, wantPath: "accounts[0].id"},
		{name: "Missing generatedAt", content: `{"accounts":[]}`, wantPath: "generatedAt"},
		{
			name: "Dangling account reference",
			content: `{"generatedAt":"2024-01-01T00:00:00Z","snapshots":[{"id":"` + uuid.NewString() +
				`","accountId":"` + uuid.NewString() + `","date":"2024-01-01T00:00:00Z","totalAssets":1}]}`,
			wantPath: "snapshots[0].accountId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockGraphRepository)
			notifier := &countingNotifier{}
			svc := NewService(mockRepo, notifier, t.TempDir())

			path := filepath.Join(t.TempDir(), "backup.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			err := svc.Import(context.Background(), path)

			var decodeErr *domain.DecodeError
			require.True(t, errors.As(err, &decodeErr), "got %v", err)
			if tt.wantPath != "" {
				assert.Equal(t, tt.wantPath, decodeErr.Path)
			}
			mockRepo.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
			assert.Equal(t, int32(0), notifier.calls.Load())
		})
	}
}

func TestService_RestoreFailureDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockGraphRepository)
	notifier := &countingNotifier{}
	svc := NewService(mockRepo, notifier, t.TempDir())

	storeErr := &domain.StoreError{Op: "commit", Err: errors.New("disk full")}
	mockRepo.On("Replace", ctx, mock.Anything).Return(storeErr)

	err := svc.Restore(ctx, &Document{GeneratedAt: Timestamp{fixedNow}})

	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, int32(0), notifier.calls.Load())
	mockRepo.AssertExpectations(t)
}

func TestService_ClearNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockGraphRepository)
	notifier := &countingNotifier{}
	svc := NewService(mockRepo, notifier, t.TempDir())

	mockRepo.On("Replace", ctx, domain.Graph{}).Return(nil)

	require.NoError(t, svc.Clear(ctx))
	assert.Equal(t, int32(1), notifier.calls.Load())
	mockRepo.AssertExpectations(t)
}

// populatedStore opens a sqlite store holding two accounts, snapshots, goals and settings
func populatedStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.OpenStore(ctx, filepath.Join(t.TempDir(), "jellysave.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	accounts := sqlite.NewAccountRepository(store)
	cash, err := accounts.Create(ctx, domain.NewAccount{Name: "Cash", Category: domain.AccountCategoryCash, Balance: decimal.RequireFromString("128000.25")})
	require.NoError(t, err)
	notes := "USD savings"
	_, err = accounts.Create(ctx, domain.NewAccount{Name: "FX", Category: domain.AccountCategoryForeignCurrency, Currency: "USD", Balance: decimal.RequireFromString("0.01"), Notes: &notes})
	require.NoError(t, err)

	snapshots := sqlite.NewSnapshotRepository(store)
	_, err = snapshots.Create(ctx, domain.NewSnapshot{AccountID: &cash.ID, Date: fixedNow.AddDate(0, -1, 0), TotalAssets: decimal.RequireFromString("99999.99")})
	require.NoError(t, err)
	_, err = snapshots.Create(ctx, domain.NewSnapshot{Date: fixedNow, TotalAssets: decimal.RequireFromString("128000.26")})
	require.NoError(t, err)

	goals := sqlite.NewGoalRepository(store)
	_, err = goals.Create(ctx, domain.NewGoal{Title: "Trip", TargetAmount: decimal.NewFromInt(60000), CurrentAmount: decimal.NewFromInt(60000), Deadline: fixedNow.AddDate(0, 6, 0)})
	require.NoError(t, err)
	_, err = goals.Create(ctx, domain.NewGoal{Title: "Laptop", TargetAmount: decimal.RequireFromString("45000.5"), Deadline: fixedNow.AddDate(1, 0, 0)})
	require.NoError(t, err)

	_, err = sqlite.NewSettingsRepository(store).Update(ctx, domain.SettingsPatch{Time: &domain.TimeOfDay{Hour: 21, Minute: 30}})
	require.NoError(t, err)
	return store
}

func TestService_ExportWritesSortedDocument(t *testing.T) {
	ctx := context.Background()
	store := populatedStore(t)
	dir := t.TempDir()
	svc := NewService(sqlite.NewGraphRepository(store), nil, dir, WithClock(fixedClock))

	backup, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "JellySaveBackup-20240309-140506.json"), backup.Path)
	assert.Len(t, backup.Document.Accounts, 2)
	assert.Len(t, backup.Document.Goals, 2)
	assert.Len(t, backup.Document.Snapshots, 2)

	data, err := os.ReadFile(backup.Path)
	require.NoError(t, err)
	text := string(data)

	order := []string{`"accounts"`, `"generatedAt"`, `"goals"`, `"notificationSettings"`, `"snapshots"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, key)
		require.NotEqual(t, -1, idx, key)
		assert.Greater(t, idx, last, "%s out of order", key)
		last = idx
	}
	assert.Contains(t, text, `"balance": 128000.25`)
	assert.Contains(t, text, `"generatedAt": "2024-03-09T14:05:06Z"`)
	assert.Contains(t, text, strings.ToUpper(backup.Document.Accounts[0].ID))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 5)

	// a second export in the same second gets a fresh name
	second, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "JellySaveBackup-20240309-140506-1.json"), second.Path)
}

func TestService_ExportWritesWholeSecondTimestamps(t *testing.T) {
	ctx := context.Background()
	store := populatedStore(t)

	backup, err := NewService(sqlite.NewGraphRepository(store), nil, t.TempDir()).Export(ctx)
	require.NoError(t, err)

	data, err := os.ReadFile(backup.Path)
	require.NoError(t, err)
	text := string(data)

	assert.Regexp(t, `"createdAt": "\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z"`, text)
	assert.NotRegexp(t, regexp.MustCompile(`"\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+`), text)

	// what was stamped is what was written
	g, err := sqlite.NewGraphRepository(store).Load(ctx)
	require.NoError(t, err)
	for i, a := range g.Accounts {
		assert.True(t, a.CreatedAt.Equal(backup.Document.Accounts[i].CreatedAt.Time))
	}
}

func TestService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source := populatedStore(t)
	sourceGraphs := sqlite.NewGraphRepository(source)
	before, err := sourceGraphs.Load(ctx)
	require.NoError(t, err)

	backup, err := NewService(sourceGraphs, nil, t.TempDir()).Export(ctx)
	require.NoError(t, err)

	target := populatedStore(t)
	targetGraphs := sqlite.NewGraphRepository(target)
	notifier := changes.NewNotifier(nil)
	var fired atomic.Int32
	notifier.Subscribe(func(context.Context) { fired.Add(1) })
	svc := NewService(targetGraphs, notifier, t.TempDir())

	// importing twice ends in the same state
	for i := 0; i < 2; i++ {
		require.NoError(t, svc.Import(ctx, backup.Path))
	}
	assert.Equal(t, int32(2), fired.Load())

	after, err := targetGraphs.Load(ctx)
	require.NoError(t, err)
	assertSameGraph(t, before, after)

	counts, err := targetGraphs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{
		Accounts:  len(backup.Document.Accounts),
		Goals:     len(backup.Document.Goals),
		Snapshots: len(backup.Document.Snapshots),
		Settings:  1,
	}, counts)

	assert.True(t, domain.TotalBalance(before.Accounts).Equal(domain.TotalBalance(after.Accounts)))
}

func assertSameGraph(t *testing.T, want, got domain.Graph) {
	t.Helper()
	require.Len(t, got.Accounts, len(want.Accounts))
	for i, a := range want.Accounts {
		b := got.Accounts[i]
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.Name, b.Name)
		assert.Equal(t, a.Category, b.Category)
		assert.Equal(t, a.Currency, b.Currency)
		assert.True(t, a.Balance.Equal(b.Balance), "balance %s != %s", a.Balance, b.Balance)
		assert.True(t, a.CreatedAt.Equal(b.CreatedAt))
		assert.True(t, a.UpdatedAt.Equal(b.UpdatedAt))
		assert.Equal(t, a.IsActive, b.IsActive)
		assert.Equal(t, a.Notes, b.Notes)
	}

	require.Len(t, got.Goals, len(want.Goals))
	for i, a := range want.Goals {
		b := got.Goals[i]
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.Title, b.Title)
		assert.True(t, a.TargetAmount.Equal(b.TargetAmount))
		assert.True(t, a.CurrentAmount.Equal(b.CurrentAmount))
		assert.True(t, a.Deadline.Equal(b.Deadline))
		assert.Equal(t, a.IsCompleted, b.IsCompleted)
		if a.CompletedAt == nil {
			assert.Nil(t, b.CompletedAt)
		} else {
			require.NotNil(t, b.CompletedAt)
			assert.True(t, a.CompletedAt.Equal(*b.CompletedAt))
		}
	}

	require.Len(t, got.Snapshots, len(want.Snapshots))
	for i, a := range want.Snapshots {
		b := got.Snapshots[i]
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.AccountID, b.AccountID)
		assert.True(t, a.Date.Equal(b.Date))
		assert.True(t, a.CreatedAt.Equal(b.CreatedAt))
		assert.True(t, a.TotalAssets.Equal(b.TotalAssets))
	}

	require.NotNil(t, got.Settings)
	assert.Equal(t, want.Settings.ID, got.Settings.ID)
	assert.Equal(t, want.Settings.Time, got.Settings.Time)
	assert.Equal(t, want.Settings.QuoteCategory, got.Settings.QuoteCategory)
}

func TestService_FailedImportKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	store := populatedStore(t)
	graphs := sqlite.NewGraphRepository(store)
	before, err := graphs.Load(ctx)
	require.NoError(t, err)

	// the same id twice passes decoding but is rejected by the store
	id := strings.ToUpper(uuid.NewString())
	doc := &Document{
		GeneratedAt: Timestamp{fixedNow},
		Accounts: []AccountRecord{
			{ID: id, Name: "A", Type: "cash", Currency: "TWD", Balance: Amount{decimal.NewFromInt(1)}, CreatedAt: Timestamp{fixedNow}, UpdatedAt: Timestamp{fixedNow}},
			{ID: id, Name: "B", Type: "cash", Currency: "TWD", Balance: Amount{decimal.NewFromInt(2)}, CreatedAt: Timestamp{fixedNow}, UpdatedAt: Timestamp{fixedNow}},
		},
	}
	notifier := &countingNotifier{}
	err = NewService(graphs, notifier, t.TempDir()).Restore(ctx, doc)

	var storeErr *domain.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.True(t, storeErr.Constraint)
	assert.Equal(t, int32(0), notifier.calls.Load())

	after, err := graphs.Load(ctx)
	require.NoError(t, err)
	assertSameGraph(t, before, after)
}

func TestService_ClearEmptiesEveryEntity(t *testing.T) {
	ctx := context.Background()
	store := populatedStore(t)
	graphs := sqlite.NewGraphRepository(store)
	notifier := &countingNotifier{}
	svc := NewService(graphs, notifier, t.TempDir())

	res := <-svc.ClearAsync(ctx)
	require.NoError(t, res.Err)

	counts, err := graphs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{}, counts)
	assert.Equal(t, int32(1), notifier.calls.Load())

	accounts, err := sqlite.NewAccountRepository(store).FetchAll(ctx, domain.AccountSortNewest)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	exported := <-svc.ExportAsync(ctx)
	assert.ErrorIs(t, exported.Err, domain.ErrEmptyBackup)
}
