package sqlite

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/simaogato/jellysave-store/internal/domain"
)

var settingsMapper = mapper[domain.NotificationSettings]{
	id: func(s domain.NotificationSettings) uuid.UUID { return s.ID },
	encode: func(s domain.NotificationSettings) record {
		return record{
			"id":                s.ID.String(),
			"is_enabled":        boolValue(s.IsEnabled),
			"notification_time": s.Time.String(),
			"quote_category":    string(s.QuoteCategory),
			"updated_at":        timeValue(s.UpdatedAt),
		}
	},
	decode: func(r *recordReader) domain.NotificationSettings {
		at, err := domain.ParseTimeOfDay(r.text("notification_time"))
		if err != nil {
			r.fail("notification_time", err)
		}
		return domain.NotificationSettings{
			ID:            r.uuid("id"),
			IsEnabled:     r.boolean("is_enabled"),
			Time:          at,
			QuoteCategory: domain.ParseQuoteCategory(r.text("quote_category")),
			UpdatedAt:     r.time("updated_at"),
		}
	},
}

// latestSettings is the ordering that picks the meaningful row when several exist
var latestSettings = []string{"updated_at DESC", "id ASC"}

// settingsRepository implements domain.SettingsRepository
type settingsRepository struct {
	repository[domain.NotificationSettings]
	mu sync.Mutex
}

// NewSettingsRepository creates a new notification settings repository
func NewSettingsRepository(store *Store) domain.SettingsRepository {
	return &settingsRepository{repository: newRepository(store, store.Schema().Settings, settingsMapper)}
}

// current returns the meaningful settings row, or nil when the store has none
func (r *settingsRepository) current(ctx context.Context) (*domain.NotificationSettings, error) {
	rows, err := r.list(ctx, r.store.ReadContext(), Query{OrderBy: latestSettings, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notification settings: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Fetch returns the settings, creating the default row on first use
func (r *settingsRepository) Fetch(ctx context.Context) (domain.NotificationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings, err := r.current(ctx)
	if err != nil {
		return domain.NotificationSettings{}, err
	}
	if settings != nil {
		return *settings, nil
	}
	return r.create(ctx, domain.DefaultNotificationSettings(r.store.Now()))
}

// Update changes the settings row, creating it from the defaults when absent
func (r *settingsRepository) Update(ctx context.Context, patch domain.SettingsPatch) (domain.NotificationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings, err := r.current(ctx)
	if err != nil {
		return domain.NotificationSettings{}, err
	}
	if settings == nil {
		next, err := domain.DefaultNotificationSettings(r.store.Now()).Apply(patch, r.store.Now())
		if err != nil {
			return domain.NotificationSettings{}, err
		}
		return r.create(ctx, next)
	}
	return r.update(ctx, settings.ID, func(s domain.NotificationSettings) (domain.NotificationSettings, error) {
		return s.Apply(patch, r.store.Now())
	})
}

func (r *settingsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delete(ctx, id)
}
