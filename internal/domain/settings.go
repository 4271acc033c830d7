package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QuoteCategory selects which family of motivational quotes the daily reminder shows
type QuoteCategory string

const (
	QuoteCategorySaving     QuoteCategory = "saving"
	QuoteCategoryInvestment QuoteCategory = "investment"
)

// ParseQuoteCategory falls back to saving for unknown values
func ParseQuoteCategory(s string) QuoteCategory {
	switch QuoteCategory(s) {
	case QuoteCategoryInvestment:
		return QuoteCategoryInvestment
	default:
		return QuoteCategorySaving
	}
}

// TimeOfDay is a wall-clock hour and minute
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if err := t.Validate(); err != nil {
		return TimeOfDay{}, err
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Validate ensures hour and minute are on the clock
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return &ValidationError{Field: "notificationTime", Message: fmt.Sprintf("%02d:%02d is not a valid time of day", t.Hour, t.Minute)}
	}
	return nil
}

// On returns the instant at this time of day on the date of ref, in ref's location
func (t TimeOfDay) On(ref time.Time) time.Time {
	y, m, d := ref.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, ref.Location())
}

// NotificationSettings holds the daily reminder preferences.
// A store holds at most one meaningful row.
type NotificationSettings struct {
	ID            uuid.UUID
	IsEnabled     bool
	Time          TimeOfDay
	QuoteCategory QuoteCategory
	UpdatedAt     time.Time
}

// SettingsPatch lists the settings fields to change
type SettingsPatch struct {
	IsEnabled     *bool
	Time          *TimeOfDay
	QuoteCategory *QuoteCategory
}

// DefaultNotificationSettings is the row created when none exists yet
func DefaultNotificationSettings(now time.Time) NotificationSettings {
	return NotificationSettings{
		ID:            uuid.New(),
		IsEnabled:     false,
		Time:          TimeOfDay{Hour: 9, Minute: 0},
		QuoteCategory: QuoteCategorySaving,
		UpdatedAt:     now,
	}
}

// Apply returns a copy of the settings with the patch applied
func (s NotificationSettings) Apply(p SettingsPatch, now time.Time) (NotificationSettings, error) {
	next := s
	if p.IsEnabled != nil {
		next.IsEnabled = *p.IsEnabled
	}
	if p.Time != nil {
		next.Time = *p.Time
	}
	if p.QuoteCategory != nil {
		next.QuoteCategory = ParseQuoteCategory(string(*p.QuoteCategory))
	}
	next.UpdatedAt = now
	if err := next.Validate(); err != nil {
		return NotificationSettings{}, err
	}
	return next, nil
}

// Validate ensures the settings adhere to domain rules
func (s *NotificationSettings) Validate() error {
	return s.Time.Validate()
}
