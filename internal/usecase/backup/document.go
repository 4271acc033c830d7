package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/jellysave-store/internal/domain"
)

// Amount is an exact decimal written as a bare JSON number. Decoding
// accepts numbers and quoted strings.
type Amount struct {
	decimal.Decimal
}

// MarshalJSON writes the decimal digits unquoted
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON reads a number or a numeric string without going through float64
func (a *Amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return errors.New("amount cannot be null")
	}
	return a.Decimal.UnmarshalJSON(data)
}

// Timestamp is an instant written as RFC 3339 in UTC with whole seconds.
// Decoding also accepts fractional seconds.
type Timestamp struct {
	time.Time
}

// MarshalJSON writes the instant without a fractional part
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Truncate(time.Second).Format(time.RFC3339))
}

// UnmarshalJSON reads an RFC 3339 string
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	return t.Time.UnmarshalJSON(data)
}

func newTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Second)}
}

// Document is the backup file. Fields are declared in key order so the
// encoded keys come out sorted.
type Document struct {
	Accounts             []AccountRecord  `json:"accounts"`
	GeneratedAt          Timestamp        `json:"generatedAt"`
	Goals                []GoalRecord     `json:"goals"`
	NotificationSettings *SettingsRecord  `json:"notificationSettings"`
	Snapshots            []SnapshotRecord `json:"snapshots"`
}

// AccountRecord is the serialized form of an account
type AccountRecord struct {
	Balance   Amount    `json:"balance"`
	CreatedAt Timestamp `json:"createdAt"`
	Currency  string    `json:"currency"`
	ID        string    `json:"id"`
	IsActive  bool      `json:"isActive"`
	Name      string    `json:"name"`
	Notes     *string   `json:"notes,omitempty"`
	Type      string    `json:"type"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// GoalRecord is the serialized form of a saving goal
type GoalRecord struct {
	Category      *string    `json:"category,omitempty"`
	CompletedAt   *Timestamp `json:"completedAt,omitempty"`
	CreatedAt     Timestamp  `json:"createdAt"`
	CurrentAmount Amount     `json:"currentAmount"`
	Deadline      Timestamp  `json:"deadline"`
	ID            string     `json:"id"`
	IsCompleted   bool       `json:"isCompleted"`
	Notes         *string    `json:"notes,omitempty"`
	TargetAmount  Amount     `json:"targetAmount"`
	Title         string     `json:"title"`
	UpdatedAt     Timestamp  `json:"updatedAt"`
}

// SnapshotRecord is the serialized form of an asset snapshot.
// AccountID is optional; documents written without it still decode.
type SnapshotRecord struct {
	AccountID   *string   `json:"accountId,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
	Date        Timestamp `json:"date"`
	ID          string    `json:"id"`
	TotalAssets Amount    `json:"totalAssets"`
}

// SettingsRecord is the serialized form of the notification settings.
// NotificationTime is an instant whose local wall-clock hour and minute are the reminder time.
type SettingsRecord struct {
	ID               string     `json:"id"`
	IsEnabled        bool       `json:"isEnabled"`
	NotificationTime *Timestamp `json:"notificationTime,omitempty"`
	QuoteCategory    string     `json:"quoteCategory"`
	UpdatedAt        Timestamp  `json:"updatedAt"`
}

// notificationReference is the date the reminder time is pinned to on export
var notificationReference = time.Date(2000, 1, 1, 0, 0, 0, 0, time.Local)

// Encode renders the document as indented JSON
func Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return data, nil
}

// Decode parses a backup document. Any malformed content yields a *domain.DecodeError.
func Decode(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &domain.DecodeError{Err: errors.New("document is empty")}
	}

	var doc *Document
	if err := json.Unmarshal(data, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &domain.DecodeError{Path: typeErr.Field, Err: err}
		}
		return nil, &domain.DecodeError{Err: err}
	}
	if doc == nil {
		return nil, &domain.DecodeError{Err: errors.New("document is null")}
	}
	if doc.GeneratedAt.IsZero() {
		return nil, &domain.DecodeError{Path: "generatedAt", Err: errors.New("missing value")}
	}
	return doc, nil
}

// FromGraph maps a domain graph to its document
func FromGraph(g domain.Graph, generatedAt time.Time) *Document {
	doc := &Document{
		Accounts:    make([]AccountRecord, 0, len(g.Accounts)),
		GeneratedAt: newTimestamp(generatedAt),
		Goals:       make([]GoalRecord, 0, len(g.Goals)),
		Snapshots:   make([]SnapshotRecord, 0, len(g.Snapshots)),
	}

	for _, a := range g.Accounts {
		doc.Accounts = append(doc.Accounts, AccountRecord{
			Balance:   Amount{a.Balance},
			CreatedAt: newTimestamp(a.CreatedAt),
			Currency:  a.Currency,
			ID:        formatID(a.ID),
			IsActive:  a.IsActive,
			Name:      a.Name,
			Notes:     a.Notes,
			Type:      string(a.Category),
			UpdatedAt: newTimestamp(a.UpdatedAt),
		})
	}

	for _, goal := range g.Goals {
		doc.Goals = append(doc.Goals, GoalRecord{
			Category:      goal.Category,
			CompletedAt:   timestampPtr(goal.CompletedAt),
			CreatedAt:     newTimestamp(goal.CreatedAt),
			CurrentAmount: Amount{goal.CurrentAmount},
			Deadline:      newTimestamp(goal.Deadline),
			ID:            formatID(goal.ID),
			IsCompleted:   goal.IsCompleted,
			Notes:         goal.Notes,
			TargetAmount:  Amount{goal.TargetAmount},
			Title:         goal.Title,
			UpdatedAt:     newTimestamp(goal.UpdatedAt),
		})
	}

	for _, s := range g.Snapshots {
		var accountID *string
		if s.AccountID != nil {
			id := formatID(*s.AccountID)
			accountID = &id
		}
		doc.Snapshots = append(doc.Snapshots, SnapshotRecord{
			AccountID:   accountID,
			CreatedAt:   newTimestamp(s.CreatedAt),
			Date:        newTimestamp(s.Date),
			ID:          formatID(s.ID),
			TotalAssets: Amount{s.TotalAssets},
		})
	}

	if g.Settings != nil {
		at := newTimestamp(g.Settings.Time.On(notificationReference))
		doc.NotificationSettings = &SettingsRecord{
			ID:               formatID(g.Settings.ID),
			IsEnabled:        g.Settings.IsEnabled,
			NotificationTime: &at,
			QuoteCategory:    string(g.Settings.QuoteCategory),
			UpdatedAt:        newTimestamp(g.Settings.UpdatedAt),
		}
	}

	return doc
}

// Graph converts the document to domain values, preserving every id.
// Records are restored as written; they are not re-validated.
func (d *Document) Graph() (domain.Graph, error) {
	var g domain.Graph

	accountIDs := make(map[uuid.UUID]bool, len(d.Accounts))
	for i, rec := range d.Accounts {
		path := fmt.Sprintf("accounts[%d]", i)
		id, err := parseID(path+".id", rec.ID)
		if err != nil {
			return domain.Graph{}, err
		}
		category, ok := domain.ParseAccountCategory(rec.Type)
		if !ok {
			category = domain.AccountCategoryCash
		}
		currency := strings.ToUpper(strings.TrimSpace(rec.Currency))
		if currency == "" {
			currency = domain.DefaultCurrency
		}
		accountIDs[id] = true
		g.Accounts = append(g.Accounts, domain.Account{
			ID:        id,
			Name:      rec.Name,
			Category:  category,
			Currency:  currency,
			Balance:   rec.Balance.Decimal,
			CreatedAt: rec.CreatedAt.UTC(),
			UpdatedAt: rec.UpdatedAt.UTC(),
			IsActive:  rec.IsActive,
			Notes:     rec.Notes,
		})
	}

	for i, rec := range d.Goals {
		path := fmt.Sprintf("goals[%d]", i)
		id, err := parseID(path+".id", rec.ID)
		if err != nil {
			return domain.Graph{}, err
		}
		if rec.Deadline.IsZero() {
			return domain.Graph{}, &domain.DecodeError{Path: path + ".deadline", Err: errors.New("missing value")}
		}
		g.Goals = append(g.Goals, domain.SavingGoal{
			ID:            id,
			Title:         rec.Title,
			Category:      rec.Category,
			Notes:         rec.Notes,
			CreatedAt:     rec.CreatedAt.UTC(),
			UpdatedAt:     rec.UpdatedAt.UTC(),
			Deadline:      rec.Deadline.UTC(),
			CompletedAt:   timePtr(rec.CompletedAt),
			IsCompleted:   rec.IsCompleted,
			TargetAmount:  rec.TargetAmount.Decimal,
			CurrentAmount: rec.CurrentAmount.Decimal,
		})
	}

	for i, rec := range d.Snapshots {
		path := fmt.Sprintf("snapshots[%d]", i)
		id, err := parseID(path+".id", rec.ID)
		if err != nil {
			return domain.Graph{}, err
		}
		if rec.Date.IsZero() {
			return domain.Graph{}, &domain.DecodeError{Path: path + ".date", Err: errors.New("missing value")}
		}
		snapshot := domain.AssetSnapshot{
			ID:          id,
			Date:        rec.Date.UTC(),
			CreatedAt:   rec.CreatedAt.UTC(),
			TotalAssets: rec.TotalAssets.Decimal,
		}
		if rec.AccountID != nil {
			accountID, err := parseID(path+".accountId", *rec.AccountID)
			if err != nil {
				return domain.Graph{}, err
			}
			if !accountIDs[accountID] {
				return domain.Graph{}, &domain.DecodeError{Path: path + ".accountId", Err: fmt.Errorf("unknown account %s", *rec.AccountID)}
			}
			snapshot.AccountID = &accountID
		}
		g.Snapshots = append(g.Snapshots, snapshot)
	}

	if rec := d.NotificationSettings; rec != nil {
		id, err := parseID("notificationSettings.id", rec.ID)
		if err != nil {
			return domain.Graph{}, err
		}
		at := domain.TimeOfDay{Hour: 9}
		if rec.NotificationTime != nil {
			local := rec.NotificationTime.In(time.Local)
			at = domain.TimeOfDay{Hour: local.Hour(), Minute: local.Minute()}
		}
		g.Settings = &domain.NotificationSettings{
			ID:            id,
			IsEnabled:     rec.IsEnabled,
			Time:          at,
			QuoteCategory: domain.ParseQuoteCategory(rec.QuoteCategory),
			UpdatedAt:     rec.UpdatedAt.UTC(),
		}
	}

	return g, nil
}

// formatID writes ids upper-case, as earlier backups did
func formatID(id uuid.UUID) string {
	return strings.ToUpper(id.String())
}

func parseID(path, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &domain.DecodeError{Path: path, Err: err}
	}
	return id, nil
}

func timestampPtr(t *time.Time) *Timestamp {
	if t == nil {
		return nil
	}
	ts := newTimestamp(*t)
	return &ts
}

func timePtr(t *Timestamp) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
