package domain

import (
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountCategory represents the kind of holdings an account tracks
type AccountCategory string

const (
	AccountCategoryCash            AccountCategory = "cash"
	AccountCategoryStock           AccountCategory = "stock"
	AccountCategoryForeignCurrency AccountCategory = "foreign-currency"
	AccountCategoryInsurance       AccountCategory = "insurance"
	AccountCategoryCrypto          AccountCategory = "crypto"
)

// DefaultCurrency is assigned to accounts created without an explicit currency
const DefaultCurrency = "TWD"

// AccountCategories lists every category in display order
var AccountCategories = []AccountCategory{
	AccountCategoryCash,
	AccountCategoryStock,
	AccountCategoryForeignCurrency,
	AccountCategoryInsurance,
	AccountCategoryCrypto,
}

// legacy labels written by earlier versions of the app
var legacyCategoryLabels = map[string]AccountCategory{
	"現金帳戶": AccountCategoryCash,
	"股票帳戶": AccountCategoryStock,
	"外幣帳戶": AccountCategoryForeignCurrency,
	"保險":   AccountCategoryInsurance,
	"加密貨幣": AccountCategoryCrypto,
}

// ParseAccountCategory resolves a category code or a legacy label
func ParseAccountCategory(s string) (AccountCategory, bool) {
	s = strings.TrimSpace(s)
	for _, c := range AccountCategories {
		if string(c) == s {
			return c, true
		}
	}
	c, ok := legacyCategoryLabels[s]
	return c, ok
}

// Valid reports whether c is one of the known categories
func (c AccountCategory) Valid() bool {
	for _, known := range AccountCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Description returns a short human-readable explanation of the category
func (c AccountCategory) Description() string {
	switch c {
	case AccountCategoryCash:
		return "Day-to-day spending and cash on hand"
	case AccountCategoryStock:
		return "Equities and dividend income"
	case AccountCategoryForeignCurrency:
		return "Travel money and multi-currency holdings"
	case AccountCategoryInsurance:
		return "Insurance cover and long-term annuities"
	case AccountCategoryCrypto:
		return "Highly volatile digital assets"
	default:
		return ""
	}
}

// Account represents a financial account in the domain layer
type Account struct {
	ID        uuid.UUID
	Name      string
	Category  AccountCategory
	Currency  string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
	Notes     *string
}

// NewAccount carries the caller-supplied fields of an account to create
type NewAccount struct {
	Name     string
	Category AccountCategory
	Currency string // DefaultCurrency when empty
	Balance  decimal.Decimal
	Notes    *string
}

// AccountPatch lists the fields to change on an account. Nil fields are left untouched.
// A non-nil empty Notes clears the notes.
type AccountPatch struct {
	Name     *string
	Category *AccountCategory
	Currency *string
	Balance  *decimal.Decimal
	IsActive *bool
	Notes    *string
}

// Build mints a new account from the input, assigning id and timestamps
func (in NewAccount) Build(now time.Time) (Account, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	a := Account{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Category:  in.Category,
		Currency:  currency,
		Balance:   in.Balance,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
		Notes:     normalizeNotes(in.Notes),
	}
	if err := a.Validate(); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Apply returns a copy of the account with the patch applied and UpdatedAt refreshed
func (a Account) Apply(p AccountPatch, now time.Time) (Account, error) {
	next := a
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.Currency != nil {
		next.Currency = strings.ToUpper(strings.TrimSpace(*p.Currency))
	}
	if p.Balance != nil {
		next.Balance = *p.Balance
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	if p.Notes != nil {
		next.Notes = normalizeNotes(p.Notes)
	}
	next.UpdatedAt = laterOf(now, next.CreatedAt)
	if err := next.Validate(); err != nil {
		return Account{}, err
	}
	return next, nil
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.Name == "" {
		return &ValidationError{Field: "name", Message: "account name cannot be empty"}
	}
	if !a.Category.Valid() {
		return &ValidationError{Field: "category", Message: "unknown account category " + string(a.Category)}
	}
	if money.GetCurrency(a.Currency) == nil {
		return &ValidationError{Field: "currency", Message: "unknown currency code " + a.Currency}
	}
	if a.UpdatedAt.Before(a.CreatedAt) {
		return &ValidationError{Field: "updatedAt", Message: "must not precede createdAt"}
	}
	return nil
}

// FormattedBalance renders the balance with the currency's symbol and grouping
func (a Account) FormattedBalance() string {
	return FormatAmount(a.Balance, a.Currency)
}

// FormatAmount renders an exact amount in the given currency
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.String() + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// TotalBalance sums account balances exactly
func TotalBalance(accounts []Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func laterOf(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}
