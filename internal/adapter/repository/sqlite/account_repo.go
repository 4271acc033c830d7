package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/jellysave-store/internal/domain"
)

var accountMapper = mapper[domain.Account]{
	id: func(a domain.Account) uuid.UUID { return a.ID },
	encode: func(a domain.Account) record {
		return record{
			"id":         a.ID.String(),
			"name":       a.Name,
			"category":   string(a.Category),
			"currency":   a.Currency,
			"balance":    a.Balance.String(),
			"created_at": timeValue(a.CreatedAt),
			"updated_at": timeValue(a.UpdatedAt),
			"is_active":  boolValue(a.IsActive),
			"notes":      optionalStringValue(a.Notes),
		}
	},
	decode: func(r *recordReader) domain.Account {
		category, ok := domain.ParseAccountCategory(r.text("category"))
		if !ok {
			category = domain.AccountCategoryCash
		}
		return domain.Account{
			ID:        r.uuid("id"),
			Name:      r.text("name"),
			Category:  category,
			Currency:  r.text("currency"),
			Balance:   r.decimal("balance"),
			CreatedAt: r.time("created_at"),
			UpdatedAt: r.time("updated_at"),
			IsActive:  r.boolean("is_active"),
			Notes:     r.optionalText("notes"),
		}
	},
}

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	repository[domain.Account]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(store *Store) domain.AccountRepository {
	return &accountRepository{newRepository(store, store.Schema().Account, accountMapper)}
}

func accountOrder(sort domain.AccountSort) []string {
	switch sort {
	case domain.AccountSortOldest:
		return []string{"created_at ASC", "id ASC"}
	case domain.AccountSortName:
		return []string{"name ASC", "created_at DESC"}
	default:
		return []string{"created_at DESC", "id ASC"}
	}
}

// FetchAll lists every account in the requested order
func (r *accountRepository) FetchAll(ctx context.Context, sort domain.AccountSort) ([]domain.Account, error) {
	accounts, err := r.list(ctx, r.store.ReadContext(), Query{OrderBy: accountOrder(sort)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	return accounts, nil
}

// Get retrieves an account by its ID
func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.get(ctx, id)
}

// Count returns the number of accounts, capped at limit when limit > 0
func (r *accountRepository) Count(ctx context.Context, limit int) (int, error) {
	return r.count(ctx, limit)
}

// Create mints and stores a new account
func (r *accountRepository) Create(ctx context.Context, in domain.NewAccount) (domain.Account, error) {
	account, err := in.Build(r.store.Now())
	if err != nil {
		return domain.Account{}, err
	}
	return r.create(ctx, account)
}

// Update applies a patch to an existing account
func (r *accountRepository) Update(ctx context.Context, id uuid.UUID, patch domain.AccountPatch) (domain.Account, error) {
	return r.update(ctx, id, func(a domain.Account) (domain.Account, error) {
		return a.Apply(patch, r.store.Now())
	})
}

// Delete removes an account; its snapshots go with it
func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.delete(ctx, id)
}

// TotalBalance sums every account balance exactly
func (r *accountRepository) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	accounts, err := r.FetchAll(ctx, domain.AccountSortNewest)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.TotalBalance(accounts), nil
}
