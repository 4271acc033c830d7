package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SavingGoal represents a target amount the user saves towards before a deadline
type SavingGoal struct {
	ID            uuid.UUID
	Title         string
	Category      *string
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Deadline      time.Time
	CompletedAt   *time.Time
	IsCompleted   bool
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
}

// NewGoal carries the caller-supplied fields of a goal to create
type NewGoal struct {
	Title         string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Deadline      time.Time
	Category      *string
	Notes         *string
}

// GoalPatch lists the fields to change on a goal. Nil fields are left untouched.
type GoalPatch struct {
	Title         *string
	TargetAmount  *decimal.Decimal
	CurrentAmount *decimal.Decimal
	Deadline      *time.Time
	Category      *string
	Notes         *string
}

// Build mints a new goal from the input.
// A goal created with current >= target starts out completed.
func (in NewGoal) Build(now time.Time) (SavingGoal, error) {
	g := SavingGoal{
		ID:            uuid.New(),
		Title:         strings.TrimSpace(in.Title),
		Category:      normalizeNotes(in.Category),
		Notes:         normalizeNotes(in.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
		Deadline:      in.Deadline,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
	}
	g = g.reconcile(now)
	if err := g.Validate(); err != nil {
		return SavingGoal{}, err
	}
	return g, nil
}

// Apply returns a copy of the goal with the patch applied, completion
// reconciled against the new amounts and UpdatedAt refreshed
func (g SavingGoal) Apply(p GoalPatch, now time.Time) (SavingGoal, error) {
	next := g
	if p.Title != nil {
		next.Title = strings.TrimSpace(*p.Title)
	}
	if p.TargetAmount != nil {
		next.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		next.CurrentAmount = *p.CurrentAmount
	}
	if p.Deadline != nil {
		next.Deadline = *p.Deadline
	}
	if p.Category != nil {
		next.Category = normalizeNotes(p.Category)
	}
	if p.Notes != nil {
		next.Notes = normalizeNotes(p.Notes)
	}
	next.UpdatedAt = laterOf(now, next.CreatedAt)
	next = next.reconcile(now)
	if err := next.Validate(); err != nil {
		return SavingGoal{}, err
	}
	return next, nil
}

// Complete marks the goal as reached.
// It fails when the current amount has not reached the target yet.
func (g SavingGoal) Complete(now time.Time) (SavingGoal, error) {
	if !g.Reached() {
		return SavingGoal{}, &ValidationError{Field: "currentAmount", Message: "goal has not reached its target amount"}
	}
	next := g
	next.UpdatedAt = laterOf(now, next.CreatedAt)
	next.IsCompleted = true
	if next.CompletedAt == nil {
		completedAt := next.UpdatedAt
		next.CompletedAt = &completedAt
	}
	return next, nil
}

// reconcile keeps IsCompleted and CompletedAt consistent with the amounts
func (g SavingGoal) reconcile(now time.Time) SavingGoal {
	if g.Reached() {
		if !g.IsCompleted || g.CompletedAt == nil {
			completedAt := laterOf(now, g.CreatedAt)
			g.CompletedAt = &completedAt
		}
		g.IsCompleted = true
		return g
	}
	g.IsCompleted = false
	g.CompletedAt = nil
	return g
}

// Reached reports whether the current amount covers a positive target
func (g SavingGoal) Reached() bool {
	return g.TargetAmount.IsPositive() && g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Progress returns current/target clamped to [0, 1]
func (g SavingGoal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	ratio := g.CurrentAmount.Div(g.TargetAmount)
	if ratio.IsNegative() {
		return decimal.Zero
	}
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return ratio
}

// Remaining returns how much is still missing to reach the target, never negative
func (g SavingGoal) Remaining() decimal.Decimal {
	remaining := g.TargetAmount.Sub(g.CurrentAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// MonthlySavingRequired spreads the remaining amount over the whole months
// left until the deadline, counting at least one month
func (g SavingGoal) MonthlySavingRequired(ref time.Time) decimal.Decimal {
	remaining := g.Remaining()
	if remaining.IsZero() {
		return decimal.Zero
	}
	months := wholeMonthsBetween(ref, g.Deadline)
	if months < 1 {
		months = 1
	}
	return remaining.Div(decimal.NewFromInt(int64(months)))
}

// Validate ensures the goal adheres to domain rules
func (g *SavingGoal) Validate() error {
	if g.Title == "" {
		return &ValidationError{Field: "title", Message: "goal title cannot be empty"}
	}
	if !g.TargetAmount.IsPositive() {
		return &ValidationError{Field: "targetAmount", Message: "must be positive"}
	}
	if g.CurrentAmount.IsNegative() {
		return &ValidationError{Field: "currentAmount", Message: "must not be negative"}
	}
	if g.Deadline.IsZero() {
		return &ValidationError{Field: "deadline", Message: "goal deadline is required"}
	}
	if g.UpdatedAt.Before(g.CreatedAt) {
		return &ValidationError{Field: "updatedAt", Message: "must not precede createdAt"}
	}
	if g.IsCompleted && (g.CompletedAt == nil || !g.Reached()) {
		return &ValidationError{Field: "isCompleted", Message: "a completed goal must have reached its target"}
	}
	return nil
}

// wholeMonthsBetween counts calendar months from a to b, dropping a partial last month
func wholeMonthsBetween(a, b time.Time) int {
	if !b.After(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
	if a.AddDate(0, months, 0).After(b) {
		months--
	}
	return months
}
