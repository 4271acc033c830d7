package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/jellysave-store/internal/domain"
)

var goalMapper = mapper[domain.SavingGoal]{
	id: func(g domain.SavingGoal) uuid.UUID { return g.ID },
	encode: func(g domain.SavingGoal) record {
		return record{
			"id":             g.ID.String(),
			"title":          g.Title,
			"category":       optionalStringValue(g.Category),
			"notes":          optionalStringValue(g.Notes),
			"created_at":     timeValue(g.CreatedAt),
			"updated_at":     timeValue(g.UpdatedAt),
			"deadline":       timeValue(g.Deadline),
			"completed_at":   optionalTimeValue(g.CompletedAt),
			"is_completed":   boolValue(g.IsCompleted),
			"target_amount":  g.TargetAmount.String(),
			"current_amount": g.CurrentAmount.String(),
		}
	},
	decode: func(r *recordReader) domain.SavingGoal {
		return domain.SavingGoal{
			ID:            r.uuid("id"),
			Title:         r.text("title"),
			Category:      r.optionalText("category"),
			Notes:         r.optionalText("notes"),
			CreatedAt:     r.time("created_at"),
			UpdatedAt:     r.time("updated_at"),
			Deadline:      r.time("deadline"),
			CompletedAt:   r.optionalTime("completed_at"),
			IsCompleted:   r.boolean("is_completed"),
			TargetAmount:  r.decimal("target_amount"),
			CurrentAmount: r.decimal("current_amount"),
		}
	},
}

// goalRepository implements domain.GoalRepository
type goalRepository struct {
	repository[domain.SavingGoal]
}

// NewGoalRepository creates a new saving goal repository
func NewGoalRepository(store *Store) domain.GoalRepository {
	return &goalRepository{newRepository(store, store.Schema().Goal, goalMapper)}
}

func goalOrder(sort domain.GoalSort) []string {
	switch sort {
	case domain.GoalSortDeadline:
		return []string{"deadline ASC", "created_at ASC"}
	case domain.GoalSortNewest:
		return []string{"created_at DESC", "id ASC"}
	default:
		return []string{"is_completed ASC", "deadline ASC", "created_at ASC"}
	}
}

// FetchAll lists every goal in the requested order
func (r *goalRepository) FetchAll(ctx context.Context, sort domain.GoalSort) ([]domain.SavingGoal, error) {
	goals, err := r.list(ctx, r.store.ReadContext(), Query{OrderBy: goalOrder(sort)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch goals: %w", err)
	}
	return goals, nil
}

// Get retrieves a goal by its ID
func (r *goalRepository) Get(ctx context.Context, id uuid.UUID) (domain.SavingGoal, error) {
	return r.get(ctx, id)
}

// Create mints and stores a new goal
func (r *goalRepository) Create(ctx context.Context, in domain.NewGoal) (domain.SavingGoal, error) {
	goal, err := in.Build(r.store.Now())
	if err != nil {
		return domain.SavingGoal{}, err
	}
	return r.create(ctx, goal)
}

// Update applies a patch to an existing goal, reconciling its completion
func (r *goalRepository) Update(ctx context.Context, id uuid.UUID, patch domain.GoalPatch) (domain.SavingGoal, error) {
	return r.update(ctx, id, func(g domain.SavingGoal) (domain.SavingGoal, error) {
		return g.Apply(patch, r.store.Now())
	})
}

// Complete marks a goal as reached; it fails while current is below target
func (r *goalRepository) Complete(ctx context.Context, id uuid.UUID) (domain.SavingGoal, error) {
	return r.update(ctx, id, func(g domain.SavingGoal) (domain.SavingGoal, error) {
		return g.Complete(r.store.Now())
	})
}

// Delete removes a goal
func (r *goalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.delete(ctx, id)
}
