package grpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/jellysave-store/internal/domain"
	"github.com/simaogato/jellysave-store/internal/usecase/dashboard"
)

// fields reads typed values out of a request document.
// Absent keys and explicit nulls read as "not provided".
type fields map[string]*structpb.Value

func requestFields(req *structpb.Struct) fields {
	if req == nil {
		return fields{}
	}
	return fields(req.GetFields())
}

func (f fields) value(key string) (*structpb.Value, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func (f fields) string(key string) (*string, error) {
	v, ok := f.value(key)
	if !ok {
		return nil, nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a string", key)
	}
	return &s.StringValue, nil
}

func (f fields) bool(key string) (*bool, error) {
	v, ok := f.value(key)
	if !ok {
		return nil, nil
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a boolean", key)
	}
	return &b.BoolValue, nil
}

// decimal accepts a decimal string or a number
func (f fields) decimal(key string) (*decimal.Decimal, error) {
	v, ok := f.value(key)
	if !ok {
		return nil, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
		}
		return &d, nil
	case *structpb.Value_NumberValue:
		d := decimal.NewFromFloat(kind.NumberValue)
		return &d, nil
	default:
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a decimal string or a number", key)
	}
}

func (f fields) time(key string) (*time.Time, error) {
	s, err := f.string(key)
	if err != nil || s == nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return &t, nil
}

func (f fields) uuid(key string) (uuid.UUID, error) {
	s, err := f.string(key)
	if err != nil {
		return uuid.Nil, err
	}
	if s == nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return id, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// newStruct builds a response document from plain Go values
func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

// domainAccountToMap converts a domain Account to a response value
func domainAccountToMap(a domain.Account) map[string]interface{} {
	m := map[string]interface{}{
		"id":               a.ID.String(),
		"name":             a.Name,
		"category":         string(a.Category),
		"currency":         a.Currency,
		"balance":          a.Balance.String(),
		"formattedBalance": a.FormattedBalance(),
		"isActive":         a.IsActive,
		"createdAt":        formatTime(a.CreatedAt),
		"updatedAt":        formatTime(a.UpdatedAt),
	}
	if a.Notes != nil {
		m["notes"] = *a.Notes
	}
	return m
}

// domainGoalToMap converts a domain SavingGoal to a response value
func domainGoalToMap(g domain.SavingGoal, now time.Time) map[string]interface{} {
	m := map[string]interface{}{
		"id":                    g.ID.String(),
		"title":                 g.Title,
		"targetAmount":          g.TargetAmount.String(),
		"currentAmount":         g.CurrentAmount.String(),
		"progress":              g.Progress().StringFixed(4),
		"remaining":             g.Remaining().String(),
		"monthlySavingRequired": g.MonthlySavingRequired(now).StringFixed(2),
		"deadline":              formatTime(g.Deadline),
		"isCompleted":           g.IsCompleted,
		"createdAt":             formatTime(g.CreatedAt),
		"updatedAt":             formatTime(g.UpdatedAt),
	}
	if g.Category != nil {
		m["category"] = *g.Category
	}
	if g.Notes != nil {
		m["notes"] = *g.Notes
	}
	if g.CompletedAt != nil {
		m["completedAt"] = formatTime(*g.CompletedAt)
	}
	return m
}

// domainSettingsToMap converts notification settings to a response value
func domainSettingsToMap(s domain.NotificationSettings) map[string]interface{} {
	return map[string]interface{}{
		"id":               s.ID.String(),
		"isEnabled":        s.IsEnabled,
		"notificationTime": s.Time.String(),
		"quoteCategory":    string(s.QuoteCategory),
		"updatedAt":        formatTime(s.UpdatedAt),
	}
}

// summaryToMap converts the dashboard figures to a response value
func summaryToMap(s *dashboard.Summary, trend []dashboard.TrendPoint) map[string]interface{} {
	points := make([]interface{}, 0, len(trend))
	for _, p := range trend {
		points = append(points, map[string]interface{}{
			"date":   formatTime(p.Date),
			"amount": p.Amount.String(),
		})
	}
	return map[string]interface{}{
		"totalAssets":           s.TotalAssets.String(),
		"accountCount":          s.AccountCount,
		"activeGoalCount":       s.ActiveGoalCount,
		"monthlySavingRequired": s.MonthlySavingRequired.StringFixed(2),
		"monthlyChange":         s.MonthlyChange.String(),
		"monthlyChangeRatio":    s.MonthlyChangeRatio.String(),
		"lastUpdated":           formatTime(s.LastUpdated),
		"trend":                 points,
	}
}

func parseAccountSort(s *string) (domain.AccountSort, error) {
	if s == nil {
		return domain.AccountSortNewest, nil
	}
	switch *s {
	case "", "newest":
		return domain.AccountSortNewest, nil
	case "oldest":
		return domain.AccountSortOldest, nil
	case "name":
		return domain.AccountSortName, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "unknown account sort %q", *s)
	}
}

func parseGoalSort(s *string) (domain.GoalSort, error) {
	if s == nil {
		return domain.GoalSortDefault, nil
	}
	switch *s {
	case "", "default":
		return domain.GoalSortDefault, nil
	case "deadline":
		return domain.GoalSortDeadline, nil
	case "newest":
		return domain.GoalSortNewest, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "unknown goal sort %q", *s)
	}
}

func parseCategory(s *string) (*domain.AccountCategory, error) {
	if s == nil {
		return nil, nil
	}
	c, ok := domain.ParseAccountCategory(*s)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown account category %q", *s)
	}
	return &c, nil
}

func parseTimeOfDay(s *string) (*domain.TimeOfDay, error) {
	if s == nil {
		return nil, nil
	}
	t, err := domain.ParseTimeOfDay(*s)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid notificationTime format: %v", err)
	}
	return &t, nil
}

func required[T any](key string, v *T) (T, error) {
	if v == nil {
		var zero T
		return zero, status.Error(codes.InvalidArgument, fmt.Sprintf("%s is required", key))
	}
	return *v, nil
}
