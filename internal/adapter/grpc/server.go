package grpc

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/jellysave-store/internal/domain"
	"github.com/simaogato/jellysave-store/internal/usecase/backup"
	"github.com/simaogato/jellysave-store/internal/usecase/changes"
	"github.com/simaogato/jellysave-store/internal/usecase/dashboard"
	"github.com/simaogato/jellysave-store/internal/usecase/errmsg"
)

// Server implements the StoreService gRPC server
type Server struct {
	AccountRepo      domain.AccountRepository
	GoalRepo         domain.GoalRepository
	SettingsRepo     domain.SettingsRepository
	BackupService    *backup.Service
	DashboardService *dashboard.DashboardService
	Notifier         *changes.Notifier
	Logger           *zap.Logger
	Now              func() time.Time
}

var _ StoreServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	accountRepo domain.AccountRepository,
	goalRepo domain.GoalRepository,
	settingsRepo domain.SettingsRepository,
	backupService *backup.Service,
	dashboardService *dashboard.DashboardService,
	notifier *changes.Notifier,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		AccountRepo:      accountRepo,
		GoalRepo:         goalRepo,
		SettingsRepo:     settingsRepo,
		BackupService:    backupService,
		DashboardService: dashboardService,
		Notifier:         notifier,
		Logger:           logger,
		Now:              time.Now,
	}
}

// FetchAccounts handles the FetchAccounts RPC
func (s *Server) FetchAccounts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := requestFields(req)
	sortName, err := in.string("sort")
	if err != nil {
		return nil, err
	}
	sort, err := parseAccountSort(sortName)
	if err != nil {
		return nil, err
	}

	accounts, err := s.AccountRepo.FetchAll(ctx, sort)
	if err != nil {
		return nil, s.mapError(err)
	}

	items := make([]interface{}, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, domainAccountToMap(a))
	}
	return newStruct(map[string]interface{}{
		"accounts":    items,
		"totalAssets": domain.TotalBalance(accounts).String(),
	})
}

// CreateAccount handles the CreateAccount RPC
func (s *Server) CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := requestFields(req)

	name, err := in.string("name")
	if err != nil {
		return nil, err
	}
	categoryName, err := in.string("category")
	if err != nil {
		return nil, err
	}
	category, err := parseCategory(categoryName)
	if err != nil {
		return nil, err
	}
	currency, err := in.string("currency")
	if err != nil {
		return nil, err
	}
	balance, err := in.decimal("balance")
	if err != nil {
		return nil, err
	}
	notes, err := in.string("notes")
	if err != nil {
		return nil, err
	}

	input := domain.NewAccount{Notes: notes}
	if input.Name, err = required("name", name); err != nil {
		return nil, err
	}
	if input.Category, err = required("category", category); err != nil {
		return nil, err
	}
	if currency != nil {
		input.Currency = *currency
	}
	if balance != nil {
		input.Balance = *balance
	}

	account, err := s.AccountRepo.Create(ctx, input)
	if err != nil {
		return nil, s.mapError(err)
	}
	return newStruct(domainAccountToMap(account))
}

// UpdateAccount handles the UpdateAccount RPC
func (s *Server) UpdateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := requestFields(req)

	id, err := in.uuid("id")
	if err != nil {
		return nil, err
	}

	var patch domain.AccountPatch
	if patch.Name, err = in.string("name"); err != nil {
		return nil, err
	}
	categoryName, err := in.string("category")
	if err != nil {
		return nil, err
	}
	if patch.Category, err = parseCategory(categoryName); err != nil {
		return nil, err
	}
	if patch.Currency, err = in.string("currency"); err != nil {
		return nil, err
	}
	if patch.Balance, err = in.decimal("balance"); err != nil {
		return nil, err
	}
	if patch.IsActive, err = in.bool("isActive"); err != nil {
		return nil, err
	}
	if patch.Notes, err = in.string("notes"); err != nil {
		return nil, err
	}

	account, err := s.AccountRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.mapError(err)
	}
	return newStruct(domainAccountToMap(account))
}

// DeleteAccount handles the DeleteAccount RPC
func (s *Server) DeleteAccount(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := requestFields(req).uuid("id")
	if err != nil {
		return nil, err
	}
	if err := s.AccountRepo.Delete(ctx, id); err != nil {
		return nil, s.mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// FetchGoals handles the FetchGoals RPC
func (s *Server) FetchGoals(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sortName, err := requestFields(req).string("sort")
	if err != nil {
		return nil, err
	}
	sort, err := parseGoalSort(sortName)
	if err != nil {
		return nil, err
	}

	goals, err := s.GoalRepo.FetchAll(ctx, sort)
	if err != nil {
		return nil, s.mapError(err)
	}

	now := s.Now()
	items := make([]interface{}, 0, len(goals))
	for _, g := range goals {
		items = append(items, domainGoalToMap(g, now))
	}
	return newStruct(map[string]interface{}{"goals": items})
}

// CreateGoal handles the CreateGoal RPC
func (s *Server) CreateGoal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := requestFields(req)

	title, err := in.string("title")
	if err != nil {
		return nil, err
	}
	target, err := in.decimal("targetAmount")
	if err != nil {
		return nil, err
	}
	current, err := in.decimal("currentAmount")
	if err != nil {
		return nil, err
	}
	deadline, err := in.time("deadline")
	if err != nil {
		return nil, err
	}

	var input domain.NewGoal
	if input.Title, err = required("title", title); err != nil {
		return nil, err
	}
	if input.TargetAmount, err = required("targetAmount", target); err != nil {
		return nil, err
	}
	if input.Deadline, err = required("deadline", deadline); err != nil {
		return nil, err
	}
	if current != nil {
		input.CurrentAmount = *current
	}
	if input.Category, err = in.string("category"); err != nil {
		return nil, err
	}
	if input.Notes, err = in.string("notes"); err != nil {
		return nil, err
	}

	goal, err := s.GoalRepo.Create(ctx, input)
	if err != nil {
		return nil, s.mapError(err)
	}
	return newStruct(domainGoalToMap(goal, s.Now()))
}

// UpdateGoal handles the UpdateGoal RPC
func (s *Server) UpdateGoal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := requestFields(req)

	id, err := in.uuid("id")
	if err != nil {
		return nil, err
	}

	var patch domain.GoalPatch
	if patch.Title, err = in.string("title"); err != nil {
		return nil, err
	}
	if patch.TargetAmount, err = in.decimal("targetAmount"); err != nil {
		return nil, err
	}
	if patch.CurrentAmount, err = in.decimal("currentAmount"); err != nil {
		return nil, err
	}
	if patch.Deadline, err = in.time("deadline"); err != nil {
		return nil, err
	}
	if patch.Category, err = in.string("category"); err != nil {
		return nil, err
	}
	if patch.Notes, err = in.string("notes"); err != nil {
		return nil, err
	}

	goal, err := s.GoalRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.mapError(err)
	}
	return newStruct(domainGoalToMap(goal, s.Now()))
}

// CompleteGoal handles the CompleteGoal RPC
func (s *Server) CompleteGoal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requestFields(req).uuid("id")
	if err != nil {
		return nil, err
	}
	goal, err := s.GoalRepo.Complete(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	return newStruct(domainGoalToMap(goal, s.Now()))
}

// DeleteGoal handles the DeleteGoal RPC
func (s *Server) DeleteGoal(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := requestFields(req).uuid("id")
	if err != nil {
		return nil, err
	}
	if err := s.GoalRepo.Delete(ctx, id); err != nil {
		return nil, s.mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// FetchSettings handles the FetchSettings RPC
func (s *Server) FetchSettings(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	settings, err := s.SettingsRepo.Fetch(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return newStruct(domainSettingsToMap(settings))
}

// UpdateSettings handles the UpdateSettings RPC
func (s *Server) UpdateSettings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := requestFields(req)

	var patch domain.SettingsPatch
	var err error
	if patch.IsEnabled, err = in.bool("isEnabled"); err != nil {
		return nil, err
	}
	timeOfDay, err := in.string("notificationTime")
	if err != nil {
		return nil, err
	}
	if patch.Time, err = parseTimeOfDay(timeOfDay); err != nil {
		return nil, err
	}
	quote, err := in.string("quoteCategory")
	if err != nil {
		return nil, err
	}
	if quote != nil {
		category := domain.ParseQuoteCategory(*quote)
		patch.QuoteCategory = &category
	}

	settings, err := s.SettingsRepo.Update(ctx, patch)
	if err != nil {
		return nil, s.mapError(err)
	}
	return newStruct(domainSettingsToMap(settings))
}

// Export handles the Export RPC
func (s *Server) Export(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	b, err := s.BackupService.Export(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return newStruct(map[string]interface{}{
		"path":        b.Path,
		"generatedAt": formatTime(b.Document.GeneratedAt.Time),
		"accounts":    len(b.Document.Accounts),
		"goals":       len(b.Document.Goals),
		"snapshots":   len(b.Document.Snapshots),
	})
}

// Import handles the Import RPC. The path names a file readable by the server process.
func (s *Server) Import(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	path, err := requestFields(req).string("path")
	if err != nil {
		return nil, err
	}
	if path == nil || *path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	if err := s.BackupService.Import(ctx, *path); err != nil {
		return nil, s.mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// Clear handles the Clear RPC
func (s *Server) Clear(ctx context.Context, _ *structpb.Struct) (*emptypb.Empty, error) {
	if err := s.BackupService.Clear(ctx); err != nil {
		return nil, s.mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// Summary handles the Summary RPC
func (s *Server) Summary(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	summary, err := s.DashboardService.GetSummary(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	trend, err := s.DashboardService.GetTrend(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return newStruct(summaryToMap(summary, trend))
}

// WatchChanges streams one message per data-changed signal until the client goes away.
// Signals raised while a message is in flight coalesce into the next one.
func (s *Server) WatchChanges(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	signals, cancel := s.Notifier.Watch()
	defer cancel()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			msg, err := newStruct(map[string]interface{}{"changedAt": formatTime(s.Now())})
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// mapError converts domain errors to gRPC status errors carrying a user-facing message
func (s *Server) mapError(err error) error {
	if err == nil {
		return nil
	}

	msg := errmsg.Translate(s.Logger, err)

	var validationErr *domain.ValidationError
	var decodeErr *domain.DecodeError
	var notFoundErr *domain.NotFoundError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &decodeErr):
		return status.Error(codes.InvalidArgument, msg)
	case errors.As(err, &notFoundErr):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
