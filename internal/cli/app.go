package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/simaogato/jellysave-store/internal/adapter/repository/sqlite"
	"github.com/simaogato/jellysave-store/internal/config"
	"github.com/simaogato/jellysave-store/internal/domain"
	"github.com/simaogato/jellysave-store/internal/usecase/backup"
	"github.com/simaogato/jellysave-store/internal/usecase/changes"
	"github.com/simaogato/jellysave-store/internal/usecase/dashboard"
	"github.com/simaogato/jellysave-store/internal/usecase/errmsg"
	"github.com/simaogato/jellysave-store/internal/usecase/seeder"
)

// App wires the store and the use cases the commands run against
type App struct {
	Store     *sqlite.Store
	Accounts  domain.AccountRepository
	Goals     domain.GoalRepository
	Backup    *backup.Service
	Dashboard *dashboard.DashboardService
	Seeder    *seeder.DemoSeeder

	Logger *zap.Logger
	Out    io.Writer
	Err    io.Writer
}

// Open opens the store named by cfg and builds the use cases on top of it
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := sqlite.OpenStore(ctx, cfg.Store.Path, sqlite.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	accounts := sqlite.NewAccountRepository(store)
	snapshots := sqlite.NewSnapshotRepository(store)
	goals := sqlite.NewGoalRepository(store)
	graphs := sqlite.NewGraphRepository(store)
	notifier := changes.NewNotifier(logger)

	return &App{
		Store:     store,
		Accounts:  accounts,
		Goals:     goals,
		Backup:    backup.NewService(graphs, notifier, cfg.Store.ExportDir, backup.WithLogger(logger)),
		Dashboard: dashboard.NewDashboardService(accounts, snapshots, goals),
		Seeder:    seeder.NewDemoSeeder(accounts, graphs, notifier, logger),
		Logger:    logger,
		Out:       os.Stdout,
		Err:       os.Stderr,
	}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Store.Close()
}

// Register adds every command to c
func Register(c *subcommands.Commander, app *App) {
	c.Register(&seedCmd{app: app}, "data")
	c.Register(&exportCmd{app: app}, "data")
	c.Register(&importCmd{app: app}, "data")
	c.Register(&clearCmd{app: app}, "data")

	c.Register(&accountsCmd{app: app}, "reports")
	c.Register(&goalsCmd{app: app}, "reports")
	c.Register(&summaryCmd{app: app}, "reports")
}

// fail prints the user-facing message for err and logs its cause
func (a *App) fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(a.Err, "Error:", errmsg.Translate(a.Logger, err))
	return subcommands.ExitFailure
}
