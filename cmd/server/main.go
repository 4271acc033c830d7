package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/jellysave-store/internal/adapter/grpc"
	"github.com/simaogato/jellysave-store/internal/adapter/repository/sqlite"
	"github.com/simaogato/jellysave-store/internal/config"
	"github.com/simaogato/jellysave-store/internal/logger"
	"github.com/simaogato/jellysave-store/internal/usecase/backup"
	"github.com/simaogato/jellysave-store/internal/usecase/changes"
	"github.com/simaogato/jellysave-store/internal/usecase/dashboard"
	"github.com/simaogato/jellysave-store/internal/usecase/seeder"
)

func main() {
	// 1. Load configuration and logger
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Logger.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// 2. Open the store
	ctx := context.Background()
	store, err := sqlite.OpenStore(ctx, cfg.Store.Path, sqlite.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to open store", zap.String("path", cfg.Store.Path), zap.Error(err))
	}
	defer store.Close()

	// 3. Initialize Repositories (SQLite)
	accountRepo := sqlite.NewAccountRepository(store)
	snapshotRepo := sqlite.NewSnapshotRepository(store)
	goalRepo := sqlite.NewGoalRepository(store)
	settingsRepo := sqlite.NewSettingsRepository(store)
	graphRepo := sqlite.NewGraphRepository(store)

	// 4. Initialize Services (Use Cases)
	notifier := changes.NewNotifier(log)
	backupService := backup.NewService(graphRepo, notifier, cfg.Store.ExportDir, backup.WithLogger(log))
	dashboardService := dashboard.NewDashboardService(accountRepo, snapshotRepo, goalRepo)

	// Seed demo data on first run
	if cfg.Store.Seed {
		demoSeeder := seeder.NewDemoSeeder(accountRepo, graphRepo, notifier, log)
		if _, err := demoSeeder.SeedIfNeeded(ctx); err != nil {
			log.Fatal("Failed to seed demo data", zap.Error(err))
		}
	}

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(cfg.Server.APIToken)),
		grpclib.StreamInterceptor(grpcadapter.AuthStreamInterceptor(cfg.Server.APIToken)),
	)

	grpcAdapter := grpcadapter.NewServer(accountRepo, goalRepo, settingsRepo, backupService, dashboardService, notifier, log)
	grpcadapter.RegisterStoreServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Fatal("Failed to listen", zap.String("addr", cfg.Server.Addr), zap.Error(err))
	}

	// Start server in a goroutine
	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.Server.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("Failed to serve gRPC server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, log)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, log *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info("Shutting down gracefully", zap.String("signal", sig.String()))

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")
}
