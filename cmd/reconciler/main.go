package main

import (
	"context"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/cache"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/ballotbox/internal/config"
	"github.com/vncsmyrnk/ballotbox/internal/core/services"
	"github.com/vncsmyrnk/ballotbox/internal/logging"
	_ "modernc.org/sqlite"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.Info("No .env file found")
	}

	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		logrus.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatal(err)
	}
	logging.SetLogger(logger)
	log := logging.For("reconciler")

	dialect, err := sqlstore.ParseDialect(cfg.DatabaseType)
	if err != nil {
		log.Fatal(err)
	}
	db, err := sqlstore.Open(dialect, cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		log.Fatal(err)
	}

	results, err := cache.NewResultsCache(cfg.ResultsCacheSize)
	if err != nil {
		log.Fatal(err)
	}

	// Initialize Repositories
	pollRepo := sqlstore.NewPollRepository(db)
	lifecycle := services.NewLifecycleService(
		db,
		pollRepo,
		sqlstore.NewChoiceRepository(db),
		sqlstore.NewVoterRepository(db),
		sqlstore.NewUserRepository(db),
		results,
	)

	// Initialize Service
	reconcileService := services.NewReconcileService(pollRepo, lifecycle, cfg.ReconcileWorkers)

	log.Info("Starting open poll reconciliation...")

	if err := reconcileService.ReconcileOpenPolls(ctx); err != nil {
		log.Fatalf("Error reconciling polls: %v", err)
	}

	log.Info("Reconciliation completed successfully.")
}
