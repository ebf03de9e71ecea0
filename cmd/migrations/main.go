package main

import (
	"context"
	"os"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/ballotbox/internal/config"
	_ "modernc.org/sqlite"
)

// Applies one embedded migration by name, e.g. "init.up", or every up
// migration when the name is "all".
func main() {
	if len(os.Args) < 2 {
		logrus.Fatal("a migration name is required.")
	}
	migrationName := os.Args[1]

	if err := config.LoadDotEnv(); err != nil {
		logrus.Info("No .env file found")
	}
	cfg, err := config.Load(os.Args[0], os.Args[2:])
	if err != nil {
		logrus.Fatal(err)
	}

	dialect, err := sqlstore.ParseDialect(cfg.DatabaseType)
	if err != nil {
		logrus.Fatal(err)
	}
	db, err := sqlstore.Open(dialect, cfg.DSN())
	if err != nil {
		logrus.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if migrationName == "all" {
		err = db.Migrate(ctx)
	} else {
		err = db.ApplyMigration(ctx, migrationName)
	}
	if err != nil {
		logrus.Fatalf("Failed to execute migration: %v", err)
	}

	logrus.WithField("migration", migrationName).Info("Migration executed successfully.")
}
