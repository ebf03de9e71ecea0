package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/ballotbox/internal/config"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/core/services"
	_ "modernc.org/sqlite"
)

const maxUsers = 10

// Creates prefix1..prefixN users whose password equals their username.
// Existing usernames are skipped.
func main() {
	fs := flag.NewFlagSet("createusers", flag.ExitOnError)
	prefix := fs.String("prefix", "testuser", "Username prefix")
	count := fs.Int("count", 5, "Number of users to create")
	staff := fs.Bool("staff", false, "Create staff users")
	fs.Parse(os.Args[1:])

	if *count < 1 || *count > maxUsers {
		logrus.Fatalf("count must be between 1 and %d", maxUsers)
	}

	if err := config.LoadDotEnv(); err != nil {
		logrus.Info("No .env file found")
	}
	cfg, err := config.Load("createusers", fs.Args())
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

	userService := services.NewUserService(sqlstore.NewUserRepository(db))

	ctx := context.Background()
	created := 0
	for i := 1; i <= *count; i++ {
		username := fmt.Sprintf("%s%d", *prefix, i)
		_, err := userService.Create(ctx, ports.CreateUserInput{
			Username: username,
			Email:    fmt.Sprintf("%s@%s.com", username, username),
			Password: username,
			IsStaff:  *staff,
		})
		if errors.Is(err, domain.ErrDuplicateUsername) {
			logrus.WithField("username", username).Info("user already exists")
			continue
		}
		if err != nil {
			logrus.Fatal(err)
		}
		created++
	}

	logrus.Infof("Created %s %s.", humanize.Comma(int64(created)), pluralUsers(created))
}

func pluralUsers(n int) string {
	if n == 1 {
		return "user"
	}
	return "users"
}
