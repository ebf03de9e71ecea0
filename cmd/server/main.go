package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/cache"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/handler/http"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/ballotbox/internal/config"
	"github.com/vncsmyrnk/ballotbox/internal/core/services"
	"github.com/vncsmyrnk/ballotbox/internal/logging"
	_ "modernc.org/sqlite"
)

func main() {
	dotenvErr := config.LoadDotEnv()

	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		logrus.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatal(err)
	}
	logging.SetLogger(logger)
	log := logging.For("server")
	if dotenvErr != nil {
		log.Debug("No .env file found")
	}

	dialect, err := sqlstore.ParseDialect(cfg.DatabaseType)
	if err != nil {
		log.Fatal(err)
	}
	db, err := sqlstore.Open(dialect, cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.WithError(err).Fatal("database is unreachable")
	}
	if dialect == sqlstore.SQLite {
		if err := db.Migrate(context.Background()); err != nil {
			log.WithError(err).Fatal("failed to migrate database")
		}
	}

	results, err := cache.NewResultsCache(cfg.ResultsCacheSize)
	if err != nil {
		log.Fatal(err)
	}

	// Initialize Repositories
	pollRepo := sqlstore.NewPollRepository(db)
	choiceRepo := sqlstore.NewChoiceRepository(db)
	voterRepo := sqlstore.NewVoterRepository(db)
	userRepo := sqlstore.NewUserRepository(db)
	authRepo := sqlstore.NewAuthRepository(db)

	// Initialize Services
	lifecycle := services.NewLifecycleService(db, pollRepo, choiceRepo, voterRepo, userRepo, results)
	pollService := services.NewPollService(db, pollRepo, choiceRepo, voterRepo, lifecycle, results)
	voteService := services.NewVoteService(db, pollRepo, choiceRepo, voterRepo, lifecycle)
	userService := services.NewUserService(userRepo)
	authService := services.NewAuthService(userRepo, userService, authRepo, google.NewVerifier(), cfg.JWTSecret, cfg.GoogleClientID)

	handler := http.NewHandler(http.Handlers{
		Auth:  http.NewAuthHandler(authService, cfg.LoginRedirectURL, cfg.CookieDomain, cfg.SameSite(), cfg.CookieSecure),
		Users: http.NewUserHandler(userService),
		Polls: http.NewPollHandler(pollService, lifecycle),
		Votes: http.NewVoteHandler(voteService),
		Shell: http.NewShellHandler(pollService),
	}, authService, cfg.AllowedOrigins)

	server := &stdhttp.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", server.Addr).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Info("Gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
}
