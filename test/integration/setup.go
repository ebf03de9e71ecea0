package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/cache"
	handler "github.com/vncsmyrnk/ballotbox/internal/adapters/handler/http"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/core/services"
)

const jwtSecret = "test-secret"

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

type TestApp struct {
	DB          *sqlstore.DB
	Server      *httptest.Server
	Client      *http.Client
	Users       ports.UserService
	Lifecycle   ports.LifecycleService
	Reconciler  ports.ReconcileService
	DBContainer testcontainers.Container
}

func setupTestApp(t *testing.T) *TestApp {
	return setupTestAppWithVerifier(t, nil)
}

func setupTestAppWithVerifier(t *testing.T, verifier ports.TokenVerifier) *TestApp {
	ctx := context.Background()
	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sqlstore.Open(sqlstore.Postgres, dbURL)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))

	results, err := cache.NewResultsCache(64)
	require.NoError(t, err)

	pollRepo := sqlstore.NewPollRepository(db)
	choiceRepo := sqlstore.NewChoiceRepository(db)
	voterRepo := sqlstore.NewVoterRepository(db)
	userRepo := sqlstore.NewUserRepository(db)
	authRepo := sqlstore.NewAuthRepository(db)

	lifecycle := services.NewLifecycleService(db, pollRepo, choiceRepo, voterRepo, userRepo, results)
	pollSvc := services.NewPollService(db, pollRepo, choiceRepo, voterRepo, lifecycle, results)
	voteSvc := services.NewVoteService(db, pollRepo, choiceRepo, voterRepo, lifecycle)
	userSvc := services.NewUserService(userRepo)
	authSvc := services.NewAuthService(userRepo, userSvc, authRepo, verifier, jwtSecret, "test-client-id")

	router := handler.NewHandler(handler.Handlers{
		Auth:  handler.NewAuthHandler(authSvc, "/api/apps", "", http.SameSiteLaxMode, false),
		Users: handler.NewUserHandler(userSvc),
		Polls: handler.NewPollHandler(pollSvc, lifecycle),
		Votes: handler.NewVoteHandler(voteSvc),
		Shell: handler.NewShellHandler(pollSvc),
	}, authSvc, []string{"*"})

	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		Users:       userSvc,
		Lifecycle:   lifecycle,
		Reconciler:  services.NewReconcileService(pollRepo, lifecycle, 4),
		DBContainer: dbContainer,
	}
}

// createUserAndToken registers a user and signs an access token for it the
// same way the auth service does.
func (app *TestApp) createUserAndToken(t *testing.T, username string, staff bool) (*domain.User, string) {
	t.Helper()

	user, err := app.Users.Create(context.Background(), ports.CreateUserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: username,
		IsStaff:  staff,
	})
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"staff":    staff,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return user, signedToken
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}
