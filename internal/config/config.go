// Package config reads process configuration from the environment (optionally
// seeded by a .env file) with command line flags taking precedence.
package config

import (
	"flag"
	"fmt"
	"net/http"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

type Config struct {
	Port         int    `envconfig:"PORT" default:"8080"`
	DatabaseType string `envconfig:"DATABASE_TYPE" default:"postgres"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PostgresDB       string `envconfig:"POSTGRES_DB"`

	JWTSecret        string   `envconfig:"JWT_SECRET"`
	GoogleClientID   string   `envconfig:"GOOGLE_CLIENT_ID"`
	LoginRedirectURL string   `envconfig:"LOGIN_REDIRECT_URL" default:"/api/apps"`
	CookieDomain     string   `envconfig:"COOKIE_DOMAIN"`
	CookieSameSite   string   `envconfig:"COOKIE_SAMESITE" default:"lax"`
	CookieSecure     bool     `envconfig:"COOKIE_SECURE" default:"true"`
	AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	ResultsCacheSize int `envconfig:"RESULTS_CACHE_SIZE" default:"256"`
	ReconcileWorkers int `envconfig:"RECONCILE_WORKERS" default:"4"`
}

const defaultSQLiteDSN = "file:ballotbox.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// LoadDotEnv loads .env from the working directory if there is one.
func LoadDotEnv() error {
	return godotenv.Load()
}

// Load reads the environment and then applies flags parsed from args.
func Load(name string, args []string) (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to read environment")
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (postgres or sqlite)")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.PostgresHost, "db-host", cfg.PostgresHost, "Database host")
	fs.StringVar(&cfg.PostgresPort, "db-port", cfg.PostgresPort, "Database port")
	fs.StringVar(&cfg.PostgresUser, "db-user", cfg.PostgresUser, "Database user")
	fs.StringVar(&cfg.PostgresPassword, "db-pass", cfg.PostgresPassword, "Database password")
	fs.StringVar(&cfg.PostgresDB, "db-name", cfg.PostgresDB, "Database name")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port <= 0 {
		return Config{}, errors.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.ResultsCacheSize <= 0 {
		return Config{}, errors.New("RESULTS_CACHE_SIZE must be positive")
	}
	if cfg.ReconcileWorkers <= 0 {
		cfg.ReconcileWorkers = 1
	}
	return cfg, nil
}

// DSN returns DATABASE_URL, or a DSN assembled for the configured database type.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if strings.HasPrefix(strings.ToLower(c.DatabaseType), "sqlite") {
		return defaultSQLiteDSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

func (c Config) SameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
