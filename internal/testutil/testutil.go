// Package testutil builds throwaway stores and fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
)

// NewSQLiteDB opens a private in-memory SQLite database with the schema applied.
func NewSQLiteDB(t *testing.T) *sqlstore.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := sqlstore.Open(sqlstore.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

// CreateUsers inserts users named prefix1..prefixN.
func CreateUsers(t *testing.T, db *sqlstore.DB, prefix string, count int) []domain.User {
	t.Helper()

	repo := sqlstore.NewUserRepository(db)
	users := make([]domain.User, 0, count)
	for i := 1; i <= count; i++ {
		u := domain.User{
			Username: fmt.Sprintf("%s%d", prefix, i),
			Email:    fmt.Sprintf("%s%d@example.com", prefix, i),
		}
		require.NoError(t, repo.Create(context.Background(), &u))
		users = append(users, u)
	}
	return users
}

// PastDate is a publication date safely in the past.
func PastDate() time.Time {
	return time.Now().Add(-5 * 24 * time.Hour)
}
