package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/testutil"
)

type fakeVerifier struct {
	payload *ports.TokenPayload
}

func (v fakeVerifier) Verify(_ context.Context, token string, _ string) (*ports.TokenPayload, error) {
	if token != "valid" {
		return nil, errors.New("bad token")
	}
	return v.payload, nil
}

func newAuthService(t *testing.T) (*AuthService, ports.UserService) {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	userRepo := sqlstore.NewUserRepository(db)
	users := NewUserService(userRepo)
	verifier := fakeVerifier{payload: &ports.TokenPayload{Email: "g@example.com", Name: "G"}}
	return NewAuthService(userRepo, users, sqlstore.NewAuthRepository(db), verifier, "test-secret", "client"), users
}

func TestLoginWithPassword(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthService(t)
	user, err := users.Create(ctx, ports.CreateUserInput{Username: "alice", Password: "pw", IsStaff: true})
	require.NoError(t, err)

	access, refresh, err := svc.LoginWithPassword(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, refresh)

	claims, err := svc.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsStaff)

	_, _, err = svc.LoginWithPassword(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthService(t)
	_, err := users.Create(ctx, ports.CreateUserInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	_, refresh, err := svc.LoginWithPassword(ctx, "alice", "pw")
	require.NoError(t, err)

	access, sameRefresh, err := svc.RefreshAccessToken(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, refresh, sameRefresh)
	_, err = svc.ParseAccessToken(access)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, refresh))
	_, _, err = svc.RefreshAccessToken(ctx, refresh)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, _, err = svc.RefreshAccessToken(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.NoError(t, svc.Logout(ctx, "unknown"))
}

func TestLoginWithGoogle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	access, _, err := svc.LoginWithGoogle(ctx, "valid")
	require.NoError(t, err)
	first, err := svc.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "g@example.com", first.Username)

	access, _, err = svc.LoginWithGoogle(ctx, "valid")
	require.NoError(t, err)
	second, err := svc.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)

	_, _, err = svc.LoginWithGoogle(ctx, "forged")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestParseAccessTokenRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthService(t)
	_, err := users.Create(ctx, ports.CreateUserInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	access, _, err := svc.LoginWithPassword(ctx, "alice", "pw")
	require.NoError(t, err)

	_, err = svc.ParseAccessToken("not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	other, _ := newAuthService(t)
	other.jwtSecret = []byte("different")
	_, err = other.ParseAccessToken(access)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.ParseAccessToken(access)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
