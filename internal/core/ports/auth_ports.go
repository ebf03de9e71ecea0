package ports

import (
	"context"

	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
)

type AuthRepository interface {
	StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
}

type TokenPayload struct {
	Email string
	Name  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

// Claims is what an access token proves about its bearer.
type Claims struct {
	UserID   string
	Username string
	IsStaff  bool
}

type AuthService interface {
	LoginWithPassword(ctx context.Context, username, password string) (string, string, error) // returns access_token, refresh_token, error
	LoginWithGoogle(ctx context.Context, googleToken string) (string, string, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	ParseAccessToken(token string) (*Claims, error)
}
