package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/logging"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type AuthService struct {
	userRepo            ports.UserRepository
	users               ports.UserService
	authRepo            ports.AuthRepository
	googleTokenVerifier ports.TokenVerifier
	jwtSecret           []byte
	googleClientID      string
	now                 func() time.Time
	log                 *logrus.Entry
}

func NewAuthService(
	userRepo ports.UserRepository,
	users ports.UserService,
	authRepo ports.AuthRepository,
	googleTokenVerifier ports.TokenVerifier,
	jwtSecret, googleClientID string,
) *AuthService {
	log := logging.For("auth")
	if jwtSecret == "" {
		log.Warn("JWT_SECRET not set")
	}

	return &AuthService{
		userRepo:            userRepo,
		users:               users,
		authRepo:            authRepo,
		googleTokenVerifier: googleTokenVerifier,
		jwtSecret:           []byte(jwtSecret),
		googleClientID:      googleClientID,
		now:                 time.Now,
		log:                 log,
	}
}

func (s *AuthService) LoginWithPassword(ctx context.Context, username, password string) (string, string, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return "", "", err
	}
	return s.issueTokens(ctx, user)
}

// LoginWithGoogle signs in the account owning the token's email, creating one
// named after the email on first login.
func (s *AuthService) LoginWithGoogle(ctx context.Context, googleToken string) (string, string, error) {
	if s.googleTokenVerifier == nil {
		return "", "", domain.ErrInvalidToken
	}

	payload, err := s.googleTokenVerifier.Verify(ctx, googleToken, s.googleClientID)
	if err != nil {
		s.log.WithError(err).Info("google token rejected")
		return "", "", domain.ErrInvalidToken
	}

	user, err := s.userRepo.GetByEmail(ctx, payload.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.users.Create(ctx, ports.CreateUserInput{
			Username: payload.Email,
			Email:    payload.Email,
		})
		if err == nil {
			s.log.WithField("username", user.Username).Info("user created from google login")
		}
	}
	if err != nil {
		return "", "", pkgerrors.Wrap(err, "failed to resolve google user")
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	tokenHash := s.hashToken(refreshToken)

	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return "", "", pkgerrors.Wrap(err, "failed to get refresh token")
	}
	if rtEntity == nil || rtEntity.Revoked || rtEntity.ExpiresAt.Before(s.now()) {
		return "", "", domain.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, rtEntity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", "", domain.ErrInvalidToken
		}
		return "", "", pkgerrors.Wrap(err, "failed to get user")
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", pkgerrors.Wrap(err, "failed to generate access token")
	}

	// the refresh token is kept until it expires
	return accessToken, refreshToken, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := s.hashToken(refreshToken)

	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to get refresh token")
	}
	if rtEntity == nil {
		return nil
	}

	return s.authRepo.RevokeRefreshToken(ctx, rtEntity.ID.String())
}

func (s *AuthService) ParseAccessToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if _, err := uuid.Parse(sub); err != nil {
		return nil, domain.ErrInvalidToken
	}

	username, _ := claims["username"].(string)
	staff, _ := claims["staff"].(bool)
	return &ports.Claims{UserID: sub, Username: username, IsStaff: staff}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (string, string, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", pkgerrors.Wrap(err, "failed to generate access token")
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return "", "", pkgerrors.Wrap(err, "failed to generate refresh token")
	}

	rtEntity := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: s.hashToken(refreshToken),
		ExpiresAt: s.now().Add(refreshTokenTTL),
		Revoked:   false,
	}
	if err := s.authRepo.StoreRefreshToken(ctx, rtEntity); err != nil {
		return "", "", pkgerrors.Wrap(err, "failed to store refresh token")
	}

	return accessToken, refreshToken, nil
}

func (s *AuthService) generateAccessToken(user *domain.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"staff":    user.IsStaff,
		"exp":      now.Add(accessTokenTTL).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (s *AuthService) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
