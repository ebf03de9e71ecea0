package sqlstore

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
)

type AuthRepository struct {
	db *DB
}

func NewAuthRepository(db *DB) ports.AuthRepository {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	token.ID = uuid.New()
	token.CreatedAt = dbTime(timeNow())

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.exec(ctx, query, token.ID, token.UserID, token.TokenHash, dbTime(token.ExpiresAt), token.Revoked, token.CreatedAt)
	return errors.Wrap(err, "failed to store refresh token")
}

// GetRefreshTokenByHash returns nil without error when no token matches.
func (r *AuthRepository) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = ?
	`
	token := &domain.RefreshToken{}
	err := r.db.queryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get refresh token")
	}
	return token, nil
}

func (r *AuthRepository) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.exec(ctx, `UPDATE refresh_tokens SET revoked = ? WHERE id = ?`, true, id)
	return errors.Wrap(err, "failed to revoke refresh token")
}
