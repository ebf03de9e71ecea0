package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
)

// UserRepository is the user directory.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	IsStaff  bool
}

type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}
