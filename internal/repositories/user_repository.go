package repositories

import (
	"context"
	"time"

	"debugdiary/internal/models"
)

// UserRepository defines the credential store contract.
type UserRepository interface {
	// Create persists a new user. It returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// ConsumeVerificationToken marks the holder of token verified and clears
	// the token in a single update. It returns ErrNotFound when no unverified
	// user holds token.
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) error
	Delete(ctx context.Context, id string) error
}
