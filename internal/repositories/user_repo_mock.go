package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"debugdiary/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user, enforcing unique email and verification token.
func (r *MockUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return fmt.Errorf("user with email %s: %w", user.Email, ErrDuplicate)
		}
		if user.VerificationToken != nil && existing.VerificationToken != nil &&
			*existing.VerificationToken == *user.VerificationToken {
			return fmt.Errorf("verification token: %w", ErrDuplicate)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	r.users[user.ID] = copyUser(*user)
	return nil
}

// GetByEmail returns a user by email.
func (r *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			found := copyUser(u)
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
}

// GetByID returns a user by ID.
func (r *MockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
	}
	found := copyUser(u)
	return &found, nil
}

// ConsumeVerificationToken verifies the unverified holder of token.
func (r *MockUserRepository) ConsumeVerificationToken(_ context.Context, token string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if u.IsVerified || u.VerificationToken == nil || *u.VerificationToken != token {
			continue
		}
		u.IsVerified = true
		u.VerificationToken = nil
		u.UpdatedAt = now
		r.users[id] = u
		return nil
	}
	return fmt.Errorf("verification token: %w", ErrNotFound)
}

// Delete removes a user by ID.
func (r *MockUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func copyUser(u models.User) models.User {
	if u.VerificationToken != nil {
		token := *u.VerificationToken
		u.VerificationToken = &token
	}
	return u
}
