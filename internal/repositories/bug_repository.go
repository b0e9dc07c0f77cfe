package repositories

import (
	"context"
	"time"

	"debugdiary/internal/models"
)

// BugRepository defines the bug store contract. Every lookup is scoped by owner.
type BugRepository interface {
	Create(ctx context.Context, bug *models.BugEntry) error
	GetByID(ctx context.Context, ownerID, id string) (*models.BugEntry, error)
	Find(ctx context.Context, q BugQuery) ([]models.BugEntry, error)
	// Update applies patch to the owner's entry atomically and returns the result.
	Update(ctx context.Context, ownerID, id string, patch models.BugPatch, now time.Time) (*models.BugEntry, error)
	Delete(ctx context.Context, ownerID, id string) error
}
