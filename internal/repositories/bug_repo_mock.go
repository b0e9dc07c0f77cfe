package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"debugdiary/internal/models"

	"github.com/google/uuid"
)

// MockBugRepository is an in-memory implementation of BugRepository.
type MockBugRepository struct {
	bugs map[string]models.BugEntry
	mu   sync.RWMutex
}

// NewMockBugRepository creates a new instance of MockBugRepository.
func NewMockBugRepository() *MockBugRepository {
	return &MockBugRepository{
		bugs: make(map[string]models.BugEntry),
	}
}

// Create adds a new entry.
func (r *MockBugRepository) Create(_ context.Context, bug *models.BugEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bug.ID == "" {
		bug.ID = uuid.New().String()
	}
	for i := range bug.Tags {
		bug.Tags[i].BugID = bug.ID
	}
	r.bugs[bug.ID] = copyBug(*bug)
	return nil
}

// GetByID returns the owner's entry by ID.
func (r *MockBugRepository) GetByID(_ context.Context, ownerID, id string) (*models.BugEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bug, ok := r.bugs[id]
	if !ok || bug.OwnerID != ownerID {
		return nil, fmt.Errorf("bug entry %s: %w", id, ErrNotFound)
	}
	found := copyBug(bug)
	return &found, nil
}

// Find returns the owner's entries matching every predicate of q.
func (r *MockBugRepository) Find(_ context.Context, q BugQuery) ([]models.BugEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bugs := []models.BugEntry{}
	for _, bug := range r.bugs {
		if bug.OwnerID != q.OwnerID {
			continue
		}
		ok, err := matchAll(q.Predicates, &bug)
		if err != nil {
			return nil, err
		}
		if ok {
			bugs = append(bugs, copyBug(bug))
		}
	}

	key := func(b *models.BugEntry) time.Time { return b.CreatedAt }
	if q.Order == OrderUpdatedDesc {
		key = func(b *models.BugEntry) time.Time { return b.UpdatedAt }
	}
	sort.SliceStable(bugs, func(i, j int) bool {
		ki, kj := key(&bugs[i]), key(&bugs[j])
		if !ki.Equal(kj) {
			return ki.After(kj)
		}
		return bugs[i].ID > bugs[j].ID
	})
	return bugs, nil
}

// Update applies patch to the owner's entry.
func (r *MockBugRepository) Update(_ context.Context, ownerID, id string, patch models.BugPatch, now time.Time) (*models.BugEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bug, ok := r.bugs[id]
	if !ok || bug.OwnerID != ownerID {
		return nil, fmt.Errorf("bug entry %s: %w", id, ErrNotFound)
	}
	bug = copyBug(bug)
	patch.Apply(&bug, now)
	r.bugs[id] = bug

	updated := copyBug(bug)
	return &updated, nil
}

// Delete removes the owner's entry.
func (r *MockBugRepository) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bug, ok := r.bugs[id]
	if !ok || bug.OwnerID != ownerID {
		return fmt.Errorf("bug entry %s: %w", id, ErrNotFound)
	}
	delete(r.bugs, id)
	return nil
}

func matchAll(predicates []Predicate, bug *models.BugEntry) (bool, error) {
	for _, p := range predicates {
		ok, err := Match(p, bug)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func copyBug(b models.BugEntry) models.BugEntry {
	b.Tags = append([]models.BugTag(nil), b.Tags...)
	if b.FixedAt != nil {
		fixedAt := *b.FixedAt
		b.FixedAt = &fixedAt
	}
	return b
}
