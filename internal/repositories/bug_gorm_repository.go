package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"debugdiary/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMBugRepository is a GORM implementation of BugRepository.
type GORMBugRepository struct {
	db *gorm.DB
}

// NewGORMBugRepository creates a new instance of GORMBugRepository.
func NewGORMBugRepository(db *gorm.DB) *GORMBugRepository {
	return &GORMBugRepository{
		db: db,
	}
}

// Create inserts the entry together with its tags.
func (r *GORMBugRepository) Create(ctx context.Context, bug *models.BugEntry) error {
	if bug.ID == "" {
		bug.ID = uuid.New().String()
	}
	for i := range bug.Tags {
		bug.Tags[i].BugID = bug.ID
	}
	bug.RefreshSearch()
	if err := r.db.WithContext(ctx).Create(bug).Error; err != nil {
		return fmt.Errorf("failed to create bug entry: %w", err)
	}
	return nil
}

// GetByID retrieves the owner's entry by ID.
func (r *GORMBugRepository) GetByID(ctx context.Context, ownerID, id string) (*models.BugEntry, error) {
	var bug models.BugEntry
	err := withTags(r.db.WithContext(ctx)).
		First(&bug, "id = ? AND owner_id = ?", id, ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("bug entry %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bug entry %s: %w", id, err)
	}
	return &bug, nil
}

// Find lists the owner's entries matching every predicate of q.
func (r *GORMBugRepository) Find(ctx context.Context, q BugQuery) ([]models.BugEntry, error) {
	tx := withTags(r.db.WithContext(ctx)).
		Model(&models.BugEntry{}).
		Where("owner_id = ?", q.OwnerID)

	for _, p := range q.Predicates {
		var err error
		if tx, err = applyPredicate(tx, p); err != nil {
			return nil, err
		}
	}

	switch q.Order {
	case OrderUpdatedDesc:
		tx = tx.Order("updated_at DESC").Order("id DESC")
	default:
		tx = tx.Order("created_at DESC").Order("id DESC")
	}

	bugs := []models.BugEntry{}
	if err := tx.Find(&bugs).Error; err != nil {
		return nil, fmt.Errorf("failed to list bug entries: %w", err)
	}
	return bugs, nil
}

// Update loads, patches, and saves the owner's entry in one transaction.
// The tag rows are replaced only when the patch carries tags.
func (r *GORMBugRepository) Update(ctx context.Context, ownerID, id string, patch models.BugPatch, now time.Time) (*models.BugEntry, error) {
	var bug models.BugEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := withTags(tx).First(&bug, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("bug entry %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to load bug entry %s: %w", id, err)
		}

		tagsChanged := patch.Apply(&bug, now)
		bug.RefreshSearch()
		if err := tx.Omit(clause.Associations).Save(&bug).Error; err != nil {
			return fmt.Errorf("failed to update bug entry %s: %w", id, err)
		}
		if !tagsChanged {
			return nil
		}
		if err := tx.Where("bug_id = ?", bug.ID).Delete(&models.BugTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear tags of bug entry %s: %w", id, err)
		}
		if len(bug.Tags) > 0 {
			if err := tx.Create(&bug.Tags).Error; err != nil {
				return fmt.Errorf("failed to store tags of bug entry %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bug, nil
}

// Delete removes the owner's entry and its tags.
func (r *GORMBugRepository) Delete(ctx context.Context, ownerID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.BugEntry{}, "id = ? AND owner_id = ?", id, ownerID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete bug entry %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("bug entry %s: %w", id, ErrNotFound)
		}
		if err := tx.Where("bug_id = ?", id).Delete(&models.BugTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete tags of bug entry %s: %w", id, err)
		}
		return nil
	})
}

func withTags(db *gorm.DB) *gorm.DB {
	return db.Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq")
	})
}

// applyPredicate compiles a predicate into a WHERE clause.
func applyPredicate(tx *gorm.DB, p Predicate) (*gorm.DB, error) {
	switch p := p.(type) {
	case SearchPredicate:
		pattern := "%" + escapeLike(models.FoldSearch(p.Term)) + "%"
		return tx.Where(
			"(search_title LIKE ? ESCAPE '\\' OR search_error_message LIKE ? ESCAPE '\\' OR search_fix_documentation LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern,
		), nil
	case SeverityPredicate:
		return tx.Where("severity = ?", p.Severity), nil
	case RootCausePredicate:
		return tx.Where("root_cause_category = ?", p.Category), nil
	case TagsPredicate:
		return tx.Where(
			"EXISTS (SELECT 1 FROM bug_tags WHERE bug_tags.bug_id = bug_entries.id AND bug_tags.tag IN ?)",
			p.Tags,
		), nil
	case ReusablePredicate:
		return tx.Where("is_reusable_fix = ?", p.Value), nil
	case DocumentedFixPredicate:
		return tx.Where("is_reusable_fix = ? AND fix_documentation <> ''", true), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPredicate, p)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
