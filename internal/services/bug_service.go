package services

import (
	"context"
	"errors"
	"time"

	"debugdiary/internal/errs"
	"debugdiary/internal/models"
	"debugdiary/internal/repositories"
	"debugdiary/internal/telemetry"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// BugService handles business logic for the owner's bug journal.
type BugService struct {
	bugRepo  repositories.BugRepository
	validate *validator.Validate
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewBugService creates a new BugService. A nil clock means time.Now.
func NewBugService(bugRepo repositories.BugRepository, logger *zap.Logger, now func() time.Time) *BugService {
	if now == nil {
		now = time.Now
	}
	return &BugService{
		bugRepo:  bugRepo,
		validate: newValidator(),
		logger:   logger,
		tracer:   telemetry.Tracer("debugdiary/bugs"),
		now:      func() time.Time { return now().UTC() },
	}
}

// CreateBug records a new entry for ownerID. Reusability and fix closure are
// never taken from the request.
func (s *BugService) CreateBug(ctx context.Context, ownerID string, req models.CreateBugRequest) (*models.BugView, error) {
	ctx, span := s.tracer.Start(ctx, "bugs.CreateBug")
	defer span.End()

	req.Normalize()
	if err := validateStruct(ctx, s.validate, req); err != nil {
		return nil, err
	}

	now := s.now()
	id := uuid.New().String()
	bug := &models.BugEntry{
		ID:                   id,
		OwnerID:              ownerID,
		Title:                req.Title,
		Environment:          req.Environment,
		Severity:             req.Severity,
		CodeSnippet:          req.CodeSnippet,
		ErrorMessage:         req.ErrorMessage,
		BugDetails:           req.BugDetails,
		RootCauseExplanation: req.RootCauseExplanation,
		RootCauseCategory:    req.RootCauseCategory,
		FixDocumentation:     req.FixDocumentation,
		FixSummary:           req.FixSummary,
		Tags:                 models.NewBugTags(id, req.TechnologyTags),
		IsReusableFix:        false,
		FixedAt:              nil,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.bugRepo.Create(ctx, bug); err != nil {
		return nil, errs.Internal(err)
	}

	view := bug.View()
	return &view, nil
}

// GetBugByID returns the owner's entry. An entry of another owner is
// reported exactly like a missing one.
func (s *BugService) GetBugByID(ctx context.Context, ownerID, id string) (*models.BugView, error) {
	ctx, span := s.tracer.Start(ctx, "bugs.GetBugByID", trace.WithAttributes(attribute.String("diary.bug.id", id)))
	defer span.End()

	bug, err := s.bugRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, bugError(err)
	}
	view := bug.View()
	return &view, nil
}

// GetUserBugs lists the owner's entries matching every supplied filter,
// newest first.
func (s *BugService) GetUserBugs(ctx context.Context, ownerID string, filters models.BugFilters) ([]models.BugView, error) {
	ctx, span := s.tracer.Start(ctx, "bugs.GetUserBugs")
	defer span.End()

	if err := validateStruct(ctx, s.validate, filters); err != nil {
		return nil, err
	}

	bugs, err := s.bugRepo.Find(ctx, repositories.FilterQuery(ownerID, filters))
	if err != nil {
		return nil, errs.Internal(err)
	}
	return views(bugs), nil
}

// UpdateBug merges the supplied fields into the owner's entry and refreshes
// its update time. Setting isReusableFix without fix documentation is
// accepted; such entries are left out of the reusable-fix listing.
func (s *BugService) UpdateBug(ctx context.Context, ownerID, id string, req models.UpdateBugRequest) (*models.BugView, error) {
	ctx, span := s.tracer.Start(ctx, "bugs.UpdateBug", trace.WithAttributes(attribute.String("diary.bug.id", id)))
	defer span.End()

	req.Normalize()
	if err := validateStruct(ctx, s.validate, req); err != nil {
		return nil, err
	}

	bug, err := s.bugRepo.Update(ctx, ownerID, id, req.Patch(), s.now())
	if err != nil {
		return nil, bugError(err)
	}
	view := bug.View()
	return &view, nil
}

// DeleteBug removes the owner's entry.
func (s *BugService) DeleteBug(ctx context.Context, ownerID, id string) error {
	ctx, span := s.tracer.Start(ctx, "bugs.DeleteBug", trace.WithAttributes(attribute.String("diary.bug.id", id)))
	defer span.End()

	if err := s.bugRepo.Delete(ctx, ownerID, id); err != nil {
		return bugError(err)
	}
	s.logger.Debug("bug entry deleted", zap.String("bug_id", id))
	return nil
}

// GetReusableFixes lists the owner's entries flagged reusable that carry fix
// documentation, most recently updated first.
func (s *BugService) GetReusableFixes(ctx context.Context, ownerID string) ([]models.BugView, error) {
	ctx, span := s.tracer.Start(ctx, "bugs.GetReusableFixes")
	defer span.End()

	bugs, err := s.bugRepo.Find(ctx, repositories.ReusableFixesQuery(ownerID))
	if err != nil {
		return nil, errs.Internal(err)
	}
	return views(bugs), nil
}

func bugError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return errs.NotFound(MsgBugNotFound)
	}
	return errs.Internal(err)
}

func views(bugs []models.BugEntry) []models.BugView {
	out := make([]models.BugView, len(bugs))
	for i := range bugs {
		out[i] = bugs[i].View()
	}
	return out
}
