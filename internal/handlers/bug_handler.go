package handlers

import (
	"strconv"
	"strings"

	"debugdiary/internal/errs"
	"debugdiary/internal/middleware"
	"debugdiary/internal/models"
	"debugdiary/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// BugHandler handles HTTP requests for the caller's bug entries.
// All routes expect middleware.AuthRequired in front of them.
type BugHandler struct {
	bugService *services.BugService
	logger     *zap.Logger
}

// NewBugHandler creates a new BugHandler.
func NewBugHandler(bugService *services.BugService, logger *zap.Logger) *BugHandler {
	return &BugHandler{
		bugService: bugService,
		logger:     logger,
	}
}

// RegisterRoutes registers the bug routes with the Fiber router.
func (h *BugHandler) RegisterRoutes(router fiber.Router) {
	bugRoutes := router.Group("/bugs")
	bugRoutes.Post("/", h.HandleCreateBug)
	bugRoutes.Get("/", h.HandleListBugs)
	// Registered ahead of /:id so the literal segment wins.
	bugRoutes.Get("/reusable-fixes", h.HandleReusableFixes)
	bugRoutes.Get("/:id", h.HandleGetBug)
	bugRoutes.Put("/:id", h.HandleUpdateBug)
	bugRoutes.Delete("/:id", h.HandleDeleteBug)
}

// HandleCreateBug records a new bug for the caller.
func (h *BugHandler) HandleCreateBug(c *fiber.Ctx) error {
	var req models.CreateBugRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("invalid create bug body", zap.Error(err))
		return invalidBody(c)
	}

	bug, err := h.bugService.CreateBug(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bug)
}

// HandleListBugs lists the caller's bugs, newest first, narrowed by the
// query string filters.
func (h *BugHandler) HandleListBugs(c *fiber.Ctx) error {
	filters, err := parseBugFilters(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	bugs, err := h.bugService.GetUserBugs(c.UserContext(), middleware.UserID(c), filters)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(bugs)
}

// HandleReusableFixes lists the caller's documented reusable fixes.
func (h *BugHandler) HandleReusableFixes(c *fiber.Ctx) error {
	bugs, err := h.bugService.GetReusableFixes(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(bugs)
}

// HandleGetBug returns a single bug owned by the caller.
func (h *BugHandler) HandleGetBug(c *fiber.Ctx) error {
	bug, err := h.bugService.GetBugByID(c.UserContext(), middleware.UserID(c), bugID(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(bug)
}

// HandleUpdateBug applies a partial update to a bug owned by the caller.
func (h *BugHandler) HandleUpdateBug(c *fiber.Ctx) error {
	var req models.UpdateBugRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("invalid update bug body", zap.Error(err))
		return invalidBody(c)
	}

	bug, err := h.bugService.UpdateBug(c.UserContext(), middleware.UserID(c), bugID(c), req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(bug)
}

// HandleDeleteBug removes a bug owned by the caller.
func (h *BugHandler) HandleDeleteBug(c *fiber.Ctx) error {
	if err := h.bugService.DeleteBug(c.UserContext(), middleware.UserID(c), bugID(c)); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// bugID returns the :id route parameter. The copy outlives the request
// buffer, which spans keep referencing after the handler returns.
func bugID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}

// parseBugFilters reads the listing filters. Empty parameters are ignored and
// technologyTags is a comma-separated list.
func parseBugFilters(c *fiber.Ctx) (models.BugFilters, error) {
	var f models.BugFilters

	if v := strings.TrimSpace(c.Query("search")); v != "" {
		f.Search = &v
	}
	if v := c.Query("severity"); v != "" {
		s := models.Severity(v)
		f.Severity = &s
	}
	if v := c.Query("rootCauseCategory"); v != "" {
		r := models.RootCauseCategory(v)
		f.RootCauseCategory = &r
	}
	if v := c.Query("technologyTags"); v != "" {
		f.TechnologyTags = models.CleanTags(strings.Split(v, ","))
	}
	if v := c.Query("isReusableFix"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errs.Validation("Invalid isReusableFix value", map[string]string{
				"isReusableFix": "must be true or false",
			})
		}
		f.IsReusableFix = &b
	}
	return f, nil
}
