package handlers

import (
	"debugdiary/internal/models"
	"debugdiary/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignup)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/verify-email", h.HandleVerifyEmail)
}

// HandleSignup registers a new user and sends the verification email.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("invalid signup body", zap.Error(err))
		return invalidBody(c)
	}

	resp, err := h.authService.Signup(c.UserContext(), req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleLogin authenticates a verified user and issues a session token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("invalid login body", zap.Error(err))
		return invalidBody(c)
	}

	resp, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}

// HandleVerifyEmail consumes the token from the verification link.
func (h *AuthHandler) HandleVerifyEmail(c *fiber.Ctx) error {
	resp, err := h.authService.VerifyEmail(c.UserContext(), c.Query("token"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}
