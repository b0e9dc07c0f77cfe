package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"debugdiary/internal/errs"
	"debugdiary/internal/mailer"
	"debugdiary/internal/models"
	"debugdiary/internal/repositories"
	"debugdiary/internal/telemetry"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// verificationTokenBytes is the entropy of an email verification token.
const verificationTokenBytes = 32

// SessionClaims are the claims of a session token.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// AuthConfig holds the tunables of AuthService.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	// Now is the clock used for timestamps and token expiry; nil means time.Now.
	Now func() time.Time
}

// AuthService handles signup, login, and email verification.
type AuthService struct {
	userRepo repositories.UserRepository
	mailer   mailer.Mailer
	validate *validator.Validate
	logger   *zap.Logger
	tracer   trace.Tracer

	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, m mailer.Mailer, cfg AuthConfig, logger *zap.Logger) *AuthService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = 12
	}
	return &AuthService{
		userRepo:   userRepo,
		mailer:     m,
		validate:   newValidator(),
		logger:     logger,
		tracer:     telemetry.Tracer("debugdiary/auth"),
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenTTL:   ttl,
		bcryptCost: cost,
		now:        func() time.Time { return now().UTC() },
	}
}

// Signup registers an unverified user and sends the verification email.
// If the email cannot be dispatched the new user is removed again so the
// address can be reused.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Signup")
	defer span.End()

	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(ctx, s.validate, req); err != nil {
		return nil, err
	}

	_, err := s.userRepo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, errs.Conflict(MsgUserExists, repositories.ErrDuplicate)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, errs.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, errs.Internal(fmt.Errorf("failed to hash password: %w", err))
	}
	token, err := newVerificationToken()
	if err != nil {
		return nil, errs.Internal(err)
	}

	now := s.now()
	user := &models.User{
		Email:             req.Email,
		PasswordHash:      string(hash),
		VerificationToken: &token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errs.Conflict(MsgUserExists, err)
		}
		return nil, errs.Internal(err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.logger.Error("failed to send verification email, removing user",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		if delErr := s.userRepo.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
			s.logger.Error("failed to remove user after email failure",
				zap.String("user_id", user.ID),
				zap.Error(delErr),
			)
		}
		return nil, errs.Internal(fmt.Errorf("failed to send verification email: %w", err))
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return &models.MessageResponse{Message: MsgSignupSuccess}, nil
}

// Login checks the credentials of a verified user and issues a session token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login")
	defer span.End()

	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(ctx, s.validate, req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Same bcrypt work as the wrong-password path.
			_ = bcrypt.CompareHashAndPassword(s.dummyPasswordHash(), []byte(req.Password))
			return nil, errs.Unauthorized(MsgInvalidCredentials, ErrUnknownEmail)
		}
		return nil, errs.Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errs.Unauthorized(MsgInvalidCredentials, ErrWrongPassword)
		}
		return nil, errs.Internal(fmt.Errorf("failed to compare password hash: %w", err))
	}

	if !user.IsVerified {
		return nil, errs.Unauthorized(MsgEmailNotVerified, ErrEmailNotVerified)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &models.AuthResponse{Token: token, User: user.View()}, nil
}

// VerifyEmail consumes a verification token. Tokens are single-use: a replay
// fails exactly like an unknown token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.VerifyEmail")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errs.Validation(MsgMissingVerifyToken, nil)
	}

	if err := s.userRepo.ConsumeVerificationToken(ctx, token, s.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errs.Validation(MsgInvalidVerifyToken, nil)
		}
		return nil, errs.Internal(err)
	}
	return &models.MessageResponse{Message: MsgVerifySuccess}, nil
}

// ValidateToken parses and validates a session token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// Expiry is checked against the service clock rather than jwt.TimeFunc.
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return nil, fmt.Errorf("%w: token is expired", ErrInvalidToken)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
	}
	return claims, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := s.now()
	claims := SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) dummyPasswordHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("debug-diary-dummy-password"), s.bcryptCost)
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newVerificationToken() (string, error) {
	b := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
