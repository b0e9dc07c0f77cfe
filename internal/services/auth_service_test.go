package services_test

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"debugdiary/internal/errs"
	"debugdiary/internal/models"
	"debugdiary/internal/repositories"
	"debugdiary/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) error {
	args := m.Called(ctx, token, now)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// recordingMailer remembers the last verification email it was asked to send.
type recordingMailer struct {
	email, token string
	sent         int
	err          error
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	if m.err != nil {
		return m.err
	}
	m.email, m.token = email, token
	m.sent++
	return nil
}

// testClock is a settable clock.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newAuthService(repo repositories.UserRepository, m *recordingMailer, clock *testClock) *services.AuthService {
	return services.NewAuthService(repo, m, services.AuthConfig{
		JWTSecret:  testJWTSecret,
		TokenTTL:   7 * 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
		Now:        clock.Now,
	}, zap.NewNop())
}

func assertKind(t *testing.T, err error, kind errs.Kind, message string) {
	t.Helper()
	require.Error(t, err)
	e := errs.As(err)
	assert.Equal(t, kind, e.Kind, "error: %v", err)
	if message != "" {
		assert.Equal(t, message, e.Message)
	}
}

func TestAuthService_SignupStoresUnverifiedUser(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	m := &recordingMailer{}
	svc := newAuthService(repo, m, &testClock{now: t0})

	resp, err := svc.Signup(context.Background(), models.SignupRequest{Email: "  Dev@Example.COM ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, services.MsgSignupSuccess, resp.Message)

	user, err := repo.GetByEmail(context.Background(), "dev@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	assert.Equal(t, t0, user.CreatedAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
	assert.NotEqual(t, "secret1", user.PasswordHash)

	require.NotNil(t, user.VerificationToken)
	token := *user.VerificationToken
	assert.Len(t, token, 64)
	_, err = hex.DecodeString(token)
	assert.NoError(t, err)

	assert.Equal(t, 1, m.sent)
	assert.Equal(t, "dev@example.com", m.email)
	assert.Equal(t, token, m.token)
}

func TestAuthService_SignupUsesConfiguredCost(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	svc := services.NewAuthService(repo, &recordingMailer{}, services.AuthConfig{
		JWTSecret:  testJWTSecret,
		BcryptCost: bcrypt.MinCost + 1,
	}, zap.NewNop())

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "cost@example.com", Password: "secret1"})
	require.NoError(t, err)

	user, err := repo.GetByEmail(context.Background(), "cost@example.com")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(user.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestAuthService_SignupTokensAreUnique(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	m := &recordingMailer{}
	svc := newAuthService(repo, m, &testClock{now: t0})

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)
	first := m.token
	_, err = svc.Signup(context.Background(), models.SignupRequest{Email: "b@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEqual(t, first, m.token)
}

func TestAuthService_SignupDuplicateEmailIsCaseInsensitive(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	svc := newAuthService(repo, &recordingMailer{}, &testClock{now: t0})

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), models.SignupRequest{Email: "A@X.COM", Password: "another1"})
	assertKind(t, err, errs.KindConflict, services.MsgUserExists)
}

func TestAuthService_SignupRaceSurfacesConflict(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByEmail", mock.Anything, "race@example.com").Return(nil, repositories.ErrNotFound).Once()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
		Return(repositories.ErrDuplicate).Once()
	m := &recordingMailer{}
	svc := newAuthService(repo, m, &testClock{now: t0})

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "race@example.com", Password: "secret1"})
	assertKind(t, err, errs.KindConflict, services.MsgUserExists)
	assert.Zero(t, m.sent)
	repo.AssertExpectations(t)
}

func TestAuthService_SignupMailFailureRemovesUser(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	m := &recordingMailer{err: errors.New("smtp unavailable")}
	svc := newAuthService(repo, m, &testClock{now: t0})

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "mail@example.com", Password: "secret1"})
	assertKind(t, err, errs.KindInternal, "internal server error")
	assert.ErrorContains(t, err, "smtp unavailable")

	_, err = repo.GetByEmail(context.Background(), "mail@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	m.err = nil
	_, err = svc.Signup(context.Background(), models.SignupRequest{Email: "mail@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestAuthService_SignupStoreFailureIsInternal(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByEmail", mock.Anything, "down@example.com").Return(nil, errors.New("connection refused")).Once()
	svc := newAuthService(repo, &recordingMailer{}, &testClock{now: t0})

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "down@example.com", Password: "secret1"})
	assertKind(t, err, errs.KindInternal, "internal server error")
	repo.AssertExpectations(t)
}

func TestAuthService_SignupValidation(t *testing.T) {
	svc := newAuthService(repositories.NewMockUserRepository(), &recordingMailer{}, &testClock{now: t0})

	tests := []struct {
		name    string
		req     models.SignupRequest
		message string
		field   string
	}{
		{"missing email", models.SignupRequest{Password: "secret1"}, "Email and password are required", "email"},
		{"missing password", models.SignupRequest{Email: "a@x.com"}, "Email and password are required", "password"},
		{"bad email", models.SignupRequest{Email: "not-an-email", Password: "secret1"}, "Invalid email format", "email"},
		{"short password", models.SignupRequest{Email: "a@x.com", Password: "12345"}, "Password must be at least 6 characters long", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tt.req)
			assertKind(t, err, errs.KindValidation, tt.message)
			assert.Contains(t, errs.As(err).Fields, tt.field)
		})
	}
}

// signupAndVerify registers a user and optionally consumes the token.
func signupAndVerify(t *testing.T, svc *services.AuthService, m *recordingMailer, email, password string, verify bool) {
	t.Helper()
	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: email, Password: password})
	require.NoError(t, err)
	if verify {
		_, err = svc.VerifyEmail(context.Background(), m.token)
		require.NoError(t, err)
	}
}

func TestAuthService_LoginFailuresAreDistinct(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	m := &recordingMailer{}
	svc := newAuthService(repo, m, &testClock{now: t0})
	signupAndVerify(t, svc, m, "verified@example.com", "secret1", true)
	signupAndVerify(t, svc, m, "pending@example.com", "secret1", false)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assertKind(t, err, errs.KindUnauthorized, services.MsgInvalidCredentials)
	assert.ErrorIs(t, err, services.ErrUnknownEmail)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "verified@example.com", Password: "wrong-password"})
	assertKind(t, err, errs.KindUnauthorized, services.MsgInvalidCredentials)
	assert.ErrorIs(t, err, services.ErrWrongPassword)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "pending@example.com", Password: "secret1"})
	assertKind(t, err, errs.KindUnauthorized, services.MsgEmailNotVerified)
	assert.ErrorIs(t, err, services.ErrEmailNotVerified)

	// An unverified account with the wrong password reports bad credentials.
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "pending@example.com", Password: "wrong-password"})
	assertKind(t, err, errs.KindUnauthorized, services.MsgInvalidCredentials)
	assert.ErrorIs(t, err, services.ErrWrongPassword)
}

func TestAuthService_LoginValidation(t *testing.T) {
	svc := newAuthService(repositories.NewMockUserRepository(), &recordingMailer{}, &testClock{now: t0})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com"})
	assertKind(t, err, errs.KindValidation, "Email and password are required")
}

func TestAuthService_LoginIssuesSessionToken(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	m := &recordingMailer{}
	clock := &testClock{now: t0}
	svc := newAuthService(repo, m, clock)
	signupAndVerify(t, svc, m, "dev@example.com", "secret1", true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: " DEV@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "dev@example.com", resp.User.Email)
	assert.True(t, resp.User.IsVerified)
	assert.NotEmpty(t, resp.User.ID)

	// The fixed clock is in the past, so wall-clock expiry checks are skipped here.
	parser := &jwt.Parser{SkipClaimsValidation: true}
	parsed, err := parser.ParseWithClaims(resp.Token, &services.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, jwt.SigningMethodHS256.Alg(), parsed.Method.Alg())
	claims := parsed.Claims.(*services.SessionClaims)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "dev@example.com", claims.Email)
	assert.Equal(t, t0.Unix(), claims.IssuedAt)
	assert.Equal(t, t0.Add(7*24*time.Hour).Unix(), claims.ExpiresAt)

	validated, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, validated.UserID)

	clock.now = t0.Add(7*24*time.Hour - time.Second)
	_, err = svc.ValidateToken(resp.Token)
	assert.NoError(t, err)

	clock.now = t0.Add(7*24*time.Hour + time.Second)
	_, err = svc.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestAuthService_ValidateTokenRejectsForgeries(t *testing.T) {
	svc := newAuthService(repositories.NewMockUserRepository(), &recordingMailer{}, &testClock{now: t0})
	claims := services.SessionClaims{
		UserID:         "user-1",
		Email:          "dev@example.com",
		StandardClaims: jwt.StandardClaims{ExpiresAt: t0.Add(time.Hour).Unix()},
	}

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("another-secret"))
	require.NoError(t, err)
	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, services.SessionClaims{UserID: "user-1"}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, services.SessionClaims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: t0.Add(time.Hour).Unix()},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"other secret": otherSecret,
		"other alg":    otherAlg,
		"unsigned":     unsigned,
		"no expiry":    noExpiry,
		"no user":      noUser,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, services.ErrInvalidToken)
		})
	}
}

func TestAuthService_VerifyEmailIsSingleUse(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	m := &recordingMailer{}
	svc := newAuthService(repo, m, &testClock{now: t0})
	signupAndVerify(t, svc, m, "once@example.com", "secret1", false)

	resp, err := svc.VerifyEmail(context.Background(), m.token)
	require.NoError(t, err)
	assert.Equal(t, services.MsgVerifySuccess, resp.Message)

	user, err := repo.GetByEmail(context.Background(), "once@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.Nil(t, user.VerificationToken)

	_, err = svc.VerifyEmail(context.Background(), m.token)
	assertKind(t, err, errs.KindValidation, services.MsgInvalidVerifyToken)

	_, err = svc.VerifyEmail(context.Background(), "never-issued")
	assertKind(t, err, errs.KindValidation, services.MsgInvalidVerifyToken)
}

func TestAuthService_VerifyEmailRequiresToken(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newAuthService(repo, &recordingMailer{}, &testClock{now: t0})

	_, err := svc.VerifyEmail(context.Background(), "   ")
	assertKind(t, err, errs.KindValidation, services.MsgMissingVerifyToken)
	repo.AssertNotCalled(t, "ConsumeVerificationToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_VerifyEmailStoreFailureIsInternal(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("ConsumeVerificationToken", mock.Anything, "tok", t0).Return(errors.New("deadlock")).Once()
	svc := newAuthService(repo, &recordingMailer{}, &testClock{now: t0})

	_, err := svc.VerifyEmail(context.Background(), "tok")
	assertKind(t, err, errs.KindInternal, "internal server error")
	repo.AssertExpectations(t)
}
