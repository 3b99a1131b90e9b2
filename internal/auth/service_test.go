package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/users"
	pkgAuth "github.com/angelmondragon/nilgirisfresh-backend/pkg/auth"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/config"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/dbtest"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "nilgirisfresh",
	ExpirationMinutes: 30,
}

func TestServiceLoginIssuesRoleClaims(t *testing.T) {
	password := "admin-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "admin@nilgirisfresh.in",
		PasswordHash: mustHashPassword(t, password),
		FullName:     "Store Admin",
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}

	svc, sessions := buildTestService(t, &stubUserRepo{user: user})
	resp, err := svc.Login(context.Background(), LoginRequest{Email: " ADMIN@nilgirisfresh.in", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if !claims.IsAdmin() {
		t.Fatalf("expected admin role claim, got %s", claims.Role)
	}
	if claims.ID != resp.TransitionID || sessions.lastAccessID != claims.ID {
		t.Fatalf("expected jti %s to key the session and the transition, got %s / %s", claims.ID, resp.TransitionID, sessions.lastAccessID)
	}
	if resp.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected refresh token %q", resp.RefreshToken)
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != 30*60 {
		t.Fatalf("unexpected token metadata %s/%d", resp.TokenType, resp.ExpiresIn)
	}
	if resp.User.LastLoginAt == nil {
		t.Fatal("expected last login to be recorded")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "shopper@example.com",
		PasswordHash: mustHashPassword(t, "correct-horse"),
		FullName:     "Shopper",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	svc, _ := buildTestService(t, &stubUserRepo{user: user})

	cases := []LoginRequest{
		{Email: "shopper@example.com", Password: "wrong"},
		{Email: "", Password: "correct-horse"},
	}
	for _, req := range cases {
		if _, err := svc.Login(context.Background(), req); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %+v, got %v", req, err)
		}
	}

	user.IsActive = false
	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected inactive user to be rejected, got %v", err)
	}

	missing, _ := buildTestService(t, &stubUserRepo{err: gorm.ErrRecordNotFound})
	if _, err := missing.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "x"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unknown email to be unauthorized, got %v", err)
	}

	broken, _ := buildTestService(t, &stubUserRepo{err: errors.New("db down")})
	if _, err := broken.Login(context.Background(), LoginRequest{Email: "x@example.com", Password: "x"}); !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestRegisterThenLogin(t *testing.T) {
	repo := users.NewRepository(dbtest.Open(t))
	reg, err := NewRegisterService(RegisterServiceParams{Users: repo})
	if err != nil {
		t.Fatalf("register service: %v", err)
	}
	ctx := context.Background()

	created, err := reg.Register(ctx, RegisterRequest{FullName: " Anu Raj ", Email: "Anu@Example.com", Password: "nilgiri-tea"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Role != enums.UserRoleCustomer || created.Email != "anu@example.com" || created.FullName != "Anu Raj" {
		t.Fatalf("unexpected user %+v", created)
	}

	if _, err := reg.Register(ctx, RegisterRequest{FullName: "Anu", Email: "anu@example.com", Password: "another-pass"}); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
	if _, err := reg.Register(ctx, RegisterRequest{FullName: "Short", Email: "short@example.com", Password: "123"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}

	svc, _ := buildTestService(t, repo)
	resp, err := svc.Login(ctx, LoginRequest{Email: "anu@example.com", Password: "nilgiri-tea"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.ID != created.ID {
		t.Fatalf("expected login as registered user")
	}
}

func TestRegisterAdminAssignsRole(t *testing.T) {
	reg, err := NewRegisterService(RegisterServiceParams{Users: users.NewRepository(dbtest.Open(t))})
	if err != nil {
		t.Fatalf("register service: %v", err)
	}
	admin, err := reg.RegisterAdmin(context.Background(), RegisterRequest{FullName: "Owner", Email: "owner@example.com", Password: "long-enough"})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if admin.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin role, got %s", admin.Role)
	}
}

func buildTestService(t *testing.T, repo userRepository) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	refreshToken string
	lastAccessID string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.lastAccessID = accessID
	return s.refreshToken, nil
}

type rehashingUserRepo struct {
	stubUserRepo
	updated string
}

func (r *rehashingUserRepo) UpdatePasswordHash(_ context.Context, _ uuid.UUID, hash string) error {
	r.updated = hash
	return nil
}

func TestServiceLoginUpgradesStaleHash(t *testing.T) {
	password := "filter-coffee"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "shopper@example.com",
		PasswordHash: mustHashPassword(t, password),
		FullName:     "Shopper",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	repo := &rehashingUserRepo{stubUserRepo: stubUserRepo{user: user}}
	current := config.PasswordConfig{ArgonMemoryKB: 16, ArgonTime: 2, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: &stubSessionManager{refreshToken: "r"},
		JWTConfig:      testJWT,
		PasswordConfig: &current,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if repo.updated == "" {
		t.Fatalf("expected stale hash to be replaced")
	}
	if security.NeedsRehash(repo.updated, current) {
		t.Fatalf("replacement hash should match current parameters")
	}
	ok, err := security.VerifyPassword(password, repo.updated)
	if err != nil || !ok {
		t.Fatalf("replacement hash should verify, ok=%v err=%v", ok, err)
	}
}
