package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/users"
	pkgAuth "github.com/angelmondragon/nilgirisfresh-backend/pkg/auth"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/auth/session"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/config"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/security"
)

// Every sign-in failure gets this one message, whatever the cause.
const invalidCredentialsMessage = "invalid credentials"

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// passwordRehasher is optional on userRepository.
type passwordRehasher interface {
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	// PasswordConfig enables rehashing on login when set.
	PasswordConfig *config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	users    userRepository
	sessions sessionManager
	jwtCfg   config.JWTConfig
	hashCfg  *config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time

	decoyOnce sync.Once
	decoy     string
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.UserRepo == nil:
		return nil, fmt.Errorf("user repository is required")
	case params.SessionManager == nil:
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		users:    params.UserRepo,
		sessions: params.SessionManager,
		jwtCfg:   params.JWTConfig,
		hashCfg:  params.PasswordConfig,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Login checks the password, records the sign-in and opens a session keyed
// by the new token's jti.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	s.upgradeHash(ctx, user, req.Password)

	pair, accessID, err := s.openSession(ctx, user, now)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		TokenPair:    pair,
		TransitionID: accessID,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) openSession(ctx context.Context, user *models.User, now time.Time) (pkgAuth.TokenPair, string, error) {
	accessID := session.NewAccessID()
	access, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return pkgAuth.TokenPair{}, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return pkgAuth.TokenPair{}, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return pkgAuth.NewTokenPair(s.jwtCfg, access, refresh), accessID, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	denied := pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, denied
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Spend the same argon2 time as a real check so response latency
		// does not reveal which emails have accounts.
		_, _ = security.VerifyPassword(password, s.decoyHash())
		return nil, denied
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !user.IsActive || !user.Role.IsValid() {
		return nil, denied
	}
	return user, nil
}

func (s *service) decoyHash() string {
	s.decoyOnce.Do(func() {
		cfg := config.PasswordConfig{}
		if s.hashCfg != nil {
			cfg = *s.hashCfg
		}
		s.decoy, _ = security.HashPassword(uuid.NewString(), cfg)
	})
	return s.decoy
}

// upgradeHash re-derives the stored hash when the argon2 parameters have
// moved on. Failures only cost the upgrade, never the sign-in.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	rehasher, ok := s.users.(passwordRehasher)
	if !ok || s.hashCfg == nil || !security.NeedsRehash(user.PasswordHash, *s.hashCfg) {
		return
	}
	hash, err := security.HashPassword(password, *s.hashCfg)
	if err == nil {
		err = rehasher.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "auth.rehash_failed", err)
		}
		return
	}
	user.PasswordHash = hash
}
