package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dca-case-service/internal/auth"
	"github.com/spec-kit/dca-case-service/internal/config"
	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/repository"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	agencies   repository.DCARepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	DCARepo  repository.DCARepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		agencies:   deps.DCARepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the shared token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RegisterUserInput describes a new operator account.
type RegisterUserInput struct {
	FullName string
	Email    string
	Password string
	Role     domain.UserRole
	DCAID    *string
}

func validRole(r domain.UserRole) bool {
	switch r {
	case domain.RoleFedExAdmin, domain.RoleFedExAgent, domain.RoleDCAAdmin, domain.RoleDCAAgent:
		return true
	}
	return false
}

// RegisterUser creates a new operator account. Agency roles must name an
// existing agency; owner-side roles must not.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if input.FullName == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("full_name, email and password are required", nil)
	}
	if !validRole(input.Role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if input.Role.IsDCA() {
		if input.DCAID == nil || *input.DCAID == "" {
			return nil, apperrors.NewValidationError("agency roles require dca_id", nil)
		}
		if _, err := s.agencies.GetByID(ctx, *input.DCAID); err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewNotFound("dca", map[string]any{"dca_id": *input.DCAID})
			}
			return nil, apperrors.NewStorageError("get dca", err)
		}
	} else if input.DCAID != nil {
		return nil, apperrors.NewValidationError("owner-side roles must not carry dca_id", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.NewStorageError("get user by email", err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		FullName:     input.FullName,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		DCAID:        input.DCAID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewStorageError("insert user", err)
	}
	return user, nil
}

// Login authenticates an operator and returns a role-bearing token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.NewStorageError("get user by email", err)
	}
	if !user.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("user deactivated")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}
