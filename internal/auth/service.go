package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sovanra-ruos/chat-service/internal/audit"
	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/internal/repository"
	"github.com/sovanra-ruos/chat-service/pkg/jwt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service handles user registration, login, and token refresh.
type Service struct {
	users   repository.UserRepository
	manager *jwt.Manager
}

func NewService(users repository.UserRepository, manager *jwt.Manager) *Service {
	return &Service{users: users, manager: manager}
}

func (s *Service) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		Roles:        []string{"user"},
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	audit.Log(ctx, audit.ActionRegister, user.ID, "user registered")

	return s.issueTokens(user)
}

func (s *Service) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", "unknown email", "login rejected")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, "password mismatch", "login rejected")
		return nil, ErrInvalidCredentials
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")

	return s.issueTokens(user)
}

func (s *Service) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.TokenResponse, error) {
	access, refresh, accessExp, _, err := s.manager.RefreshTokens(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return &domain.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
	}, nil
}

// Logout revokes every outstanding token for the user.
func (s *Service) Logout(ctx context.Context, userID string) {
	s.manager.RevokeUserTokens(userID)
}

func (s *Service) issueTokens(user *domain.User) (*domain.AuthResponse, error) {
	access, refresh, accessExp, _, err := s.manager.GenerateTokenPair(user.ID, user.Email, user.Username, user.Roles)
	if err != nil {
		return nil, err
	}

	return &domain.AuthResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
	}, nil
}
