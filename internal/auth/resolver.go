package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/pkg/jwt"
)

// ErrAuthFailure is returned when a credential cannot be resolved to an
// identity, whatever the underlying cause.
var ErrAuthFailure = errors.New("authentication failed")

// Resolver turns an opaque credential into a verified identity.
type Resolver interface {
	Verify(ctx context.Context, credential string) (*domain.Identity, error)
}

// JWTResolver verifies bearer tokens against the local token manager.
type JWTResolver struct {
	manager *jwt.Manager
}

func NewJWTResolver(manager *jwt.Manager) *JWTResolver {
	return &JWTResolver{manager: manager}
}

func (r *JWTResolver) Verify(ctx context.Context, credential string) (*domain.Identity, error) {
	token := strings.TrimPrefix(credential, "Bearer ")
	if token == "" {
		return nil, ErrAuthFailure
	}

	claims, err := r.manager.ValidateToken(token)
	if err != nil {
		return nil, ErrAuthFailure
	}
	if claims.Type != "access" {
		return nil, ErrAuthFailure
	}

	return &domain.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Roles:    claims.Roles,
	}, nil
}

var _ Resolver = (*JWTResolver)(nil)
