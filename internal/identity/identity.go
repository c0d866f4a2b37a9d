// Package identity resolves credentials to user ids and answers user
// existence checks for message targets.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/samarthnaikk/ychat20/internal/auth"
)

// ErrUserNotFound is returned when a user id does not resolve to a known user.
var ErrUserNotFound = errors.New("user not found")

// UserStore answers user existence checks.
type UserStore interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// TokenValidator validates a credential token and yields the claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// Service resolves opaque credential tokens to user ids.
type Service struct {
	validator TokenValidator
	users     UserStore
}

// New creates an identity service.
func New(validator TokenValidator, users UserStore) *Service {
	return &Service{
		validator: validator,
		users:     users,
	}
}

// Resolve validates the credential and returns the user id it identifies.
func (s *Service) Resolve(token string) (int64, error) {
	claims, err := s.validator.ValidateToken(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// Exists reports whether userID resolves to a known user.
func (s *Service) Exists(ctx context.Context, userID int64) (bool, error) {
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check user %d: %w", userID, err)
	}
	return exists, nil
}
