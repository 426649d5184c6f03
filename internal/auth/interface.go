package auth

import "github.com/nextolk/backend/internal/models"

// AuthServiceInterface defines the contract for authentication operations.
// This enables mocking for unit tests without requiring a real database.
type AuthServiceInterface interface {
	Register(req RegisterRequest) (*models.User, error)
	Login(req LoginRequest) (*TokenPair, error)

	// Token operations
	Refresh(refreshToken string) (string, error)
	Verify(token string) error
	ValidateToken(tokenString string) (*models.User, error)
}

// Ensure Service implements AuthServiceInterface
var _ AuthServiceInterface = (*Service)(nil)
