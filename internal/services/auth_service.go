package services

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/bullsai/watchlist/internal/db"
	"github.com/bullsai/watchlist/internal/models"
)

// AuthService defines the interface for authentication operations
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GenerateToken(user *models.User) (string, error)
}

type authService struct {
	store     db.UserStore
	secretKey []byte
	ttl       time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(store db.UserStore, secretKey []byte, ttl time.Duration) AuthService {
	return &authService{store: store, secretKey: secretKey, ttl: ttl}
}

// Authenticate verifies user credentials and returns the user if valid
func (s *authService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, storeError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}
	return user, nil
}

// GenerateToken creates a new JWT token for the user
func (s *authService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.Claims{
		UserID: user.ID,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			ExpiresAt: now.Add(s.ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}
