package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("A user with that username already exists.")
	ErrInvalidCredentials = errors.New("No active account found with the given credentials")
	ErrInvalidToken       = errors.New("Token is invalid or expired")
	ErrWrongTokenType     = errors.New("Token has wrong type")
)

// Token types carried in the token_type claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the JWT claims for both access and refresh tokens
type Claims struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Service handles all authentication operations
type Service struct {
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService creates a new authentication service
func NewService(jwtSecret []byte, accessTTL, refreshTTL time.Duration) *Service {
	if accessTTL <= 0 {
		accessTTL = 5 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &Service{
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// TokenPair is the response of a successful login
type TokenPair struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username" form:"username" binding:"required,max=150"`
	Email    string `json:"email" form:"email" binding:"omitempty,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// LoginRequest represents a token request
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Register creates a user and its profile in one transaction
func (s *Service) Register(req RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameExists
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUsernameExists
			}
			return err
		}
		profile := models.Profile{UserID: user.ID}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		user.Profile = &profile
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID), zap.String("username", user.Username))
	return &user, nil
}

// Login checks credentials and issues an access/refresh pair
func (s *Service) Login(req LoginRequest) (*TokenPair, error) {
	var user models.User
	err := database.DB.Where("username = ?", req.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	database.DB.Model(&user).UpdateColumn("last_login_at", now)

	return s.GenerateTokenPair(&user)
}

// GenerateTokenPair issues a fresh access and refresh token for user
func (s *Service) GenerateTokenPair(user *models.User) (*TokenPair, error) {
	access, err := s.sign(user.ID, user.Username, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user.ID, user.Username, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		Access:   access,
		Refresh:  refresh,
		UserID:   user.ID,
		Username: user.Username,
	}, nil
}

// Refresh trades a refresh token for a new access token
func (s *Service) Refresh(refreshToken string) (string, error) {
	claims, err := s.ParseToken(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", ErrWrongTokenType
	}

	user, err := s.activeUser(claims.UserID)
	if err != nil {
		return "", ErrInvalidToken
	}
	return s.sign(user.ID, user.Username, TokenTypeAccess, s.accessTTL)
}

// Verify reports whether token is a valid token of either type
func (s *Service) Verify(token string) error {
	_, err := s.ParseToken(token)
	return err
}

// ValidateToken validates an access token and returns the user it belongs to
func (s *Service) ValidateToken(tokenString string) (*models.User, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return s.activeUser(claims.UserID)
}

// ParseToken checks the signature and expiry and returns the claims
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) sign(userID uint, username, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (s *Service) activeUser(userID uint) (*models.User, error) {
	var user models.User
	err := database.DB.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}
	return &user, nil
}
