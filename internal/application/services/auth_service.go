package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/infrastructure/config"
	"github.com/xpresstask/core/internal/infrastructure/logger"
	"github.com/xpresstask/core/internal/ports"
)

// Claims represents the JWT claims
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo  ports.UserRepository
	jwtConfig config.JWTConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo ports.UserRepository, jwtConfig config.JWTConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtConfig: jwtConfig,
		logger:    logger.WithComponent("auth"),
		now:       time.Now,
	}
}

// Signup creates a new user account and issues a token for it
func (s *AuthService) Signup(ctx context.Context, req ports.CredentialsRequest) (*ports.AuthResponse, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, entities.ErrCredentialsRequired
	}

	// Check if user already exists
	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err == nil && existing != nil {
		return nil, entities.ErrUsernameTaken
	}
	if err != nil && !errors.Is(err, entities.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    s.now().UTC(),
	}

	// A concurrent signup can still lose the race on the unique index; the
	// repository reports that as ErrUsernameTaken.
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, entities.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Infow("User registered successfully", "user_id", user.ID, "username", user.Username)

	token, err := s.generateToken(user, s.jwtConfig.SignupExpiresIn)
	if err != nil {
		return nil, err
	}

	return &ports.AuthResponse{
		Token:    token,
		Username: user.Username,
		Message:  "registration successful",
	}, nil
}

// Login authenticates a user and returns a fresh token
func (s *AuthService) Login(ctx context.Context, req ports.CredentialsRequest) (*ports.AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, entities.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			s.logger.Warnw("Login attempt with unknown username", "username", req.Username)
			return nil, entities.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warnw("Login attempt with invalid password", "username", req.Username, "user_id", user.ID)
		return nil, entities.ErrInvalidCredentials
	}

	s.logger.Infow("User logged in successfully", "user_id", user.ID, "username", user.Username)

	token, err := s.generateToken(user, s.jwtConfig.LoginExpiresIn)
	if err != nil {
		return nil, err
	}

	return &ports.AuthResponse{
		Token:    token,
		Username: user.Username,
	}, nil
}

// Verify validates a bearer token and returns the identity it asserts
func (s *AuthService) Verify(tokenString string) (*ports.Identity, error) {
	if tokenString == "" {
		return nil, entities.ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	},
		jwt.WithIssuer(s.jwtConfig.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, &entities.Error{Kind: entities.KindUnauthorized, Message: entities.ErrInvalidToken.Message, Err: err}
	}

	if claims.UserID == 0 || claims.Username == "" {
		return nil, entities.ErrInvalidToken
	}

	return &ports.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

func (s *AuthService) generateToken(user *entities.User, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
