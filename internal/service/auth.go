package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/refshelf/refshelf-server/internal/auth"
	"github.com/refshelf/refshelf-server/internal/domain"
	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/id"
	"github.com/refshelf/refshelf-server/internal/store"
	"github.com/refshelf/refshelf-server/internal/validation"
)

// AuthService registers users, checks credentials and verifies access tokens.
type AuthService struct {
	store        store.Store
	tokenService *auth.TokenService
	validator    *validation.Validator
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(st store.Store, tokenService *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        st,
		tokenService: tokenService,
		validator:    validation.New(),
		logger:       logger,
	}
}

// RegisterRequest contains the credentials for a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,username,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=1024"`
}

// AuthResponse is returned on successful login.
type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Register creates a user. Returns a DUPLICATE_USER error when the name is taken.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		ID:           userID,
		Username:     req.Username,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate returns the user whose credentials match. Unknown users and wrong
// passwords fail the same way.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, domainerrors.InvalidCredentials("invalid username or password")
	}
	return user, nil
}

// Login authenticates and issues an access token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidCredentials) {
			s.logger.Warn("failed login", "username", req.Username)
		}
		return nil, err
	}

	token, expires, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
	}, nil
}

// VerifyAccessToken checks token and that its user still exists, returning the user ID.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (string, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return "", domainerrors.Unauthorized("invalid or expired token")
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", domainerrors.Unauthorized("user no longer exists")
	}
	return user.ID, nil
}
