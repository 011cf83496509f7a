package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookswapapp/bookswap-server/internal/auth"
	"github.com/bookswapapp/bookswap-server/internal/domain"
	domainerrors "github.com/bookswapapp/bookswap-server/internal/errors"
	"github.com/bookswapapp/bookswap-server/internal/id"
	"github.com/bookswapapp/bookswap-server/internal/store"
)

// AuthService handles account registration, login, and token verification.
type AuthService struct {
	store        *store.Store
	tokenService *auth.TokenService
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(store *store.Store, tokenService *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		logger:       logger,
	}
}

// RegisterRequest contains new account data.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned on successful registration or login.
type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// Register creates a new user account and returns it with an access token.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, domainerrors.Internal("failed to hash password").WithCause(err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, domainerrors.Internal("failed to generate user ID").WithCause(err)
	}

	user := &domain.User{
		Timestamps:   domain.Timestamps{ID: userID},
		Username:     req.Username,
		PasswordHash: passwordHash,
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if domainerrors.Is(err, store.ErrUsernameExists) {
			return nil, domainerrors.AlreadyExists("username already taken")
		}
		return nil, domainerrors.Internal("failed to create user").WithCause(err)
	}

	token, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, domainerrors.Internal("failed to generate access token").WithCause(err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	return &AuthResponse{User: user, AccessToken: token}, nil
}

// Login authenticates a user by username and password.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if domainerrors.Is(err, store.ErrUserNotFound) {
			// Same response as a bad password; do not leak which part failed.
			return nil, domainerrors.InvalidCredentials("invalid username or password")
		}
		return nil, domainerrors.Internal("failed to look up user").WithCause(err)
	}

	valid, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, domainerrors.Internal("failed to verify password").WithCause(err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid username or password")
	}

	token, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, domainerrors.Internal("failed to generate access token").WithCause(err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	return &AuthResponse{User: user, AccessToken: token}, nil
}

// VerifyAccessToken validates a token and resolves it to a live user record.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if domainerrors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, fmt.Errorf("load token user: %w", err)
	}

	return user, nil
}
