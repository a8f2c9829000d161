package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/meniumate/internal/auth"
	"github.com/mmynk/meniumate/internal/middleware"
	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/storage"
)

// TokenPair is what login and refresh hand to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthService handles registration, login, token refresh and logout.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	sessions      storage.SessionStore
	refreshTTL    time.Duration
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	authenticator auth.Authenticator,
	jwtManager *auth.JWTManager,
	users storage.UserStore,
	sessions storage.SessionStore,
	refreshTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		sessions:      sessions,
		refreshTTL:    refreshTTL,
		logger:        logger,
	}
}

// Register creates a new user account. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	s.logger.Info("Register request", "username", username)

	user, err := s.authenticator.Register(ctx, username, email, password)
	if err != nil {
		s.logger.Warn("Registration failed", "username", username, "error", err)
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, &models.ValidationError{Field: "password", Message: err.Error()}
		case errors.Is(err, auth.ErrInvalidUsername):
			return nil, &models.ValidationError{Field: "userName", Message: err.Error()}
		}
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username, "roles", user.Roles)
	return user, nil
}

// Login authenticates the user and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.Warn("Login failed", "username", username, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, auth.ErrInvalidCredentials)
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked; replaying it fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token required", ErrUnauthenticated)
	}

	session, err := s.sessions.GetRefreshSession(ctx, auth.HashToken(refreshToken))
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("Refresh with unknown token")
		return nil, fmt.Errorf("%w: unknown refresh token", ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}

	// Delete first so two concurrent refreshes with the same token cannot
	// both succeed.
	if err := s.sessions.DeleteRefreshSession(ctx, session.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: refresh token already used", ErrUnauthenticated)
		}
		return nil, err
	}

	if time.Now().Unix() >= session.ExpiresAt {
		s.logger.Info("Refresh token expired", "user_id", session.UserID)
		return nil, fmt.Errorf("%w: refresh token expired", ErrUnauthenticated)
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Tokens refreshed", "user_id", user.ID)
	return pair, nil
}

// Logout revokes refreshToken, or every session of the authenticated user
// when no token is given. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		session, err := s.sessions.GetRefreshSession(ctx, auth.HashToken(refreshToken))
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.sessions.DeleteRefreshSession(ctx, session.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		s.logger.Info("User logged out", "user_id", session.UserID)
		return nil
	}

	if userID := middleware.GetUserID(ctx); userID != "" {
		if err := s.sessions.DeleteRefreshSessionsByUser(ctx, userID); err != nil {
			return err
		}
		s.logger.Info("User logged out of all sessions", "user_id", userID)
	}
	return nil
}

// CurrentUser returns the authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context) (*models.User, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	err = s.sessions.CreateRefreshSession(ctx, &models.RefreshSession{
		UserID:    user.ID,
		TokenHash: auth.HashToken(refresh),
		ExpiresAt: time.Now().Add(s.refreshTTL).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh session: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
