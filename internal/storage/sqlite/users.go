package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/storage"
)

const userColumns = "id, username, email, password_hash, roles, created_at"

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash,
		strings.Join(user.Roles, ","), user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves a user by login name (case-insensitive).
// Returns nil, nil when no user matches.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username", username)
}

// GetUserByID retrieves a user by ID. Returns nil, nil when no user matches.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	user := &models.User{}
	var roles string
	err := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &roles, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	if roles != "" {
		user.Roles = strings.Split(roles, ",")
	}
	return user, nil
}

// CreateRefreshSession stores the hash of an issued refresh token.
func (s *SQLiteStore) CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt == 0 {
		session.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_sessions (id, user_id, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.TokenHash, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh session: %w", err)
	}
	return nil
}

// GetRefreshSession looks a session up by token hash.
func (s *SQLiteStore) GetRefreshSession(ctx context.Context, tokenHash string) (*models.RefreshSession, error) {
	session := &models.RefreshSession{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at
		 FROM refresh_sessions WHERE token_hash = ?`,
		tokenHash,
	).Scan(&session.ID, &session.UserID, &session.TokenHash, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("refresh session: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh session: %w", err)
	}
	return session, nil
}

// DeleteRefreshSession removes one session by ID.
func (s *SQLiteStore) DeleteRefreshSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete refresh session: %w", err)
	}
	return requireAffected(res, "refresh session", id)
}

// DeleteRefreshSessionsByUser revokes every session of a user.
func (s *SQLiteStore) DeleteRefreshSessionsByUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete refresh sessions: %w", err)
	}
	return nil
}
