package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names carried in access token claims.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Username is the login name (unique).
	Username string `json:"userName"`

	// Email is the user's email address.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Never serialized.
	PasswordHash string `json:"-"`

	// Roles lists the role names granted to the user.
	Roles []string `json:"roles"`

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64 `json:"createdAt"`
}

// NewUser creates a user with a fresh ID and creation time.
func NewUser(username, email, passwordHash string, roles []string) *User {
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        roles,
		CreatedAt:    time.Now().Unix(),
	}
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RefreshSession is a server-side record of an issued refresh token.
// Only the SHA-256 hash of the opaque token is stored.
type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt int64
	CreatedAt int64
}
