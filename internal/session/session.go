// Package session holds the credentials of the signed-in user for the
// lifetime of a client process.
//
// A Session is opened at start-up from a Store, updated on login and token
// refresh, and torn down on logout or when a refresh fails for good.
// Invalidation is broadcast through Done and Err so long-running callers
// can stop and ask the user to sign in again.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mmynk/meniumate/internal/auth"
	"github.com/mmynk/meniumate/internal/models"
)

// ErrLoggedOut is the invalidation cause after an explicit logout.
var ErrLoggedOut = errors.New("logged out")

// Credentials are the persisted tokens plus the claims decoded from the
// access token.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Username     string
	Roles        []string
}

// Store persists credentials between runs.
type Store interface {
	// Load returns the saved credentials, or nil when none are saved.
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds *Credentials) error
	Clear(ctx context.Context) error
}

// Session is safe for concurrent use.
type Session struct {
	store Store

	mu    sync.RWMutex
	creds Credentials
	done  chan struct{}
	err   error
}

// Open creates a Session and restores any credentials saved in store.
func Open(ctx context.Context, store Store) (*Session, error) {
	s := &Session{store: store, done: make(chan struct{})}
	creds, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if creds != nil {
		s.creds = *creds
	}
	return s, nil
}

// Login stores a freshly issued token pair and resets any previous
// invalidation.
func (s *Session) Login(ctx context.Context, accessToken, refreshToken string) error {
	creds, err := decode(accessToken, refreshToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		s.done = make(chan struct{})
		s.err = nil
	}
	return s.save(ctx, creds)
}

// SetTokens replaces the token pair after a refresh, decoding identity
// claims from the access token. The signature is not verified; the server
// does that. Once the session is invalidated SetTokens returns the
// invalidation cause and changes nothing; only Login revives it.
func (s *Session) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	creds, err := decode(accessToken, refreshToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return s.save(ctx, creds)
}

func decode(accessToken, refreshToken string) (Credentials, error) {
	claims, err := auth.ParseUnverified(accessToken)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to decode access token: %w", err)
	}
	return Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       claims.UserID(),
		Username:     claims.Name,
		Roles:        slices.Clone(claims.Roles),
	}, nil
}

// save persists creds and installs them. The caller holds s.mu, so a
// concurrent Expire cannot interleave with the write.
func (s *Session) save(ctx context.Context, creds Credentials) error {
	if err := s.store.Save(ctx, &creds); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.creds = creds
	return nil
}

// AccessToken returns the current access token, or "".
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

// RefreshToken returns the current refresh token, or "".
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken
}

// Credentials returns a copy of the current credentials.
func (s *Session) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.creds
	c.Roles = slices.Clone(c.Roles)
	return c
}

// LoggedIn reports whether an access token is held.
func (s *Session) LoggedIn() bool {
	return s.AccessToken() != ""
}

// UserID returns the signed-in user's ID, or "".
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.UserID
}

// HasRole reports whether the signed-in user holds role.
func (s *Session) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.creds.Roles, role)
}

// IsAdmin reports whether the signed-in user is an Admin.
func (s *Session) IsAdmin() bool {
	return s.HasRole(models.RoleAdmin)
}

// CanModify reports whether the signed-in user may edit a resource owned by
// ownerID: its owner or any Admin.
func (s *Session) CanModify(ownerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds.UserID == "" {
		return false
	}
	return s.creds.UserID == ownerID || slices.Contains(s.creds.Roles, models.RoleAdmin)
}

// Logout clears the credentials everywhere and invalidates the session.
func (s *Session) Logout(ctx context.Context) error {
	return s.Expire(ctx, ErrLoggedOut)
}

// Expire invalidates the session with cause and clears the persisted
// credentials, so the next Open starts signed out.
func (s *Session) Expire(ctx context.Context, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate(cause)
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Invalidate drops the in-memory credentials and closes Done with cause.
// The store is left untouched; see Expire. Only the first call after a
// login has any effect on Err.
func (s *Session) Invalidate(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate(cause)
}

func (s *Session) invalidate(cause error) {
	s.creds = Credentials{}
	if s.err != nil {
		return
	}
	s.err = cause
	close(s.done)
}

// Done is closed when the session is invalidated.
func (s *Session) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Err returns the invalidation cause, or nil while the session is valid.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
