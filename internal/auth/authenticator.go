package auth

import (
	"context"

	"github.com/mmynk/meniumate/internal/models"
)

// Authenticator verifies who a user is. The service layer depends on this
// interface so the credential scheme can change without touching it.
type Authenticator interface {
	// Register creates a new account for username with the given credential.
	Register(ctx context.Context, username, email, credential string) (*models.User, error)

	// Authenticate checks the credential and returns the matching user.
	Authenticate(ctx context.Context, username, credential string) (*models.User, error)

	// ValidateCredential reports whether the credential is acceptable.
	ValidateCredential(credential string) error
}
