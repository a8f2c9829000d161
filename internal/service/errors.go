package service

import (
	"errors"

	"github.com/mmynk/meniumate/internal/storage"
)

// Domain errors returned by the services. Handlers map them to HTTP status
// codes; validation failures are returned as *models.ValidationError.
var (
	ErrNotFound        = storage.ErrNotFound
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
)
