// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/meniumate/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
// User lookups are the exception: they return (nil, nil).
var ErrNotFound = errors.New("not found")

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// SessionStore persists refresh sessions, keyed by token hash.
type SessionStore interface {
	CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error
	GetRefreshSession(ctx context.Context, tokenHash string) (*models.RefreshSession, error)
	DeleteRefreshSession(ctx context.Context, id string) error
	DeleteRefreshSessionsByUser(ctx context.Context, userID string) error
}

// GroupStore persists expense groups and their members.
type GroupStore interface {
	// CreateGroup persists a group with its initial members.
	// IDs and timestamps are filled in when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup returns a group with its members in position order.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsByOwner returns the owner's groups, newest first, with members.
	ListGroupsByOwner(ctx context.Context, ownerID string) ([]*models.Group, error)

	AddMember(ctx context.Context, member *models.Member) error
	DeleteMember(ctx context.Context, groupID, memberID string) error
}

// LedgerStore persists group transactions and settlements.
type LedgerStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactionsByGroup(ctx context.Context, groupID string) ([]*models.Transaction, error)

	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)
}

// CatalogStore persists menus, dishes and comments.
type CatalogStore interface {
	CreateMenu(ctx context.Context, menu *models.Menu) error
	GetMenu(ctx context.Context, id string) (*models.Menu, error)
	ListMenus(ctx context.Context) ([]*models.Menu, error)
	UpdateMenu(ctx context.Context, menu *models.Menu) error
	DeleteMenu(ctx context.Context, id string) error

	CreateDish(ctx context.Context, dish *models.Dish) error
	GetDish(ctx context.Context, id string) (*models.Dish, error)
	ListDishes(ctx context.Context, menuID string) ([]*models.Dish, error)
	UpdateDish(ctx context.Context, dish *models.Dish) error
	DeleteDish(ctx context.Context, id string) error

	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, dishID string) ([]*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, id string) error
}

// Store is the full set of persistence operations the server needs.
// This abstraction allows swapping storage backends without changing the
// service layer.
type Store interface {
	UserStore
	SessionStore
	GroupStore
	LedgerStore
	CatalogStore

	// Close releases any resources held by the store.
	Close() error
}
