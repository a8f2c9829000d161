package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/meniumate/internal/middleware"
	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/storage"
)

// CatalogService serves menus, dishes and comments. Reads are public; menu
// and dish changes need the Admin role; comments may be changed by their
// author or an Admin.
type CatalogService struct {
	store  storage.CatalogStore
	logger *slog.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(store storage.CatalogStore, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

func requireAdmin(ctx context.Context) error {
	if middleware.GetUserID(ctx) == "" {
		return ErrUnauthenticated
	}
	if !middleware.IsAdmin(ctx) {
		return fmt.Errorf("%w: %s role required", ErrForbidden, models.RoleAdmin)
	}
	return nil
}

// ListMenus returns all menus.
func (s *CatalogService) ListMenus(ctx context.Context) ([]*models.Menu, error) {
	return s.store.ListMenus(ctx)
}

// GetMenu returns one menu.
func (s *CatalogService) GetMenu(ctx context.Context, id string) (*models.Menu, error) {
	return s.store.GetMenu(ctx, id)
}

// CreateMenu adds a menu.
func (s *CatalogService) CreateMenu(ctx context.Context, menu *models.Menu) (*models.Menu, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	menu.ID = ""
	menu.Name = strings.TrimSpace(menu.Name)
	if err := menu.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateMenu(ctx, menu); err != nil {
		return nil, err
	}
	s.logger.Info("Menu created", "menu_id", menu.ID)
	return menu, nil
}

// UpdateMenu overwrites a menu's name and description.
func (s *CatalogService) UpdateMenu(ctx context.Context, menu *models.Menu) (*models.Menu, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	menu.Name = strings.TrimSpace(menu.Name)
	if err := menu.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMenu(ctx, menu); err != nil {
		return nil, err
	}
	s.logger.Info("Menu updated", "menu_id", menu.ID)
	return s.store.GetMenu(ctx, menu.ID)
}

// DeleteMenu removes a menu with its dishes and comments.
func (s *CatalogService) DeleteMenu(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.store.DeleteMenu(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Menu deleted", "menu_id", id)
	return nil
}

// ListDishes returns the dishes of a menu.
func (s *CatalogService) ListDishes(ctx context.Context, menuID string) ([]*models.Dish, error) {
	if _, err := s.store.GetMenu(ctx, menuID); err != nil {
		return nil, err
	}
	return s.store.ListDishes(ctx, menuID)
}

// GetDish returns a dish of the given menu.
func (s *CatalogService) GetDish(ctx context.Context, menuID, dishID string) (*models.Dish, error) {
	dish, err := s.store.GetDish(ctx, dishID)
	if err != nil {
		return nil, err
	}
	if dish.MenuID != menuID {
		return nil, fmt.Errorf("dish %s in menu %s: %w", dishID, menuID, ErrNotFound)
	}
	return dish, nil
}

// CreateDish adds a dish to a menu.
func (s *CatalogService) CreateDish(ctx context.Context, menuID string, dish *models.Dish) (*models.Dish, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := dish.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetMenu(ctx, menuID); err != nil {
		return nil, err
	}

	dish.ID = ""
	dish.MenuID = menuID
	if err := s.store.CreateDish(ctx, dish); err != nil {
		return nil, err
	}
	s.logger.Info("Dish created", "menu_id", menuID, "dish_id", dish.ID)
	return dish, nil
}

// UpdateDish overwrites a dish's editable fields.
func (s *CatalogService) UpdateDish(ctx context.Context, menuID string, dish *models.Dish) (*models.Dish, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := dish.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetDish(ctx, menuID, dish.ID); err != nil {
		return nil, err
	}

	dish.MenuID = menuID
	if err := s.store.UpdateDish(ctx, dish); err != nil {
		return nil, err
	}
	s.logger.Info("Dish updated", "dish_id", dish.ID)
	return s.store.GetDish(ctx, dish.ID)
}

// DeleteDish removes a dish and its comments.
func (s *CatalogService) DeleteDish(ctx context.Context, menuID, dishID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if _, err := s.GetDish(ctx, menuID, dishID); err != nil {
		return err
	}
	if err := s.store.DeleteDish(ctx, dishID); err != nil {
		return err
	}
	s.logger.Info("Dish deleted", "dish_id", dishID)
	return nil
}

// ListComments returns the comments on a dish.
func (s *CatalogService) ListComments(ctx context.Context, menuID, dishID string) ([]*models.Comment, error) {
	if _, err := s.GetDish(ctx, menuID, dishID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, dishID)
}

// CreateComment posts a comment by the authenticated user.
func (s *CatalogService) CreateComment(ctx context.Context, menuID, dishID string, comment *models.Comment) (*models.Comment, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := comment.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetDish(ctx, menuID, dishID); err != nil {
		return nil, err
	}

	comment.ID = ""
	comment.DishID = dishID
	comment.UserID = userID
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	s.logger.Info("Comment created", "dish_id", dishID, "comment_id", comment.ID)
	return comment, nil
}

// UpdateComment edits a comment's content and rating.
func (s *CatalogService) UpdateComment(ctx context.Context, menuID, dishID string, comment *models.Comment) (*models.Comment, error) {
	if err := comment.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.modifiableComment(ctx, menuID, dishID, comment.ID)
	if err != nil {
		return nil, err
	}

	existing.Content = comment.Content
	existing.Rating = comment.Rating
	if err := s.store.UpdateComment(ctx, existing); err != nil {
		return nil, err
	}
	s.logger.Info("Comment updated", "comment_id", existing.ID)
	return existing, nil
}

// DeleteComment removes a comment.
func (s *CatalogService) DeleteComment(ctx context.Context, menuID, dishID, commentID string) error {
	if _, err := s.modifiableComment(ctx, menuID, dishID, commentID); err != nil {
		return err
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	s.logger.Info("Comment deleted", "comment_id", commentID)
	return nil
}

// modifiableComment loads a comment the caller may change.
func (s *CatalogService) modifiableComment(ctx context.Context, menuID, dishID, commentID string) (*models.Comment, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetDish(ctx, menuID, dishID); err != nil {
		return nil, err
	}

	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.DishID != dishID {
		return nil, fmt.Errorf("comment %s on dish %s: %w", commentID, dishID, ErrNotFound)
	}
	if comment.UserID != userID && !middleware.IsAdmin(ctx) {
		return nil, fmt.Errorf("%w: only the author or an %s may change this comment", ErrForbidden, models.RoleAdmin)
	}
	return comment, nil
}
