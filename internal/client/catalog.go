package client

import (
	"context"
	"net/http"

	"github.com/mmynk/meniumate/internal/models"
)

func menuPath(menuID string) string {
	return "/api/menius/" + escape(menuID)
}

func dishPath(menuID, dishID string) string {
	return menuPath(menuID) + "/dishes/" + escape(dishID)
}

// ListMenus returns all menus.
func (c *Client) ListMenus(ctx context.Context) ([]*models.Menu, error) {
	var menus []*models.Menu
	if err := c.get(ctx, "/api/menius", &menus); err != nil {
		return nil, err
	}
	return menus, nil
}

func (c *Client) GetMenu(ctx context.Context, menuID string) (*models.Menu, error) {
	var menu models.Menu
	if err := c.get(ctx, menuPath(menuID), &menu); err != nil {
		return nil, err
	}
	return &menu, nil
}

// CreateMenu requires the Admin role.
func (c *Client) CreateMenu(ctx context.Context, menu *models.Menu) (*models.Menu, error) {
	if err := menu.Validate(); err != nil {
		return nil, err
	}
	var created models.Menu
	if err := c.send(ctx, http.MethodPost, "/api/menius", menu, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateMenu requires the Admin role.
func (c *Client) UpdateMenu(ctx context.Context, menu *models.Menu) (*models.Menu, error) {
	if err := menu.Validate(); err != nil {
		return nil, err
	}
	var updated models.Menu
	if err := c.send(ctx, http.MethodPut, menuPath(menu.ID), menu, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteMenu deletes a menu with its dishes and their comments.
func (c *Client) DeleteMenu(ctx context.Context, menuID string) error {
	return c.send(ctx, http.MethodDelete, menuPath(menuID), nil, nil)
}

func (c *Client) ListDishes(ctx context.Context, menuID string) ([]*models.Dish, error) {
	var dishes []*models.Dish
	if err := c.get(ctx, menuPath(menuID)+"/dishes", &dishes); err != nil {
		return nil, err
	}
	return dishes, nil
}

func (c *Client) GetDish(ctx context.Context, menuID, dishID string) (*models.Dish, error) {
	var dish models.Dish
	if err := c.get(ctx, dishPath(menuID, dishID), &dish); err != nil {
		return nil, err
	}
	return &dish, nil
}

func (c *Client) CreateDish(ctx context.Context, menuID string, dish *models.Dish) (*models.Dish, error) {
	if err := dish.Validate(); err != nil {
		return nil, err
	}
	var created models.Dish
	if err := c.send(ctx, http.MethodPost, menuPath(menuID)+"/dishes", dish, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateDish(ctx context.Context, menuID string, dish *models.Dish) (*models.Dish, error) {
	if err := dish.Validate(); err != nil {
		return nil, err
	}
	var updated models.Dish
	if err := c.send(ctx, http.MethodPut, dishPath(menuID, dish.ID), dish, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteDish(ctx context.Context, menuID, dishID string) error {
	return c.send(ctx, http.MethodDelete, dishPath(menuID, dishID), nil, nil)
}

func (c *Client) ListComments(ctx context.Context, menuID, dishID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := c.get(ctx, dishPath(menuID, dishID)+"/comments", &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment posts a comment as the signed-in user.
func (c *Client) CreateComment(ctx context.Context, menuID, dishID string, comment *models.Comment) (*models.Comment, error) {
	if err := comment.Validate(); err != nil {
		return nil, err
	}
	var created models.Comment
	if err := c.send(ctx, http.MethodPost, dishPath(menuID, dishID)+"/comments", comment, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateComment is allowed for the comment's author or an Admin.
func (c *Client) UpdateComment(ctx context.Context, menuID, dishID string, comment *models.Comment) (*models.Comment, error) {
	if err := comment.Validate(); err != nil {
		return nil, err
	}
	var updated models.Comment
	path := dishPath(menuID, dishID) + "/comments/" + escape(comment.ID)
	if err := c.send(ctx, http.MethodPut, path, comment, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteComment(ctx context.Context, menuID, dishID, commentID string) error {
	return c.send(ctx, http.MethodDelete, dishPath(menuID, dishID)+"/comments/"+escape(commentID), nil, nil)
}
