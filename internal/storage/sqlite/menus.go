package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/storage"
)

// CreateMenu inserts a new menu.
func (s *SQLiteStore) CreateMenu(ctx context.Context, menu *models.Menu) error {
	if menu.ID == "" {
		menu.ID = uuid.New().String()
	}
	if menu.CreatedAt == 0 {
		menu.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO menus (id, name, description, created_at) VALUES (?, ?, ?, ?)",
		menu.ID, menu.Name, menu.Description, menu.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert menu: %w", err)
	}
	return nil
}

// GetMenu retrieves a menu by ID.
func (s *SQLiteStore) GetMenu(ctx context.Context, id string) (*models.Menu, error) {
	m := &models.Menu{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM menus WHERE id = ?", id,
	).Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("menu %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}
	return m, nil
}

// ListMenus returns all menus in creation order.
func (s *SQLiteStore) ListMenus(ctx context.Context) ([]*models.Menu, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM menus ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}
	defer rows.Close()

	var menus []*models.Menu
	for rows.Next() {
		m := &models.Menu{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu: %w", err)
		}
		menus = append(menus, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menus: %w", err)
	}
	return menus, nil
}

// UpdateMenu overwrites a menu's name and description.
func (s *SQLiteStore) UpdateMenu(ctx context.Context, menu *models.Menu) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE menus SET name = ?, description = ? WHERE id = ?",
		menu.Name, menu.Description, menu.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update menu: %w", err)
	}
	return requireAffected(res, "menu", menu.ID)
}

// DeleteMenu removes a menu together with its dishes and their comments.
func (s *SQLiteStore) DeleteMenu(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "menus", "menu", id)
}

const dishColumns = "id, menu_id, name, description, price, ingredients, is_available, image_url, created_at"

func scanDish(row interface{ Scan(...any) error }) (*models.Dish, error) {
	d := &models.Dish{}
	err := row.Scan(&d.ID, &d.MenuID, &d.Name, &d.Description, &d.Price,
		&d.Ingredients, &d.IsAvailable, &d.ImageURL, &d.CreatedAt)
	return d, err
}

// CreateDish inserts a dish into an existing menu.
func (s *SQLiteStore) CreateDish(ctx context.Context, dish *models.Dish) error {
	if dish.ID == "" {
		dish.ID = uuid.New().String()
	}
	if dish.CreatedAt == 0 {
		dish.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO dishes ("+dishColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		dish.ID, dish.MenuID, dish.Name, dish.Description, dish.Price,
		dish.Ingredients, dish.IsAvailable, dish.ImageURL, dish.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dish: %w", err)
	}
	return nil
}

// GetDish retrieves a dish by ID.
func (s *SQLiteStore) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	d, err := scanDish(s.db.QueryRowContext(ctx,
		"SELECT "+dishColumns+" FROM dishes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dish %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dish: %w", err)
	}
	return d, nil
}

// ListDishes returns the dishes of a menu in creation order.
func (s *SQLiteStore) ListDishes(ctx context.Context, menuID string) ([]*models.Dish, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+dishColumns+" FROM dishes WHERE menu_id = ? ORDER BY created_at, rowid", menuID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	defer rows.Close()

	var dishes []*models.Dish
	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dish: %w", err)
		}
		dishes = append(dishes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dishes: %w", err)
	}
	return dishes, nil
}

// UpdateDish overwrites a dish's editable fields.
func (s *SQLiteStore) UpdateDish(ctx context.Context, dish *models.Dish) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dishes SET name = ?, description = ?, price = ?, ingredients = ?,
		 is_available = ?, image_url = ? WHERE id = ?`,
		dish.Name, dish.Description, dish.Price, dish.Ingredients,
		dish.IsAvailable, dish.ImageURL, dish.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dish: %w", err)
	}
	return requireAffected(res, "dish", dish.ID)
}

// DeleteDish removes a dish and its comments.
func (s *SQLiteStore) DeleteDish(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "dishes", "dish", id)
}

const commentColumns = "id, dish_id, user_id, content, rating, created_at"

// CreateComment inserts a comment on a dish.
func (s *SQLiteStore) CreateComment(ctx context.Context, c *models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO comments ("+commentColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, c.DishID, c.UserID, c.Content, c.Rating, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// GetComment retrieves a comment by ID.
func (s *SQLiteStore) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	c := &models.Comment{}
	err := s.db.QueryRowContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE id = ?", id,
	).Scan(&c.ID, &c.DishID, &c.UserID, &c.Content, &c.Rating, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

// ListComments returns the comments of a dish, newest first.
func (s *SQLiteStore) ListComments(ctx context.Context, dishID string) ([]*models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE dish_id = ? ORDER BY created_at DESC, rowid DESC", dishID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c := &models.Comment{}
		if err := rows.Scan(&c.ID, &c.DishID, &c.UserID, &c.Content, &c.Rating, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

// UpdateComment overwrites a comment's content and rating.
func (s *SQLiteStore) UpdateComment(ctx context.Context, c *models.Comment) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE comments SET content = ?, rating = ? WHERE id = ?",
		c.Content, c.Rating, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return requireAffected(res, "comment", c.ID)
}

// DeleteComment removes a comment.
func (s *SQLiteStore) DeleteComment(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "comments", "comment", id)
}
