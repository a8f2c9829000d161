package models

// Menu is a named restaurant menu.
type Menu struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

// Dish is a priced item on a menu.
type Dish struct {
	ID          string  `json:"id"`
	MenuID      string  `json:"menuId,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Ingredients string  `json:"ingredients"`
	IsAvailable bool    `json:"isAvailable"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	CreatedAt   int64   `json:"createdAt,omitempty"`
}

// Comment is a user's rated remark on a dish.
type Comment struct {
	ID        string `json:"id"`
	DishID    string `json:"dishId,omitempty"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	Rating    int    `json:"rating"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}
