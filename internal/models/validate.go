package models

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError reports a field that failed client-side or server-side
// validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var imageURLPattern = regexp.MustCompile(`^https?://.+`)

// Validate checks a menu before it is created.
func (m *Menu) Validate() error {
	if len(strings.TrimSpace(m.Name)) < 2 {
		return invalid("name", "must be at least 2 characters")
	}
	return ValidateMenuDescription(m.Description)
}

// ValidateMenuDescription checks a menu description on create and edit.
func ValidateMenuDescription(description string) error {
	if len(strings.TrimSpace(description)) < 10 {
		return invalid("description", "must be at least 10 characters")
	}
	return nil
}

// Validate checks a dish before it is created or updated.
func (d *Dish) Validate() error {
	switch {
	case len(strings.TrimSpace(d.Name)) < 2:
		return invalid("name", "must be at least 2 characters")
	case len(strings.TrimSpace(d.Description)) < 5:
		return invalid("description", "must be at least 5 characters")
	case len(strings.TrimSpace(d.Ingredients)) < 5:
		return invalid("ingredients", "must be at least 5 characters")
	case d.Price <= 0:
		return invalid("price", "must be greater than zero")
	}
	if d.ImageURL != "" && !imageURLPattern.MatchString(d.ImageURL) {
		return invalid("imageUrl", "must be an http or https URL")
	}
	return nil
}

// Validate checks a comment before it is created or updated.
func (c *Comment) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return invalid("content", "cannot be empty")
	}
	if c.Rating < 1 || c.Rating > 5 {
		return invalid("rating", "must be between 1 and 5")
	}
	return nil
}

// ValidateGroupTitle rejects blank group titles.
func ValidateGroupTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title", "cannot be empty")
	}
	return nil
}

// ValidateMemberName rejects blank member names.
func ValidateMemberName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "cannot be empty")
	}
	return nil
}
