package category

import (
	"errors"
	"strings"

	"github.com/crosslove/eventhub/internal/domain/slug"
	"github.com/crosslove/eventhub/internal/domain/validation"
	"github.com/google/uuid"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required,min=2,max=255"`
	Slug string `json:"slug"`

	// number of events filed under the category, filled by list queries
	EventCount int `json:"eventCount"`
}

var (
	ErrNotFound  = errors.New("category not found")
	ErrNameTaken = errors.New("category name already used")
	ErrInUse     = errors.New("category still has events")
)

type CreateRequest struct {
	Name string `json:"name" binding:"required,min=2,max=255"`
}

type UpdateRequest struct {
	Name string `json:"name" binding:"required,min=2,max=255"`
}

func (c *Category) Validate() error {
	return validation.Struct(c)
}

// ComputeSlug sets the slug from the name once. Names are unique so no suffix is needed.
func (c *Category) ComputeSlug() {
	c.Slug = slug.Compute(c.Name, c.Slug, "")
}

// Rename changes the display name. The slug stays stable once set.
func (c *Category) Rename(name string) {
	c.Name = strings.TrimSpace(name)
	c.ComputeSlug()
}

func NewFromCreateRequest(req CreateRequest) Category {
	c := Category{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(req.Name),
	}
	c.ComputeSlug()

	return c
}
