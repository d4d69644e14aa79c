package testutil

import (
	"github.com/google/uuid"

	"github.com/gurman-sys/rentbuddy/pkg/models"
)

// NewItem returns an available Item with sensible defaults. Override fields
// with options.
func NewItem(opts ...func(*models.Item)) models.Item {
	it := models.Item{
		ID:          uuid.New().String(),
		Title:       "Test Camera",
		Description: "Mirrorless camera with two lenses.",
		Category:    models.CategoryPhotography,
		Price:       1000,
		Owner:       models.Owner{Name: "Test Owner", Avatar: "/placeholder.svg", Rating: 4.5},
		Location:    "Bandra, Mumbai",
		Images:      []string{"/placeholder.svg"},
		IsAvailable: true,
	}
	for _, opt := range opts {
		opt(&it)
	}
	return it
}

// WithID sets the item id.
func WithID(id string) func(*models.Item) {
	return func(it *models.Item) { it.ID = id }
}

// WithTitle sets the item title.
func WithTitle(title string) func(*models.Item) {
	return func(it *models.Item) { it.Title = title }
}

// WithPrice sets the price per day.
func WithPrice(p float64) func(*models.Item) {
	return func(it *models.Item) { it.Price = p }
}

// WithCategory sets the item category.
func WithCategory(c models.Category) func(*models.Item) {
	return func(it *models.Item) { it.Category = c }
}

// WithRating sets the owner rating.
func WithRating(r float64) func(*models.Item) {
	return func(it *models.Item) { it.Owner.Rating = r }
}

// Unavailable marks the item as currently rented.
func Unavailable() func(*models.Item) {
	return func(it *models.Item) { it.IsAvailable = false }
}
