// Package models holds the RentBuddy domain types shared across modules.
package models

// Category names a group of rentable items.
type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryVehicles    Category = "Vehicles"
	CategoryPhotography Category = "Photography"
	CategoryGaming      Category = "Gaming"
	CategoryTools       Category = "Tools"
	CategoryMusic       Category = "Music"
	CategorySports      Category = "Sports"
	CategoryHome        Category = "Home"
	CategoryBooks       Category = "Books"
	CategoryFurniture   Category = "Furniture"
)

// CategoryAll is the selector that matches every category.
const CategoryAll Category = "all"

// Owner is the lister of an item as shown on its card.
type Owner struct {
	Name   string  `json:"name" yaml:"name"`
	Avatar string  `json:"avatar" yaml:"avatar"`
	Rating float64 `json:"rating" yaml:"rating"`
}

// Item is a rentable listing. Items are immutable for the lifetime of a
// session and come from the static catalog.
type Item struct {
	ID              string   `json:"id" yaml:"id" csv:"id"`
	Title           string   `json:"title" yaml:"title" csv:"title"`
	Description     string   `json:"description" yaml:"description" csv:"description"`
	Category        Category `json:"category" yaml:"category" csv:"category"`
	Price           float64  `json:"price" yaml:"price" csv:"price_per_day"`
	SecurityDeposit float64  `json:"security_deposit,omitempty" yaml:"security_deposit" csv:"security_deposit"`
	Owner           Owner    `json:"owner" yaml:"owner" csv:"-"`
	Location        string   `json:"location" yaml:"location" csv:"location"`
	Images          []string `json:"images" yaml:"images" csv:"-"`
	IsAvailable     bool     `json:"is_available" yaml:"is_available" csv:"is_available"`
}
