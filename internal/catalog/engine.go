// Package catalog implements listing search: free-text, category and price
// filtering of the static catalog followed by one of a fixed set of orderings.
package catalog

import (
	"fmt"
	"math"
	"slices"
	"strings"

	pkgcatalog "github.com/gurman-sys/rentbuddy/pkg/catalog"
	"github.com/gurman-sys/rentbuddy/pkg/models"
)

// SortOrder selects the ordering applied after filtering.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortNewest    SortOrder = "newest"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortRating    SortOrder = "rating"
)

// Default price window of the search screen.
const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 5000
)

// ParseSortOrder validates s. The empty string means relevance.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return SortRelevance, nil
	case SortRelevance, SortNewest, SortPriceLow, SortPriceHigh, SortRating:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// Query describes a search over the catalog. The price window is inclusive.
type Query struct {
	Text     string          `json:"q"`
	Category models.Category `json:"category"`
	MinPrice float64         `json:"min_price"`
	MaxPrice float64         `json:"max_price"`
	Sort     SortOrder       `json:"sort"`
}

// MatchAll returns a query that every item satisfies.
func MatchAll() Query {
	return Query{Category: models.CategoryAll, MinPrice: 0, MaxPrice: math.Inf(1), Sort: SortRelevance}
}

// IsAllCategories reports whether c selects every category. "All Categories"
// and the empty string are accepted alongside "all".
func IsAllCategories(c models.Category) bool {
	return c == "" || strings.EqualFold(string(c), string(models.CategoryAll)) || c == "All Categories"
}

// ActiveFilterCount counts the filters that narrow the default search.
func (q Query) ActiveFilterCount() int {
	n := 0
	if !IsAllCategories(q.Category) {
		n++
	}
	if q.MinPrice > DefaultMinPrice || q.MaxPrice < DefaultMaxPrice {
		n++
	}
	return n
}

// Matches reports whether it satisfies all of q's predicates.
func (q Query) Matches(it models.Item) bool {
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(it.Title), needle) &&
			!strings.Contains(strings.ToLower(it.Description), needle) &&
			!strings.Contains(strings.ToLower(string(it.Category)), needle) {
			return false
		}
	}
	if !IsAllCategories(q.Category) && it.Category != q.Category {
		return false
	}
	return it.Price >= q.MinPrice && it.Price <= q.MaxPrice
}

// Filter returns the items matching q in their original order. The input
// slice is never modified.
func Filter(items []models.Item, q Query) []models.Item {
	out := make([]models.Item, 0, len(items))
	for i := range items {
		if q.Matches(items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// Sort returns a copy of items in the given order. The sort is stable, so
// relevance and newest, which have no backing field, preserve input order.
func Sort(items []models.Item, order SortOrder) []models.Item {
	out := slices.Clone(items)
	switch order {
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b models.Item) int { return cmpFloat(a.Price, b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b models.Item) int { return cmpFloat(b.Price, a.Price) })
	case SortRating:
		slices.SortStableFunc(out, func(a, b models.Item) int { return cmpFloat(b.Owner.Rating, a.Owner.Rating) })
	}
	return out
}

// Search filters items by q and orders the result by q.Sort.
func Search(items []models.Item, q Query) []models.Item {
	return Sort(Filter(items, q), q.Sort)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Result is the outcome of an engine search.
type Result struct {
	Query         Query         `json:"query"`
	Count         int           `json:"count"`
	ActiveFilters int           `json:"active_filters"`
	Items         []models.Item `json:"items"`
}

// CategoryCount is a category with the number of listed items in it.
type CategoryCount struct {
	Name  models.Category `json:"name"`
	Count int             `json:"count"`
}

// knownCategories is the browse grid order.
var knownCategories = []models.Category{
	models.CategoryElectronics,
	models.CategoryVehicles,
	models.CategoryPhotography,
	models.CategoryGaming,
	models.CategoryTools,
	models.CategoryMusic,
	models.CategorySports,
	models.CategoryHome,
}

// Engine runs searches against a catalog.
type Engine struct {
	cat *pkgcatalog.Catalog
}

// NewEngine creates a search engine backed by the given catalog.
func NewEngine(cat *pkgcatalog.Catalog) *Engine {
	return &Engine{cat: cat}
}

// Search runs q against the catalog.
func (e *Engine) Search(q Query) (Result, error) {
	items, err := e.cat.Items()
	if err != nil {
		return Result{}, err
	}
	found := Search(items, q)
	return Result{
		Query:         q,
		Count:         len(found),
		ActiveFilters: q.ActiveFilterCount(),
		Items:         found,
	}, nil
}

// Item looks up a single listing.
func (e *Engine) Item(id string) (models.Item, bool) {
	return e.cat.Item(id)
}

// Items returns the full catalog.
func (e *Engine) Items() ([]models.Item, error) {
	return e.cat.Items()
}

// Categories returns the browse categories followed by any other category
// present in the catalog, each with its item count.
func (e *Engine) Categories() ([]CategoryCount, error) {
	items, err := e.cat.Items()
	if err != nil {
		return nil, err
	}
	counts := make(map[models.Category]int)
	for i := range items {
		counts[items[i].Category]++
	}

	out := make([]CategoryCount, 0, len(knownCategories))
	seen := make(map[models.Category]bool)
	for _, c := range knownCategories {
		out = append(out, CategoryCount{Name: c, Count: counts[c]})
		seen[c] = true
	}
	for i := range items {
		c := items[i].Category
		if !seen[c] {
			out = append(out, CategoryCount{Name: c, Count: counts[c]})
			seen[c] = true
		}
	}
	return out, nil
}
