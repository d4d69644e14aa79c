package catalog

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// handleSearch runs a catalog search.
//
//	@Summary		Search listings
//	@Description	Filters the catalog by text, category and price window, then orders the result.
//	@Tags			catalog
//	@Produce		json
//	@Param			q query string false "Case-insensitive text matched against title, description and category"
//	@Param			category query string false "Category, or all" default(all)
//	@Param			min query number false "Minimum price per day" default(0)
//	@Param			max query number false "Maximum price per day" default(5000)
//	@Param			sort query string false "relevance, newest, price-low, price-high or rating" default(relevance)
//	@Success		200 {object} Result
//	@Failure		400 {object} server.Problem
//	@Router			/catalog/items [get]
func (m *Module) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	res, err := m.engine.Search(q)
	if err != nil {
		m.logger.Error("catalog search failed", zap.Error(err))
		server.InternalError(w, "failed to load catalog", r.URL.Path)
		return
	}
	searchesTotal.WithLabelValues(string(q.Sort)).Inc()

	server.WriteJSON(w, http.StatusOK, res)
}

// handleGetItem returns a single listing.
//
//	@Summary		Get listing
//	@Tags			catalog
//	@Produce		json
//	@Param			id path string true "Item ID"
//	@Success		200 {object} models.Item
//	@Failure		404 {object} server.Problem
//	@Router			/catalog/items/{id} [get]
func (m *Module) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	it, ok := m.engine.Item(id)
	if !ok {
		server.NotFound(w, fmt.Sprintf("item %q not found", id), r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, it)
}

func (m *Module) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := m.engine.Categories()
	if err != nil {
		m.logger.Error("failed to list categories", zap.Error(err))
		server.InternalError(w, "failed to load catalog", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, cats)
}

// handleExport streams the catalog, or a filtered view of it, as CSV.
//
//	@Summary		Export listings as CSV
//	@Tags			catalog
//	@Produce		text/csv
//	@Success		200 {string} string "CSV document"
//	@Failure		400 {object} server.Problem
//	@Router			/catalog/export [get]
func (m *Module) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	res, err := m.engine.Search(q)
	if err != nil {
		m.logger.Error("catalog export failed", zap.Error(err))
		server.InternalError(w, "failed to load catalog", r.URL.Path)
		return
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, res.Items); err != nil {
		m.logger.Error("failed to encode catalog csv", zap.Error(err))
		server.InternalError(w, "failed to encode export", r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="catalog.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// parseQuery reads a search query from the request, applying the default
// price window for bounds that are absent. An inverted window is valid and
// matches nothing.
func parseQuery(r *http.Request) (Query, error) {
	v := r.URL.Query()

	minPrice, err := parsePrice(v.Get("min"), DefaultMinPrice)
	if err != nil {
		return Query{}, fmt.Errorf("min: %w", err)
	}
	maxPrice, err := parsePrice(v.Get("max"), DefaultMaxPrice)
	if err != nil {
		return Query{}, fmt.Errorf("max: %w", err)
	}
	order, err := ParseSortOrder(v.Get("sort"))
	if err != nil {
		return Query{}, err
	}

	category := models.Category(v.Get("category"))
	if IsAllCategories(category) {
		category = models.CategoryAll
	}

	return Query{
		Text:     v.Get("q"),
		Category: category,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     order,
	}, nil
}

func parsePrice(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("%v must not be negative", f)
	}
	return f, nil
}
