package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurman-sys/rentbuddy/internal/testutil"
	pkgcatalog "github.com/gurman-sys/rentbuddy/pkg/catalog"
	"github.com/gurman-sys/rentbuddy/pkg/models"
)

func prices(items []models.Item) []float64 {
	out := make([]float64, 0, len(items))
	for i := range items {
		out = append(out, items[i].Price)
	}
	return out
}

func ids(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for i := range items {
		out = append(out, items[i].ID)
	}
	return out
}

func sampleItems() []models.Item {
	return []models.Item{
		testutil.NewItem(testutil.WithID("cam"), testutil.WithTitle("Canon EOS R5 Camera"),
			testutil.WithPrice(1500), testutil.WithRating(4.9)),
		testutil.NewItem(testutil.WithID("mac"), testutil.WithTitle("MacBook Pro M2"),
			testutil.WithCategory(models.CategoryElectronics), testutil.WithPrice(2000), testutil.WithRating(4.7)),
		testutil.NewItem(testutil.WithID("ps5"), testutil.WithTitle("PlayStation 5"),
			testutil.WithCategory(models.CategoryGaming), testutil.WithPrice(800), testutil.WithRating(4.6),
			testutil.Unavailable()),
		testutil.NewItem(testutil.WithID("drill"), testutil.WithTitle("Power Drill Set"),
			testutil.WithCategory(models.CategoryTools), testutil.WithPrice(300), testutil.WithRating(4.5)),
	}
}

func TestSearch_MatchAllReturnsSource(t *testing.T) {
	items := sampleItems()
	got := Search(items, MatchAll())
	assert.Equal(t, items, got)
}

func TestFilter_ResultsSatisfyPredicate(t *testing.T) {
	items := sampleItems()
	queries := []Query{
		{Text: "camera", Category: models.CategoryAll, MaxPrice: math.Inf(1)},
		{Text: "PRO", Category: models.CategoryAll, MaxPrice: math.Inf(1)},
		{Text: "gaming", Category: models.CategoryAll, MaxPrice: math.Inf(1)},
		{Category: models.CategoryTools, MaxPrice: math.Inf(1)},
		{Category: models.CategoryAll, MinPrice: 500, MaxPrice: 1500},
		{Text: "zzz", Category: models.CategoryAll, MaxPrice: math.Inf(1)},
		{Text: "e", Category: models.CategoryPhotography, MinPrice: 1000, MaxPrice: 2000},
	}

	for _, q := range queries {
		got := Filter(items, q)
		for _, it := range got {
			assert.Truef(t, q.Matches(it), "item %s does not satisfy %+v", it.ID, q)
		}
		// Every rejected item must fail the predicate.
		assert.Equal(t, countMatches(items, q), len(got), "query %+v", q)
	}
}

func countMatches(items []models.Item, q Query) int {
	n := 0
	for _, it := range items {
		if q.Matches(it) {
			n++
		}
	}
	return n
}

func TestFilter_TextMatchesTitleDescriptionOrCategory(t *testing.T) {
	items := sampleItems()
	tests := []struct {
		text string
		want []string
	}{
		{"canon", []string{"cam"}},
		{"MACBOOK", []string{"mac"}},
		{"electronics", []string{"mac"}},
		{"mirrorless", []string{"cam", "mac", "ps5", "drill"}},
		{"nothing like this", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := MatchAll()
			q.Text = tt.text
			assert.Equal(t, tt.want, ids(Filter(items, q)))
		})
	}
}

func TestFilter_CategorySentinels(t *testing.T) {
	items := sampleItems()
	for _, c := range []models.Category{"all", "All Categories", "", "ALL"} {
		q := MatchAll()
		q.Category = c
		assert.Len(t, Filter(items, q), len(items), "category %q", c)
	}

	q := MatchAll()
	q.Category = models.CategoryGaming
	assert.Equal(t, []string{"ps5"}, ids(Filter(items, q)))

	// Category match is exact.
	q.Category = "gaming"
	assert.Empty(t, Filter(items, q))
}

func TestFilter_PriceBoundsInclusive(t *testing.T) {
	items := sampleItems()
	q := MatchAll()
	q.MinPrice, q.MaxPrice = 800, 1500
	assert.Equal(t, []string{"cam", "ps5"}, ids(Filter(items, q)))
}

func TestFilter_DoesNotMutateSource(t *testing.T) {
	items := sampleItems()
	before := ids(items)

	q := MatchAll()
	q.MinPrice = 1000
	q.Sort = SortPriceHigh
	_ = Search(items, q)

	assert.Equal(t, before, ids(items))
}

func TestSearch_PriceScenario(t *testing.T) {
	items := []models.Item{
		testutil.NewItem(testutil.WithID("a"), testutil.WithPrice(800)),
		testutil.NewItem(testutil.WithID("b"), testutil.WithPrice(1500)),
		testutil.NewItem(testutil.WithID("c"), testutil.WithPrice(2000)),
	}
	q := Query{Category: models.CategoryAll, MinPrice: 1000, MaxPrice: 2000}

	assert.Equal(t, []float64{1500, 2000}, prices(Search(items, q)))

	q.Sort = SortPriceLow
	assert.Equal(t, []float64{1500, 2000}, prices(Search(items, q)))

	q.Sort = SortPriceHigh
	assert.Equal(t, []float64{2000, 1500}, prices(Search(items, q)))
}

func TestSort_AscendingIsInverseOfDescending(t *testing.T) {
	items := sampleItems()
	asc := ids(Sort(items, SortPriceLow))
	desc := ids(Sort(items, SortPriceHigh))

	require.Len(t, desc, len(asc))
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}
}

func TestSort_RatingDescending(t *testing.T) {
	got := Sort(sampleItems(), SortRating)
	assert.Equal(t, []string{"cam", "mac", "ps5", "drill"}, ids(got))
}

func TestSort_RelevanceAndNewestPreserveOrder(t *testing.T) {
	items := sampleItems()
	for _, order := range []SortOrder{SortRelevance, SortNewest, ""} {
		assert.Equal(t, ids(items), ids(Sort(items, order)), "order %q", order)
	}
}

func TestSort_StableOnEqualKeys(t *testing.T) {
	items := []models.Item{
		testutil.NewItem(testutil.WithID("x"), testutil.WithPrice(500)),
		testutil.NewItem(testutil.WithID("y"), testutil.WithPrice(100)),
		testutil.NewItem(testutil.WithID("z"), testutil.WithPrice(500)),
	}
	assert.Equal(t, []string{"y", "x", "z"}, ids(Sort(items, SortPriceLow)))
	assert.Equal(t, []string{"x", "z", "y"}, ids(Sort(items, SortPriceHigh)))
}

func TestSearch_EmptyInput(t *testing.T) {
	assert.Empty(t, Search(nil, MatchAll()))
}

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    SortOrder
		wantErr bool
	}{
		{"", SortRelevance, false},
		{"price-low", SortPriceLow, false},
		{"price-high", SortPriceHigh, false},
		{"rating", SortRating, false},
		{"newest", SortNewest, false},
		{"cheapest", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSortOrder(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestActiveFilterCount(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want int
	}{
		{"defaults", Query{Category: models.CategoryAll, MaxPrice: DefaultMaxPrice}, 0},
		{"category", Query{Category: models.CategoryTools, MaxPrice: DefaultMaxPrice}, 1},
		{"min raised", Query{Category: models.CategoryAll, MinPrice: 100, MaxPrice: DefaultMaxPrice}, 1},
		{"max lowered", Query{Category: "", MaxPrice: 1000}, 1},
		{"both", Query{Category: models.CategoryGaming, MinPrice: 100, MaxPrice: 1000}, 2},
		{"text only", Query{Text: "bike", Category: models.CategoryAll, MaxPrice: DefaultMaxPrice}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.ActiveFilterCount())
		})
	}
}

func TestEngine_SearchEmbeddedCatalog(t *testing.T) {
	e := NewEngine(pkgcatalog.NewCatalog())

	res, err := e.Search(Query{Category: models.CategoryAll, MinPrice: 1000, MaxPrice: 2000, Sort: SortPriceLow})
	require.NoError(t, err)
	assert.Equal(t, []float64{1200, 1500, 2000}, prices(res.Items))
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 1, res.ActiveFilters)
}

func TestEngine_Categories(t *testing.T) {
	e := NewEngine(pkgcatalog.NewCatalog())

	cats, err := e.Categories()
	require.NoError(t, err)
	require.Len(t, cats, len(knownCategories))

	counts := make(map[models.Category]int)
	for _, c := range cats {
		counts[c.Name] = c.Count
	}
	assert.Equal(t, 1, counts[models.CategoryGaming])
	assert.Equal(t, 0, counts[models.CategoryMusic])
}

func TestEngine_CategoriesIncludesUnlistedCategory(t *testing.T) {
	cat := pkgcatalog.FromYAML([]byte(`
items:
  - id: "b1"
    title: Dune
    category: Books
    price: 20
`))
	cats, err := NewEngine(cat).Categories()
	require.NoError(t, err)

	last := cats[len(cats)-1]
	assert.Equal(t, models.CategoryBooks, last.Name)
	assert.Equal(t, 1, last.Count)
}
