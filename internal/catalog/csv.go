package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	pkgcatalog "github.com/gurman-sys/rentbuddy/pkg/catalog"
	"github.com/gurman-sys/rentbuddy/pkg/models"
)

// itemRow is the flattened CSV shape of an item.
type itemRow struct {
	models.Item
	OwnerName   string  `csv:"owner_name"`
	OwnerRating float64 `csv:"owner_rating"`
}

// WriteCSV encodes items as CSV with a header row.
func WriteCSV(w io.Writer, items []models.Item) error {
	rows := make([]*itemRow, 0, len(items))
	for i := range items {
		rows = append(rows, &itemRow{
			Item:        items[i],
			OwnerName:   items[i].Owner.Name,
			OwnerRating: items[i].Owner.Rating,
		})
	}
	return gocsv.Marshal(rows, w)
}

// ReadCSV decodes items written by WriteCSV. Owner avatars and images are not
// part of the export and come back empty.
func ReadCSV(r io.Reader) ([]models.Item, error) {
	var rows []*itemRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		it := row.Item
		it.Owner = models.Owner{Name: row.OwnerName, Rating: row.OwnerRating}
		items = append(items, it)
	}
	return items, nil
}

// LoadCSVFile builds a catalog from a CSV file in the export format. It
// replaces the embedded catalog when catalog.csv is configured.
func LoadCSVFile(path string) (*pkgcatalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog csv: %w", err)
	}
	defer f.Close()

	items, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read catalog csv %s: %w", path, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog csv %s has no items", path)
	}
	cat := pkgcatalog.FromItems(items)
	if _, err := cat.Items(); err != nil {
		return nil, err
	}
	return cat, nil
}
