// Package catalog provides the static listing catalog embedded in the binary.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gurman-sys/rentbuddy/pkg/models"
)

//go:embed items.yaml
var itemsRawData []byte

// catalogFile is the top-level structure of the embedded YAML.
type catalogFile struct {
	Items []models.Item `yaml:"items"`
}

// Catalog provides lazy-loaded, read-only access to the listing catalog.
type Catalog struct {
	once  sync.Once
	raw   []byte
	items []models.Item
	err   error
}

// NewCatalog creates a Catalog over the embedded items.yaml.
func NewCatalog() *Catalog {
	return &Catalog{raw: itemsRawData}
}

// FromYAML creates a Catalog over caller-supplied YAML in the embedded format.
func FromYAML(data []byte) *Catalog {
	return &Catalog{raw: data}
}

// FromItems creates a Catalog over items already decoded by the caller, such
// as a CSV import. The items are validated on first access.
func FromItems(items []models.Item) *Catalog {
	return &Catalog{items: append([]models.Item(nil), items...)}
}

// Items returns a copy of all catalog items in catalog order.
func (c *Catalog) Items() ([]models.Item, error) {
	c.once.Do(c.load)
	if c.err != nil {
		return nil, c.err
	}
	cp := make([]models.Item, len(c.items))
	copy(cp, c.items)
	return cp, nil
}

// Item returns the item with the given id.
func (c *Catalog) Item(id string) (models.Item, bool) {
	items, err := c.Items()
	if err != nil {
		return models.Item{}, false
	}
	for i := range items {
		if items[i].ID == id {
			return items[i], true
		}
	}
	return models.Item{}, false
}

func (c *Catalog) load() {
	items := c.items
	if c.raw != nil {
		var f catalogFile
		if err := yaml.Unmarshal(c.raw, &f); err != nil {
			c.err = fmt.Errorf("catalog: parse yaml: %w", err)
			return
		}
		items = f.Items
	}
	for i := range items {
		if items[i].Price <= 0 {
			c.items = nil
			c.err = fmt.Errorf("catalog: item %q has non-positive price %v", items[i].ID, items[i].Price)
			return
		}
	}
	c.items = items
}
