package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/craftparty/craftparty-backend/internal/logger"
)

// Ingredient is one (item id, quantity) pair of a recipe, quantities per
// single craft.
type Ingredient struct {
	Item string `yaml:"item" json:"item"`
	Qty  int    `yaml:"qty" json:"qty"`
}

type Recipe struct {
	OutputCount int          `yaml:"output_count" json:"output_count"`
	Ingredients []Ingredient `yaml:"ingredients" json:"ingredients"`
}

// Item is one catalog entry. A nil Recipe marks a raw resource.
type Item struct {
	ID          string  `yaml:"id" json:"id"`
	DisplayName string  `yaml:"display_name" json:"display_name"`
	Recipe      *Recipe `yaml:"recipe,omitempty" json:"recipe,omitempty"`
}

// Enchantment is the static metadata behind the anvil planner: the highest
// level an enchanting table can produce directly and the max reachable by
// combining books.
type Enchantment struct {
	ID            string `yaml:"id" json:"id"`
	DisplayName   string `yaml:"display_name" json:"display_name"`
	MaxLevel      int    `yaml:"max_level" json:"max_level"`
	MaxTableLevel int    `yaml:"max_table_level" json:"max_table_level"`
	Strategy      string `yaml:"strategy,omitempty" json:"strategy,omitempty"`
}

// Catalog is the read-only item data source the engine expands against.
type Catalog interface {
	Item(id string) (*Item, bool)
	Enchantment(id string) (*Enchantment, bool)
}

type staticCatalog struct {
	items    map[string]*Item
	enchants map[string]*Enchantment
}

func New(items []Item, enchants []Enchantment) Catalog {
	c := &staticCatalog{
		items:    make(map[string]*Item, len(items)),
		enchants: make(map[string]*Enchantment, len(enchants)),
	}
	for i := range items {
		item := items[i]
		c.items[item.ID] = &item
	}
	for i := range enchants {
		e := enchants[i]
		c.enchants[e.ID] = &e
	}
	return c
}

func (c *staticCatalog) Item(id string) (*Item, bool) {
	item, ok := c.items[id]
	return item, ok
}

func (c *staticCatalog) Enchantment(id string) (*Enchantment, bool) {
	e, ok := c.enchants[id]
	return e, ok
}

type catalogFile struct {
	Items        []Item        `yaml:"items"`
	Enchantments []Enchantment `yaml:"enchantments"`
}

// LoadFile reads the catalog YAML from disk. The file is trusted reference
// data; a recipe with a non-positive output count is still rejected here so
// a bad edit surfaces at boot instead of mid-expansion.
func LoadFile(path string, log *logger.Logger) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var parsed catalogFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	for _, item := range parsed.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("catalog item with empty id")
		}
		if item.Recipe != nil && item.Recipe.OutputCount <= 0 {
			return nil, fmt.Errorf("catalog item %q has recipe with output_count %d", item.ID, item.Recipe.OutputCount)
		}
	}
	if log != nil {
		log.Info("Catalog loaded", "items", len(parsed.Items), "enchantments", len(parsed.Enchantments))
	}
	return New(parsed.Items, parsed.Enchantments), nil
}
