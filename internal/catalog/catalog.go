// Package catalog holds the static category table and the keyword-scoring
// suggestion engine built on it.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cedisense/cedisense-bfa/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var embeddedCategories []byte

type catalogFile struct {
	Categories []domain.Category `yaml:"categories"`
}

// Catalog is an immutable, indexed set of categories. Safe for concurrent use.
type Catalog struct {
	categories []domain.Category
	byID       map[string]int
	nameToID   map[string]string
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(bytes.NewReader(embeddedCategories))
		if err != nil {
			panic("catalog: embedded categories.yaml is invalid: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFile reads a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(file.Categories)
}

// New builds a catalog from categories in declaration order. Declaration
// order matters: it breaks ties when scoring.
func New(categories []domain.Category) (*Catalog, error) {
	c := &Catalog{
		categories: make([]domain.Category, 0, len(categories)),
		byID:       make(map[string]int, len(categories)),
		nameToID:   make(map[string]string, len(categories)),
	}

	for _, cat := range categories {
		if cat.ID == "" {
			return nil, &domain.ErrValidation{Field: "id", Message: "category id is required"}
		}
		if _, dup := c.byID[cat.ID]; dup {
			return nil, &domain.ErrValidation{Field: "id", Message: fmt.Sprintf("duplicate category id %q", cat.ID)}
		}

		keywords := make([]string, 0, len(cat.Keywords))
		for _, k := range cat.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		cat.Keywords = keywords

		c.byID[cat.ID] = len(c.categories)
		c.categories = append(c.categories, cat)

		// First declaration wins if two entries share a display name.
		name := strings.ToLower(cat.Name)
		if _, taken := c.nameToID[name]; !taken && name != "" {
			c.nameToID[name] = cat.ID
		}
	}

	for _, id := range []string{domain.CategoryOther, domain.CategoryIncome, domain.CategoryTransfer} {
		if _, ok := c.byID[id]; !ok {
			return nil, &domain.ErrValidation{Field: "categories", Message: fmt.Sprintf("reserved category %q missing", id)}
		}
	}
	return c, nil
}

// ByID looks a category up by its stable id.
func (c *Catalog) ByID(id string) (domain.Category, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Category{}, false
	}
	return c.categories[i], true
}

// ByName looks a category up by display name, case-insensitively.
func (c *Catalog) ByName(name string) (domain.Category, bool) {
	id, ok := c.nameToID[strings.ToLower(name)]
	if !ok {
		return domain.Category{}, false
	}
	return c.ByID(id)
}

// ByIDOrName tries the id first and falls back to the display name.
// Some stored rows carry the display name instead of the id.
func (c *Catalog) ByIDOrName(value string) (domain.Category, bool) {
	if value == "" {
		return domain.Category{}, false
	}
	if cat, ok := c.ByID(value); ok {
		return cat, true
	}
	return c.ByName(value)
}

// DefaultCategory returns the "other" entry.
func (c *Catalog) DefaultCategory() domain.Category {
	cat, _ := c.ByID(domain.CategoryOther)
	return cat
}

// All returns the categories in declaration order.
func (c *Catalog) All() []domain.Category {
	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out
}
