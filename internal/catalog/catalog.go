// Package catalog holds the predefined task catalog: an ordered list of
// categories, each mapping task titles to their canonical description.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"taskline/internal/domain"
)

//go:embed catalog.yml
var defaultCatalog []byte

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	categories []domain.Category
	index      map[string]map[string]string
}

type document struct {
	Categories []domain.Category `yaml:"categories"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := FromYAML(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}

// FromYAML parses and validates a catalog document.
func FromYAML(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	return New(doc.Categories)
}

// FromFile reads a catalog document from path.
func FromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Load returns the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return FromFile(path)
}

// New builds a catalog from categories, keeping their order.
func New(categories []domain.Category) (*Catalog, error) {
	c := &Catalog{index: make(map[string]map[string]string, len(categories))}
	for _, cat := range categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("catalog category name is required")
		}
		if _, dup := c.index[cat.Name]; dup {
			return nil, fmt.Errorf("catalog category %q defined twice", cat.Name)
		}
		titles := make(map[string]string, len(cat.Templates))
		templates := make([]domain.Template, 0, len(cat.Templates))
		for _, tpl := range cat.Templates {
			if tpl.Title == "" {
				return nil, fmt.Errorf("category %q has a template without title", cat.Name)
			}
			if tpl.Description == "" {
				return nil, fmt.Errorf("template %q in %q has no description", tpl.Title, cat.Name)
			}
			if _, dup := titles[tpl.Title]; dup {
				return nil, fmt.Errorf("template %q defined twice in %q", tpl.Title, cat.Name)
			}
			titles[tpl.Title] = tpl.Description
			templates = append(templates, tpl)
		}
		c.index[cat.Name] = titles
		c.categories = append(c.categories, domain.Category{Name: cat.Name, Templates: templates})
	}
	return c, nil
}

// Lookup returns the canonical description for an exact, case-sensitive
// (category, title) pair.
func (c *Catalog) Lookup(category, title string) (string, bool) {
	desc, ok := c.index[category][title]
	return desc, ok
}

// ResolveDescription returns the catalog description, or title itself on a miss.
func (c *Catalog) ResolveDescription(category, title string) string {
	if desc, ok := c.Lookup(category, title); ok {
		return desc
	}
	return title
}

// ListCategories returns a copy of the categories in catalog order.
func (c *Catalog) ListCategories() []domain.Category {
	out := make([]domain.Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = domain.Category{Name: cat.Name, Templates: append([]domain.Template(nil), cat.Templates...)}
	}
	return out
}
