package ticket

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Choice is a selectable value with its display label.
type Choice struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Catalog lists the values a ticket may use. Assignment groups are site specific
// and empty by default.
type Catalog struct {
	Categories       []string `yaml:"categories" json:"categories"`
	Impacts          []Choice `yaml:"impacts" json:"impacts"`
	Urgencies        []Choice `yaml:"urgencies" json:"urgencies"`
	AssignmentGroups []string `yaml:"assignment_groups" json:"assignment_groups"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() Catalog {
	var c Catalog
	if err := yaml.Unmarshal(defaultCatalog, &c); err != nil {
		panic(fmt.Sprintf("ticket: invalid built-in catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from path. Sections missing from the file keep their
// built-in values. An empty path returns the built-in catalog.
func LoadCatalog(path string) (Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read ticket catalog: %w", err)
	}

	var override Catalog
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Catalog{}, fmt.Errorf("parse ticket catalog %s: %w", path, err)
	}
	if len(override.Categories) > 0 {
		c.Categories = override.Categories
	}
	if len(override.Impacts) > 0 {
		c.Impacts = override.Impacts
	}
	if len(override.Urgencies) > 0 {
		c.Urgencies = override.Urgencies
	}
	if len(override.AssignmentGroups) > 0 {
		c.AssignmentGroups = override.AssignmentGroups
	}
	return c, nil
}

// HasCategory reports whether name is a known category.
func (c Catalog) HasCategory(name string) bool {
	return lo.Contains(c.Categories, name)
}
