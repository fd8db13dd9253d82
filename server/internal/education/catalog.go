package education

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// CategoryAll lists every module when passed to List.
const CategoryAll = "All"

//go:embed modules.yaml
var modulesYAML []byte

// Module is one education article.
type Module struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Category string   `yaml:"category" json:"category"`
	Duration string   `yaml:"duration" json:"duration"`
	Content  string   `yaml:"content" json:"content"`
	Points   []string `yaml:"points" json:"points"`
}

// Catalog is an immutable set of modules in display order.
type Catalog struct {
	modules []Module
	byID    map[string]int
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(modulesYAML)
}

// Parse builds a Catalog from a YAML list of modules. IDs must be unique and
// every module needs a title and a category.
func Parse(data []byte) (*Catalog, error) {
	var mods []Module
	if err := yaml.Unmarshal(data, &mods); err != nil {
		return nil, fmt.Errorf("education: parse catalog: %w", err)
	}
	c := &Catalog{modules: mods, byID: make(map[string]int, len(mods))}
	for i, m := range mods {
		if m.ID == "" || m.Title == "" || m.Category == "" {
			return nil, fmt.Errorf("education: module %d: id, title and category are required", i)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("education: duplicate module id %q", m.ID)
		}
		c.byID[m.ID] = i
	}
	return c, nil
}

// List returns the modules in category, or all of them when category is
// empty or CategoryAll.
func (c *Catalog) List(category string) []Module {
	out := make([]Module, 0, len(c.modules))
	for _, m := range c.modules {
		if category == "" || category == CategoryAll || m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// Get returns the module with id.
func (c *Catalog) Get(id string) (Module, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Module{}, false
	}
	return c.modules[i], true
}

// Categories returns CategoryAll followed by each distinct category in order
// of first appearance.
func (c *Catalog) Categories() []string {
	out := []string{CategoryAll}
	seen := make(map[string]bool)
	for _, m := range c.modules {
		if !seen[m.Category] {
			seen[m.Category] = true
			out = append(out, m.Category)
		}
	}
	return out
}
