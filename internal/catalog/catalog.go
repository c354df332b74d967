// Package catalog holds the static asset templates and collectible items the
// engine draws from. The default catalog is embedded; an override file with the
// same YAML shape can be loaded at startup.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// MinTemplates is the smallest catalog that can fill one market offer.
const MinTemplates = 10

//go:embed catalog.yaml
var defaultYAML []byte

var templateIDRE = regexp.MustCompile(`^[A-Z]{6}$`)

var (
	ErrTooFewTemplates = errors.New("catalog needs at least 10 asset templates")
	ErrNoItems         = errors.New("catalog has no collectible items")
)

type AssetTemplate struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Sector string `yaml:"sector" json:"sector"`
	Icon   string `yaml:"icon" json:"icon"`
}

type Item struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Icon      string `yaml:"icon" json:"icon"`
	BasePrice int64  `yaml:"base_price" json:"base_price"`
}

type Catalog struct {
	Version   string          `yaml:"version" json:"version"`
	Templates []AssetTemplate `yaml:"templates" json:"templates"`
	Items     []Item          `yaml:"items" json:"items"`
}

// Default returns the embedded catalog.
func Default() Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog invalid: %v", err))
	}
	return c
}

// FromPath loads the catalog at path, or the embedded one when path is empty.
func FromPath(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Load reads and validates a catalog file.
func Load(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) Validate() error {
	if len(c.Templates) < MinTemplates {
		return fmt.Errorf("%w: got %d", ErrTooFewTemplates, len(c.Templates))
	}
	seen := make(map[string]struct{}, len(c.Templates))
	for _, t := range c.Templates {
		id := strings.TrimSpace(t.ID)
		if !templateIDRE.MatchString(id) {
			return fmt.Errorf("template id %q must be exactly 6 uppercase letters", t.ID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate template id %q", id)
		}
		seen[id] = struct{}{}
	}
	if len(c.Items) == 0 {
		return ErrNoItems
	}
	items := make(map[string]struct{}, len(c.Items))
	for _, it := range c.Items {
		if strings.TrimSpace(it.ID) == "" {
			return fmt.Errorf("item id is required")
		}
		if it.BasePrice <= 0 {
			return fmt.Errorf("item %q base_price must be > 0", it.ID)
		}
		if _, dup := items[it.ID]; dup {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		items[it.ID] = struct{}{}
	}
	return nil
}

func (c Catalog) Template(id string) (AssetTemplate, bool) {
	for _, t := range c.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return AssetTemplate{}, false
}

func (c Catalog) Item(id string) (Item, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
