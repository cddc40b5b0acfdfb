package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Scenario names shipped in the catalog.
const (
	ScenarioVegetarian      = "vegetarian recipe request"
	ScenarioBasic           = "basic vegetarian recipe request"
	ScenarioFollowUp        = "recipe follow-up question"
	ScenarioSpecificCuisine = "specific cuisine recipe"
)

// Definition is a named scenario with its turn budget and judge criteria.
type Definition struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	MaxTurns    int      `yaml:"max_turns"`
	Criteria    []string `yaml:"criteria"`
}

// Catalog holds the predefined scenarios.
type Catalog struct {
	DefaultCriteria []string     `yaml:"default_criteria"`
	Scenarios       []Definition `yaml:"scenarios"`
}

// LoadCatalog parses the embedded catalog. Scenarios without criteria get the
// default criteria.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse scenario catalog: %w", err)
	}
	for i := range c.Scenarios {
		d := &c.Scenarios[i]
		d.Description = strings.TrimSpace(d.Description)
		if d.Name == "" {
			return nil, fmt.Errorf("scenario catalog: entry %d has no name", i)
		}
		if d.MaxTurns <= 0 {
			return nil, fmt.Errorf("scenario catalog: %q needs a positive max_turns", d.Name)
		}
		if len(d.Criteria) == 0 {
			d.Criteria = append([]string(nil), c.DefaultCriteria...)
		}
	}
	return &c, nil
}

// Scenario returns the definition called name.
func (c *Catalog) Scenario(name string) (Definition, bool) {
	for _, d := range c.Scenarios {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
