package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DateRange is a named start/end pair offered as a previous range.
type DateRange struct {
	Label string `yaml:"label" json:"label"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Catalog lists the selectable device values per slot and the named ranges.
type Catalog struct {
	Substations    []string    `yaml:"substations" json:"substations"`
	Lines          []string    `yaml:"lines" json:"lines"`
	Transformers   []string    `yaml:"transformers" json:"transformers"`
	Buses          []string    `yaml:"buses" json:"buses"`
	Feeders        []string    `yaml:"feeders" json:"feeders"`
	PreviousRanges []DateRange `yaml:"previous_ranges" json:"previous_ranges"`
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() Catalog {
	return Catalog{
		Substations:  []string{"24", "26", "27", "28", "31", "32", "33", "34", "35"},
		Lines:        []string{"Line 1", "Line 2", "Line 3"},
		Transformers: []string{"Transformer 1", "Transformer 2", "Transformer 3"},
		Buses:        []string{"bus 1", "bus 2", "bus 3"},
		Feeders:      []string{"8-27.11", "8-27.12", "8-27.13", "8-27.14"},
		PreviousRanges: []DateRange{
			{Label: "Q2 2025", Start: "2025-04-01", End: "2025-06-30"},
			{Label: "June 2025", Start: "2025-06-01", End: "2025-06-30"},
		},
	}
}

// LoadCatalog reads a YAML catalog. An empty path yields DefaultCatalog;
// slots missing from the file keep their defaults.
func LoadCatalog(path string) (Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return cat, nil
}

// Slot returns the values offered for a device slot key.
func (c Catalog) Slot(key string) []string {
	switch key {
	case "substation":
		return c.Substations
	case "line":
		return c.Lines
	case "transformer":
		return c.Transformers
	case "bus":
		return c.Buses
	case "feeder":
		return c.Feeders
	}
	return nil
}

// Range looks up a previous range by label.
func (c Catalog) Range(label string) (DateRange, bool) {
	for _, r := range c.PreviousRanges {
		if r.Label == label {
			return r, true
		}
	}
	return DateRange{}, false
}
