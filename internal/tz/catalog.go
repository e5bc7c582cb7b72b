// Package tz provides the enumerated timezone catalog offered during
// onboarding. The catalog is a closed set: users pick a labeled entry,
// never type a free-form zone.
package tz

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qatestsmith/medicinereminderbot/internal/domain"
)

// Entry is one selectable catalog item.
type Entry struct {
	Label string `yaml:"label"`
	Zone  string `yaml:"zone"` // IANA identifier
}

// Catalog maps display labels to IANA zone identifiers, preserving order
// for keyboard layout.
type Catalog struct {
	entries []Entry
	byLabel map[string]string
}

// Load reads a catalog from a YAML file, or the embedded default when path
// is empty. Every zone is validated eagerly; a catalog with an unloadable
// zone is a configuration error, not something to discover at fire time.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read timezone catalog: %w", err)
		}
		data = b
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse timezone catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("timezone catalog is empty")
	}

	c := &Catalog{byLabel: make(map[string]string, len(entries))}
	for _, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("timezone catalog: entry with empty label")
		}
		zone, err := domain.ValidateTimezone(e.Zone)
		if err != nil {
			return nil, fmt.Errorf("timezone catalog entry %q: %w", e.Label, err)
		}
		if _, dup := c.byLabel[e.Label]; dup {
			return nil, fmt.Errorf("timezone catalog: duplicate label %q", e.Label)
		}
		c.entries = append(c.entries, Entry{Label: e.Label, Zone: zone})
		c.byLabel[e.Label] = zone
	}
	return c, nil
}

// Entries returns catalog items in declaration order.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Resolve maps a display label to its IANA zone.
func (c *Catalog) Resolve(label string) (string, bool) {
	zone, ok := c.byLabel[label]
	return zone, ok
}

// LabelFor returns the display label for a zone, if any entry uses it.
func (c *Catalog) LabelFor(zone string) (string, bool) {
	for _, e := range c.entries {
		if e.Zone == zone {
			return e.Label, true
		}
	}
	return "", false
}
