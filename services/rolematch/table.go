package rolematch

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category groups creator tags that describe the same kind of work.
type Category struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

// SynonymTable is the versioned category -> term set mapping used by the matcher.
type SynonymTable struct {
	Version    int        `yaml:"version"`
	Categories []Category `yaml:"categories"`
}

// DefaultTable returns the built-in English synonym table.
func DefaultTable() SynonymTable {
	return SynonymTable{
		Version: 1,
		Categories: []Category{
			{Name: "photographer", Terms: []string{"photographer", "photography", "photo"}},
			{Name: "videographer", Terms: []string{"videographer", "videography", "video"}},
			{Name: "model", Terms: []string{"model", "modeling"}},
			{Name: "content_creator", Terms: []string{"content creator", "content_creator", "content creation"}},
			{Name: "social_media_manager", Terms: []string{"social media manager", "smm", "social media"}},
			{Name: "graphic_designer", Terms: []string{"graphic designer", "graphic_designer", "designer"}},
			{Name: "makeup_artist", Terms: []string{"makeup artist", "makeup_artist", "makeup", "mua"}},
			{Name: "stylist", Terms: []string{"stylist", "styling"}},
			{Name: "event_host", Terms: []string{"event host", "event_host", "host"}},
			{Name: "writer", Terms: []string{"writer", "writing", "copywriter"}},
			{Name: "influencer", Terms: []string{"influencer"}},
			{Name: "voice_over", Terms: []string{"voice over", "voice_over", "vo"}},
		},
	}
}

// LoadTable decodes a YAML synonym table.
func LoadTable(r io.Reader) (SynonymTable, error) {
	var table SynonymTable
	if err := yaml.NewDecoder(r).Decode(&table); err != nil {
		return SynonymTable{}, fmt.Errorf("error decoding synonym table: %w", err)
	}
	if err := table.validate(); err != nil {
		return SynonymTable{}, err
	}
	return table, nil
}

// LoadTableFile reads a YAML synonym table from path.
func LoadTableFile(path string) (SynonymTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return SynonymTable{}, fmt.Errorf("error opening synonym table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

func (t SynonymTable) validate() error {
	if t.Version <= 0 {
		return fmt.Errorf("synonym table: version must be positive, got %d", t.Version)
	}
	if len(t.Categories) == 0 {
		return fmt.Errorf("synonym table: no categories")
	}
	seen := make(map[string]string)
	for _, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("synonym table: category without a name")
		}
		if len(c.Terms) == 0 {
			return fmt.Errorf("synonym table: category %q has no terms", c.Name)
		}
		for _, term := range c.Terms {
			key := termKey(term)
			if key == "" {
				return fmt.Errorf("synonym table: category %q has an empty term", c.Name)
			}
			if other, ok := seen[key]; ok && other != c.Name {
				return fmt.Errorf("synonym table: term %q appears in %q and %q", term, other, c.Name)
			}
			seen[key] = c.Name
		}
	}
	return nil
}
