package taxonomy

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yml
var defaultTaxonomy []byte

type fileFormat struct {
	DefaultCategory string   `yaml:"default_category"`
	DefaultReason   string   `yaml:"default_reason"`
	Categories      []string `yaml:"categories"`
	Reasons         []string `yaml:"reasons"`
}

// Default returns the built-in Vestel taxonomy.
func Default() *Taxonomy {
	t, err := Parse(defaultTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

// Load reads a taxonomy override from path. An empty path selects the built-in one.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}

	slog.Debug("Taxonomy loaded", "path", path, "categories", len(t.categories), "reasons", len(t.reasons))

	return t, nil
}

func Parse(data []byte) (*Taxonomy, error) {
	var raw fileFormat
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	return New(raw.Categories, raw.Reasons, raw.DefaultCategory, raw.DefaultReason), nil
}

func validate(raw *fileFormat) error {
	if len(raw.Categories) == 0 {
		return fmt.Errorf("taxonomy has no categories")
	}

	if len(raw.Reasons) != ReasonCount {
		return fmt.Errorf("taxonomy must have exactly %d reasons, got %d", ReasonCount, len(raw.Reasons))
	}

	if indexOf(Fold(raw.DefaultCategory), foldAll(raw.Categories)) < 0 {
		return fmt.Errorf("default category %q is not in the category list", raw.DefaultCategory)
	}

	if indexOf(Fold(raw.DefaultReason), foldAll(raw.Reasons)) < 0 {
		return fmt.Errorf("default reason %q is not in the reason list", raw.DefaultReason)
	}

	return nil
}
