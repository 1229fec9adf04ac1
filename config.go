package theme

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds all settings for the data layer and the chart refresh
// tooling. Both databases are read with the same driver; tests swap in
// sqlite through the same fields.
type Config struct {
	DatabaseDriver  string `env:"OWID_DB_DRIVER" envDefault:"mysql"`
	WordpressDSN    string `env:"OWID_WORDPRESS_DSN"`
	GrapherDSN      string `env:"OWID_GRAPHER_DSN"`
	RenderToolRoot  string `env:"OWID_RENDER_TOOL_ROOT" envDefault:"."`
	BakedOutputRoot string `env:"OWID_BAKED_OUTPUT_ROOT" envDefault:"bakedSite"`
	PreviewAddr     string `env:"OWID_PREVIEW_ADDR" envDefault:":8090"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ExportDir is the directory under the baked output root where chart
// SVG exports live.
func (c Config) ExportDir() string {
	return filepath.Join(c.BakedOutputRoot, "exports")
}
