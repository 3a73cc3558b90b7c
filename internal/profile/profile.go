// Package profile loads named grid presets from a YAML file. A preset
// bundles the grid shape and submission knobs so a run can be launched
// with `--profile dense` instead of four flags.
package profile

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config is the top-level profiles configuration.
type Config struct {
	Defaults GridConfig            `yaml:"defaults"`
	Profiles map[string]GridConfig `yaml:"profiles"`
}

// GridConfig holds the grid and submission parameters of one preset.
type GridConfig struct {
	GridSize      int     `yaml:"grid_size"`
	SpacingMeters float64 `yaml:"spacing_meters"`
	Depth         int     `yaml:"depth"`
	Zoom          string  `yaml:"zoom"`
	Device        string  `yaml:"device"`
	LanguageCode  string  `yaml:"language_code"`
}

// LoadConfig reads grid profiles from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: read config %s", path)
	}

	// The YAML has a top-level "grid" key
	var wrapper struct {
		Grid Config `yaml:"grid"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "profile: parse config")
	}

	cfg := &wrapper.Grid
	for key, gc := range cfg.Profiles {
		cfg.Profiles[key] = withDefaults(gc, cfg.Defaults)
	}
	return cfg, nil
}

// Get returns the named profile, falling back to defaults when name is
// empty. Unknown names are an error so a typo never silently runs the
// default grid.
func (c *Config) Get(name string) (GridConfig, error) {
	if name == "" {
		return c.Defaults, nil
	}
	gc, ok := c.Profiles[name]
	if !ok {
		return GridConfig{}, eris.Errorf("profile: unknown profile %q (have %v)", name, c.Names())
	}
	return gc, nil
}

// Names lists the configured profile names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func withDefaults(gc, def GridConfig) GridConfig {
	if gc.GridSize == 0 {
		gc.GridSize = def.GridSize
	}
	if gc.SpacingMeters == 0 {
		gc.SpacingMeters = def.SpacingMeters
	}
	if gc.Depth == 0 {
		gc.Depth = def.Depth
	}
	if gc.Zoom == "" {
		gc.Zoom = def.Zoom
	}
	if gc.Device == "" {
		gc.Device = def.Device
	}
	if gc.LanguageCode == "" {
		gc.LanguageCode = def.LanguageCode
	}
	return gc
}
