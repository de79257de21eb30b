package flagart

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FlagSpec describes one flag as either a stripe sequence or a field with a
// centered disc (the Japan family).
type FlagSpec struct {
	Stripes     []string `yaml:"stripes,omitempty"`
	Orientation string   `yaml:"orientation,omitempty"`
	Field       string   `yaml:"field,omitempty"`
	Disc        string   `yaml:"disc,omitempty"`
}

type Catalog struct {
	Flags map[string]FlagSpec `yaml:"flags"`
}

// DefaultCatalog covers the flags the renderer can draw without any
// configuration file.
func DefaultCatalog() Catalog {
	return Catalog{Flags: map[string]FlagSpec{
		"japan":       {Field: "#FFFFFF", Disc: "#BC002D"},
		"bangladesh":  {Field: "#006A4E", Disc: "#F42A41"},
		"france":      {Stripes: []string{"#0055A4", "#FFFFFF", "#EF4135"}, Orientation: "vertical"},
		"italy":       {Stripes: []string{"#009246", "#FFFFFF", "#CE2B37"}, Orientation: "vertical"},
		"ireland":     {Stripes: []string{"#169B62", "#FFFFFF", "#FF883E"}, Orientation: "vertical"},
		"belgium":     {Stripes: []string{"#000000", "#FDDA24", "#EF3340"}, Orientation: "vertical"},
		"germany":     {Stripes: []string{"#000000", "#DD0000", "#FFCE00"}},
		"russia":      {Stripes: []string{"#FFFFFF", "#0039A6", "#D52B1E"}},
		"netherlands": {Stripes: []string{"#AE1C28", "#FFFFFF", "#21468B"}},
		"ukraine":     {Stripes: []string{"#0057B7", "#FFD700"}},
		"poland":      {Stripes: []string{"#FFFFFF", "#DC143C"}},
		"austria":     {Stripes: []string{"#ED2939", "#FFFFFF", "#ED2939"}},
		"hungary":     {Stripes: []string{"#CE2939", "#FFFFFF", "#477050"}},
		"lithuania":   {Stripes: []string{"#FDB913", "#006A44", "#C1272D"}},
		"estonia":     {Stripes: []string{"#0072CE", "#000000", "#FFFFFF"}},
		"bulgaria":    {Stripes: []string{"#FFFFFF", "#00966E", "#D62612"}},
	}}
}

// LoadCatalog overlays flags from a YAML file on the defaults. An empty path
// returns the defaults unchanged.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read flag catalog: %w", err)
	}

	var overlay Catalog
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return Catalog{}, fmt.Errorf("parse flag catalog: %w", err)
	}
	for name, spec := range overlay.Flags {
		catalog.Flags[strings.ToLower(name)] = spec
	}
	return catalog, nil
}

func (c Catalog) lookup(country string) (FlagSpec, bool) {
	spec, ok := c.Flags[strings.ToLower(strings.TrimSpace(country))]
	return spec, ok
}

func parseHexColor(raw string) (color.RGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", raw)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", raw, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
