package levelview

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the viewer settings that are not level data.
type Config struct {
	Window      WindowConfig `yaml:"window"`
	FontPath    string       `yaml:"font_path"`
	FontSize    float64      `yaml:"font_size"`
	TickRate    int          `yaml:"tick_rate"`
	FieldOfView float32      `yaml:"field_of_view"`
	FarClip     float32      `yaml:"far_clip"`
	ClearColor  HexColor     `yaml:"clear_color"`
	Debug       bool         `yaml:"debug"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// HexColor is an RGBA color written as "#rrggbb" or "#rrggbbaa" in config files.
type HexColor [4]float32

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "Level Viewer",
		},
		FontSize:    24,
		TickRate:    60,
		FieldOfView: 60,
		FarClip:     1500,
		// MidnightBlue
		ClearColor: HexColor{25.0 / 255, 25.0 / 255, 112.0 / 255, 1},
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file is
// not an error; the defaults are returned unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("font_size must be positive, got %v", c.FontSize)
	}
	if c.TickRate <= 0 || c.TickRate > 1000 {
		return fmt.Errorf("tick_rate must be in (0, 1000], got %d", c.TickRate)
	}
	if c.FieldOfView <= 0 || c.FieldOfView >= 180 {
		return fmt.Errorf("field_of_view must be in (0, 180), got %v", c.FieldOfView)
	}
	if c.FarClip <= 5 {
		// the near plane reaches 5 at the widest zoom range
		return fmt.Errorf("far_clip must be greater than 5, got %v", c.FarClip)
	}
	return nil
}

func (h HexColor) MarshalYAML() (any, error) {
	r, g, b, a := h.bytes()
	if a == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", r, g, b), nil
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", r, g, b, a), nil
}

func (h *HexColor) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	c, err := ParseHexColor(s)
	if err != nil {
		return err
	}
	*h = c
	return nil
}

func (h HexColor) bytes() (r, g, b, a uint8) {
	to := func(v float32) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 0xff
		}
		return uint8(v*255 + 0.5)
	}
	return to(h[0]), to(h[1]), to(h[2]), to(h[3])
}

func ParseHexColor(s string) (HexColor, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return HexColor{}, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return HexColor{}, fmt.Errorf("color %q: %w", s, err)
	}
	return HexColor{
		float32(v>>24&0xff) / 255,
		float32(v>>16&0xff) / 255,
		float32(v>>8&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}
