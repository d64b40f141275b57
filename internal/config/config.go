// Package config provides configuration loading for go-mocap commands.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-mocap/pkg/motion"
)

// Defaults used when the config file or environment leaves a field empty.
const (
	DefaultPort     = "8090"
	DefaultPlotData = "./assets/plotdata"
	DefaultLogLevel = "info"
)

// ErrInvalidConfig is returned when a config file fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config describes the clip library and the service around it.
type Config struct {
	// PlotData is the directory for mix diagnostics. Empty disables them.
	PlotData string `yaml:"plotdata"`

	// PlotImages also renders PNG heat maps next to the text diagnostics.
	PlotImages bool `yaml:"plot_images"`

	// Port is the HTTP port for the API server.
	Port string `yaml:"port"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Motions lists the clips to prepare at startup.
	Motions []MotionSpec `yaml:"motions"`
}

// MotionSpec is one clip preset.
type MotionSpec struct {
	Name  string          `yaml:"name"`
	Path  string          `yaml:"path"`
	Loop  motion.LoopMode `yaml:"loop"`
	Steps int             `yaml:"steps"`

	// Link names another preset used as this clip's linked layer.
	Link string `yaml:"link,omitempty"`
}

// Default returns a config with no motions and the default service settings.
func Default() Config {
	return Config{
		PlotData: DefaultPlotData,
		Port:     DefaultPort,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads a YAML config file, applies environment overrides and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, applies environment overrides and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MOCAP_PORT, MOCAP_PLOTDATA and MOCAP_LOG_LEVEL.
func (c *Config) ApplyEnv() {
	if port := os.Getenv("MOCAP_PORT"); port != "" {
		c.Port = port
	}
	if dir, ok := os.LookupEnv("MOCAP_PLOTDATA"); ok {
		c.PlotData = dir
	}
	if level := os.Getenv("MOCAP_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// Validate checks preset names, paths, step counts and links.
func (c Config) Validate() error {
	names := make(map[string]bool, len(c.Motions))
	for i, m := range c.Motions {
		if m.Name == "" {
			return fmt.Errorf("%w: motion #%d has no name", ErrInvalidConfig, i)
		}
		if names[m.Name] {
			return fmt.Errorf("%w: duplicate motion %q", ErrInvalidConfig, m.Name)
		}
		names[m.Name] = true
		if m.Path == "" {
			return fmt.Errorf("%w: motion %q has no path", ErrInvalidConfig, m.Name)
		}
		if m.Steps < 0 {
			return fmt.Errorf("%w: motion %q has negative steps", ErrInvalidConfig, m.Name)
		}
	}
	for _, m := range c.Motions {
		if m.Link == "" {
			continue
		}
		if m.Link == m.Name {
			return fmt.Errorf("%w: motion %q links to itself", ErrInvalidConfig, m.Name)
		}
		if !names[m.Link] {
			return fmt.Errorf("%w: motion %q links to unknown motion %q", ErrInvalidConfig, m.Name, m.Link)
		}
	}
	return nil
}

// Addr returns the listen address for the API server.
func (c Config) Addr() string {
	return ":" + c.Port
}
