package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
	yaml "gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfig.
const (
	EnvConfig  = "SCRIPTBRIDGE_CONFIG"
	EnvColor   = "SCRIPTBRIDGE_COLOR"
	EnvPath    = "SCRIPTBRIDGE_PATH"
	EnvEnvFile = "SCRIPTBRIDGE_ENV_FILE"
)

// ColorMode controls colouring of level labels.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Config represents the bridge configuration
type Config struct {
	Color       ColorMode `yaml:"color"`
	ModulePaths []string  `yaml:"module_paths"` // Extra folders searched by require
	EnvFile     string    `yaml:"env_file"`     // .env file merged into the script's environment
}

// DefaultConfig returns a new config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Color: ColorAuto,
	}
}

// LoadConfig reads the YAML file at path, or the one named by
// SCRIPTBRIDGE_CONFIG when path is empty, and applies environment overrides.
// Without a file the defaults are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return runtime.WrapError(runtime.KindConfig, err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return runtime.WrapError(runtime.KindConfig, err, "failed to parse config file %s", path)
	}

	// Relative paths in the file are relative to the file itself.
	base := filepath.Dir(path)
	if c.EnvFile != "" && !filepath.IsAbs(c.EnvFile) {
		c.EnvFile = filepath.Join(base, c.EnvFile)
	}
	for i, p := range c.ModulePaths {
		if !filepath.IsAbs(p) {
			c.ModulePaths[i] = filepath.Join(base, p)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvColor); v != "" {
		c.Color = ColorMode(strings.ToLower(v))
	}
	if v := os.Getenv(EnvPath); v != "" {
		for _, p := range filepath.SplitList(v) {
			if p != "" {
				c.ModulePaths = append(c.ModulePaths, p)
			}
		}
	}
	if v := os.Getenv(EnvEnvFile); v != "" {
		c.EnvFile = v
	}
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	switch c.Color {
	case "":
		c.Color = ColorAuto
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return runtime.NewError(runtime.KindConfig, "invalid color mode %q (expected auto, always or never)", c.Color)
	}
	return nil
}

// ApplyEnvFile loads the configured env file into the process environment.
// Variables already set take precedence.
func (c *Config) ApplyEnvFile() error {
	if c.EnvFile == "" {
		return nil
	}
	env, err := loadEnvFile(c.EnvFile)
	if err != nil {
		return runtime.WrapError(runtime.KindConfig, err, "failed to load env file")
	}
	if err := setEnvironmentVariables(env); err != nil {
		return runtime.WrapError(runtime.KindConfig, err, "failed to apply env file")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("color=%s module_paths=%v env_file=%q", c.Color, c.ModulePaths, c.EnvFile)
}
