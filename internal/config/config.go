package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const ConfigFile = "routeql.toml"

// Config holds the routeql configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Schema  SchemaConfig  `toml:"schema"`
	Context ContextConfig `toml:"context"`
	Engine  EngineConfig  `toml:"engine"`

	// dir is the directory the config was loaded from.
	dir string
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr           string `toml:"addr"`
	Path           string `toml:"path"`
	Playground     bool   `toml:"playground"`
	PlaygroundPath string `toml:"playground_path"`
	ReadTimeout    int    `toml:"read_timeout"`
	WriteTimeout   int    `toml:"write_timeout"`
}

// SchemaConfig selects the schema to serve.
type SchemaConfig struct {
	// File is an SDL file, relative to the config directory. Empty serves
	// the built-in schema.
	File  string `toml:"file,omitempty"`
	Watch bool   `toml:"watch,omitempty"`
}

// ContextConfig defines how the per-request context is built.
type ContextConfig struct {
	UserHeader string `toml:"user_header"`
}

// EngineConfig tunes the execution engine.
type EngineConfig struct {
	StartupTimeout int    `toml:"startup_timeout"`
	Greeting       string `toml:"greeting,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":22880",
			Path:           "/graphql",
			Playground:     true,
			PlaygroundPath: "/playground",
			ReadTimeout:    15,
			WriteTimeout:   15,
		},
		Context: ContextConfig{
			UserHeader: "x-user",
		},
		Engine: EngineConfig{
			StartupTimeout: 30,
		},
	}
}

// Load reads configuration from the given directory.
// Returns default config if the file doesn't exist.
func Load(dir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dir, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.dir = dir
		return cfg, nil
	}
	return cfg, err
}

// LoadFile reads configuration from path. Keys missing from the file keep
// their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)

	// Apply defaults for values that can't be zero
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15
	}
	if cfg.Engine.StartupTimeout <= 0 {
		cfg.Engine.StartupTimeout = 30
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the given directory.
func (c *Config) Save(dir string) error {
	path := filepath.Join(dir, ConfigFile)

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would make the server unusable.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path must start with /, got %q", c.Server.Path)
	}
	if c.Server.Playground {
		if !strings.HasPrefix(c.Server.PlaygroundPath, "/") {
			return fmt.Errorf("server.playground_path must start with /, got %q", c.Server.PlaygroundPath)
		}
		if c.Server.PlaygroundPath == c.Server.Path {
			return fmt.Errorf("server.playground_path must differ from server.path")
		}
	}
	if c.Schema.Watch && c.Schema.File == "" {
		return errors.New("schema.watch requires schema.file")
	}
	return nil
}

// SchemaFile returns the schema file resolved against the config
// directory, or "" for the built-in schema.
func (c *Config) SchemaFile() string {
	if c.Schema.File == "" || filepath.IsAbs(c.Schema.File) {
		return c.Schema.File
	}
	return filepath.Join(c.dir, c.Schema.File)
}

// ReadTimeout returns server.read_timeout as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Second
}

// WriteTimeout returns server.write_timeout as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}

// StartupTimeout returns engine.startup_timeout as a duration.
func (c *Config) StartupTimeout() time.Duration {
	return time.Duration(c.Engine.StartupTimeout) * time.Second
}
