/*
config.go - Application configuration

PURPOSE:
  One Config for the batch CLI and the API server. Values come from, in
  increasing precedence: built-in defaults, an optional YAML file, and
  OLAP_* environment variables.

ENVIRONMENT:
  OLAP_SERVER_PORT=9090
  OLAP_ENGINE_MAX_ROWS=1000000
  OLAP_ENGINE_REFRESH_INTERVAL=1h
  OLAP_DATABASE_FILE=/var/lib/olap/smart_sales.db

SEE ALSO:
  - logging/logging.go: logging.Config is embedded here
  - sales/normalize.go: Paths.MappingFile feeds sales.LoadMappings
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/warp/segment-olap/logging"
	"github.com/warp/segment-olap/sales"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "OLAP"

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  logging.Config `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Engine   EngineConfig   `yaml:"engine" envconfig:"ENGINE"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// PathsConfig contains file system locations.
type PathsConfig struct {
	CleanDir    string `yaml:"clean_dir" envconfig:"CLEAN_DIR"`
	ResultsDir  string `yaml:"results_dir" envconfig:"RESULTS_DIR"`
	MappingFile string `yaml:"mapping_file" envconfig:"MAPPING_FILE"`
}

// EngineConfig bounds and tunes the model builder.
type EngineConfig struct {
	MaxRows    int  `yaml:"max_rows" envconfig:"MAX_ROWS"`
	StrictKeys bool `yaml:"strict_keys" envconfig:"STRICT_KEYS"`

	// RefreshInterval re-runs the analyses in the API server. 0 disables.
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL"`
}

// DatabaseConfig locates the sqlite warehouse.
type DatabaseConfig struct {
	Path string `yaml:"path" envconfig:"FILE"`
}

// ModelOptions converts the engine settings for sales.BuildModel.
func (c EngineConfig) ModelOptions() sales.ModelOptions {
	return sales.ModelOptions{MaxRows: c.MaxRows, StrictKeys: c.StrictKeys}
}

// Load builds the configuration. path may be empty or point to a file that
// doesn't exist, in which case only defaults and environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	// No field carries a default tag, so envconfig only touches fields
	// whose variable is set.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Logging: logging.Config{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/olap.log",
		},
		Paths: PathsConfig{
			CleanDir:   "data/clean",
			ResultsDir: "data/results",
		},
		Engine: EngineConfig{
			MaxRows: 5_000_000,
		},
		Database: DatabaseConfig{
			Path: "data/dw/smart_sales.db",
		},
	}
}

// Validate checks for settings no component can work with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Engine.MaxRows < 0 {
		return fmt.Errorf("engine max_rows must be >= 0, got %d", c.Engine.MaxRows)
	}
	if c.Engine.RefreshInterval < 0 {
		return fmt.Errorf("engine refresh_interval must be >= 0, got %s", c.Engine.RefreshInterval)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q (stdout, file, both)", c.Logging.Output)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format %q (json, text)", c.Logging.Format)
	}
	return nil
}
