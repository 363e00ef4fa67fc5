package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-views/internal/logger"
	"github.com/goliatone/go-views/pkg/view"
)

// Defaults and environment variable names.
const (
	DefaultPath         = "views.yaml"
	DefaultResourcesDir = "resources"
	DefaultAddr         = ":8080"

	EnvConfigPath   = "VIEWS_CONFIG"
	EnvResourcesDir = "VIEWS_RESOURCES_DIR"
	EnvLogLevel     = "VIEWS_LOG_LEVEL"
)

// Config is the views-cli configuration file.
type Config struct {
	ResourcesDir string `yaml:"resources_dir"`
	Engine       string `yaml:"engine"`
	LogLevel     string `yaml:"log_level"`
	Server       Server `yaml:"server"`
}

// Server configures the preview server.
type Server struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ResourcesDir: DefaultResourcesDir,
		Engine:       view.EngineEJS,
		LogLevel:     string(logger.InfoLevel),
		Server:       Server{Addr: DefaultAddr},
	}
}

// Load reads the YAML file at filename over the defaults, applies environment
// overrides and validates the result. A missing file is only an error when
// filename is not DefaultPath.
func Load(filename string) (Config, error) {
	cfg := Default()
	if filename == "" {
		filename = DefaultPath
	}

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && filename == DefaultPath:
	default:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment, skipping files that do not exist. Existing variables win.
func LoadDotEnv(filenames ...string) error {
	for _, name := range filenames {
		if _, err := os.Stat(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks required fields and known values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ResourcesDir) == "" {
		return fmt.Errorf("resources_dir is required")
	}
	switch c.Engine {
	case view.EngineEJS, view.EnginePongo:
	default:
		return fmt.Errorf("engine %q is not supported", c.Engine)
	}
	if _, err := logger.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// View returns the view service configuration.
func (c Config) View() view.Config {
	return view.Config{ResourcesDir: c.ResourcesDir}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvResourcesDir); v != "" {
		cfg.ResourcesDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

func setDefaults(cfg *Config) {
	defaults := Default()
	if cfg.Engine == "" {
		cfg.Engine = defaults.Engine
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
}
