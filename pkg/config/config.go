package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cuemby/contained/pkg/spec"
	"github.com/cuemby/contained/pkg/storage"
	"github.com/cuemby/contained/pkg/wire"
	"gopkg.in/yaml.v3"
)

// Config holds defaults for every subcommand. Command-line flags given
// explicitly take precedence.
type Config struct {
	Image          string   `yaml:"image"`
	Network        string   `yaml:"network"`
	Socket         string   `yaml:"socket"`
	Engine         string   `yaml:"engine"`
	Mounts         []string `yaml:"mounts,omitempty"`
	MountsWritable []string `yaml:"mounts_writable,omitempty"`
	Env            []string `yaml:"env,omitempty"`
	StateDir       string   `yaml:"state_dir"`
	LogLevel       string   `yaml:"log_level"`
	LogJSON        bool     `yaml:"log_json"`
	MetricsFile    string   `yaml:"metrics_file,omitempty"`
}

// Default returns the configuration used when no profile exists
func Default() *Config {
	return &Config{
		Image:    spec.DefaultImage,
		Network:  spec.DefaultNetwork,
		Socket:   wire.SocketPathFromEnv(),
		Engine:   "podman",
		StateDir: storage.DefaultDir(),
		LogLevel: "warn",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/contained/config.yaml
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "contained", "config.yaml")
}

// Load reads the profile at path over the defaults. A missing file at the
// default location is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that flags cannot correct later
func (c *Config) Validate() error {
	switch c.Engine {
	case "podman", "docker":
	default:
		return fmt.Errorf("unknown engine %q (want podman or docker)", c.Engine)
	}
	if c.Image == "" {
		return errors.New("image must not be empty")
	}
	return nil
}
