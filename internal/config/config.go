// Package config loads the bgledger HCL configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/yourusername/bgledger/internal/fileutil"
)

// RelPath is the config file location below the XDG config directories.
const RelPath = "bgledger/config.hcl"

// Config is the complete configuration.
type Config struct {
	LogLevel string        `hcl:"log_level,optional"`
	Server   *ServerConfig `hcl:"server,block"`
	Player   *PlayerConfig `hcl:"player,block"`
}

// ServerConfig configures `bgledger serve`.
type ServerConfig struct {
	Host string `hcl:"host,optional"`
	Port int    `hcl:"port,optional"`
	Seed int64  `hcl:"seed,optional"` // 0 seeds from the clock
}

// PlayerConfig configures the commands that play against a server.
type PlayerConfig struct {
	Server       string `hcl:"server,optional"`
	PollInterval string `hcl:"poll_interval,optional"`
	Retries      int    `hcl:"retries,optional"`
	Backoff      string `hcl:"backoff,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: &ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Player: &PlayerConfig{
			Server:       "http://localhost:8080",
			PollInterval: "500ms",
			Retries:      5,
			Backoff:      "200ms",
		},
	}
}

// Load reads the config file at path. With an empty path the XDG config
// directories are searched and the defaults are used when no file exists.
func Load(path string) (*Config, string, error) {
	if path == "" {
		found, err := xdg.SearchConfigFile(RelPath)
		if err != nil {
			return Default(), "", nil
		}
		path = found
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(src, path)
	return cfg, path, err
}

// Parse decodes HCL source, fills in defaults and validates the result.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Server == nil {
		c.Server = def.Server
	}
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Player == nil {
		c.Player = def.Player
	}
	if c.Player.Server == "" {
		c.Player.Server = def.Player.Server
	}
	if c.Player.PollInterval == "" {
		c.Player.PollInterval = def.Player.PollInterval
	}
	if c.Player.Retries == 0 {
		c.Player.Retries = def.Player.Retries
	}
	if c.Player.Backoff == "" {
		c.Player.Backoff = def.Player.Backoff
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.LogLevel))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port out of range: %d", c.Server.Port))
	}
	if c.Player.Retries < 1 {
		errs = append(errs, fmt.Errorf("player retries must be positive"))
	}
	if d, err := time.ParseDuration(c.Player.PollInterval); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("invalid poll interval: %q", c.Player.PollInterval))
	}
	if d, err := time.ParseDuration(c.Player.Backoff); err != nil || d < 0 {
		errs = append(errs, fmt.Errorf("invalid backoff: %q", c.Player.Backoff))
	}
	return errors.Join(errs...)
}

// PollDuration returns the parsed poll interval. Validate must have passed.
func (p *PlayerConfig) PollDuration() time.Duration {
	d, _ := time.ParseDuration(p.PollInterval)
	return d
}

// BackoffDuration returns the parsed retry backoff. Validate must have passed.
func (p *PlayerConfig) BackoffDuration() time.Duration {
	d, _ := time.ParseDuration(p.Backoff)
	return d
}

const defaultFile = `# bgledger configuration
log_level = "info"

server {
  host = "localhost"
  port = 8080
  seed = 0
}

player {
  server        = "http://localhost:8080"
  poll_interval = "500ms"
  retries       = 5
  backoff       = "200ms"
}
`

// WriteDefault writes the default configuration to path, or to the XDG
// config home when path is empty, and returns the path written.
func WriteDefault(path string) (string, error) {
	if path == "" {
		p, err := xdg.ConfigFile(RelPath)
		if err != nil {
			return "", fmt.Errorf("config path: %w", err)
		}
		path = p
	}
	if err := fileutil.WriteFileAtomic(path, []byte(defaultFile), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
