// Package config loads termtap's TOML configuration: global defaults,
// per-pane settings, process classification lists, and named init groups.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration document.
type Config struct {
	LogLevel           string `toml:"log_level"`
	LogFile            string `toml:"log_file"`
	StreamDir          string `toml:"stream_dir"`
	CommandTimeoutSecs int    `toml:"command_timeout_secs"`
	PollIntervalMs     int    `toml:"poll_interval_ms"`

	Process ProcessConfig         `toml:"process"`
	Panes   map[string]PaneConfig `toml:"panes"`
	Groups  map[string]Group      `toml:"groups"`
}

// ProcessConfig tunes the introspector and handlers.
type ProcessConfig struct {
	KnownShells       []string `toml:"known_shells"`
	SkipWrappers      []string `toml:"skip_wrappers"`
	StdinWaitChannels []string `toml:"stdin_wait_channels"`
}

// PaneConfig holds per-pane defaults keyed by address.
type PaneConfig struct {
	Cwd          string            `toml:"cwd"`
	Env          map[string]string `toml:"env"`
	Command      string            `toml:"command"`
	ReadyPattern string            `toml:"ready_pattern"`
	TimeoutSecs  int               `toml:"timeout_secs"`
}

// Group is a named multi-pane service layout started as a unit.
type Group struct {
	Session  string             `toml:"session"` // defaults to the group name
	Cwd      string             `toml:"cwd"`
	Services map[string]Service `toml:"services"`
}

// Service is one pane of an init group.
type Service struct {
	Command      string            `toml:"command"`
	Cwd          string            `toml:"cwd"`
	Env          map[string]string `toml:"env"`
	ReadyPattern string            `toml:"ready_pattern"`
	TimeoutSecs  int               `toml:"timeout_secs"`
	DependsOn    []string          `toml:"depends_on"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:           "info",
		CommandTimeoutSecs: 30,
		PollIntervalMs:     100,
		Panes:              map[string]PaneConfig{},
		Groups:             map[string]Group{},
	}
}

// DefaultPath returns the config file location under the XDG config home.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "termtap", "termtap.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "termtap.toml"
	}
	return filepath.Join(home, ".config", "termtap", "termtap.toml")
}

// Load reads a config file, layering it over the defaults. A missing
// file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks group references.
func (c *Config) Validate() error {
	for name, group := range c.Groups {
		for svc, service := range group.Services {
			for _, dep := range service.DependsOn {
				if _, ok := group.Services[dep]; !ok {
					return fmt.Errorf("group %q: service %q depends on unknown service %q", name, svc, dep)
				}
				if dep == svc {
					return fmt.Errorf("group %q: service %q depends on itself", name, svc)
				}
			}
		}
	}
	return nil
}

// CommandTimeout returns the global default command timeout.
func (c *Config) CommandTimeout() time.Duration {
	if c.CommandTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CommandTimeoutSecs) * time.Second
}

// PollInterval returns the engine poll interval.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// PaneConfig returns the per-pane defaults for an address.
func (c *Config) PaneConfig(address string) (PaneConfig, bool) {
	pc, ok := c.Panes[address]
	return pc, ok
}

// InitGroup returns a named init group. The group's session name
// defaults to the group name.
func (c *Config) InitGroup(name string) (Group, bool) {
	g, ok := c.Groups[name]
	if ok && g.Session == "" {
		g.Session = name
	}
	return g, ok
}

// ListInitGroups returns the configured group names, sorted.
func (c *Config) ListInitGroups() []string {
	names := make([]string, 0, len(c.Groups))
	for name := range c.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Timeout returns a service's wait budget, falling back to the global
// default.
func (s Service) Timeout(fallback time.Duration) time.Duration {
	if s.TimeoutSecs <= 0 {
		return fallback
	}
	return time.Duration(s.TimeoutSecs) * time.Second
}
