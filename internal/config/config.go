// Package config loads the nanobot JSON configuration document and
// decodes it into the types used by the supervisor and worker.
package config

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ErrConfig is returned when the configuration document is structurally
// invalid, e.g. missing the "core" section.
var ErrConfig = errors.New("config error")

// ChannelConfig is one entry of NetworkConfig.Channels.
type ChannelConfig struct {
	Name string `koanf:"name"`
	Key  string `koanf:"key"`
}

// NetworkConfig is an immutable per-network record (spec.md §3).
type NetworkConfig struct {
	Name     string          `koanf:"name"`
	Hostname string          `koanf:"hostname"`
	Port     int             `koanf:"port"`
	TLS      bool            `koanf:"ssl"`
	Channels []ChannelConfig `koanf:"channels"`
}

// PortOrDefault returns Port, defaulting to 6667 per spec.md §3.
func (n NetworkConfig) PortOrDefault() int {
	if n.Port == 0 {
		return 6667
	}
	return n.Port
}

// CoreConfig holds the bot-wide settings.
type CoreConfig struct {
	LogFile  string `koanf:"log_file"`
	DB       string `koanf:"db"`
	Nickname string `koanf:"nickname"`
	Realname string `koanf:"realname"`
}

// PluginDescriptor describes one plugin to load (spec.md §3).
type PluginDescriptor struct {
	Name    string         `koanf:"name"`
	Module  string         `koanf:"module"`
	Enabled *bool          `koanf:"enabled"`
	Config  map[string]any `koanf:"config"`
}

// IsEnabled treats a missing "enabled" key as enabled, matching
// original_source/plugin.py's load_plugins default.
func (p PluginDescriptor) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Config is the root of config.json (spec.md §6).
type Config struct {
	Core     CoreConfig         `koanf:"core"`
	Networks []NetworkConfig    `koanf:"networks"`
	Plugins  []PluginDescriptor `koanf:"plugins"`
}

// Load reads path (a JSON document), optionally overlays CLI flags
// already parsed into fs, and decodes the merged tree into a Config.
// fs may be nil when no flag overlay is desired.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, fmt.Errorf("merging flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Core == (CoreConfig{}) {
		return fmt.Errorf("%w: missing core section", ErrConfig)
	}
	return nil
}
