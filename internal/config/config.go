// Package config loads the server configuration from an optional TOML file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml"
)

const (
	// DefaultIP and DefaultPort apply when neither the file nor the
	// environment say otherwise.
	DefaultIP   = "127.0.0.1"
	DefaultPort = 6969
)

// Config is the top-level configuration.
type Config struct {
	Network Network `toml:"network"`
}

// Network holds the listen address.  Both fields are optional; the env
// overrides are CHAT_IP and CHAT_PORT.
type Network struct {
	IP   string `toml:"ip" envconfig:"IP"`
	Port uint16 `toml:"port" envconfig:"PORT"`
}

// Addr renders the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Network.IP, strconv.Itoa(int(c.Network.Port)))
}

// Load reads path, falling back to defaults when the file does not exist.
// A file that exists but cannot be parsed is an error: running with a
// silently ignored config is worse than not starting.
func Load(path string) (Config, error) {
	cfg := Config{Network: Network{IP: DefaultIP, Port: DefaultPort}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults apply.
	case err != nil:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if cfg.Network.IP == "" {
			cfg.Network.IP = DefaultIP
		}
		if cfg.Network.Port == 0 {
			cfg.Network.Port = DefaultPort
		}
	}

	if err := envconfig.Process("chat", &cfg.Network); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, nil
}
