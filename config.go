package devserve

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 3000
	DefaultReloadPort = 1234
)

// Config controls where a session listens and how it reacts to changes.
// A port of 0 picks any free port.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	ReloadPort int    `yaml:"reload_port"`
	// Open the browser once both servers are listening
	Open bool `yaml:"open"`
	// Debounce coalesces changes that land within this window into a
	// single reload. Zero reloads on every change.
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig serves on the loopback address and opens the browser
func DefaultConfig() Config {
	return Config{
		Host:       DefaultHost,
		Port:       DefaultPort,
		ReloadPort: DefaultReloadPort,
		Open:       true,
	}
}

// LoadConfig reads a YAML config file on top of the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("devserve: unable to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("devserve: unable to parse config %q: %w", path, err)
	}
	return cfg, nil
}

func (c Config) host() string {
	if c.Host == "" {
		return DefaultHost
	}
	return c.Host
}

func (c Config) fileAddr() string {
	return net.JoinHostPort(c.host(), strconv.Itoa(c.Port))
}

func (c Config) reloadAddr() string {
	return net.JoinHostPort(c.host(), strconv.Itoa(c.ReloadPort))
}
