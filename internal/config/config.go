package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "yeesearch"
	configFile = "config.yaml"

	// CurrentVersion is the config file schema version
	CurrentVersion = 1
)

// Transport names accepted in the discovery section
const (
	TransportSSDP = "ssdp"
	TransportMDNS = "mdns"
)

// Config represents the entire configuration file
type Config struct {
	Version   int       `yaml:"version"`
	Discovery Discovery `yaml:"discovery"`
	Light     Light     `yaml:"light"`
	Server    Server    `yaml:"server"`
	LogLevel  string    `yaml:"log_level,omitempty"` // debug, info, warn, error (empty = silent)
}

// Discovery configures the transport and the lifecycle driver
type Discovery struct {
	Transport      string        `yaml:"transport"`                 // ssdp or mdns
	ServiceType    string        `yaml:"service_type"`              // Search target (wifi_bulb, _miio._udp)
	Port           int           `yaml:"port,omitempty"`            // SSDP listen/search port
	MulticastAddr  string        `yaml:"multicast_addr,omitempty"`  // SSDP multicast group
	Interface      string        `yaml:"interface,omitempty"`       // Network interface (empty = all)
	RefreshWindow  time.Duration `yaml:"refresh_window"`            // Staleness threshold for online lights
	SearchInterval time.Duration `yaml:"search_interval,omitempty"` // Periodic re-search (0 = off)
}

// Light configures the per-light control channel
type Light struct {
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Server configures the HTTP/WebSocket API
type Server struct {
	Addr string `yaml:"addr"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Discovery: Discovery{
			Transport:      TransportSSDP,
			ServiceType:    "wifi_bulb",
			Port:           1982,
			MulticastAddr:  "239.255.255.250",
			RefreshWindow:  300000 * time.Millisecond,
			SearchInterval: time.Minute,
		},
		Light: Light{
			DialTimeout:  5 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Server: Server{
			Addr: "127.0.0.1:8982",
		},
	}
}

// Validate checks the configuration for values the program cannot run with
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	switch c.Discovery.Transport {
	case TransportSSDP, TransportMDNS:
	default:
		return fmt.Errorf("unknown discovery transport %q (expected %s or %s)", c.Discovery.Transport, TransportSSDP, TransportMDNS)
	}
	if strings.TrimSpace(c.Discovery.ServiceType) == "" {
		return fmt.Errorf("discovery.service_type must not be empty")
	}
	if c.Discovery.RefreshWindow <= 0 {
		return fmt.Errorf("discovery.refresh_window must be positive, got %s", c.Discovery.RefreshWindow)
	}
	if c.Discovery.SearchInterval < 0 {
		return fmt.Errorf("discovery.search_interval must not be negative")
	}
	if c.Discovery.Port < 0 || c.Discovery.Port > 65535 {
		return fmt.Errorf("discovery.port out of range: %d", c.Discovery.Port)
	}
	return nil
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
//   - Linux: $XDG_CONFIG_HOME/yeesearch or $HOME/.config/yeesearch
//   - macOS: $HOME/.config/yeesearch
//   - Windows: %LOCALAPPDATA%\yeesearch
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration at path, or the default path when path is empty.
// A missing file yields the defaults. Fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path (or the default path) atomically
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# yeesearch configuration file
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
