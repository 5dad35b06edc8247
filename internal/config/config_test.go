package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "yeesearch") {
		t.Errorf("GetConfigDir() = %v, should contain 'yeesearch'", configDir)
	}

	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		dir, err := GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() error = %v", err)
		}
		if dir != filepath.Join("/tmp/xdg", "yeesearch") {
			t.Errorf("GetConfigDir() with XDG_CONFIG_HOME = %v", dir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %v, want %v", cfg.Version, CurrentVersion)
	}
	if cfg.Discovery.RefreshWindow != 300000*time.Millisecond {
		t.Errorf("RefreshWindow = %v, want 300000ms", cfg.Discovery.RefreshWindow)
	}
	if cfg.Discovery.Transport != TransportSSDP {
		t.Errorf("Transport = %v, want ssdp", cfg.Discovery.Transport)
	}
	if cfg.Discovery.Port != 1982 {
		t.Errorf("Port = %v, want 1982", cfg.Discovery.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"mdns transport", func(c *Config) { c.Discovery.Transport = TransportMDNS }, false},
		{"unknown transport", func(c *Config) { c.Discovery.Transport = "upnp" }, true},
		{"zero refresh window", func(c *Config) { c.Discovery.RefreshWindow = 0 }, true},
		{"negative search interval", func(c *Config) { c.Discovery.SearchInterval = -time.Second }, true},
		{"empty service type", func(c *Config) { c.Discovery.ServiceType = " " }, true},
		{"bad version", func(c *Config) { c.Version = 2 }, true},
		{"port out of range", func(c *Config) { c.Discovery.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discovery.RefreshWindow != Default().Discovery.RefreshWindow {
		t.Errorf("RefreshWindow = %v, want default", cfg.Discovery.RefreshWindow)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `version: 1
discovery:
  transport: mdns
  service_type: _miio._udp
  refresh_window: 30s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discovery.Transport != TransportMDNS {
		t.Errorf("Transport = %v, want mdns", cfg.Discovery.Transport)
	}
	if cfg.Discovery.RefreshWindow != 30*time.Second {
		t.Errorf("RefreshWindow = %v, want 30s", cfg.Discovery.RefreshWindow)
	}
	if cfg.Light.DialTimeout != 5*time.Second {
		t.Errorf("DialTimeout = %v, want default 5s", cfg.Light.DialTimeout)
	}
	if cfg.Server.Addr != "127.0.0.1:8982" {
		t.Errorf("Server.Addr = %v, want default", cfg.Server.Addr)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "version: [1\n"},
		{"unsupported version", "version: 9\n"},
		{"bad duration", "version: 1\ndiscovery:\n  refresh_window: soon\n"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "c"+string(rune('a'+i))+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want failure")
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Discovery.Interface = "eth0"
	cfg.Discovery.RefreshWindow = 90 * time.Second
	cfg.LogLevel = "debug"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file missing after Save(): %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Discovery.Interface != "eth0" {
		t.Errorf("Interface = %v, want eth0", loaded.Discovery.Interface)
	}
	if loaded.Discovery.RefreshWindow != 90*time.Second {
		t.Errorf("RefreshWindow = %v, want 90s", loaded.Discovery.RefreshWindow)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", loaded.LogLevel)
	}
}
