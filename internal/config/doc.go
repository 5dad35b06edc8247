// Package config provides the yeesearch configuration file.
//
// The file is YAML and lives in a platform-appropriate location:
//   - Linux: $XDG_CONFIG_HOME/yeesearch/config.yaml or $HOME/.config/yeesearch/config.yaml
//   - macOS: $HOME/.config/yeesearch/config.yaml
//   - Windows: %LOCALAPPDATA%\yeesearch\config.yaml
//
// Durations are written in Go syntax ("5m", "300000ms"). A missing file is
// not an error; Load returns Default(). Command-line flags override the file.
//
// Only settings live here. Discovered lights are never persisted.
package config
