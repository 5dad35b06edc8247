// Yeesearch discovers Yeelight smart lights on the local network.
//
// It listens for SSDP (or mDNS) announcements, keeps one entry per light and
// tracks whether each light is online. Results can be printed once, watched
// live in the terminal, or served over HTTP and WebSocket.
//
// Usage:
//
//	yeesearch [command] [flags]
//
// See 'yeesearch --help' for available commands.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/yeesearch/internal/logging"
	"github.com/muurk/yeesearch/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath     string
	logLevel       string
	transportName  string
	ifaceName      string
	serviceType    string
	refreshWindow  time.Duration
	searchInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "yeesearch",
	Short: "Discover Yeelight smart lights",
	Long: `Discover Yeelight smart lights on the local network.

Lights are found with a multicast search and by listening for their periodic
announcements. Each light is tracked through its connection lifecycle:
online lights are re-queried once their values are older than the refresh
window, and offline lights are reconnected when they announce themselves again.

Settings are read from the config file (see 'yeesearch config init') and can be
overridden with flags.`,
	Version:       version.Get().Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file path (default $XDG_CONFIG_HOME/yeesearch/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); empty reads "+logging.LogLevelEnvVar)
	flags.StringVar(&transportName, "transport", "", "Discovery transport (ssdp, mdns)")
	flags.StringVar(&ifaceName, "interface", "", "Network interface to search on (default all)")
	flags.StringVar(&serviceType, "service-type", "", "Search target (default wifi_bulb for ssdp, _miio._udp for mdns)")
	flags.DurationVar(&refreshWindow, "refresh-window", 0, "Re-query online lights whose values are older than this (default 5m)")
	flags.DurationVar(&searchInterval, "search-interval", 0, "Repeat the search this often, 0 disables (default 1m)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yeesearch %s\n", version.Get())
	},
}
