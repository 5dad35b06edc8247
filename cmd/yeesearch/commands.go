package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/yeesearch/internal/config"
	"github.com/muurk/yeesearch/internal/light"
	"github.com/muurk/yeesearch/internal/search"
	"github.com/muurk/yeesearch/internal/server"
	"github.com/muurk/yeesearch/internal/ui"
)

// Command flags
var (
	scanTimeout time.Duration
	scanJSON    bool
	watchPlain  bool
	serveAddr   string
	forceInit   bool
)

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 5*time.Second, "How long to listen for replies")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print lights as JSON")

	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Print one line per found light instead of the live table")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8982)")

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

// signalContext is cancelled on Ctrl-C or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// untilStopped derives a context that also ends when the search stops, so
// long-running commands exit with the search's error
func untilStopped(parent context.Context, s *search.Search) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func snapshot(devices []search.Device) []light.Info {
	infos := make([]light.Info, 0, len(devices))
	for _, d := range devices {
		infos = append(infos, d.Info())
	}
	return infos
}

// scanCmd searches once and prints what answered
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search for lights and print them",
	Long: `Send a discovery search, listen for replies and announcements for the
timeout, then print every light found.`,
	Example: `  # Scan for 5 seconds (default)
  yeesearch scan

  # Longer scan over mDNS, as JSON
  yeesearch scan --transport mdns --timeout 15s --json`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	if !scanJSON {
		printer.PrintHeader("Light scan", "yeesearch scan",
			ui.Param{Key: "Transport", Value: cfg.Discovery.Transport},
			ui.Param{Key: "Service", Value: cfg.Discovery.ServiceType},
			ui.Param{Key: "Timeout", Value: scanTimeout.String()},
		)
	}

	// A one-shot scan does not need the periodic search
	s, err := startSearch(ctx, cfg, search.WithSearchInterval(0))
	if err != nil {
		return err
	}
	defer s.Close()

	select {
	case <-ctx.Done():
	case <-s.Done():
		return s.Err()
	case <-time.After(scanTimeout):
	}

	infos := snapshot(s.Lights())
	if scanJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	printer.PrintLights(infos, time.Now())
	return nil
}

// watchCmd keeps searching and shows lights as they come and go
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch lights live",
	Long: `Keep discovery running and show every light with its current status.

On a terminal this is a live table; press r to search again and q to quit.
When stdout is not a terminal, or with --plain, one line is printed per
newly found light.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if watchPlain || !ui.IsTerminal(os.Stdout) {
		printer := ui.NewPrinter(cmd.OutOrStdout())
		s, err := startSearch(ctx, cfg, search.WithFoundHandler(func(d search.Device) {
			printer.PrintFound(d.Info(), time.Now())
		}))
		if err != nil {
			return err
		}
		defer s.Close()
		select {
		case <-ctx.Done():
		case <-s.Done():
		}
		return s.Err()
	}

	s, err := startSearch(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	watchCtx, stop := untilStopped(ctx, s)
	defer stop()
	if err := ui.RunWatch(watchCtx, s); err != nil {
		return err
	}
	return s.Err()
}

// serveCmd exposes the registry over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve discovered lights over HTTP",
	Long: `Keep discovery running and serve the lights over HTTP.

Endpoints:
  GET  /api/lights        all lights in discovery order
  GET  /api/lights/{id}   one light
  POST /api/refresh       send a new discovery search
  GET  /api/events        WebSocket stream of found events`,
	Example: `  yeesearch serve --addr 0.0.0.0:8982 --log-level info`,
	RunE:    runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s, err := startSearch(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := server.New(&server.Config{Addr: cfg.Server.Addr}, s)
	fmt.Fprintf(cmd.ErrOrStderr(), "Serving lights on http://%s (Ctrl-C to stop)\n", cfg.Server.Addr)

	serveCtx, stop := untilStopped(ctx, s)
	defer stop()
	if err := srv.Start(serveCtx); err != nil {
		return err
	}
	return s.Err()
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cannot access %s: %w", path, err)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings (file plus flags)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}
