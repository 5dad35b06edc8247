package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/yeesearch/internal/config"
	"github.com/muurk/yeesearch/internal/discovery"
	"github.com/muurk/yeesearch/internal/light"
	"github.com/muurk/yeesearch/internal/logging"
	"github.com/muurk/yeesearch/internal/search"
)

// loadConfig reads the config file, applies flags the user set and starts logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Discovery.Transport = transportName
	}
	if flags.Changed("interface") {
		cfg.Discovery.Interface = ifaceName
	}
	if flags.Changed("service-type") {
		cfg.Discovery.ServiceType = serviceType
	} else if cfg.Discovery.Transport == config.TransportMDNS && cfg.Discovery.ServiceType == discovery.DefaultServiceType {
		cfg.Discovery.ServiceType = discovery.DefaultMDNSServiceType
	}
	if flags.Changed("refresh-window") {
		cfg.Discovery.RefreshWindow = refreshWindow
	}
	if flags.Changed("search-interval") {
		cfg.Discovery.SearchInterval = searchInterval
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newTransport builds the discovery transport named in the config
func newTransport(d config.Discovery) discovery.Transport {
	if d.Transport == config.TransportMDNS {
		return discovery.NewMDNSTransport(discovery.MDNSConfig{Interface: d.Interface})
	}
	return discovery.NewSSDPTransport(discovery.SSDPConfig{
		Port:          d.Port,
		MulticastAddr: d.MulticastAddr,
		Interface:     d.Interface,
	})
}

// startSearch binds the transport and sends the first search
func startSearch(ctx context.Context, cfg *config.Config, extra ...search.Option) (*search.Search, error) {
	opts := []search.Option{
		search.WithRefreshWindow(cfg.Discovery.RefreshWindow),
		search.WithServiceType(cfg.Discovery.ServiceType),
		search.WithSearchInterval(cfg.Discovery.SearchInterval),
		search.WithDeviceFactory(search.LightFactory(light.Options{
			DialTimeout:  cfg.Light.DialTimeout,
			WriteTimeout: cfg.Light.WriteTimeout,
		})),
	}
	s, err := search.New(ctx, newTransport(cfg.Discovery), append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s discovery: %w", cfg.Discovery.Transport, err)
	}
	return s, nil
}
