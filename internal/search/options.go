package search

import (
	"time"

	"github.com/muurk/yeesearch/internal/discovery"
	"github.com/muurk/yeesearch/internal/light"
)

// DefaultRefreshWindow is how long an online light's values stay fresh
const DefaultRefreshWindow = 300000 * time.Millisecond

// DeviceFactory builds the handle for a newly seen identifier. The hooks must
// be wired into the handle so control channel events reach the lifecycle driver.
type DeviceFactory func(rec discovery.Record, hooks light.Hooks) Device

// Option configures a Search
type Option func(*Search)

// WithRefreshWindow sets the staleness threshold for online lights
func WithRefreshWindow(d time.Duration) Option {
	return func(s *Search) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithServiceType sets the search target sent on every search
func WithServiceType(serviceType string) Option {
	return func(s *Search) {
		if serviceType != "" {
			s.serviceType = serviceType
		}
	}
}

// WithSearchInterval re-issues the search periodically. Zero disables it.
func WithSearchInterval(d time.Duration) Option {
	return func(s *Search) {
		s.searchInterval = d
	}
}

// WithDeviceFactory replaces the default light handle
func WithDeviceFactory(f DeviceFactory) Option {
	return func(s *Search) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithClock sets the time source used for handle feedback events
func WithClock(now func() time.Time) Option {
	return func(s *Search) {
		if now != nil {
			s.now = now
		}
	}
}

// LightFactory returns a DeviceFactory producing real lights that connect immediately
func LightFactory(opts light.Options) DeviceFactory {
	return func(rec discovery.Record, hooks light.Hooks) Device {
		o := opts
		o.Hooks = hooks
		l := light.New(rec, o)
		l.Connect()
		return l
	}
}
