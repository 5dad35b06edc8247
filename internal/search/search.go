package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/yeesearch/internal/discovery"
	"github.com/muurk/yeesearch/internal/light"
	"github.com/muurk/yeesearch/internal/logging"
)

// ErrUnknownLight is returned when an identifier is not in the registry
var ErrUnknownLight = errors.New("unknown light")

// Device is the handle Search keeps for every discovered light.
// *light.Light is the production implementation.
type Device interface {
	ID() string
	Status() light.Status
	SetStatus(to light.Status) error
	LastKnown() time.Time
	SetLastKnown(t time.Time)

	// Reconnect and GetValues return immediately; outcomes come back via light.Hooks
	Reconnect(rec discovery.Record)
	GetValues(props ...string)

	Info() light.Info
}

// Search discovers lights, keeps one handle per identifier and drives each
// handle's lifecycle from the announcement stream.
type Search struct {
	transport      discovery.Transport
	window         time.Duration
	serviceType    string
	searchInterval time.Duration
	factory        DeviceFactory
	now            func() time.Time

	// mu serialises the whole record pipeline and handle feedback
	mu       sync.Mutex
	registry *Registry
	found    []Device // found events not yet delivered, in discovery order

	notifyMu  sync.Mutex
	obsMu     sync.RWMutex
	observers []func(Device)

	stop      chan struct{}
	closeOnce sync.Once

	// done closes when the search stops, by Close or by a transport failure
	done     chan struct{}
	doneOnce sync.Once
	errMu    sync.Mutex
	err      error
}

// New binds the transport, sends the initial search and starts processing
// announcements. A transport failure is returned and nothing keeps running.
func New(ctx context.Context, transport discovery.Transport, opts ...Option) (*Search, error) {
	s := &Search{
		transport:   transport,
		window:      DefaultRefreshWindow,
		serviceType: discovery.DefaultServiceType,
		factory:     LightFactory(light.Options{}),
		now:         time.Now,
		registry:    NewRegistry(),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := transport.Start(ctx, s.handle); err != nil {
		return nil, fmt.Errorf("failed to start discovery transport: %w", err)
	}
	if err := transport.Search(s.serviceType); err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("initial search failed: %w", err)
	}

	logging.Info("Light discovery started",
		zap.String("service_type", s.serviceType),
		zap.Duration("refresh_window", s.window),
		zap.Duration("search_interval", s.searchInterval),
	)

	go s.watchTransport(transport.Err())
	if s.searchInterval > 0 {
		go s.searchLoop()
	}
	return s, nil
}

// Done is closed once the search has stopped. After a transport failure Err
// returns the cause.
func (s *Search) Done() <-chan struct{} {
	return s.done
}

// Err returns the transport failure that stopped the search, or nil
func (s *Search) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// WithFoundHandler registers a found observer before discovery starts, so no
// early announcement is missed
func WithFoundHandler(f func(Device)) Option {
	return func(s *Search) {
		if f != nil {
			s.observers = append(s.observers, f)
		}
	}
}

// OnFound registers an observer called once per newly discovered light, in
// discovery order. Observers may call back into Search.
func (s *Search) OnFound(f func(Device)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, f)
}

// Lights returns every known light in discovery order
func (s *Search) Lights() []Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.All()
}

// LightByID returns one light by identifier
func (s *Search) LightByID(id string) (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.FindByID(id)
}

// RefreshWindow returns the configured staleness threshold
func (s *Search) RefreshWindow() time.Duration {
	return s.window
}

// Refresh re-sends the search request. Device state is untouched; errors are logged.
func (s *Search) Refresh() {
	if err := s.transport.Search(s.serviceType); err != nil {
		logging.Warn("Search refresh failed", zap.Error(err))
		return
	}
	logging.Debug("Search refreshed", zap.String("service_type", s.serviceType))
}

// Close stops periodic searches, the transport and every light's control channel
func (s *Search) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		err = s.transport.Close()
		s.doneOnce.Do(func() { close(s.done) })

		for _, d := range s.Lights() {
			if c, ok := d.(io.Closer); ok {
				_ = c.Close()
			}
		}
	})
	return err
}

// handle runs one record through the pipeline. It is the transport Handler.
func (s *Search) handle(rec discovery.Record) {
	logging.LogRecord(rec.Kind.String(), rec.ID, rec.Source, rec.Attributes)

	if err := rec.Validate(); err != nil {
		logging.Debug("Discarding discovery record",
			zap.String("source", rec.Source),
			zap.Error(err),
		)
		return
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = s.now()
	}

	s.mu.Lock()
	if d, ok := s.registry.FindByID(rec.ID); ok {
		s.advance(d, rec)
		s.mu.Unlock()
		return
	}

	d := s.factory(rec, s.hooks())
	s.promote(d, rec)
	s.registry.Insert(d)
	s.found = append(s.found, d)
	s.mu.Unlock()

	logging.Info("Light found",
		zap.String("light_id", rec.ID),
		zap.String("location", rec.Attr(discovery.AttrLocation)),
		zap.String("model", rec.Attr(discovery.AttrModel)),
	)
	s.deliverFound()
}

// deliverFound drains queued found events outside mu, one drainer at a time,
// so observers see discovery order and may call Lights
func (s *Search) deliverFound() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	for {
		s.mu.Lock()
		batch := s.found
		s.found = nil
		s.mu.Unlock()
		if len(batch) == 0 {
			return
		}

		s.obsMu.RLock()
		observers := slices.Clone(s.observers)
		s.obsMu.RUnlock()

		for _, d := range batch {
			for _, f := range observers {
				f(d)
			}
		}
	}
}

// watchTransport stops the search when the transport reports a socket failure
func (s *Search) watchTransport(errc <-chan error) {
	select {
	case <-s.stop:
	case err := <-errc:
		s.errMu.Lock()
		s.err = fmt.Errorf("discovery transport failed: %w", err)
		s.errMu.Unlock()
		logging.Error("Light discovery stopped", zap.Error(err))
		s.doneOnce.Do(func() { close(s.done) })
	}
}

func (s *Search) searchLoop() {
	ticker := time.NewTicker(s.searchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.Refresh()
		}
	}
}
