package search

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/yeesearch/internal/discovery"
	"github.com/muurk/yeesearch/internal/light"
	"github.com/muurk/yeesearch/internal/logging"
)

// Every status write goes through this file. Callers hold s.mu.

// promote confirms a freshly created handle
func (s *Search) promote(d Device, rec discovery.Record) {
	s.transition(d, light.StatusOnline, "discovered")
	d.SetLastKnown(rec.ReceivedAt)
}

// advance applies an announcement for an already known light
func (s *Search) advance(d Device, rec discovery.Record) {
	switch d.Status() {
	case light.StatusOffline:
		// The status change is the debounce: later packets see DISCOVERING
		if s.transition(d, light.StatusDiscovering, "announced while offline") {
			d.Reconnect(rec)
		}

	case light.StatusDiscovering:
		logging.Debug("Reconnect in progress, ignoring announcement", zap.String("light_id", d.ID()))

	case light.StatusOnline:
		age := rec.ReceivedAt.Sub(d.LastKnown())
		if age <= s.window {
			logging.Debug("Light announcement within refresh window",
				zap.String("light_id", d.ID()),
				zap.Duration("age", age),
			)
			return
		}
		// Moving lastKnown to the record time keeps the rest of the burst quiet
		d.SetLastKnown(rec.ReceivedAt)
		logging.LogStale(d.ID(), age, s.window)
		d.GetValues(light.RefreshProperties...)
	}
}

// transition changes status and logs it. It reports false for illegal moves.
func (s *Search) transition(d Device, to light.Status, reason string) bool {
	from := d.Status()
	if from == to {
		return true
	}
	if err := d.SetStatus(to); err != nil {
		logging.Warn("Rejected light status change",
			zap.String("light_id", d.ID()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return false
	}
	logging.LogTransition(d.ID(), from.String(), to.String(), reason)
	return true
}

func (s *Search) hooks() light.Hooks {
	return light.Hooks{
		OnConnected:    s.connected,
		OnDisconnected: s.disconnected,
		OnRefreshed:    s.refreshed,
	}
}

func (s *Search) connected(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.registry.FindByID(id)
	if !ok {
		return
	}
	if s.transition(d, light.StatusOnline, "control channel connected") {
		d.SetLastKnown(s.now())
	}
}

func (s *Search) disconnected(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.registry.FindByID(id)
	if !ok {
		return
	}
	reason := "control channel lost"
	if err != nil {
		reason = fmt.Sprintf("control channel lost: %v", err)
	}
	s.transition(d, light.StatusOffline, reason)
}

func (s *Search) refreshed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.registry.FindByID(id)
	if !ok || d.Status() != light.StatusOnline {
		return
	}
	d.SetLastKnown(s.now())
}

// MarkOffline forces a light offline so that its next announcement reconnects it
func (s *Search) MarkOffline(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.registry.FindByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLight, id)
	}
	if !s.transition(d, light.StatusOffline, "marked offline") {
		return fmt.Errorf("cannot mark light %s offline from %s", id, d.Status())
	}
	return nil
}
