package light

import "fmt"

// Status is the connectivity state of a light
type Status int

const (
	// StatusDiscovering means the light was just announced and its control
	// channel is being (re)established
	StatusDiscovering Status = iota
	// StatusOnline means the light is reachable and its values are considered fresh
	StatusOnline
	// StatusOffline means the control channel was lost; the next announcement reconnects
	StatusOffline
)

// String returns a lower-case name for the status
func (s Status) String() string {
	switch s {
	case StatusDiscovering:
		return "discovering"
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// MarshalText lets Status render as its name in JSON
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name written by MarshalText
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusDiscovering, StatusOnline, StatusOffline} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown light status %q", text)
}

// transitions lists the legal status changes. Staying in place is always legal.
var transitions = map[Status][]Status{
	StatusDiscovering: {StatusOnline, StatusOffline},
	StatusOnline:      {StatusOffline},
	StatusOffline:     {StatusDiscovering},
}

// CanTransition reports whether a light may move from one status to another
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
