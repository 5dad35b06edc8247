package discovery

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingID is returned by Record.Validate when a record carries no device identifier.
var ErrMissingID = errors.New("discovery record has no device identifier")

// Kind tells which transport event stream produced a record
type Kind int

const (
	// KindResponse is a direct reply to an active search
	KindResponse Kind = iota
	// KindAdvertise is a passive alive announcement
	KindAdvertise
)

// String returns the event stream name for the kind
func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindAdvertise:
		return "advertise-alive"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Well-known attribute keys carried by Yeelight announcements
const (
	AttrLocation  = "location"
	AttrModel     = "model"
	AttrFirmware  = "fw_ver"
	AttrSupport   = "support"
	AttrPower     = "power"
	AttrBright    = "bright"
	AttrColorMode = "color_mode"
	AttrCT        = "ct"
	AttrRGB       = "rgb"
	AttrHue       = "hue"
	AttrSat       = "sat"
	AttrName      = "name"
)

// Record is one raw discovery announcement as delivered by a Transport.
type Record struct {
	// ID is the protocol-assigned identifier, stable per physical device
	ID string

	// Kind is the event stream the record arrived on
	Kind Kind

	// Attributes holds every announced key/value pair, keys lower-cased
	Attributes map[string]string

	// ReceivedAt is stamped by the transport when the packet was read
	ReceivedAt time.Time

	// Source is the sender address, for diagnostics only
	Source string
}

// Validate checks the record is usable by the discovery pipeline
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	return nil
}

// Attr returns an attribute value, or empty string if not present
func (r Record) Attr(key string) string {
	if r.Attributes == nil {
		return ""
	}
	return r.Attributes[strings.ToLower(key)]
}

// String returns a short human-readable form of the record
func (r Record) String() string {
	return fmt.Sprintf("%s %s from %s", r.Kind, r.ID, r.Source)
}
