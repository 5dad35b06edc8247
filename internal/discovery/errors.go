package discovery

import "fmt"

// TransportError reports a socket-level failure inside a transport
type TransportError struct {
	Transport string // "ssdp" or "mdns"
	Op        string // bind, join, send, browse
	Err       error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %s failed: %v", e.Transport, e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransportError) Unwrap() error {
	return e.Err
}
