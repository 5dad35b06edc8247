package discovery

import "context"

// DefaultServiceType is the search target Yeelight bulbs answer to
const DefaultServiceType = "wifi_bulb"

// Handler receives every record a transport reads, in delivery order.
// Transports call it from a single goroutine per socket.
type Handler func(Record)

// Transport is a multicast discovery client.
//
// Start binds the listening socket and begins delivering records to the
// handler; a bind failure must be returned, never swallowed. Search sends an
// active query and does not wait for replies.
//
// Err delivers at most one error: the socket failure that stopped delivery
// after a successful Start. Close does not produce one.
type Transport interface {
	Start(ctx context.Context, handler Handler) error
	Search(serviceType string) error
	Err() <-chan error
	Close() error
}
