// Package discovery provides the multicast transports that find smart lights
// on the local network.
//
// A Transport binds a socket, sends active search requests and hands every
// announcement it reads to a Handler as a Record. Two implementations exist:
//
//   - SSDPTransport speaks the Yeelight SSDP variant on UDP port 1982. It
//     delivers search responses as KindResponse and NOTIFY ssdp:alive
//     broadcasts as KindAdvertise.
//   - MDNSTransport browses DNS-SD services using zeroconf.
//
// # Usage Example
//
//	t := discovery.NewSSDPTransport(discovery.SSDPConfig{})
//	err := t.Start(ctx, func(rec discovery.Record) {
//	    fmt.Println(rec.ID, rec.Attr(discovery.AttrLocation))
//	})
//	if err != nil {
//	    log.Fatal(err) // bind failures are fatal
//	}
//	_ = t.Search(discovery.DefaultServiceType)
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - SSDP replies arrive on the port the search was sent from, so the listening
//     socket and the search socket are the same socket
//   - Firewall must allow UDP 1982 (SSDP) or UDP 5353 (mDNS)
//
// Records are validated by the consumer; a Record with an empty ID is still
// delivered so that it can be logged and discarded upstream.
package discovery
