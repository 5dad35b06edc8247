// Package search is the discovery and lifecycle manager for smart lights.
//
// New binds a discovery.Transport, sends the initial search and then runs
// every announcement through one pipeline:
//
//  1. Records without an identifier are discarded.
//  2. An unseen identifier gets exactly one handle, appended to the Registry
//     and reported to found observers. This happens once per identifier for
//     the lifetime of the Search, however often the light re-announces.
//  3. A known identifier goes to the lifecycle driver:
//     - offline lights move to discovering and reconnect (once per edge)
//     - online lights older than the refresh window get one property query
//     - anything else is informational
//
// # Usage Example
//
//	t := discovery.NewSSDPTransport(discovery.SSDPConfig{})
//	s, err := search.New(ctx, t,
//	    search.WithFoundHandler(func(d search.Device) {
//	        fmt.Println("found", d.ID())
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
// # Thread Safety
//
// Transports deliver from their own goroutines. A single mutex covers lookup,
// create-on-miss and every status change, so the found guarantee holds under
// concurrent delivery. Found observers run outside that mutex.
package search
