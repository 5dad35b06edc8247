// Package server exposes discovered lights over HTTP and WebSocket.
//
// # Endpoints
//
//	GET  /api/lights        all lights in discovery order
//	GET  /api/lights/{id}   one light, 404 if unknown
//	POST /api/refresh       re-send the discovery search (202)
//	GET  /api/events        WebSocket stream of {"type":"found",...} events
//
// The event stream carries one message per newly discovered light. Lights
// found before a client connected are available from /api/lights.
//
// # Usage
//
//	srv := server.New(&server.Config{Addr: "127.0.0.1:8982"}, s)
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The server binds to loopback by default; it has no authentication.
package server
