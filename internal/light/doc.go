// Package light implements the per-device handle for a discovered bulb.
//
// A Light owns the bulb's identity, its connectivity Status, the timestamp of
// the last state-confirming event and a persistent TCP control channel. The
// channel carries newline-delimited JSON commands; only property queries are
// issued here.
//
// Status changes are checked against a single transition table
// (CanTransition). Control channel events are reported through Hooks so that
// the lifecycle owner, not the light, decides what they mean.
package light
