// Package mux implements the subscription multiplexing adapter that sits
// between upstream clients and the venue transport.
//
// The adapter deduplicates overlapping subscriptions onto one physical
// subscription per key, fans downstream acknowledgements back out to
// every logical subscriber, serializes lookup floods to one in-flight
// request per kind, times out lookups the venue will not answer, replays
// live subscriptions after a reconnect, and tags outbound data messages
// with the ids of the logical subscribers that asked for them.
//
// It is a passive transformer: both ports are driven by caller
// goroutines, and the lookup timeouts advance on observed message
// timestamps, never on a wall clock.
package mux
