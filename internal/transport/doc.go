// Package transport implements the venue-side port of the adapter: a
// WebSocket client speaking the JSON message envelope, plus the Venue
// wrapper that satisfies mux.Downstream (transaction id generation and
// capability probing included).
package transport
