// Package model defines the message envelope exchanged between upstream
// clients, the multiplexing adapter, and the venue transport.
//
// A single flat Message struct carries every variant of the closed
// MessageType enumeration; the adapter dispatches on Type and never owns
// a wire format (the transport serializes the envelope as JSON).
package model
