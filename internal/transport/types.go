package transport

import (
	"errors"
	"time"

	"github.com/rickgao/submux/internal/model"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps a decoded envelope with its receive
// timestamp. When the envelope arrives without a local_time, the
// timestamp becomes the message's LocalTime, which drives the adapter's
// timeout wheels.
type TimestampedMessage struct {
	Msg        *model.Message
	ReceivedAt time.Time
}

// ClientConfig holds configuration for a single WebSocket connection.
type ClientConfig struct {
	URL          string
	PingInterval time.Duration
	PingTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

// VenueConfig describes the venue's capabilities.
type VenueConfig struct {
	// SupportedResults lists the outbound message types the venue can
	// produce. Lookup kinds absent from this list get timeouts armed.
	SupportedResults []model.MessageType

	// SubscriptionBySecurity reports whether the venue keys market-data
	// subscriptions by security id.
	SubscriptionBySecurity bool
}
