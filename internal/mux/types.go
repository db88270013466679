package mux

import (
	"errors"
	"fmt"

	"github.com/rickgao/submux/internal/model"
)

// Downstream is the venue-side port the adapter forwards into.
type Downstream interface {
	// SendIn forwards a message to the venue transport.
	SendIn(*model.Message) error

	// SupportsOut reports whether the venue can produce the given
	// outbound message type. Used to decide whether lookup timeouts
	// must be armed.
	SupportsOut(model.MessageType) bool

	// NextTxID returns the next transaction id from the process-wide
	// monotonic generator.
	NextTxID() model.TxID

	// SubscriptionBySecurity reports whether the venue keys market-data
	// subscriptions by security. When false, security ids are zeroed
	// out of subscription keys.
	SubscriptionBySecurity() bool
}

// UpstreamSink is the client-side port the adapter raises into.
type UpstreamSink interface {
	// RaiseNewOut delivers an outbound message to the client layer.
	RaiseNewOut(*model.Message)

	// OnSendIn re-enters a message into the inbound pipeline. Used for
	// reconnect replay and lookup queue drains, with IsBack set and the
	// adapter bound as sender.
	OnSendIn(*model.Message)
}

// ErrInvalidInterval is returned when a configured lookup timeout is
// negative.
var ErrInvalidInterval = errors.New("lookup timeout must be >= 0")

// UnsupportedMessageError is returned when outbound tagging reaches a
// message variant it does not understand. Surfaced as a hard fault to
// ease shakeout during integration.
type UnsupportedMessageError struct {
	Type model.MessageType
	Exec model.ExecutionType
}

func (e *UnsupportedMessageError) Error() string {
	if e.Exec != "" {
		return fmt.Sprintf("unsupported message: %s/%s", e.Type, e.Exec)
	}
	return fmt.Sprintf("unsupported message: %s", e.Type)
}

// Stats contains runtime statistics.
type Stats struct {
	MarketDataKeys   int
	NewsBoardKeys    int
	Portfolios       int
	OrderStatuses    int
	PortfolioLookups int
	PassThrough      int
	HistoryOnly      int
	PendingReplay    int
	QueuedLookups    int

	MessagesIn      int64
	MessagesOut     int64
	AcksSynthesized int64
	LookupsQueued   int64
	TimeoutsFired   int64
	Replays         int64
}
