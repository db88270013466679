package mux

import "time"

// DefaultLookupTimeout applies to all four lookup kinds unless overridden.
const DefaultLookupTimeout = 10 * time.Second

// Options controls adapter behavior.
type Options struct {
	// RestoreOnErrorReconnect re-issues captured subscriptions after an
	// error-driven reconnect (on Connect success or ReconnectingFinished).
	RestoreOnErrorReconnect bool

	// RestoreOnNormalReconnect re-issues subscriptions captured at a
	// clean Disconnect on the next Connect success.
	RestoreOnNormalReconnect bool

	// SupportMultipleSubscriptions forwards duplicate subscribes for an
	// already-live key as history-only requests instead of absorbing them.
	SupportMultipleSubscriptions bool

	// NonExistSubscriptionAsError turns an unsubscribe for an unknown
	// subscription into an error ack instead of an info log.
	NonExistSubscriptionAsError bool

	// LookupTimeout is the countdown applied to lookups whose result
	// type the venue does not support. Must be >= 0; zero disables.
	LookupTimeout time.Duration
}

// DefaultOptions returns the default adapter options.
func DefaultOptions() Options {
	return Options{
		LookupTimeout: DefaultLookupTimeout,
	}
}
