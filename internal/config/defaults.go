package config

import (
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultLookupTimeout      = 10 * time.Second
	DefaultPingInterval       = 15 * time.Second
	DefaultPingTimeout        = 30 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultVenueBufferSize    = 1000
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 1000
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 10000
)

func (c *MuxdConfig) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = uuid.NewString()
	}

	// Venue defaults
	if c.Venue.PingInterval == 0 {
		c.Venue.PingInterval = DefaultPingInterval
	}
	if c.Venue.PingTimeout == 0 {
		c.Venue.PingTimeout = DefaultPingTimeout
	}
	if c.Venue.WriteTimeout == 0 {
		c.Venue.WriteTimeout = DefaultWriteTimeout
	}
	if c.Venue.BufferSize == 0 {
		c.Venue.BufferSize = DefaultVenueBufferSize
	}
	if c.Venue.ReconnectBaseDelay == 0 {
		c.Venue.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Venue.ReconnectMaxDelay == 0 {
		c.Venue.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	// Mux defaults
	if c.Mux.LookupTimeout == 0 {
		c.Mux.LookupTimeout = DefaultLookupTimeout
	}

	// Recorder defaults
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}
}
