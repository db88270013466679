package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *MuxdConfig) Validate() error {
	if c.Venue.WSURL == "" {
		return errors.New("venue.ws_url is required")
	}

	if c.Mux.LookupTimeout < 0 {
		return errors.New("mux.lookup_timeout must be >= 0")
	}

	if c.Recorder.Enabled {
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
		if c.Recorder.BufferSize < 1 {
			return errors.New("recorder.buffer_size must be >= 1")
		}
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	for i, sub := range c.Subscriptions {
		switch sub.Type {
		case "market_data", "portfolio", "order_status", "portfolio_lookup":
		default:
			return fmt.Errorf("subscriptions[%d].type %q is not recognized", i, sub.Type)
		}
	}

	for i, lk := range c.Lookups {
		switch lk.Kind {
		case "securities", "boards", "time_frames", "portfolios":
		default:
			return fmt.Errorf("lookups[%d].kind %q is not recognized", i, lk.Kind)
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Port < 1 || db.Port > 65535 {
		return fmt.Errorf("%s.port must be between 1 and 65535, got %d", prefix, db.Port)
	}
	return nil
}
