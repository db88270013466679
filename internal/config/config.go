package config

import "time"

// MuxdConfig is the root configuration for a muxd instance.
type MuxdConfig struct {
	Instance      InstanceConfig       `yaml:"instance"`
	Venue         VenueConfig          `yaml:"venue"`
	Mux           MuxConfig            `yaml:"mux"`
	Recorder      RecorderConfig       `yaml:"recorder"`
	Database      DBConfig             `yaml:"database"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
	Lookups       []LookupConfig       `yaml:"lookups"`
}

// InstanceConfig identifies this muxd.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// VenueConfig holds the venue connection settings and capability set.
type VenueConfig struct {
	WSURL                  string        `yaml:"ws_url"`
	SubscriptionBySecurity bool          `yaml:"subscription_by_security"`
	SupportedResults       []string      `yaml:"supported_results"`
	PingInterval           time.Duration `yaml:"ping_interval"`
	PingTimeout            time.Duration `yaml:"ping_timeout"`
	WriteTimeout           time.Duration `yaml:"write_timeout"`
	BufferSize             int           `yaml:"buffer_size"`
	ReconnectBaseDelay     time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay      time.Duration `yaml:"reconnect_max_delay"`
}

// MuxConfig holds the adapter options.
type MuxConfig struct {
	RestoreOnErrorReconnect      bool          `yaml:"restore_on_error_reconnect"`
	RestoreOnNormalReconnect     bool          `yaml:"restore_on_normal_reconnect"`
	SupportMultipleSubscriptions bool          `yaml:"support_multiple_subscriptions"`
	NonExistSubscriptionAsError  bool          `yaml:"non_exist_subscription_as_error"`
	LookupTimeout                time.Duration `yaml:"lookup_timeout"`
}

// RecorderConfig holds data recorder settings.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SubscriptionConfig declares one subscription to establish on startup.
type SubscriptionConfig struct {
	Type          string `yaml:"type"` // market_data, portfolio, order_status, portfolio_lookup
	DataType      string `yaml:"data_type"`
	SecurityCode  string `yaml:"security_code"`
	SecurityBoard string `yaml:"security_board"`
	Arg           string `yaml:"arg"`
	NewsID        string `yaml:"news_id"`
	BoardCode     string `yaml:"board_code"`
	PortfolioName string `yaml:"portfolio_name"`
}

// LookupConfig declares one lookup to issue on startup.
type LookupConfig struct {
	Kind string `yaml:"kind"` // securities, boards, time_frames, portfolios
}
