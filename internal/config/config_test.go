package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("basic loading", func(t *testing.T) {
		yaml := `
instance:
  id: test-muxd
venue:
  ws_url: wss://gateway.example.com/stream
  subscription_by_security: true
  supported_results:
    - security_lookup_result
mux:
  restore_on_normal_reconnect: true
subscriptions:
  - type: market_data
    data_type: trades
    security_code: SBER
    security_board: TQBR
lookups:
  - kind: securities
`
		path := writeTempFile(t, yaml)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if cfg.Instance.ID != "test-muxd" {
			t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-muxd")
		}
		if cfg.Venue.WSURL != "wss://gateway.example.com/stream" {
			t.Errorf("Venue.WSURL = %q", cfg.Venue.WSURL)
		}
		if !cfg.Venue.SubscriptionBySecurity {
			t.Error("Venue.SubscriptionBySecurity should be true")
		}
		if !cfg.Mux.RestoreOnNormalReconnect {
			t.Error("Mux.RestoreOnNormalReconnect should be true")
		}
		if len(cfg.Subscriptions) != 1 || cfg.Subscriptions[0].SecurityCode != "SBER" {
			t.Errorf("Subscriptions = %+v", cfg.Subscriptions)
		}
		if len(cfg.Lookups) != 1 || cfg.Lookups[0].Kind != "securities" {
			t.Errorf("Lookups = %+v", cfg.Lookups)
		}
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := Load("/nonexistent/path/config.yaml")
		if err == nil {
			t.Fatal("expected error for nonexistent file")
		}
		if !strings.Contains(err.Error(), "read config file") {
			t.Errorf("error should mention 'read config file', got %v", err)
		}
	})

	t.Run("env expansion", func(t *testing.T) {
		t.Setenv("TEST_MUXD_URL", "wss://expanded.example.com")
		yaml := `
venue:
  ws_url: ${TEST_MUXD_URL}
`
		path := writeTempFile(t, yaml)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Venue.WSURL != "wss://expanded.example.com" {
			t.Errorf("Venue.WSURL = %q, want expanded value", cfg.Venue.WSURL)
		}
	})
}

func TestApplyDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
venue:
  ws_url: wss://gateway.example.com/stream
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cfg.applyDefaults()

	if cfg.Instance.ID == "" {
		t.Error("Instance.ID should default to a generated id")
	}
	if cfg.Mux.LookupTimeout != 10*time.Second {
		t.Errorf("Mux.LookupTimeout = %v, want 10s", cfg.Mux.LookupTimeout)
	}
	if cfg.Venue.PingInterval != DefaultPingInterval {
		t.Errorf("Venue.PingInterval = %v, want default", cfg.Venue.PingInterval)
	}
	if cfg.Recorder.BatchSize != DefaultBatchSize {
		t.Errorf("Recorder.BatchSize = %d, want default", cfg.Recorder.BatchSize)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default", cfg.Database.Port)
	}
}

func TestValidate(t *testing.T) {
	base := func() *MuxdConfig {
		return &MuxdConfig{
			Venue: VenueConfig{WSURL: "wss://gateway.example.com"},
			Mux:   MuxConfig{LookupTimeout: 10 * time.Second},
		}
	}

	t.Run("valid", func(t *testing.T) {
		if err := base().Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("missing ws_url", func(t *testing.T) {
		cfg := base()
		cfg.Venue.WSURL = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing ws_url")
		}
	})

	t.Run("negative lookup timeout", func(t *testing.T) {
		cfg := base()
		cfg.Mux.LookupTimeout = -1 * time.Second
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for negative lookup_timeout")
		}
	})

	t.Run("recorder requires database", func(t *testing.T) {
		cfg := base()
		cfg.Recorder = RecorderConfig{Enabled: true, BatchSize: 100, BufferSize: 100}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for recorder without database")
		}
	})

	t.Run("unknown subscription type", func(t *testing.T) {
		cfg := base()
		cfg.Subscriptions = []SubscriptionConfig{{Type: "bogus"}}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown subscription type")
		}
	})

	t.Run("unknown lookup kind", func(t *testing.T) {
		cfg := base()
		cfg.Lookups = []LookupConfig{{Kind: "bogus"}}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown lookup kind")
		}
	})
}
