package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML document into a MuxdConfig. ${VAR} references
// are expanded from the environment before decoding, so secrets stay
// out of the file.
func Parse(data []byte) (*MuxdConfig, error) {
	var cfg MuxdConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}

// Load reads and parses the config file at path. The result is raw:
// no defaults, no validation.
func Load(path string) (*MuxdConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// LoadAndValidate is the muxd entry point: load the file, fill in
// defaults, and reject anything invalid.
func LoadAndValidate(path string) (*MuxdConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
