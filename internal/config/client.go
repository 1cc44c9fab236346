package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig configures the seatpicker terminal client.  It is read from
// an optional YAML file; command-line flags override individual fields.
type ClientConfig struct {
	BaseURL      string        `yaml:"base_url"`
	FlightID     string        `yaml:"flight_id"`
	OrderID      string        `yaml:"order_id"`
	Token        string        `yaml:"token"`
	Feed         string        `yaml:"feed"` // sse, ws or poll
	PollInterval time.Duration `yaml:"poll_interval"`
	Rows         int           `yaml:"rows"`
	Cols         int           `yaml:"cols"`
	LogFile      string        `yaml:"log_file"`
}

// DefaultClientConfig returns the values used when neither the file nor
// the flags set a field.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:      "http://localhost:8080",
		FlightID:     "FL-001",
		Feed:         "sse",
		PollInterval: time.Second,
		Rows:         5,
		Cols:         6,
		LogFile:      "seatpicker.log",
	}
}

// LoadClient merges the YAML file at path over DefaultClientConfig.  An
// empty path or a missing file yields the defaults.
func LoadClient(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read client config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse client config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the client cannot run with.
func (c ClientConfig) Validate() error {
	switch c.Feed {
	case "sse", "ws", "poll":
	default:
		return fmt.Errorf("unknown feed %q (want sse, ws or poll)", c.Feed)
	}
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("invalid cabin layout %dx%d", c.Rows, c.Cols)
	}
	return nil
}
