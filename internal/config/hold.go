package config

import "time"

// HoldConfig controls how long seat holds last and how often expired holds
// are swept.  Every seat update refreshes the hold of the whole order.
type HoldConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// LoadHoldConfig reads HOLD_TTL (default 15m) and HOLD_SWEEP_INTERVAL
// (default 5s).
func LoadHoldConfig() HoldConfig {
	cfg := HoldConfig{
		TTL:           envDur("HOLD_TTL", 15*time.Minute),
		SweepInterval: envDur("HOLD_SWEEP_INTERVAL", 5*time.Second),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Second
	}
	return cfg
}
