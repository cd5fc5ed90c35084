package syncer

import (
	"fmt"
	"time"
)

// Config tunes a sync Engine.
type Config struct {
	// LocationMaxAge drops queued pings older than this instead of sending
	// them. Zero sends every ping regardless of age.
	LocationMaxAge time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		LocationMaxAge: time.Hour,
	}
}

func validateConfig(cfg Config) error {
	if cfg.LocationMaxAge < 0 {
		return fmt.Errorf("location max age must not be negative, got %s", cfg.LocationMaxAge)
	}
	return nil
}
