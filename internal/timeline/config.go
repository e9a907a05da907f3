package timeline

import (
	"fmt"
	"time"
)

const maxCapacity = 1000000

// Config holds the tunable settings for the timeline service.
type Config struct {
	// Capacity is the maximum buffered entry count (default: 100)
	Capacity int `json:"capacity" yaml:"capacity"`

	// ListenAddr for the HTTP API (default: ":8080")
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// ShutdownTimeout for graceful HTTP shutdown (default: 10s)
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Capacity:        DefaultCapacity,
		ListenAddr:      ":8080",
		ShutdownTimeout: 10 * time.Second,
	}
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Validate performs configuration validation.
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.Capacity > maxCapacity {
		return fmt.Errorf("capacity too large, got %d (max: %d)", c.Capacity, maxCapacity)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr cannot be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %v", c.ShutdownTimeout)
	}
	return nil
}
