package schema

import (
	"errors"
	"time"
)

// CoordinatorConfig tunes the delivery coordinator.
type CoordinatorConfig struct {
	// OpenTimeout bounds how long an open attempt may stay unconfirmed before
	// queued actions are force-delivered.
	OpenTimeout time.Duration
	// DebounceWindow drops identical payloads arriving within the window.
	// Zero selects the default; a negative window disables debouncing.
	DebounceWindow time.Duration
	// DeliveredIDMemory is how many delivered action ids are remembered for
	// duplicate suppression.
	DeliveredIDMemory int
}

const (
	// DefaultOpenTimeout is the recommended open-timeout.
	DefaultOpenTimeout = 800 * time.Millisecond
	// DefaultDebounceWindow is the recommended debounce window.
	DefaultDebounceWindow = 1000 * time.Millisecond
	// DefaultDeliveredIDMemory is the default delivered-id memory size.
	DefaultDeliveredIDMemory = 256
	// DebounceDisabled turns off debouncing when used as DebounceWindow.
	DebounceDisabled time.Duration = -1
)

// NormalizeCoordinatorConfig applies defaults and validates the config.
func NormalizeCoordinatorConfig(cfg CoordinatorConfig) (CoordinatorConfig, error) {
	if cfg.OpenTimeout < 0 || cfg.DeliveredIDMemory < 0 {
		return CoordinatorConfig{}, errors.New("coordinator open timeout and delivered id memory must not be negative")
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.DebounceWindow == 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.DeliveredIDMemory == 0 {
		cfg.DeliveredIDMemory = DefaultDeliveredIDMemory
	}
	return cfg, nil
}
