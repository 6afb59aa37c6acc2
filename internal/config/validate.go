package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Player.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("player: %w", err))
	}
	if err := c.Playback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("playback: %w", err))
	}
	if err := c.Highlights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("highlights: %w", err))
	}
	if err := c.UPnP.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("upnp: %w", err))
	}
	if err := c.Tail.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tail: %w", err))
	}
	if err := c.TUI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tui: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks PlayerConfig for errors.
func (c *PlayerConfig) Validate() error {
	switch c.Backend {
	case "", "mpv", "upnp", "sim":
		// valid
	default:
		return fmt.Errorf("invalid backend: %s (must be mpv, upnp, or sim)", c.Backend)
	}
	return nil
}

// Validate checks PlaybackConfig for errors.
func (c *PlaybackConfig) Validate() error {
	if c.FirstSettleDelay < 0 || c.SettleDelay < 0 {
		return errors.New("settle delays must be non-negative")
	}
	if c.ReadyRetries < 0 {
		return errors.New("ready_retries must be non-negative")
	}
	if c.ReadyBackoff < 0 {
		return errors.New("ready_backoff must be non-negative")
	}
	if c.CommandTimeout < 0 {
		return errors.New("command_timeout must be non-negative")
	}
	return nil
}

// Validate checks HighlightsConfig for errors.
func (c *HighlightsConfig) Validate() error {
	if c.MaxClips < 0 {
		return errors.New("max_clips must be non-negative")
	}
	if c.MinDuration < 0 {
		return errors.New("min_duration must be non-negative")
	}
	if c.HTTPTimeout < 0 {
		return errors.New("http_timeout must be non-negative")
	}
	return nil
}

// Validate checks UPnPConfig for errors.
func (c *UPnPConfig) Validate() error {
	if c.DiscoveryTimeout < 0 {
		return errors.New("discovery_timeout must be non-negative")
	}
	return nil
}

// Validate checks TailConfig for errors.
func (c *TailConfig) Validate() error {
	if c.Interval < 0 {
		return errors.New("interval must be non-negative")
	}
	return nil
}

// Validate checks TUIConfig for errors.
func (c *TUIConfig) Validate() error {
	switch c.Theme {
	case "", "auto", "dark", "light":
		// valid
	default:
		return fmt.Errorf("invalid theme: %s (must be auto, dark, or light)", c.Theme)
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	return nil
}
