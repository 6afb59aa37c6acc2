package config

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Player: PlayerConfig{
			Backend: "mpv",
			MPVPath: "mpv",
		},
		Playback: PlaybackConfig{
			FirstSettleDelay: 500,
			SettleDelay:      200,
			ReadyRetries:     5,
			ReadyBackoff:     1000,
			CommandTimeout:   3000,
		},
		Highlights: HighlightsConfig{
			MaxClips:    10,
			MinDuration: 1000,
			HTTPTimeout: 30000,
		},
		UPnP: UPnPConfig{
			DiscoveryTimeout: 3,
		},
		Tail: TailConfig{
			NoEmoji:   false,
			Timestamp: false,
			Interval:  1000,
		},
		TUI: TUIConfig{
			Theme:           "auto",
			RefreshInterval: 500,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Player
	if c.Player.Backend == "" {
		c.Player.Backend = d.Player.Backend
	}
	if c.Player.MPVPath == "" {
		c.Player.MPVPath = d.Player.MPVPath
	}

	// Playback
	if c.Playback.FirstSettleDelay == 0 {
		c.Playback.FirstSettleDelay = d.Playback.FirstSettleDelay
	}
	if c.Playback.SettleDelay == 0 {
		c.Playback.SettleDelay = d.Playback.SettleDelay
	}
	if c.Playback.ReadyRetries == 0 {
		c.Playback.ReadyRetries = d.Playback.ReadyRetries
	}
	if c.Playback.ReadyBackoff == 0 {
		c.Playback.ReadyBackoff = d.Playback.ReadyBackoff
	}
	if c.Playback.CommandTimeout == 0 {
		c.Playback.CommandTimeout = d.Playback.CommandTimeout
	}

	// Highlights
	if c.Highlights.MaxClips == 0 {
		c.Highlights.MaxClips = d.Highlights.MaxClips
	}
	if c.Highlights.MinDuration == 0 {
		c.Highlights.MinDuration = d.Highlights.MinDuration
	}
	if c.Highlights.HTTPTimeout == 0 {
		c.Highlights.HTTPTimeout = d.Highlights.HTTPTimeout
	}

	// UPnP
	if c.UPnP.DiscoveryTimeout == 0 {
		c.UPnP.DiscoveryTimeout = d.UPnP.DiscoveryTimeout
	}

	// Tail
	if c.Tail.Interval == 0 {
		c.Tail.Interval = d.Tail.Interval
	}

	// TUI
	if c.TUI.Theme == "" {
		c.TUI.Theme = d.TUI.Theme
	}
	if c.TUI.RefreshInterval == 0 {
		c.TUI.RefreshInterval = d.TUI.RefreshInterval
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}
