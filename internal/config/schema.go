package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Player     PlayerConfig     `toml:"player"`
	Playback   PlaybackConfig   `toml:"playback"`
	Highlights HighlightsConfig `toml:"highlights"`
	UPnP       UPnPConfig       `toml:"upnp"`
	Tail       TailConfig       `toml:"tail"`
	TUI        TUIConfig        `toml:"tui"`
	Log        LogConfig        `toml:"log"`
}

// PlayerConfig selects and configures the player backend.
type PlayerConfig struct {
	Backend   string `toml:"backend"`
	MPVPath   string `toml:"mpv_path"`
	SocketDir string `toml:"socket_dir"`
	Device    string `toml:"device"`
}

// PlaybackConfig holds the timing of the playback engine. All values are
// in milliseconds.
type PlaybackConfig struct {
	FirstSettleDelay int `toml:"first_settle_delay"`
	SettleDelay      int `toml:"settle_delay"`
	ReadyRetries     int `toml:"ready_retries"`
	ReadyBackoff     int `toml:"ready_backoff"`
	CommandTimeout   int `toml:"command_timeout"`
}

// HighlightsConfig controls how highlight documents are loaded.
type HighlightsConfig struct {
	MaxClips    int `toml:"max_clips"`
	MinDuration int `toml:"min_duration"`
	HTTPTimeout int `toml:"http_timeout"`
}

// UPnPConfig holds renderer discovery settings.
type UPnPConfig struct {
	DiscoveryTimeout int `toml:"discovery_timeout"`

	// Aliases maps short names to renderer UUIDs or IPs.
	Aliases map[string]string `toml:"aliases"`
}

// TailConfig holds settings for event output in `reel play`.
type TailConfig struct {
	NoEmoji   bool `toml:"no_emoji"`
	Timestamp bool `toml:"timestamp"`
	Interval  int  `toml:"interval"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme           string `toml:"theme"`
	RefreshInterval int    `toml:"refresh_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// FirstSettle returns the settling delay before the first segment.
func (c PlaybackConfig) FirstSettle() time.Duration { return ms(c.FirstSettleDelay) }

// Settle returns the settling delay before every later segment.
func (c PlaybackConfig) Settle() time.Duration { return ms(c.SettleDelay) }

// Backoff returns the wait between readiness retries.
func (c PlaybackConfig) Backoff() time.Duration { return ms(c.ReadyBackoff) }

// Timeout returns the per-command timeout.
func (c PlaybackConfig) Timeout() time.Duration { return ms(c.CommandTimeout) }
