package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.reelrc, $XDG_CONFIG_HOME/reel/config.toml, ~/.config/reel/config.toml
func Load() (*Config, error) {
	cfg := &Config{}

	// Try loading from file
	path := FindConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Apply defaults, then environment variable overrides
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// FindConfigFile returns the first existing config file path.
func FindConfigFile() string {
	for _, p := range candidatePaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DefaultPath returns the path new config files are written to.
func DefaultPath() string {
	paths := candidatePaths()
	if len(paths) == 0 {
		return ".reelrc"
	}
	return paths[len(paths)-1]
}

func candidatePaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	paths := []string{
		filepath.Join(home, ".reelrc"),
	}

	// XDG_CONFIG_HOME or default
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	return append(paths, filepath.Join(xdgConfig, "reel", "config.toml"))
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Player
	if v := os.Getenv("REEL_PLAYER_BACKEND"); v != "" {
		cfg.Player.Backend = v
	}
	if v := os.Getenv("REEL_PLAYER_MPV_PATH"); v != "" {
		cfg.Player.MPVPath = v
	}
	if v := os.Getenv("REEL_PLAYER_DEVICE"); v != "" {
		cfg.Player.Device = v
	}

	// Playback
	setInt(&cfg.Playback.FirstSettleDelay, "REEL_PLAYBACK_FIRST_SETTLE_DELAY")
	setInt(&cfg.Playback.SettleDelay, "REEL_PLAYBACK_SETTLE_DELAY")
	setInt(&cfg.Playback.ReadyRetries, "REEL_PLAYBACK_READY_RETRIES")
	setInt(&cfg.Playback.ReadyBackoff, "REEL_PLAYBACK_READY_BACKOFF")

	// Highlights
	setInt(&cfg.Highlights.MaxClips, "REEL_HIGHLIGHTS_MAX_CLIPS")

	// UPnP
	setInt(&cfg.UPnP.DiscoveryTimeout, "REEL_UPNP_DISCOVERY_TIMEOUT")

	// TUI
	if v := os.Getenv("REEL_TUI_THEME"); v != "" {
		cfg.TUI.Theme = v
	}
	setInt(&cfg.TUI.RefreshInterval, "REEL_TUI_REFRESH_INTERVAL")

	// Log
	if v := os.Getenv("REEL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REEL_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
