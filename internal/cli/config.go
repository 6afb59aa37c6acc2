package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tessro/reel/internal/config"
	reelerrors "github.com/tessro/reel/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and editing reel configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration values, including defaults and environment overrides.`,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,

	Annotations: map[string]string{optionalConfig: "true"},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long:  `Open the configuration file in your default editor.`,
	RunE:  runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  `Create a new configuration file with default values.`,
	RunE:  runConfigInit,

	Annotations: map[string]string{optionalConfig: "true"},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Supported keys include:
  player.backend               mpv, upnp or sim
  player.device                Default UPnP renderer name, UUID or IP
  player.mpv_path              Path to the mpv executable
  playback.first_settle_delay  Settle delay before the first clip (ms)
  playback.settle_delay        Settle delay before later clips (ms)
  highlights.max_clips         Maximum clips per reel
  tail.no_emoji                Disable emoji in 'reel play' (true/false)
  tui.theme                    auto, dark or light
  log.level                    debug, info, warn or error

Examples:
  reel config set player.backend upnp
  reel config set playback.settle_delay 300`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,

	Annotations: map[string]string{optionalConfig: "true"},
}

var configSetDeviceCmd = &cobra.Command{
	Use:   "set-device",
	Short: "Interactively select default renderer",
	Long:  `Discovers UPnP renderers and shows a picker to select the default one.`,
	RunE:  runConfigSetDevice,

	Annotations: map[string]string{optionalConfig: "true"},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetDeviceCmd)
	rootCmd.AddCommand(configCmd)
}

// intKeys and boolKeys are the config keys that are not strings.
var (
	intKeys = map[string]bool{
		"playback.first_settle_delay": true,
		"playback.settle_delay":       true,
		"playback.ready_retries":      true,
		"playback.ready_backoff":      true,
		"playback.command_timeout":    true,
		"highlights.max_clips":        true,
		"highlights.min_duration":     true,
		"highlights.http_timeout":     true,
		"upnp.discovery_timeout":      true,
		"tail.interval":               true,
		"tui.refresh_interval":        true,
	}
	boolKeys = map[string]bool{
		"tail.no_emoji":  true,
		"tail.timestamp": true,
	}
)

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if JSONOutput() {
		return json.NewEncoder(out).Encode(cfg)
	}

	// Pretty print as TOML
	encoder := toml.NewEncoder(out)
	encoder.Indent = "  "
	return encoder.Encode(cfg)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	_, err := os.Stat(path)
	exists := err == nil

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return json.NewEncoder(out).Encode(map[string]any{
			"path":   path,
			"exists": exists,
		})
	}
	fmt.Fprintln(out, path)
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return reelerrors.WithSuggestion(
			fmt.Errorf("%w: %s", reelerrors.ErrConfigNotFound, configPath),
			"Run 'reel config init' first",
		)
	}

	// Find editor
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"nano", "vim", "vi", "notepad"} {
			if _, err := exec.LookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set EDITOR environment variable")
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	return editorCmd.Run()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", configPath)
	}

	if err := writeConfigFile(configPath, config.Default()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return json.NewEncoder(out).Encode(map[string]string{
			"status": "created",
			"path":   configPath,
		})
	}
	fmt.Fprintf(out, "Created config file: %s\n", configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Pick a player with 'reel config set player.backend mpv|upnp|sim'")
	fmt.Fprintln(out, "  2. For UPnP, run 'reel config set-device' to choose a renderer")
	return nil
}

// getConfigPath returns the file config commands read and write: the
// --config flag, else the first existing file, else the default location.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := config.FindConfigFile(); p != "" {
		return p
	}
	return config.DefaultPath()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := setConfigValue(getConfigPath(), key, value); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return json.NewEncoder(out).Encode(map[string]string{
			"status": "updated",
			"key":    key,
			"value":  value,
		})
	}
	fmt.Fprintf(out, "Set %s = %s\n", key, value)
	return nil
}

// setConfigValue updates one key in the TOML file at path, creating the
// file if needed. The result must still be a valid configuration.
func setConfigValue(path, key, value string) error {
	rawConfig := make(map[string]any)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(string(data), &rawConfig); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read config: %w", err)
	}

	// Parse the key (e.g., "player.device" -> ["player", "device"])
	parts := strings.Split(key, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid key format. Use 'section.key' (e.g., player.device)")
	}
	section, field := parts[0], parts[1]

	var typedValue any
	switch {
	case intKeys[key]:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("value must be an integer for %s", key)
		}
		typedValue = i
	case boolKeys[key]:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("value must be true or false for %s", key)
		}
		typedValue = b
	default:
		typedValue = value
	}

	sectionMap, ok := rawConfig[section].(map[string]any)
	if !ok {
		sectionMap = make(map[string]any)
		rawConfig[section] = sectionMap
	}
	sectionMap[field] = typedValue

	// Round-trip through Config so unknown keys and bad values are rejected
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rawConfig); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	var check config.Config
	md, err := toml.Decode(buf.String(), &check)
	if err != nil {
		return fmt.Errorf("%w: %w", reelerrors.ErrInvalidConfig, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown key %s", reelerrors.ErrInvalidConfig, undecoded[0])
	}
	check.ApplyDefaults()
	if err := check.Validate(); err != nil {
		return fmt.Errorf("%w: %w", reelerrors.ErrInvalidConfig, err)
	}

	return writeConfigFile(path, rawConfig)
}

func writeConfigFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintln(f, "# Reel Configuration")
	_, _ = fmt.Fprintln(f, "")

	encoder := toml.NewEncoder(f)
	encoder.Indent = "  "
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func runConfigSetDevice(cmd *cobra.Command, args []string) error {
	devices, err := discoverRenderers(cmd.Context())
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		return reelerrors.WithSuggestion(
			fmt.Errorf("%w: no renderers on the network", reelerrors.ErrDeviceNotFound),
			"Make sure the TV or renderer is on and on the same network",
		)
	}

	// Build options for picker
	var options []huh.Option[string]
	for _, d := range devices {
		label := d.Name
		if d.Model != "" {
			label = fmt.Sprintf("%s (%s)", d.Name, d.Model)
		}
		if d.Name == cfg.Player.Device || d.UUID == cfg.Player.Device {
			label += " [current]"
		}
		options = append(options, huh.NewOption(label, d.UUID))
	}

	var selectedID string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select default renderer").
				Description("Reels played with --player upnp go here unless --device is given").
				Options(options...).
				Value(&selectedID),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("selection cancelled: %w", err)
	}

	var deviceName string
	for _, d := range devices {
		if d.UUID == selectedID {
			deviceName = d.Name
			break
		}
	}

	return runConfigSet(cmd, []string{"player.device", deviceName})
}
