package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tessro/reel/internal/core"
	"github.com/tessro/reel/internal/upnp"
)

var devicesTimeout int

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List UPnP renderers on the network",
	Long: `Search the local network for UPnP/DLNA media renderers that can play
a reel with --player upnp.`,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().IntVar(&devicesTimeout, "timeout", 0, "discovery timeout in seconds (default from config)")
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := discoverRenderers(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return outputDevicesJSON(out, devices)
	}
	outputDevicesTable(out, devices, cfg.Player.Device)
	return nil
}

func discoverRenderers(ctx context.Context) ([]*upnp.Device, error) {
	timeout := cfg.UPnP.DiscoveryTimeout
	if devicesTimeout > 0 {
		timeout = devicesTimeout
	}

	client := newUPnPClient(cfg, timeout)
	devices, err := client.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover renderers: %w", err)
	}
	return devices, nil
}

func outputDevicesJSON(out io.Writer, devices []*upnp.Device) error {
	output := make([]core.Device, 0, len(devices))
	for _, d := range devices {
		output = append(output, d.Core())
	}
	return json.NewEncoder(out).Encode(output)
}

func outputDevicesTable(out io.Writer, devices []*upnp.Device, defaultDevice string) {
	if len(devices) == 0 {
		fmt.Fprintln(out, "No renderers found")
		return
	}

	fmt.Fprintln(out, "[UPNP]")
	for _, d := range devices {
		marker := ""
		if defaultDevice != "" && (d.Name == defaultDevice || d.UUID == defaultDevice || d.IP == defaultDevice) {
			marker = " ★"
		}
		fmt.Fprintf(out, "  📺 %s%s\n", d.Name, marker)

		if Verbose() {
			fmt.Fprintf(out, "      UUID: %s\n", d.UUID)
			fmt.Fprintf(out, "      Address: %s\n", d.IP)
			if d.Model != "" {
				fmt.Fprintf(out, "      Model: %s\n", d.Model)
			}
			fmt.Fprintf(out, "      Control: %s\n", d.ControlURL)
		}
	}
}
