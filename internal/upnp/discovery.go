package upnp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tessro/reel/internal/core"
)

const (
	ssdpAddr    = "239.255.255.250:1900"
	rendererURN = "urn:schemas-upnp-org:device:MediaRenderer:1"
	defaultTTL  = 5 * time.Minute
)

var mSearchRequest = []byte(
	"M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 2\r\n" +
		"ST: " + rendererURN + "\r\n" +
		"\r\n",
)

// Device represents a discovered media renderer.
type Device struct {
	IP         string    `json:"ip"`
	UUID       string    `json:"uuid"`
	Model      string    `json:"model"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	ControlURL string    `json:"control_url"`
	LastSeen   time.Time `json:"last_seen"`
}

// Core converts the renderer to a core.Device.
func (d *Device) Core() core.Device {
	return core.Device{
		ID:      d.UUID,
		Name:    d.Name,
		Type:    core.DeviceTypeTV,
		Backend: core.BackendUPnP,
		Address: d.IP,
		Model:   d.Model,
	}
}

// Discovery handles renderer discovery via SSDP.
type Discovery struct {
	timeout time.Duration
	ttl     time.Duration
	http    *http.Client

	mu      sync.RWMutex
	devices map[string]*Device // keyed by UUID
	aliases map[string]string  // alias -> UUID
}

// NewDiscovery creates a new Discovery instance.
func NewDiscovery(timeout time.Duration) *Discovery {
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &Discovery{
		timeout: timeout,
		ttl:     defaultTTL,
		http:    &http.Client{Timeout: 5 * time.Second},
		devices: make(map[string]*Device),
		aliases: make(map[string]string),
	}
}

// SetAlias maps an alias name to a device UUID or IP.
func (d *Discovery) SetAlias(alias, target string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aliases[strings.ToLower(alias)] = target
}

// Discover performs SSDP discovery and returns every renderer that
// exposes an AVTransport service.
func (d *Discovery) Discover(ctx context.Context) ([]*Device, error) {
	addr, err := net.ResolveUDPAddr("udp4", ssdpAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve ssdp addr: %w", err)
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(d.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetReadDeadline(deadline)

	if _, err := conn.WriteToUDP(mSearchRequest, addr); err != nil {
		return nil, fmt.Errorf("send m-search: %w", err)
	}

	var found []*Device
	seen := make(map[string]bool)
	buf := make([]byte, 2048)

	for {
		select {
		case <-ctx.Done():
			return found, ctx.Err()
		default:
		}

		n, remoteAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break
			}
			continue
		}

		device, err := parseResponse(buf[:n], remoteAddr)
		if err != nil || device == nil || seen[device.UUID] {
			continue
		}
		seen[device.UUID] = true
		found = append(found, device)
	}

	// Descriptions are fetched after the SSDP window so slow HTTP servers
	// don't eat into it.
	var devices []*Device
	for _, device := range found {
		if err := d.describe(ctx, device); err != nil {
			continue
		}
		device.LastSeen = time.Now()
		devices = append(devices, device)

		d.mu.Lock()
		d.devices[device.UUID] = device
		d.mu.Unlock()
	}

	return devices, nil
}

// GetDevice returns a cached device by UUID, name, IP, or alias.
func (d *Discovery) GetDevice(identifier string) *Device {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if target, ok := d.aliases[strings.ToLower(identifier)]; ok {
		identifier = target
	}

	if dev, ok := d.devices[identifier]; ok {
		if time.Since(dev.LastSeen) < d.ttl {
			return dev
		}
	}

	for _, dev := range d.devices {
		if time.Since(dev.LastSeen) >= d.ttl {
			continue
		}
		if strings.EqualFold(dev.Name, identifier) || dev.IP == identifier {
			return dev
		}
	}

	return nil
}

// CachedDevices returns all cached devices that haven't expired.
func (d *Discovery) CachedDevices() []*Device {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var devices []*Device
	now := time.Now()
	for _, dev := range d.devices {
		if now.Sub(dev.LastSeen) < d.ttl {
			devices = append(devices, dev)
		}
	}
	return devices
}

// describe fetches the device description document and fills in the
// friendly name, model and AVTransport control URL.
func (d *Discovery) describe(ctx context.Context, device *Device) error {
	req, err := http.NewRequestWithContext(ctx, "GET", device.Location, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch description: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch description: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read description: %w", err)
	}
	return parseDescription(body, device)
}

type description struct {
	URLBase string `xml:"URLBase"`
	Device  struct {
		FriendlyName string `xml:"friendlyName"`
		ModelName    string `xml:"modelName"`
		UDN          string `xml:"UDN"`
		Services     []struct {
			ServiceType string `xml:"serviceType"`
			ControlURL  string `xml:"controlURL"`
		} `xml:"serviceList>service"`
	} `xml:"device"`
}

// parseDescription reads a UPnP device description into device.
func parseDescription(data []byte, device *Device) error {
	var desc description
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&desc); err != nil {
		return fmt.Errorf("parse description: %w", err)
	}

	base := desc.URLBase
	if base == "" {
		base = device.Location
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}

	for _, svc := range desc.Device.Services {
		if svc.ServiceType != AVTransportService {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(svc.ControlURL))
		if err != nil {
			return fmt.Errorf("parse control url: %w", err)
		}
		device.ControlURL = baseURL.ResolveReference(ref).String()
	}
	if device.ControlURL == "" {
		return fmt.Errorf("device %s has no AVTransport service", device.UUID)
	}

	device.Name = desc.Device.FriendlyName
	device.Model = desc.Device.ModelName
	if udn := strings.TrimPrefix(desc.Device.UDN, "uuid:"); udn != "" {
		device.UUID = udn
	}
	return nil
}

// parseResponse parses an SSDP response into a Device.
func parseResponse(data []byte, addr *net.UDPAddr) (*Device, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.Header.Get("ST") != rendererURN {
		return nil, nil
	}

	location := resp.Header.Get("Location")
	uuid := extractUUID(resp.Header.Get("USN"))
	if uuid == "" || location == "" {
		return nil, nil
	}

	return &Device{
		IP:       addr.IP.String(),
		UUID:     uuid,
		Location: location,
	}, nil
}

// extractUUID extracts the UUID from a USN header.
func extractUUID(usn string) string {
	// Format: uuid:xxxx::urn:schemas-upnp-org:device:MediaRenderer:1
	if !strings.HasPrefix(usn, "uuid:") {
		return ""
	}
	parts := strings.Split(usn, "::")
	return strings.TrimPrefix(parts[0], "uuid:")
}
