package upnp

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"
)

// Transport states reported by GetTransportInfo.
const (
	StateStopped        = "STOPPED"
	StatePlaying        = "PLAYING"
	StatePaused         = "PAUSED_PLAYBACK"
	StateTransitioning  = "TRANSITIONING"
	StateNoMediaPresent = "NO_MEDIA_PRESENT"
)

var instance = Arg{Name: "InstanceID", Value: "0"}

// Client provides AVTransport control of media renderers.
type Client struct {
	discovery *Discovery
	soap      *SOAPClient
}

// NewClient creates a new renderer client.
func NewClient(discoveryTimeout time.Duration) *Client {
	return &Client{
		discovery: NewDiscovery(discoveryTimeout),
		soap:      NewSOAPClient(),
	}
}

// Discover finds all media renderers on the network.
func (c *Client) Discover(ctx context.Context) ([]*Device, error) {
	return c.discovery.Discover(ctx)
}

// GetDevice returns a device by identifier (UUID, name, IP, or alias).
func (c *Client) GetDevice(identifier string) *Device {
	return c.discovery.GetDevice(identifier)
}

// SetAlias maps an alias to a device.
func (c *Client) SetAlias(alias, target string) {
	c.discovery.SetAlias(alias, target)
}

// TransportInfo contains playback transport state.
type TransportInfo struct {
	CurrentTransportState  string `xml:"CurrentTransportState"`
	CurrentTransportStatus string `xml:"CurrentTransportStatus"`
	CurrentSpeed           string `xml:"CurrentSpeed"`
}

// GetTransportInfo retrieves the current transport state.
func (c *Client) GetTransportInfo(ctx context.Context, device *Device) (*TransportInfo, error) {
	resp, err := c.call(ctx, device, "GetTransportInfo", instance)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Body struct {
			Response TransportInfo `xml:"GetTransportInfoResponse"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(resp, &envelope); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &envelope.Body.Response, nil
}

// PositionInfo contains the playhead position of the loaded media.
type PositionInfo struct {
	Track         int    `xml:"Track"`
	TrackDuration string `xml:"TrackDuration"`
	TrackMetaData string `xml:"TrackMetaData"`
	TrackURI      string `xml:"TrackURI"`
	RelTime       string `xml:"RelTime"`
	AbsTime       string `xml:"AbsTime"`
}

// GetPositionInfo retrieves the current playhead position.
func (c *Client) GetPositionInfo(ctx context.Context, device *Device) (*PositionInfo, error) {
	resp, err := c.call(ctx, device, "GetPositionInfo", instance)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Body struct {
			Response PositionInfo `xml:"GetPositionInfoResponse"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(resp, &envelope); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &envelope.Body.Response, nil
}

// SetAVTransportURI loads a media URI without starting playback.
func (c *Client) SetAVTransportURI(ctx context.Context, device *Device, uri, metadata string) error {
	_, err := c.call(ctx, device, "SetAVTransportURI",
		instance,
		Arg{Name: "CurrentURI", Value: uri},
		Arg{Name: "CurrentURIMetaData", Value: metadata},
	)
	return err
}

// Play starts playback.
func (c *Client) Play(ctx context.Context, device *Device) error {
	_, err := c.call(ctx, device, "Play", instance, Arg{Name: "Speed", Value: "1"})
	return err
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context, device *Device) error {
	_, err := c.call(ctx, device, "Pause", instance)
	return err
}

// Stop stops playback.
func (c *Client) Stop(ctx context.Context, device *Device) error {
	_, err := c.call(ctx, device, "Stop", instance)
	return err
}

// Seek seeks to a relative time target formatted as H:MM:SS.
func (c *Client) Seek(ctx context.Context, device *Device, target string) error {
	_, err := c.call(ctx, device, "Seek",
		instance,
		Arg{Name: "Unit", Value: "REL_TIME"},
		Arg{Name: "Target", Value: target},
	)
	return err
}

func (c *Client) call(ctx context.Context, device *Device, action string, args ...Arg) ([]byte, error) {
	return c.soap.Call(ctx, device.ControlURL, AVTransportService, action, args)
}
