package core

// DeviceType indicates the kind of rendering device.
type DeviceType string

const (
	DeviceTypeTV       DeviceType = "tv"
	DeviceTypeComputer DeviceType = "computer"
	DeviceTypeSpeaker  DeviceType = "speaker"
	DeviceTypeOther    DeviceType = "other"
)

// Backend indicates which player backend drives a device.
type Backend string

const (
	BackendMPV  Backend = "mpv"
	BackendUPnP Backend = "upnp"
	BackendSim  Backend = "sim"
)

// Device represents a discovered playback device.
type Device struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Type    DeviceType `json:"type"`
	Backend Backend    `json:"backend"`
	Address string     `json:"address"`
	Model   string     `json:"model"`
}
