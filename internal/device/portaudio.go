package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Compile-time assertion that PortAudioCatalog implements Catalog.
var _ Catalog = (*PortAudioCatalog)(nil)

// PortAudioCatalog lists devices through the PortAudio host bindings.
// portaudio.Initialize must have been called before use.
type PortAudioCatalog struct{}

// NewPortAudioCatalog returns a catalog backed by PortAudio.
func NewPortAudioCatalog() *PortAudioCatalog {
	return &PortAudioCatalog{}
}

// Devices implements Catalog.
func (c *PortAudioCatalog) Devices(_ context.Context) ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("device: portaudio devices: %w", err)
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = fromInfo(i, info)
	}
	return devices, nil
}

// DefaultInput implements Catalog.
func (c *PortAudioCatalog) DefaultInput(_ context.Context) (Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("device: portaudio default input: %w", ErrNoInputDevice)
	}
	return fromInfo(c.indexOf(info), info), nil
}

// DefaultOutput implements Catalog.
func (c *PortAudioCatalog) DefaultOutput(_ context.Context) (Device, error) {
	info, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("device: portaudio default output: %w", err)
	}
	return fromInfo(c.indexOf(info), info), nil
}

// indexOf recovers a device's enumeration index by pointer identity;
// DeviceInfo does not expose its index.
func (c *PortAudioCatalog) indexOf(info *portaudio.DeviceInfo) int {
	if infos, err := portaudio.Devices(); err == nil {
		for i, candidate := range infos {
			if candidate == info {
				return i
			}
		}
	}
	return 0
}

// fromInfo maps a PortAudio device record to a Device.
func fromInfo(index int, info *portaudio.DeviceInfo) Device {
	d := Device{
		Index:             index,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
	}
	if info.HostApi != nil {
		d.HostAPI = info.HostApi.Name
		d.HostAPILoopback = hostAPISupportsLoopback(info.HostApi.Name)
	}
	return d
}

// hostAPISupportsLoopback reports whether the host API can capture playback
// directly. WASAPI exposes render endpoints as capture devices in loopback
// mode.
func hostAPISupportsLoopback(name string) bool {
	return strings.Contains(strings.ToLower(name), "wasapi")
}
