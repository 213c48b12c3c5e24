// Package device enumerates audio capture devices and resolves the
// configured source mode to a concrete device.
//
// Source resolution is a cascade. For system or mixed capture it prefers a
// loopback-named device (Stereo Mix and friends), then the host API's
// loopback capture of the default output, and finally falls back to the
// default microphone with a [WarnLoopbackUnavailable] warning so the session
// can still record.
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoInputDevice reports that no audio input device is available at all.
var ErrNoInputDevice = errors.New("device: no audio input device available")

// Mode selects which audio signal to capture.
type Mode string

const (
	// ModeMicrophone captures the default input device.
	ModeMicrophone Mode = "microphone"

	// ModeSystem captures system playback via a loopback device.
	ModeSystem Mode = "system"

	// ModeBoth captures system playback mixed with the microphone. Loopback
	// mixer devices (Stereo Mix) already carry both signals, so resolution
	// is identical to ModeSystem.
	ModeBoth Mode = "both"
)

// Device describes one audio device as reported by the host.
type Device struct {
	// Index is the host's device index, stable for the lifetime of the
	// audio subsystem.
	Index int

	// Name is the host-reported device name.
	Name string

	// MaxInputChannels is the highest input channel count the device
	// supports. Zero means the device is output-only.
	MaxInputChannels int

	// MaxOutputChannels is the highest output channel count.
	MaxOutputChannels int

	// DefaultSampleRate is the device's preferred sample rate in Hz.
	DefaultSampleRate float64

	// HostAPI is the name of the host API exposing the device (e.g.,
	// "Windows WASAPI", "ALSA").
	HostAPI string

	// HostAPILoopback reports whether the device's host API can capture
	// playback without a dedicated mixer device.
	HostAPILoopback bool
}

// IsInput reports whether the device can capture audio.
func (d Device) IsInput() bool { return d.MaxInputChannels > 0 }

// Catalog lists the audio devices visible to the process.
type Catalog interface {
	// Devices returns all devices. The slice order matches host indices.
	Devices(ctx context.Context) ([]Device, error)

	// DefaultInput returns the host's default capture device.
	// Returns an error wrapping [ErrNoInputDevice] when there is none.
	DefaultInput(ctx context.Context) (Device, error)

	// DefaultOutput returns the host's default playback device, or an
	// error when there is none.
	DefaultOutput(ctx context.Context) (Device, error)
}

// Warning is a non-fatal resolution downgrade surfaced to the caller.
type Warning string

const (
	// WarnLoopbackUnavailable reports that system capture was requested but
	// no loopback path exists; the microphone is used instead.
	WarnLoopbackUnavailable Warning = "loopback-unavailable"
)

// Selection is the outcome of source resolution.
type Selection struct {
	// Device is the chosen capture device.
	Device Device

	// Channels is the channel count to open the device with.
	Channels int

	// SampleRate is the rate in Hz to open the device with: the requested
	// rate, or the device default when none was requested.
	SampleRate int

	// Warnings lists non-fatal downgrades applied during resolution.
	Warnings []Warning
}

// loopbackKeywords identifies mixer devices that expose system playback as
// an input. Matched case-insensitively against device names.
var loopbackKeywords = []string{
	"stereo mix",
	"stereomix",
	"wave out mix",
	"what u hear",
	"loopback",
}

// Request names the desired capture source.
type Request struct {
	// Mode selects microphone, system, or both.
	Mode Mode

	// DeviceName, when non-empty, pins capture to the first input device
	// whose name contains it (case-insensitive), bypassing the cascade.
	DeviceName string

	// SampleRate is the preferred capture rate in Hz. Zero selects the
	// resolved device's default rate.
	SampleRate int
}

// Resolve maps a capture request to a concrete device selection using cat.
//
// A pinned DeviceName that matches no input device is an error; a system
// request with no loopback path degrades to the default microphone with
// [WarnLoopbackUnavailable] rather than failing.
func Resolve(ctx context.Context, cat Catalog, req Request) (Selection, error) {
	sel, err := resolve(ctx, cat, req)
	if err != nil {
		return Selection{}, err
	}
	sel.SampleRate = req.SampleRate
	if sel.SampleRate <= 0 {
		sel.SampleRate = int(sel.Device.DefaultSampleRate)
	}
	return sel, nil
}

func resolve(ctx context.Context, cat Catalog, req Request) (Selection, error) {
	if req.DeviceName != "" {
		return resolvePinned(ctx, cat, req.DeviceName)
	}

	switch req.Mode {
	case ModeSystem, ModeBoth:
		return resolveSystem(ctx, cat)
	case ModeMicrophone, "":
		return resolveMicrophone(ctx, cat)
	default:
		return Selection{}, fmt.Errorf("device: unknown source mode %q", req.Mode)
	}
}

func resolvePinned(ctx context.Context, cat Catalog, name string) (Selection, error) {
	devices, err := cat.Devices(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("device: list devices: %w", err)
	}
	needle := strings.ToLower(name)
	for _, d := range devices {
		if d.IsInput() && strings.Contains(strings.ToLower(d.Name), needle) {
			return Selection{Device: d, Channels: inputChannels(d)}, nil
		}
	}
	return Selection{}, fmt.Errorf("device: no input device matching %q: %w", name, ErrNoInputDevice)
}

func resolveMicrophone(ctx context.Context, cat Catalog) (Selection, error) {
	d, err := cat.DefaultInput(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("device: resolve microphone: %w", err)
	}
	// Microphone capture is mono; a single channel keeps chunk payloads
	// small without losing speech content.
	return Selection{Device: d, Channels: 1}, nil
}

func resolveSystem(ctx context.Context, cat Catalog) (Selection, error) {
	devices, err := cat.Devices(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("device: list devices: %w", err)
	}

	// First preference: a mixer device exposing playback as an input.
	for _, d := range devices {
		if d.IsInput() && isLoopbackName(d.Name) {
			return Selection{Device: d, Channels: inputChannels(d)}, nil
		}
	}

	// Second preference: the host API's loopback capture of the default
	// output. WASAPI exposes render endpoints as capture devices named
	// after the playback device; an ordinary WASAPI microphone is not a
	// loopback route.
	if out, err := cat.DefaultOutput(ctx); err == nil {
		for _, d := range devices {
			if d.IsInput() && d.HostAPILoopback && isRenderEndpoint(d, out) {
				return Selection{Device: d, Channels: inputChannels(d)}, nil
			}
		}
	}

	// Last resort: record the microphone so the session still produces a
	// transcript, and tell the caller system audio is missing.
	sel, err := resolveMicrophone(ctx, cat)
	if err != nil {
		return Selection{}, err
	}
	sel.Warnings = append(sel.Warnings, WarnLoopbackUnavailable)
	return sel, nil
}

// isLoopbackName reports whether name identifies a playback mixer device.
func isLoopbackName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range loopbackKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isRenderEndpoint reports whether input device d is the loopback capture
// side of the playback device out.
func isRenderEndpoint(d, out Device) bool {
	return out.Name != "" &&
		strings.Contains(strings.ToLower(d.Name), strings.ToLower(out.Name))
}

// inputChannels picks the channel count for a device, capped at stereo.
func inputChannels(d Device) int {
	if d.MaxInputChannels >= 2 {
		return 2
	}
	return 1
}
