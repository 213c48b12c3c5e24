package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/TarDeb/Smart-Meeting-Assistant/internal/device"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
)

// Compile-time assertion that PortAudioOpener implements StreamOpener.
var _ StreamOpener = (*PortAudioOpener)(nil)

// PortAudioOpener opens capture streams through the PortAudio host
// bindings. portaudio.Initialize must have been called before use.
type PortAudioOpener struct{}

// NewPortAudioOpener returns an opener backed by PortAudio.
func NewPortAudioOpener() *PortAudioOpener {
	return &PortAudioOpener{}
}

// Open implements StreamOpener. The selection's device index must come from
// a catalog enumeration in the same PortAudio session.
func (o *PortAudioOpener) Open(sel device.Selection, format audio.Format, frameSize int, callback func(samples []int16)) (Stream, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("capture: portaudio devices: %w", err)
	}
	if sel.Device.Index < 0 || sel.Device.Index >= len(infos) {
		return nil, fmt.Errorf("capture: device index %d out of range", sel.Device.Index)
	}
	info := infos[sel.Device.Index]

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = sel.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = frameSize

	stream, err := portaudio.OpenStream(params, func(in []int16) {
		callback(in)
	})
	if err != nil {
		return nil, fmt.Errorf("capture: portaudio open stream: %w", err)
	}
	return stream, nil
}
