package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// bitsPerSample is fixed at 16 for the signed little-endian PCM container
// that recognition backends consume.
const bitsPerSample = 16

// EncodeWAV serializes interleaved 16-bit PCM samples into a RIFF/WAVE
// container. This is the canonical on-the-wire form of a [Chunk] for
// recognition backends and for debug dumps.
func EncodeWAV(samples []int16, format Format) ([]byte, error) {
	if len(samples) == 0 {
		return nil, errors.New("audio: cannot encode empty sample buffer")
	}
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive, got %d", format.SampleRate)
	}
	channels := format.Channels
	if channels <= 0 {
		channels = 1
	}

	ws := &writeSeekBuffer{}
	enc := wav.NewEncoder(ws, format.SampleRate, bitsPerSample, channels, 1)

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: channels,
			SampleRate:  format.SampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitsPerSample,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return nil, fmt.Errorf("audio: write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: finalize wav: %w", err)
	}
	return ws.buf, nil
}

// EncodeChunk serializes a [Chunk] into a RIFF/WAVE container.
func EncodeChunk(c Chunk) ([]byte, error) {
	return EncodeWAV(c.Samples, Format{SampleRate: c.SampleRate, Channels: c.Channels})
}

// DecodeWAV parses a RIFF/WAVE container back into interleaved 16-bit PCM
// samples and the stream format. Only 16-bit PCM payloads are accepted.
func DecodeWAV(data []byte) ([]int16, Format, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, Format{}, errors.New("audio: not a valid RIFF/WAVE file")
	}
	if dec.BitDepth != bitsPerSample {
		return nil, Format{}, fmt.Errorf("audio: unsupported bit depth %d (want %d)", dec.BitDepth, bitsPerSample)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("audio: decode wav data: %w", err)
	}
	samples := make([]int16, len(pcm.Data))
	for i, s := range pcm.Data {
		samples[i] = int16(s)
	}
	format := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}
	return samples, format, nil
}

// writeSeekBuffer adapts an in-memory byte slice to io.WriteSeeker so the
// wav encoder can patch RIFF chunk sizes after writing the data payload.
type writeSeekBuffer struct {
	buf []byte
	pos int
}

func (w *writeSeekBuffer) Write(p []byte) (int, error) {
	if need := w.pos + len(p); need > len(w.buf) {
		grown := make([]byte, need)
		copy(grown, w.buf)
		w.buf = grown
	}
	copy(w.buf[w.pos:], p)
	w.pos += len(p)
	return len(p), nil
}

func (w *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, fmt.Errorf("audio: invalid seek whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("audio: negative seek position")
	}
	w.pos = int(abs)
	return abs, nil
}
