// Package debug holds development aids that sit outside the emulation
// core; currently the audio WAV capture.
package debug

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVRecorder captures the mixed host-rate stream to a WAV file.
type WAVRecorder struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

// NewWAVRecorder creates the output file and writes the header.
func NewWAVRecorder(path string) (*WAVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	enc := wav.NewEncoder(f, 48000, 8, 2, 1)
	return &WAVRecorder{
		file:    f,
		encoder: enc,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 2, SampleRate: 48000},
			SourceBitDepth: 8,
		},
	}, nil
}

// Append writes a batch of interleaved unsigned 8-bit stereo samples.
func (r *WAVRecorder) Append(samples []uint8) error {
	if len(samples) == 0 {
		return nil
	}
	if cap(r.buf.Data) < len(samples) {
		r.buf.Data = make([]int, len(samples))
	}
	r.buf.Data = r.buf.Data[:len(samples)]
	for i, s := range samples {
		r.buf.Data[i] = int(s)
	}
	return r.encoder.Write(r.buf)
}

// Close finalizes the WAV header.
func (r *WAVRecorder) Close() error {
	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
