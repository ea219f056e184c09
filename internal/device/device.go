// Package device defines the capture/playback device contract stage C and
// stage B drive, and two implementations: a PortAudio-backed real device
// and an in-memory null device for tests.
package device

import (
	"errors"

	"github.com/vaeringr/cdsp/internal/chunk"
)

// ErrXRun signals a device-side underrun (playback) or overrun (capture).
// Per spec.md §6, the engine invokes Prepare and retries the failed
// operation exactly once before surfacing a fatal device error.
var ErrXRun = errors.New("device: xrun")

// Format describes the wire format a device block is read/written in.
type Format struct {
	SampleRate   float64
	Channels     int
	BlockSize    int // frames per block
	SampleFormat chunk.SampleFormat
	Packed24In32 bool
}

func (f Format) bufferBytes() int {
	return f.BlockSize * f.Channels * f.SampleFormat.BytesPerSample(f.Packed24In32)
}

// CaptureDevice is the input-side device contract, per spec.md §4.1/§6: a
// blocking block read, XRun recovery, and a fine-grained rate-shift
// control addressable in parts-per-million relative to unity (100000).
type CaptureDevice interface {
	Open() error
	Close() error
	// ReadBlock fills buf (sized to Format().bufferBytes()) with one
	// block of interleaved PCM. Returns ErrXRun on overrun.
	ReadBlock(buf []byte) error
	Prepare() error
	// SetSampleRateShift adjusts the effective capture rate by ppm parts
	// per million relative to 100000 (unity), per the GLOSSARY's "Rate
	// shift" entry.
	SetSampleRateShift(ppm int) error
	Format() Format
}

// PlaybackDevice is the output-side device contract.
type PlaybackDevice interface {
	Open() error
	Close() error
	// WriteBlock writes one block of interleaved PCM. Returns ErrXRun on
	// underrun.
	WriteBlock(buf []byte) error
	Prepare() error
	// BufferedFrames reports frames currently queued in the device,
	// the rate controller's "level" input (spec.md §4.2).
	BufferedFrames() (int, error)
	Format() Format
}
