package device

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/vaeringr/cdsp/internal/chunk"
)

// PortAudioCapture is the real capture backend, grounded on the stream-open
// and start sequence used throughout the pack's PortAudio clients. It has
// no native rate-shift control (unlike the ALSA "PCM Rate Shift 100000"
// HCtl element the spec names as the reference device), so
// SetSampleRateShift is honored in software: a linear-interpolation
// resampler runs over the device's fixed-rate float32 stream, per the
// substitution strategy spec.md §9's first Open Question leaves as an
// implementation choice.
type PortAudioCapture struct {
	format Format
	device *portaudio.DeviceInfo
	stream *portaudio.Stream
	raw    []float32

	resampler  *linearResampler
	shiftRatio float64 // 1.0 == unity
}

// NewPortAudioCapture configures a capture device at the given wire format.
// Device selection always uses the system default input device; selecting
// a specific card is left to the configuration subsystem (spec.md §1's
// out-of-scope list).
func NewPortAudioCapture(format Format) *PortAudioCapture {
	return &PortAudioCapture{format: format, shiftRatio: 1.0}
}

func (c *PortAudioCapture) Open() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("device: portaudio init: %w", err)
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("device: default input device: %w", err)
	}
	c.device = dev

	c.raw = make([]float32, c.format.BlockSize*c.format.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: c.format.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      c.format.SampleRate,
		FramesPerBuffer: c.format.BlockSize,
	}
	stream, err := portaudio.OpenStream(params, c.raw)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("device: open capture stream: %w", err)
	}
	c.stream = stream
	c.resampler = newLinearResampler(c.format.Channels)
	return c.stream.Start()
}

func (c *PortAudioCapture) Close() error {
	if c.stream == nil {
		return nil
	}
	err := c.stream.Stop()
	if cerr := c.stream.Close(); err == nil {
		err = cerr
	}
	portaudio.Terminate()
	return err
}

func (c *PortAudioCapture) Prepare() error {
	// PortAudio streams self-recover from the underlying xrun on the next
	// Read; there is no discrete ALSA-style Prepare transition to invoke,
	// so this exists only to satisfy the contract it shares with
	// PlaybackDevice.
	return nil
}

func (c *PortAudioCapture) SetSampleRateShift(ppm int) error {
	c.shiftRatio = float64(ppm) / 100000.0
	return nil
}

func (c *PortAudioCapture) Format() Format { return c.format }

func (c *PortAudioCapture) ReadBlock(buf []byte) error {
	frames := c.format.BlockSize
	interleaved, err := c.resampler.fill(frames, c.shiftRatio, func(dst []float32) error {
		if err := c.stream.Read(); err != nil {
			return ErrXRun
		}
		copy(dst, c.raw)
		return nil
	})
	if err != nil {
		return err
	}

	ch := c.format.Channels
	ck := chunk.New(ch, frames)
	for i := 0; i < frames; i++ {
		for ci := 0; ci < ch; ci++ {
			ck.Waveforms[ci][i] = float64(interleaved[i*ch+ci])
		}
	}
	ck.MeasureRange()

	out, _, err := chunk.ChunkToBuffer(ck, c.format.SampleFormat, c.format.Packed24In32)
	if err != nil {
		return err
	}
	copy(buf, out)
	return nil
}

// PortAudioPlayback is the real playback backend.
type PortAudioPlayback struct {
	format Format
	device *portaudio.DeviceInfo
	stream *portaudio.Stream
	raw    []float32
}

func NewPortAudioPlayback(format Format) *PortAudioPlayback {
	return &PortAudioPlayback{format: format}
}

func (p *PortAudioPlayback) Open() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("device: portaudio init: %w", err)
	}
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("device: default output device: %w", err)
	}
	p.device = dev

	p.raw = make([]float32, p.format.BlockSize*p.format.Channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: p.format.Channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      p.format.SampleRate,
		FramesPerBuffer: p.format.BlockSize,
	}
	stream, err := portaudio.OpenStream(params, p.raw)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("device: open playback stream: %w", err)
	}
	p.stream = stream
	return p.stream.Start()
}

func (p *PortAudioPlayback) Close() error {
	if p.stream == nil {
		return nil
	}
	err := p.stream.Stop()
	if cerr := p.stream.Close(); err == nil {
		err = cerr
	}
	portaudio.Terminate()
	return err
}

func (p *PortAudioPlayback) Prepare() error { return nil }

// BufferedFrames returns the stream's reported output latency converted to
// frames. This value is fixed for the life of the stream; it is not a live
// measurement of how many frames are queued on the device.
func (p *PortAudioPlayback) BufferedFrames() (int, error) {
	latency := p.stream.Info().OutputLatency
	return int(latency.Seconds() * p.format.SampleRate), nil
}

func (p *PortAudioPlayback) Format() Format { return p.format }

func (p *PortAudioPlayback) WriteBlock(buf []byte) error {
	ck, err := chunk.BufferToChunk(buf, p.format.SampleFormat, p.format.Channels, p.format.BlockSize, p.format.Packed24In32, 0)
	if err != nil {
		return err
	}
	ch := p.format.Channels
	for i := 0; i < p.format.BlockSize; i++ {
		for c := 0; c < ch; c++ {
			p.raw[i*ch+c] = float32(ck.Waveforms[c][i])
		}
	}
	if err := p.stream.Write(); err != nil {
		return ErrXRun
	}
	return nil
}
