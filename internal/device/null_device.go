package device

import (
	"errors"
	"sync"

	"github.com/vaeringr/cdsp/internal/chunk"
)

// ErrDeviceDone is returned from NullCapture.ReadBlock once its seeded
// blocks are exhausted, standing in for end-of-stream in tests.
var ErrDeviceDone = errors.New("device: null device exhausted")

// NullCapture is an in-memory CaptureDevice: it serves pre-seeded PCM
// blocks and records every rate-shift value it's asked to apply, letting
// pipeline and rate-controller tests run without real hardware.
type NullCapture struct {
	mu sync.Mutex

	format     Format
	blocks     [][]byte
	next       int
	opened     bool
	shiftPPM   int
	prepareCnt int

	xrunOnce bool // if set, the next ReadBlock returns ErrXRun once then succeeds
}

// NewNullCapture seeds a capture device with pre-built blocks, each sized
// to format's block size.
func NewNullCapture(format Format, blocks [][]byte) *NullCapture {
	return &NullCapture{format: format, blocks: blocks, shiftPPM: 100000}
}

func (c *NullCapture) Open() error  { c.opened = true; return nil }
func (c *NullCapture) Close() error { c.opened = false; return nil }
func (c *NullCapture) Prepare() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepareCnt++
	return nil
}
func (c *NullCapture) SetSampleRateShift(ppm int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shiftPPM = ppm
	return nil
}
func (c *NullCapture) Format() Format { return c.format }

// ShiftPPM reports the most recently applied rate-shift value.
func (c *NullCapture) ShiftPPM() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shiftPPM
}

// PrepareCount reports how many times Prepare was invoked, for asserting
// the XRun-retry-once contract.
func (c *NullCapture) PrepareCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prepareCnt
}

// TriggerXRunOnce makes the next ReadBlock call fail with ErrXRun.
func (c *NullCapture) TriggerXRunOnce() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.xrunOnce = true
}

func (c *NullCapture) ReadBlock(buf []byte) error {
	c.mu.Lock()
	if c.xrunOnce {
		c.xrunOnce = false
		c.mu.Unlock()
		return ErrXRun
	}
	if c.next >= len(c.blocks) {
		c.mu.Unlock()
		return ErrDeviceDone
	}
	block := c.blocks[c.next]
	c.next++
	c.mu.Unlock()

	if len(buf) < len(block) {
		return errors.New("device: read buffer too small")
	}
	copy(buf, block)
	return nil
}

// NullPlayback is an in-memory PlaybackDevice: it records every block
// written and reports a caller-set buffered-frame level, so rate
// controller and backpressure tests can drive it directly.
type NullPlayback struct {
	mu sync.Mutex

	format     Format
	written    [][]byte
	bufferedFr int
	prepareCnt int

	xrunOnce bool
}

func NewNullPlayback(format Format) *NullPlayback {
	return &NullPlayback{format: format}
}

func (p *NullPlayback) Open() error  { return nil }
func (p *NullPlayback) Close() error { return nil }
func (p *NullPlayback) Prepare() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prepareCnt++
	return nil
}
func (p *NullPlayback) Format() Format { return p.format }

func (p *NullPlayback) BufferedFrames() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufferedFr, nil
}

// SetBufferedFrames lets a test drive the simulated buffer-fill level fed
// to the rate controller.
func (p *NullPlayback) SetBufferedFrames(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bufferedFr = n
}

func (p *NullPlayback) TriggerXRunOnce() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.xrunOnce = true
}

func (p *NullPlayback) PrepareCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prepareCnt
}

func (p *NullPlayback) WriteBlock(buf []byte) error {
	p.mu.Lock()
	if p.xrunOnce {
		p.xrunOnce = false
		p.mu.Unlock()
		return ErrXRun
	}
	cp := append([]byte(nil), buf...)
	p.written = append(p.written, cp)
	p.mu.Unlock()
	return nil
}

// Written returns every block successfully written so far.
func (p *NullPlayback) Written() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.written))
	copy(out, p.written)
	return out
}

// ChunksFromSilence builds n all-zero blocks at format's size, a
// convenience for seeding NullCapture in silence-gate tests.
func ChunksFromSilence(format Format, n int) [][]byte {
	bps := format.SampleFormat.BytesPerSample(format.Packed24In32)
	size := bps * format.Channels * format.BlockSize
	blocks := make([][]byte, n)
	for i := range blocks {
		blocks[i] = make([]byte, size)
	}
	return blocks
}

// ChunkToBlock encodes a *chunk.Chunk to one wire-format block, for
// building NullCapture's seed data directly from float samples in tests.
func ChunkToBlock(c *chunk.Chunk, format Format) ([]byte, error) {
	buf, _, err := chunk.ChunkToBuffer(c, format.SampleFormat, format.Packed24In32)
	return buf, err
}
