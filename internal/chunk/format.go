package chunk

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SampleFormat tags the wire representation of one interleaved PCM sample.
type SampleFormat int

const (
	S16LE SampleFormat = iota
	S24LE
	S32LE
	F32LE
	F64LE
)

func (f SampleFormat) String() string {
	switch f {
	case S16LE:
		return "S16LE"
	case S24LE:
		return "S24LE"
	case S32LE:
		return "S32LE"
	case F32LE:
		return "F32LE"
	case F64LE:
		return "F64LE"
	default:
		return "unknown"
	}
}

// BytesPerSample is the wire width of one sample in this format. S24LE uses
// the 3-byte packed layout unless packed24in32 is true, which selects the
// 4-byte, 32-bit containered layout.
func (f SampleFormat) BytesPerSample(packed24in32 bool) int {
	switch f {
	case S16LE:
		return 2
	case S24LE:
		if packed24in32 {
			return 4
		}
		return 3
	case S32LE:
		return 4
	case F32LE:
		return 4
	case F64LE:
		return 8
	default:
		return 0
	}
}

// scaleFactor is 2^(bits-1) for integer formats, 1.0 for float formats, per
// spec.md §3. This is the same calculation alsadevice.rs performs as
// `(2.0 as PrcFmt).powf((bits - 1) as PrcFmt)`.
func (f SampleFormat) scaleFactor() float64 {
	switch f {
	case S16LE:
		return math.Pow(2, 15)
	case S24LE:
		return math.Pow(2, 23)
	case S32LE:
		return math.Pow(2, 31)
	case F32LE, F64LE:
		return 1.0
	default:
		return 1.0
	}
}

// BufferToChunk converts an interleaved PCM byte buffer into a Chunk,
// mirroring conversions::buffer_to_chunk_{int,float} from the original
// implementation. packed24in32 selects the S24LE wire layout.
func BufferToChunk(buf []byte, format SampleFormat, channels, frames int, packed24in32 bool, timestamp int64) (*Chunk, error) {
	bps := format.BytesPerSample(packed24in32)
	need := bps * channels * frames
	if len(buf) < need {
		return nil, fmt.Errorf("chunk: buffer too small: have %d bytes, need %d", len(buf), need)
	}
	c := New(channels, frames)
	scale := format.scaleFactor()

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * bps
			sample := buf[off : off+bps]
			var f float64
			switch format {
			case S16LE:
				f = float64(int16(binary.LittleEndian.Uint16(sample))) / scale
			case S24LE:
				if packed24in32 {
					v := int32(binary.LittleEndian.Uint32(sample))
					v = (v << 8) >> 8 // sign-extend the low 24 bits
					f = float64(v) / scale
				} else {
					v := int32(sample[0]) | int32(sample[1])<<8 | int32(sample[2])<<16
					v = (v << 8) >> 8
					f = float64(v) / scale
				}
			case S32LE:
				f = float64(int32(binary.LittleEndian.Uint32(sample))) / scale
			case F32LE:
				f = float64(math.Float32frombits(binary.LittleEndian.Uint32(sample)))
			case F64LE:
				f = math.Float64frombits(binary.LittleEndian.Uint64(sample))
			}
			c.Waveforms[ch][i] = f
		}
	}
	c.Timestamp = timestamp
	c.measureRange()
	return c, nil
}

// ChunkToBuffer converts a Chunk back to interleaved PCM, counting samples
// that clip (magnitude >= 1.0 for integer formats) and saturating them.
// Returns the number of clipped samples observed on this call, mirroring
// chunk_to_buffer_{int,float} plus the clip-counting spec.md §7 requires.
func ChunkToBuffer(c *Chunk, format SampleFormat, packed24in32 bool) (buf []byte, clipped int, err error) {
	if err := c.Validate(); err != nil {
		return nil, 0, err
	}
	bps := format.BytesPerSample(packed24in32)
	channels := c.Channels()
	buf = make([]byte, bps*channels*c.Frames)
	scale := format.scaleFactor()

	for i := 0; i < c.Frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * bps
			f := c.Waveforms[ch][i]
			switch format {
			case S16LE:
				iv, clip := saturate(f, scale, -32768, 32767)
				if clip {
					clipped++
				}
				binary.LittleEndian.PutUint16(buf[off:off+2], uint16(int16(iv)))
			case S24LE:
				iv, clip := saturate(f, scale, -8388608, 8388607)
				if clip {
					clipped++
				}
				if packed24in32 {
					binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(iv)))
				} else {
					buf[off] = byte(iv)
					buf[off+1] = byte(iv >> 8)
					buf[off+2] = byte(iv >> 16)
				}
			case S32LE:
				iv, clip := saturate(f, scale, math.MinInt32, math.MaxInt32)
				if clip {
					clipped++
				}
				binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(iv)))
			case F32LE:
				binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(float32(f)))
			case F64LE:
				binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(f))
			}
		}
	}
	return buf, clipped, nil
}

// saturate scales a float sample to an integer sample, clamping to
// [lo, hi] and reporting whether the input magnitude was clipping
// (>= 1.0), per spec.md's clipped-sample-counter invariant.
func saturate(f, scale float64, lo, hi int64) (int64, bool) {
	clipped := f >= 1.0 || f <= -1.0
	v := int64(math.Round(f * scale))
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v, clipped
}
