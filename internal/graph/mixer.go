package graph

import (
	"fmt"
	"math"

	"github.com/vaeringr/cdsp/internal/chunk"
)

// MixerSource is one contribution to an output channel: a source channel
// index, a gain in dB, polarity inversion, and mute, per spec.md §3.
type MixerSource struct {
	Channel  int
	GainDB   float64
	Inverted bool
	Mute     bool
}

// MixerStep maps an N-channel chunk to an M-channel chunk by linear
// combination. Outputs[i] lists the sources summed into output channel i.
type MixerStep struct {
	Outputs [][]MixerSource
}

func (m MixerStep) outChannels() int { return len(m.Outputs) }

func (m MixerStep) maxSourceChannel() int {
	max := -1
	for _, sources := range m.Outputs {
		for _, s := range sources {
			if s.Channel > max {
				max = s.Channel
			}
		}
	}
	return max
}

func (m MixerStep) apply(c *chunk.Chunk) (*chunk.Chunk, error) {
	out := chunk.New(len(m.Outputs), c.Frames)
	out.Timestamp = c.Timestamp
	for oi, sources := range m.Outputs {
		o := out.Waveforms[oi]
		for _, src := range sources {
			if src.Channel < 0 || src.Channel >= c.Channels() {
				return nil, fmt.Errorf("graph: mixer references channel %d, chunk has %d", src.Channel, c.Channels())
			}
			if src.Mute {
				continue
			}
			mult := math.Pow(10, src.GainDB/20)
			if src.Inverted {
				mult = -mult
			}
			in := c.Waveforms[src.Channel]
			for i, x := range in {
				o[i] += x * mult
			}
		}
	}
	out.MeasureRange()
	return out, nil
}
