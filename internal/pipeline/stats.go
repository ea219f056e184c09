package pipeline

import (
	"math"

	"github.com/vaeringr/cdsp/internal/chunk"
)

// peakValues is the per-channel maximum absolute sample value in c, fed to
// a status.Ring's peak buffer on each chunk, per spec.md §4.4.
func peakValues(c *chunk.Chunk) []float64 {
	out := make([]float64, c.Channels())
	for ch, w := range c.Waveforms {
		var max float64
		for _, s := range w {
			if a := math.Abs(s); a > max {
				max = a
			}
		}
		out[ch] = max
	}
	return out
}

// rmsValues is the per-channel RMS amplitude of c, fed to a status.Ring's
// RMS buffer; Ring.AverageSqrtSince squares and re-averages these across
// its window before taking the final sqrt, per spec.md §4.4's
// mean-of-squares-then-sqrt contract.
func rmsValues(c *chunk.Chunk) []float64 {
	out := make([]float64, c.Channels())
	for ch, w := range c.Waveforms {
		var sum float64
		for _, s := range w {
			sum += s * s
		}
		if len(w) > 0 {
			sum /= float64(len(w))
		}
		out[ch] = math.Sqrt(sum)
	}
	return out
}
