package pipeline

import (
	"math"

	"github.com/vaeringr/cdsp/internal/chunk"
)

// SilenceGate implements the silence-detect/resume behavior spec.md §8
// scenario 5 describes: audio below silenceThresholdDB is still forwarded
// until it has been silent for silenceTimeout seconds, at which point the
// gate starts dropping chunks (the direction goes Paused) until a
// supra-threshold chunk arrives.
type SilenceGate struct {
	thresholdLinear float64
	timeoutChunks   int

	silentCount int
	paused      bool
}

// NewSilenceGate builds a gate for the given block cadence. A non-positive
// timeoutSeconds disables the gate (Admit always returns true).
func NewSilenceGate(thresholdDB, timeoutSeconds, sampleRate float64, blockSize int) *SilenceGate {
	g := &SilenceGate{thresholdLinear: math.Pow(10, thresholdDB/20)}
	if timeoutSeconds > 0 && blockSize > 0 {
		chunksPerSecond := sampleRate / float64(blockSize)
		g.timeoutChunks = int(timeoutSeconds*chunksPerSecond + 0.5)
		if g.timeoutChunks < 1 {
			g.timeoutChunks = 1
		}
	}
	return g
}

// Admit reports whether c should be forwarded downstream, updating the
// gate's internal silence run and pause state.
func (g *SilenceGate) Admit(c *chunk.Chunk) bool {
	if g.timeoutChunks == 0 {
		return true
	}
	peak := math.Max(math.Abs(c.Maxval), math.Abs(c.Minval))
	if peak < g.thresholdLinear {
		g.silentCount++
		if g.silentCount >= g.timeoutChunks {
			g.paused = true
			return false
		}
		return !g.paused
	}
	g.silentCount = 0
	g.paused = false
	return true
}

// Paused reports whether the gate is currently suppressing output.
func (g *SilenceGate) Paused() bool { return g.paused }
