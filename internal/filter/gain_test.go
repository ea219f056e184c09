package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGainUnityIsNoop(t *testing.T) {
	g := NewGain("g", GainParams{})
	w := []float64{0.1, -0.2, 0.3}
	orig := append([]float64(nil), w...)
	require.NoError(t, g.ProcessWaveform(w))
	assert.Equal(t, orig, w)
}

func TestGainSixDBDoublesAmplitude(t *testing.T) {
	g := NewGain("g", GainParams{GainDB: 6.0206})
	w := []float64{0.1}
	require.NoError(t, g.ProcessWaveform(w))
	assert.InDelta(t, 0.2, w[0], 1e-4)
}

func TestGainMuteZeroesOutput(t *testing.T) {
	g := NewGain("g", GainParams{Mute: true})
	w := []float64{0.5, -0.5}
	require.NoError(t, g.ProcessWaveform(w))
	assert.Equal(t, []float64{0, 0}, w)
}

func TestGainInvertedFlipsSign(t *testing.T) {
	g := NewGain("g", GainParams{Inverted: true})
	w := []float64{0.4}
	require.NoError(t, g.ProcessWaveform(w))
	assert.InDelta(t, -0.4, w[0], 1e-9)
}

func TestGainUpdateParametersRecomputes(t *testing.T) {
	g := NewGain("g", GainParams{GainDB: 0})
	require.NoError(t, g.UpdateParameters(GainParams{GainDB: 20}))
	w := []float64{0.01}
	require.NoError(t, g.ProcessWaveform(w))
	assert.InDelta(t, 0.1, w[0], 1e-6)
}

func TestGainUpdateParametersRejectsWrongConfig(t *testing.T) {
	g := NewGain("g", GainParams{})
	err := g.UpdateParameters(BiquadParams{Kind: Lowpass})
	assert.Error(t, err)
}

func TestGainScaleMultiplier(t *testing.T) {
	g := NewGain("g", GainParams{Scale: 0.5})
	w := []float64{1.0}
	require.NoError(t, g.ProcessWaveform(w))
	assert.True(t, math.Abs(w[0]-0.5) < 1e-9)
}
