package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayShiftsSamplesBySampleCount(t *testing.T) {
	d := NewDelay("d", DelayParams{Samples: 3})
	w := []float64{1, 2, 3, 4, 5}
	require.NoError(t, d.ProcessWaveform(w))
	assert.Equal(t, []float64{0, 0, 0, 1, 2}, w)
}

func TestDelayZeroIsNoop(t *testing.T) {
	d := NewDelay("d", DelayParams{Samples: 0})
	w := []float64{1, 2, 3}
	orig := append([]float64(nil), w...)
	require.NoError(t, d.ProcessWaveform(w))
	assert.Equal(t, orig, w)
}

func TestDelayUpdateParametersPreservesOverlappingHistory(t *testing.T) {
	d := NewDelay("d", DelayParams{Samples: 2})
	w := []float64{9, 8}
	require.NoError(t, d.ProcessWaveform(w))

	require.NoError(t, d.UpdateParameters(DelayParams{Samples: 4}))
	w2 := []float64{1, 2, 3, 4}
	require.NoError(t, d.ProcessWaveform(w2))
	// First two outputs come from the preserved two-sample history.
	assert.Equal(t, []float64{9, 8, 0, 0}, w2)
}

func TestFIRIdentityTapIsPassthrough(t *testing.T) {
	f := NewFIR("fir", FIRParams{Taps: []float64{1}})
	w := []float64{0.5, -0.25, 0.75}
	orig := append([]float64(nil), w...)
	require.NoError(t, f.ProcessWaveform(w))
	assert.Equal(t, orig, w)
}

func TestFIRAveragingTapsSmoothImpulse(t *testing.T) {
	f := NewFIR("fir", FIRParams{Taps: []float64{0.5, 0.5}})
	w := []float64{1, 0, 0, 0}
	require.NoError(t, f.ProcessWaveform(w))
	assert.InDelta(t, 0.5, w[0], 1e-9)
	assert.InDelta(t, 0.5, w[1], 1e-9)
	assert.InDelta(t, 0, w[2], 1e-9)
}

func TestConvSharesFIRSemantics(t *testing.T) {
	c := NewConv("conv", ConvParams{Impulse: []float64{1, 0.5}})
	w := []float64{1, 0, 0}
	require.NoError(t, c.ProcessWaveform(w))
	assert.InDelta(t, 1, w[0], 1e-9)
	assert.InDelta(t, 0.5, w[1], 1e-9)
}

func TestBiquadComboCascadesSections(t *testing.T) {
	combo := NewBiquadCombo("combo", 48000, BiquadComboParams{Sections: []BiquadParams{
		{Kind: Lowpass, FreqHz: 1000, Q: 0.707},
		{Kind: Lowpass, FreqHz: 1000, Q: 0.707},
	}})
	w := []float64{1, 0, 0, 0}
	require.NoError(t, combo.ProcessWaveform(w))
	// Cascading two lowpass sections should not blow up or pass NaN.
	for _, s := range w {
		assert.False(t, math.IsNaN(s))
	}
}

func TestBiquadComboUpdateParametersSameTopologyKeepsHistory(t *testing.T) {
	combo := NewBiquadCombo("combo", 48000, BiquadComboParams{Sections: []BiquadParams{
		{Kind: Lowpass, FreqHz: 1000, Q: 0.707},
	}})
	w := []float64{1, 0.5}
	require.NoError(t, combo.ProcessWaveform(w))
	hist := combo.stages[0].x1

	require.NoError(t, combo.UpdateParameters(BiquadComboParams{Sections: []BiquadParams{
		{Kind: Lowpass, FreqHz: 2000, Q: 0.707},
	}}))
	assert.Equal(t, hist, combo.stages[0].x1)
}

func TestBiquadComboUpdateParametersTopologyChangeRebuilds(t *testing.T) {
	combo := NewBiquadCombo("combo", 48000, BiquadComboParams{Sections: []BiquadParams{
		{Kind: Lowpass, FreqHz: 1000, Q: 0.707},
	}})
	require.NoError(t, combo.UpdateParameters(BiquadComboParams{Sections: []BiquadParams{
		{Kind: Lowpass, FreqHz: 1000, Q: 0.707},
		{Kind: Highpass, FreqHz: 100, Q: 0.707},
	}}))
	assert.Len(t, combo.stages, 2)
}

func TestDitherAddsSmallNoise(t *testing.T) {
	d := NewDither("dith", DitherParams{Bits: 16})
	w := make([]float64, 1000)
	require.NoError(t, d.ProcessWaveform(w))
	for _, s := range w {
		assert.Less(t, math.Abs(s), 1.0/float64(int(1)<<15))
	}
}

func TestCompressorReducesGainAboveThreshold(t *testing.T) {
	c := NewCompressor("comp", 48000, DynamicsParams{ThresholdDB: -6, Ratio: 4, AttackMS: 1, ReleaseMS: 50})
	w := make([]float64, 2000)
	for i := range w {
		w[i] = 0.9
	}
	require.NoError(t, c.ProcessWaveform(w))
	assert.Less(t, math.Abs(w[len(w)-1]), 0.9)
}

func TestLimiterClampsNearThreshold(t *testing.T) {
	l := NewLimiter("lim", 48000, DynamicsParams{ThresholdDB: -3, AttackMS: 0.1, ReleaseMS: 50})
	w := make([]float64, 5000)
	for i := range w {
		w[i] = 0.99
	}
	require.NoError(t, l.ProcessWaveform(w))
	thresholdLinear := dbToLinear(-3)
	assert.Less(t, math.Abs(w[len(w)-1]), thresholdLinear*1.05)
}
