package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowpassAttenuatesAboveCutoff(t *testing.T) {
	const sampleRate = 48000.0
	b := NewBiquad("lp", sampleRate, BiquadParams{Kind: Lowpass, FreqHz: 200, Q: 0.707})

	// Settle a 5 kHz tone (well above cutoff) and compare steady-state
	// amplitude against a 100 Hz tone (well below cutoff).
	rmsAt := func(freq float64) float64 {
		bq := NewBiquad("lp", sampleRate, BiquadParams{Kind: Lowpass, FreqHz: 200, Q: 0.707})
		n := 4096
		w := make([]float64, n)
		for i := range w {
			w[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
		}
		require.NoError(t, bq.ProcessWaveform(w))
		var sum float64
		for _, s := range w[n/2:] {
			sum += s * s
		}
		return math.Sqrt(sum / float64(n/2))
	}

	_ = b
	lowFreqRMS := rmsAt(100)
	highFreqRMS := rmsAt(5000)
	assert.Greater(t, lowFreqRMS, highFreqRMS*2, "lowpass should pass 100Hz much more than 5kHz")
}

func TestUpdateParametersPreservesHistory(t *testing.T) {
	b := NewBiquad("eq", 48000, BiquadParams{Kind: Peaking, FreqHz: 1000, Q: 1, GainDB: 6})
	w := []float64{1, 0.5, -0.5, 0.2}
	require.NoError(t, b.ProcessWaveform(w))

	x1, x2, y1, y2 := b.x1, b.x2, b.y1, b.y2

	require.NoError(t, b.UpdateParameters(NewBiquadUpdate(48000, BiquadParams{Kind: Peaking, FreqHz: 1200, Q: 1, GainDB: 3})))

	assert.Equal(t, x1, b.x1)
	assert.Equal(t, x2, b.x2)
	assert.Equal(t, y1, b.y1)
	assert.Equal(t, y2, b.y2)
}

func TestUpdateParametersRejectsWrongConfig(t *testing.T) {
	b := NewBiquad("eq", 48000, BiquadParams{Kind: Lowpass, FreqHz: 1000, Q: 0.707})
	err := b.UpdateParameters(GainParams{GainDB: 3})
	assert.Error(t, err)
}

func TestCoefficientsNormalized(t *testing.T) {
	c := CoefficientsFromParams(48000, BiquadParams{Kind: Notch, FreqHz: 1000, Q: 4})
	// a0 has been normalized away; sanity check the remaining coefficients
	// are finite and not degenerate.
	assert.False(t, math.IsNaN(c.B0))
	assert.False(t, math.IsInf(c.A1, 0))
}
