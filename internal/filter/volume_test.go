package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaeringr/cdsp/internal/status"
)

func TestVolumeNoRampJumpsImmediately(t *testing.T) {
	shared := status.NewProcessingParameters()
	shared.SetVolume(0, -6.0206)
	v := NewVolume("vol", 48000, VolumeParams{Fader: 0, RampTimeMS: 0}, shared)

	w := []float64{1.0, 1.0}
	require.NoError(t, v.ProcessWaveform(w))
	assert.InDelta(t, 0.5, w[0], 1e-3)
	assert.InDelta(t, 0.5, w[1], 1e-3)
}

func TestVolumeMuteForcesMinimum(t *testing.T) {
	shared := status.NewProcessingParameters()
	shared.SetMute(0, true)
	v := NewVolume("vol", 48000, VolumeParams{Fader: 0, RampTimeMS: 0}, shared)

	w := []float64{1.0}
	require.NoError(t, v.ProcessWaveform(w))
	assert.InDelta(t, 0, w[0], 1e-6)
}

func TestVolumeRampsGradually(t *testing.T) {
	shared := status.NewProcessingParameters()
	v := NewVolume("vol", 48000, VolumeParams{Fader: 0, RampTimeMS: 100}, shared)
	shared.SetVolume(0, status.VolumeMin)

	w := make([]float64, 10)
	for i := range w {
		w[i] = 1.0
	}
	require.NoError(t, v.ProcessWaveform(w))

	for i := 1; i < len(w); i++ {
		assert.LessOrEqual(t, w[i], w[i-1]+1e-12)
	}
	assert.Greater(t, w[len(w)-1], 0.0)
}

func TestVolumeWritesBackCurrentVolume(t *testing.T) {
	shared := status.NewProcessingParameters()
	shared.SetVolume(0, -10)
	v := NewVolume("vol", 48000, VolumeParams{Fader: 0, RampTimeMS: 0}, shared)

	w := []float64{1.0}
	require.NoError(t, v.ProcessWaveform(w))
	assert.InDelta(t, -10, shared.CurrentVolume(0), 1e-6)
}

func TestVolumeUpdateParametersSwitchesFader(t *testing.T) {
	shared := status.NewProcessingParameters()
	shared.SetVolume(1, -20)
	v := NewVolume("vol", 48000, VolumeParams{Fader: 0, RampTimeMS: 0}, shared)

	require.NoError(t, v.UpdateParameters(VolumeParams{Fader: 1, RampTimeMS: 0}))
	w := []float64{1.0}
	require.NoError(t, v.ProcessWaveform(w))
	assert.InDelta(t, 0.1, w[0], 1e-3)
}
