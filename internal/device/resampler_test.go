package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResamplerUnityPassesThrough(t *testing.T) {
	r := newLinearResampler(1)
	calls := 0
	out, err := r.fill(4, 1.0, func(dst []float32) error {
		calls++
		for i := range dst {
			dst[i] = float32(i + 1)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []float32{1, 2, 3, 4}, out)
}

func TestResamplerInterpolatesBetweenFrames(t *testing.T) {
	r := newLinearResampler(1)
	seq := float32(0)
	out, err := r.fill(4, 0.5, func(dst []float32) error {
		for i := range dst {
			dst[i] = seq
			seq++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, out, 4)
	// Reading at half speed: consecutive outputs should move by ~0.5 of an
	// input frame rather than jump by whole frames.
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i]-out[i-1], float32(1.0))
	}
}

func TestResamplerPropagatesReadError(t *testing.T) {
	r := newLinearResampler(2)
	_, err := r.fill(4, 1.0, func(dst []float32) error {
		return ErrXRun
	})
	assert.ErrorIs(t, err, ErrXRun)
}
