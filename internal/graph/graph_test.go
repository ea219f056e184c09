package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaeringr/cdsp/internal/chunk"
	"github.com/vaeringr/cdsp/internal/filter"
	"github.com/vaeringr/cdsp/internal/status"
)

func TestValidateRejectsOutOfRangeFilterChannel(t *testing.T) {
	steps := []Step{
		{Kind: KindFilter, Filter: FilterStep{Channel: 2}},
	}
	_, err := Validate(steps, 2)
	assert.Error(t, err)
}

func TestValidateRejectsOutOfRangeMixerSource(t *testing.T) {
	steps := []Step{
		{Kind: KindMixer, Mixer: MixerStep{Outputs: [][]MixerSource{{{Channel: 5}}}}},
	}
	_, err := Validate(steps, 2)
	assert.Error(t, err)
}

func TestValidateTracksChannelCountAcrossMixer(t *testing.T) {
	steps := []Step{
		{Kind: KindMixer, Mixer: MixerStep{Outputs: [][]MixerSource{{{Channel: 0}}}}}, // 2ch -> 1ch
		{Kind: KindFilter, Filter: FilterStep{Channel: 0}},
	}
	n, err := Validate(steps, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIdentityGraphPassesSamplesThrough(t *testing.T) {
	g, err := Build(nil, 48000, 2, status.NewProcessingParameters())
	require.NoError(t, err)

	c := chunk.New(2, 4)
	c.Waveforms[0] = []float64{0.1, 0.2, 0.3, 0.4}
	c.Waveforms[1] = []float64{-0.1, -0.2, -0.3, -0.4}

	out, err := g.Process(c)
	require.NoError(t, err)
	assert.Equal(t, c.Waveforms[0], out.Waveforms[0])
	assert.Equal(t, c.Waveforms[1], out.Waveforms[1])
}

func TestMixerCombinesChannels(t *testing.T) {
	steps := []Step{
		{Kind: KindMixer, Mixer: MixerStep{Outputs: [][]MixerSource{
			{{Channel: 0, GainDB: 0}, {Channel: 1, GainDB: 0}},
		}}},
	}
	g, err := Build(steps, 48000, 2, status.NewProcessingParameters())
	require.NoError(t, err)

	c := chunk.New(2, 3)
	c.Waveforms[0] = []float64{1, 1, 1}
	c.Waveforms[1] = []float64{0.5, 0.5, 0.5}

	out, err := g.Process(c)
	require.NoError(t, err)
	require.Equal(t, 1, out.Channels())
	for _, v := range out.Waveforms[0] {
		assert.InDelta(t, 1.5, v, 1e-9)
	}
}

func TestFilterStepAppliesStagesInOrder(t *testing.T) {
	steps := []Step{
		{Kind: KindFilter, Filter: FilterStep{Channel: 0, Stages: []StageSpec{
			{Name: "g1", Kind: StageGain, Config: filter.GainParams{GainDB: 6.0206}},
			{Name: "g2", Kind: StageGain, Config: filter.GainParams{GainDB: 6.0206}},
		}}},
	}
	g, err := Build(steps, 48000, 1, status.NewProcessingParameters())
	require.NoError(t, err)

	c := chunk.New(1, 1)
	c.Waveforms[0] = []float64{0.1}
	out, err := g.Process(c)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, out.Waveforms[0][0], 1e-3)
}

func TestReloadSameIdentityPreservesHistory(t *testing.T) {
	steps := []Step{
		{Kind: KindFilter, Filter: FilterStep{Channel: 0, Stages: []StageSpec{
			{Name: "eq", Kind: StageBiquad, Config: filter.BiquadParams{Kind: filter.Peaking, FreqHz: 1000, Q: 1, GainDB: 3}},
		}}},
	}
	g, err := Build(steps, 48000, 1, status.NewProcessingParameters())
	require.NoError(t, err)

	c := chunk.New(1, 4)
	c.Waveforms[0] = []float64{1, 0.5, -0.5, 0.2}
	_, err = g.Process(c)
	require.NoError(t, err)

	oldStage := g.steps[0].stages[0].(*filter.Biquad)

	newSteps := []Step{
		{Kind: KindFilter, Filter: FilterStep{Channel: 0, Stages: []StageSpec{
			{Name: "eq", Kind: StageBiquad, Config: filter.BiquadParams{Kind: filter.Peaking, FreqHz: 1200, Q: 1, GainDB: 1}},
		}}},
	}
	require.NoError(t, g.Reload(newSteps))

	newStage := g.steps[0].stages[0].(*filter.Biquad)
	assert.Same(t, oldStage, newStage, "same identity reload must reuse the stage instance (preserve history)")
}

func TestReloadDifferentIdentityRebuildsWithFreshHistory(t *testing.T) {
	steps := []Step{
		{Kind: KindFilter, Filter: FilterStep{Channel: 0, Stages: []StageSpec{
			{Name: "eq", Kind: StageBiquad, Config: filter.BiquadParams{Kind: filter.Peaking, FreqHz: 1000, Q: 1, GainDB: 3}},
		}}},
	}
	g, err := Build(steps, 48000, 1, status.NewProcessingParameters())
	require.NoError(t, err)

	c := chunk.New(1, 4)
	c.Waveforms[0] = []float64{1, 0.5, -0.5, 0.2}
	_, err = g.Process(c)
	require.NoError(t, err)

	newSteps := []Step{
		{Kind: KindFilter, Filter: FilterStep{Channel: 0, Stages: []StageSpec{
			{Name: "eq2", Kind: StageBiquad, Config: filter.BiquadParams{Kind: filter.Peaking, FreqHz: 1000, Q: 1, GainDB: 3}},
		}}},
	}
	require.NoError(t, g.Reload(newSteps))

	c2 := chunk.New(1, 1)
	c2.Waveforms[0] = []float64{1}
	out, err := g.Process(c2)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(out.Waveforms[0][0]))
}

func TestReloadInvalidTopologyLeavesGraphUntouched(t *testing.T) {
	steps := []Step{
		{Kind: KindFilter, Filter: FilterStep{Channel: 0, Stages: []StageSpec{
			{Name: "g", Kind: StageGain, Config: filter.GainParams{GainDB: 3}},
		}}},
	}
	g, err := Build(steps, 48000, 2, status.NewProcessingParameters())
	require.NoError(t, err)

	badSteps := []Step{
		{Kind: KindFilter, Filter: FilterStep{Channel: 99}},
	}
	err = g.Reload(badSteps)
	assert.Error(t, err)

	// Old graph must still process using its original step set.
	c := chunk.New(2, 1)
	c.Waveforms[0] = []float64{0.1}
	c.Waveforms[1] = []float64{0.1}
	_, err = g.Process(c)
	assert.NoError(t, err)
}

func TestSampleConservationThroughMultipleSteps(t *testing.T) {
	steps := []Step{
		{Kind: KindFilter, Filter: FilterStep{Channel: 0, Stages: []StageSpec{
			{Name: "g", Kind: StageGain, Config: filter.GainParams{GainDB: -3}},
		}}},
		{Kind: KindMixer, Mixer: MixerStep{Outputs: [][]MixerSource{
			{{Channel: 0, GainDB: 0}},
			{{Channel: 1, GainDB: 0}},
		}}},
	}
	g, err := Build(steps, 48000, 2, status.NewProcessingParameters())
	require.NoError(t, err)

	c := chunk.New(2, 1024)
	for i := range c.Waveforms[0] {
		c.Waveforms[0][i] = 0.1
		c.Waveforms[1][i] = 0.2
	}
	out, err := g.Process(c)
	require.NoError(t, err)
	assert.Equal(t, 1024, out.Frames)
	assert.Equal(t, 2, out.Channels())
}
