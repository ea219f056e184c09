package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaeringr/cdsp/internal/chunk"
	"github.com/vaeringr/cdsp/internal/filter"
	"github.com/vaeringr/cdsp/internal/graph"
)

const sampleYAML = `
title: Living room
description: Two-way correction
devices:
  capture:
    type: portaudio
    name: default
    sample_rate: 48000
    block_size: 1024
    channels: 2
    format: S16LE
  playback:
    type: portaudio
    name: default
    sample_rate: 48000
    block_size: 1024
    channels: 2
    format: S16LE
filters:
  loud:
    type: loudness
    loudness:
      fader: 0
      reference_level: -20
      attenuate_mid: true
  bass_shelf:
    type: biquad
    biquad:
      type: lowshelf
      freq: 120
      slope: 6
      gain: -3
mixers:
  downmix:
    outputs:
      - - {channel: 0, gain: 0}
        - {channel: 1, gain: -6}
pipeline:
  - type: mixer
    mixer: downmix
  - type: filter
    channel: 0
    names: [bass_shelf, loud]
`

func TestLoadValidDocument(t *testing.T) {
	doc, err := Load([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "Living room", doc.Title)
	assert.Equal(t, 2, doc.Devices.Capture.Channels)
}

func TestCaptureAndPlaybackFormat(t *testing.T) {
	doc, err := Load([]byte(sampleYAML))
	require.NoError(t, err)

	cf, err := doc.CaptureFormat()
	require.NoError(t, err)
	assert.Equal(t, chunk.S16LE, cf.SampleFormat)
	assert.Equal(t, 1024, cf.BlockSize)

	pf, err := doc.PlaybackFormat()
	require.NoError(t, err)
	assert.Equal(t, 2, pf.Channels)
}

func TestGraphStepsBuildsMixerThenFilter(t *testing.T) {
	doc, err := Load([]byte(sampleYAML))
	require.NoError(t, err)

	steps, err := doc.GraphSteps()
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, graph.KindMixer, steps[0].Kind)
	assert.Len(t, steps[0].Mixer.Outputs, 1)

	assert.Equal(t, graph.KindFilter, steps[1].Kind)
	require.Len(t, steps[1].Filter.Stages, 2)
	assert.Equal(t, graph.StageBiquad, steps[1].Filter.Stages[0].Kind)
	assert.Equal(t, graph.StageLoudness, steps[1].Filter.Stages[1].Kind)

	biquad, ok := steps[1].Filter.Stages[0].Config.(filter.BiquadParams)
	require.True(t, ok)
	assert.Equal(t, filter.Lowshelf, biquad.Kind)
	assert.Equal(t, filter.BySlope, biquad.Width)
	assert.Equal(t, 6.0, biquad.Slope)
}

func TestValidateRejectsUnknownFilterReference(t *testing.T) {
	bad := sampleYAML + "\n"
	doc := &Document{}
	require.NoError(t, loadInto(doc, []byte(sampleYAML)))
	doc.Pipeline[1].Names = append(doc.Pipeline[1].Names, "missing_filter")
	_ = bad
	assert.Error(t, doc.Validate())
}

func TestValidateRejectsBadSampleFormat(t *testing.T) {
	doc := &Document{}
	require.NoError(t, loadInto(doc, []byte(sampleYAML)))
	doc.Devices.Capture.Format = "XX"
	assert.Error(t, doc.Validate())
}

func loadInto(doc *Document, data []byte) error {
	loaded, err := Load(data)
	if err != nil {
		return err
	}
	*doc = *loaded
	return nil
}
