package config

import (
	"fmt"

	"github.com/vaeringr/cdsp/internal/chunk"
	"github.com/vaeringr/cdsp/internal/device"
	"github.com/vaeringr/cdsp/internal/filter"
	"github.com/vaeringr/cdsp/internal/graph"
)

func parseSampleFormat(s string) (chunk.SampleFormat, error) {
	switch s {
	case "S16LE":
		return chunk.S16LE, nil
	case "S24LE":
		return chunk.S24LE, nil
	case "S32LE":
		return chunk.S32LE, nil
	case "F32LE":
		return chunk.F32LE, nil
	case "F64LE":
		return chunk.F64LE, nil
	default:
		return 0, fmt.Errorf("unknown sample format %q", s)
	}
}

// CaptureFormat builds the device.Format the capture device should open
// with.
func (d *Document) CaptureFormat() (device.Format, error) {
	return deviceFormat(d.Devices.Capture)
}

// PlaybackFormat builds the device.Format the playback device should open
// with.
func (d *Document) PlaybackFormat() (device.Format, error) {
	return deviceFormat(d.Devices.Playback)
}

func deviceFormat(dc DeviceConfig) (device.Format, error) {
	sf, err := parseSampleFormat(dc.Format)
	if err != nil {
		return device.Format{}, err
	}
	return device.Format{
		SampleRate:   float64(dc.SampleRate),
		Channels:     dc.Channels,
		BlockSize:    dc.BlockSize,
		SampleFormat: sf,
	}, nil
}

// GraphSteps translates the {pipeline} section into graph.Step values,
// resolving each named filter/mixer reference against {filters}/{mixers}.
// The document must already have passed Validate.
func (d *Document) GraphSteps() ([]graph.Step, error) {
	steps := make([]graph.Step, 0, len(d.Pipeline))
	for i, ps := range d.Pipeline {
		switch ps.Type {
		case "mixer":
			mc := d.Mixers[ps.Mixer]
			steps = append(steps, graph.Step{Kind: graph.KindMixer, Mixer: buildMixerStep(mc)})
		case "filter":
			specs := make([]graph.StageSpec, 0, len(ps.Names))
			for _, name := range ps.Names {
				spec, err := buildStageSpec(name, d.Filters[name])
				if err != nil {
					return nil, fmt.Errorf("config: pipeline step %d: %w", i, err)
				}
				specs = append(specs, spec)
			}
			steps = append(steps, graph.Step{Kind: graph.KindFilter, Filter: graph.FilterStep{Channel: ps.Channel, Stages: specs}})
		}
	}
	return steps, nil
}

func buildMixerStep(mc MixerConfig) graph.MixerStep {
	outputs := make([][]graph.MixerSource, len(mc.Outputs))
	for i, sources := range mc.Outputs {
		out := make([]graph.MixerSource, len(sources))
		for j, s := range sources {
			out[j] = graph.MixerSource{Channel: s.Channel, GainDB: s.Gain, Inverted: s.Inverted, Mute: s.Mute}
		}
		outputs[i] = out
	}
	return graph.MixerStep{Outputs: outputs}
}

func parseBiquadKind(s string) (filter.BiquadKind, error) {
	switch s {
	case "lowpass":
		return filter.Lowpass, nil
	case "highpass":
		return filter.Highpass, nil
	case "lowshelf":
		return filter.Lowshelf, nil
	case "highshelf":
		return filter.Highshelf, nil
	case "peaking":
		return filter.Peaking, nil
	case "notch":
		return filter.Notch, nil
	case "bandpass":
		return filter.Bandpass, nil
	case "allpass":
		return filter.Allpass, nil
	default:
		return 0, fmt.Errorf("unknown biquad type %q", s)
	}
}

func buildBiquadParams(bc BiquadFilterConfig) (filter.BiquadParams, error) {
	kind, err := parseBiquadKind(bc.FilterType)
	if err != nil {
		return filter.BiquadParams{}, err
	}
	p := filter.BiquadParams{Kind: kind, FreqHz: bc.Freq, Q: bc.Q, GainDB: bc.Gain}
	switch {
	case bc.Slope != 0:
		p.Width = filter.BySlope
		p.Slope = bc.Slope
	case bc.Bandwidth != 0:
		p.Width = filter.ByBandwidth
		p.BWOct = bc.Bandwidth
	default:
		p.Width = filter.ByQ
	}
	return p, nil
}

func buildStageSpec(name string, fc FilterConfig) (graph.StageSpec, error) {
	switch fc.Type {
	case "biquad":
		if fc.Biquad == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing biquad block", name)
		}
		p, err := buildBiquadParams(*fc.Biquad)
		if err != nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: %w", name, err)
		}
		return graph.StageSpec{Name: name, Kind: graph.StageBiquad, Config: p}, nil

	case "biquad_combo":
		if fc.BiquadCombo == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing biquad_combo block", name)
		}
		sections := make([]filter.BiquadParams, len(fc.BiquadCombo.Sections))
		for i, s := range fc.BiquadCombo.Sections {
			p, err := buildBiquadParams(s)
			if err != nil {
				return graph.StageSpec{}, fmt.Errorf("filter %q: section %d: %w", name, i, err)
			}
			sections[i] = p
		}
		return graph.StageSpec{Name: name, Kind: graph.StageBiquadCombo, Config: filter.BiquadComboParams{Sections: sections}}, nil

	case "fir":
		if fc.FIR == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing fir block", name)
		}
		return graph.StageSpec{Name: name, Kind: graph.StageFIR, Config: filter.FIRParams{Taps: fc.FIR.Taps}}, nil

	case "conv":
		if fc.Conv == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing conv block", name)
		}
		return graph.StageSpec{Name: name, Kind: graph.StageConv, Config: filter.ConvParams{Impulse: fc.Conv.Taps}}, nil

	case "delay":
		if fc.Delay == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing delay block", name)
		}
		return graph.StageSpec{Name: name, Kind: graph.StageDelay, Config: filter.DelayParams{Samples: fc.Delay.Samples}}, nil

	case "gain":
		if fc.Gain == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing gain block", name)
		}
		g := *fc.Gain
		return graph.StageSpec{Name: name, Kind: graph.StageGain, Config: filter.GainParams{GainDB: g.Gain, Inverted: g.Inverted, Mute: g.Mute, Scale: g.Scale}}, nil

	case "volume":
		if fc.Volume == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing volume block", name)
		}
		v := *fc.Volume
		return graph.StageSpec{Name: name, Kind: graph.StageVolume, Config: filter.VolumeParams{Fader: v.Fader, RampTimeMS: v.RampTimeMS}}, nil

	case "dither":
		if fc.Dither == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing dither block", name)
		}
		return graph.StageSpec{Name: name, Kind: graph.StageDither, Config: filter.DitherParams{Bits: fc.Dither.Bits}}, nil

	case "loudness":
		if fc.Loudness == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing loudness block", name)
		}
		l := *fc.Loudness
		return graph.StageSpec{Name: name, Kind: graph.StageLoudness, Config: filter.LoudnessParams{Fader: l.Fader, ReferenceLevel: l.ReferenceLevel, AttenuateMid: l.AttenuateMid}}, nil

	case "compressor":
		if fc.Dynamics == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing dynamics block", name)
		}
		return graph.StageSpec{Name: name, Kind: graph.StageCompressor, Config: dynamicsParams(*fc.Dynamics)}, nil

	case "limiter":
		if fc.Dynamics == nil {
			return graph.StageSpec{}, fmt.Errorf("filter %q: missing dynamics block", name)
		}
		return graph.StageSpec{Name: name, Kind: graph.StageLimiter, Config: dynamicsParams(*fc.Dynamics)}, nil

	default:
		return graph.StageSpec{}, fmt.Errorf("filter %q: unknown type %q", name, fc.Type)
	}
}

func dynamicsParams(dc DynamicsFilterConfig) filter.DynamicsParams {
	return filter.DynamicsParams{
		ThresholdDB: dc.Threshold,
		Ratio:       dc.Ratio,
		AttackMS:    dc.AttackMS,
		ReleaseMS:   dc.ReleaseMS,
		MakeupDB:    dc.Makeup,
	}
}
