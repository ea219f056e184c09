package graph

import (
	"fmt"

	"github.com/vaeringr/cdsp/internal/filter"
	"github.com/vaeringr/cdsp/internal/status"
)

// StageKind names which filter.Stage variant a StageSpec builds, per
// spec.md §3's FilterStage variant list.
type StageKind int

const (
	StageBiquad StageKind = iota
	StageBiquadCombo
	StageFIR
	StageDelay
	StageGain
	StageVolume
	StageDither
	StageLoudness
	StageCompressor
	StageLimiter
	StageConv
)

func (k StageKind) String() string {
	switch k {
	case StageBiquad:
		return "biquad"
	case StageBiquadCombo:
		return "biquad_combo"
	case StageFIR:
		return "fir"
	case StageDelay:
		return "delay"
	case StageGain:
		return "gain"
	case StageVolume:
		return "volume"
	case StageDither:
		return "dither"
	case StageLoudness:
		return "loudness"
	case StageCompressor:
		return "compressor"
	case StageLimiter:
		return "limiter"
	case StageConv:
		return "conv"
	default:
		return "unknown"
	}
}

// StageSpec declaratively describes one filter stage: its identity (Name +
// Kind, used by the hot-reload protocol to decide update-in-place vs
// rebuild, per spec.md §4.3) and the parameters to build or update it with.
type StageSpec struct {
	Name   string
	Kind   StageKind
	Config filter.Config
}

func sameIdentity(a, b StageSpec) bool {
	return a.Name == b.Name && a.Kind == b.Kind
}

// buildStage instantiates a fresh filter.Stage with zeroed history.
func buildStage(spec StageSpec, sampleRate float64, shared *status.ProcessingParameters) (filter.Stage, error) {
	switch spec.Kind {
	case StageBiquad:
		p, ok := spec.Config.(filter.BiquadParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewBiquad(spec.Name, sampleRate, p), nil

	case StageBiquadCombo:
		p, ok := spec.Config.(filter.BiquadComboParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewBiquadCombo(spec.Name, sampleRate, p), nil

	case StageFIR:
		p, ok := spec.Config.(filter.FIRParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewFIR(spec.Name, p), nil

	case StageDelay:
		p, ok := spec.Config.(filter.DelayParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewDelay(spec.Name, p), nil

	case StageGain:
		p, ok := spec.Config.(filter.GainParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewGain(spec.Name, p), nil

	case StageVolume:
		p, ok := spec.Config.(filter.VolumeParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewVolume(spec.Name, sampleRate, p, shared), nil

	case StageDither:
		p, ok := spec.Config.(filter.DitherParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewDither(spec.Name, p), nil

	case StageLoudness:
		p, ok := spec.Config.(filter.LoudnessParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		if err := filter.ValidateLoudnessParams(p); err != nil {
			return nil, fmt.Errorf("graph: stage %q: %w", spec.Name, err)
		}
		return filter.NewLoudness(spec.Name, sampleRate, p, shared), nil

	case StageCompressor:
		p, ok := spec.Config.(filter.DynamicsParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewCompressor(spec.Name, sampleRate, p), nil

	case StageLimiter:
		p, ok := spec.Config.(filter.DynamicsParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewLimiter(spec.Name, sampleRate, p), nil

	case StageConv:
		p, ok := spec.Config.(filter.ConvParams)
		if !ok {
			return nil, errConfigMismatch(spec)
		}
		return filter.NewConv(spec.Name, p), nil

	default:
		return nil, fmt.Errorf("graph: stage %q: unknown stage kind %v", spec.Name, spec.Kind)
	}
}

// updateConfigFor wraps a spec's Config the way each stage's
// UpdateParameters expects it. Biquad needs its sample rate alongside the
// parameters; every other stage takes its Params struct directly.
func updateConfigFor(spec StageSpec, sampleRate float64) filter.Config {
	if spec.Kind == StageBiquad {
		p := spec.Config.(filter.BiquadParams)
		return filter.NewBiquadUpdate(sampleRate, p)
	}
	return spec.Config
}

func errConfigMismatch(spec StageSpec) error {
	return fmt.Errorf("graph: stage %q: config type does not match kind %v", spec.Name, spec.Kind)
}
