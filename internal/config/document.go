// Package config loads and validates the YAML configuration document that
// describes devices, filters, mixers, and the processing pipeline, per
// spec.md §6. It is explicitly not the core: the core only ever touches
// the validated in-memory Document this package produces, never the YAML
// itself.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DeviceConfig names one capture or playback device block, per spec.md §6.
type DeviceConfig struct {
	Type       string `yaml:"type"`
	Name       string `yaml:"name"`
	SampleRate int    `yaml:"sample_rate"`
	BlockSize  int    `yaml:"block_size"`
	Channels   int    `yaml:"channels"`
	Format     string `yaml:"format"`
}

// DevicesConfig is the {devices} section: one capture device and one
// playback device.
type DevicesConfig struct {
	Capture  DeviceConfig `yaml:"capture"`
	Playback DeviceConfig `yaml:"playback"`
}

// BiquadFilterConfig is a single biquad stage's YAML shape.
type BiquadFilterConfig struct {
	FilterType string  `yaml:"type"` // lowpass, highpass, lowshelf, highshelf, peaking, notch, bandpass, allpass
	Freq       float64 `yaml:"freq"`
	Q          float64 `yaml:"q"`
	Slope      float64 `yaml:"slope"`
	Bandwidth  float64 `yaml:"bandwidth"`
	Gain       float64 `yaml:"gain"`
}

// GainFilterConfig is a Gain stage's YAML shape.
type GainFilterConfig struct {
	Gain     float64 `yaml:"gain"`
	Inverted bool    `yaml:"inverted"`
	Mute     bool    `yaml:"mute"`
	Scale    float64 `yaml:"scale"`
}

// VolumeFilterConfig is a Volume stage's YAML shape.
type VolumeFilterConfig struct {
	Fader      int     `yaml:"fader"`
	RampTimeMS float64 `yaml:"ramp_time_ms"`
}

// LoudnessFilterConfig is a Loudness stage's YAML shape.
type LoudnessFilterConfig struct {
	Fader          int     `yaml:"fader"`
	ReferenceLevel float64 `yaml:"reference_level"`
	AttenuateMid   bool    `yaml:"attenuate_mid"`
}

// DelayFilterConfig is a Delay stage's YAML shape.
type DelayFilterConfig struct {
	Samples int `yaml:"samples"`
}

// FIRFilterConfig is an FIR/Conv stage's YAML shape.
type FIRFilterConfig struct {
	Taps []float64 `yaml:"taps"`
}

// BiquadComboFilterConfig is a BiquadCombo stage's YAML shape.
type BiquadComboFilterConfig struct {
	Sections []BiquadFilterConfig `yaml:"sections"`
}

// DitherFilterConfig is a Dither stage's YAML shape.
type DitherFilterConfig struct {
	Bits int `yaml:"bits"`
}

// DynamicsFilterConfig is a Compressor/Limiter stage's YAML shape.
type DynamicsFilterConfig struct {
	Threshold float64 `yaml:"threshold"`
	Ratio     float64 `yaml:"ratio"`
	AttackMS  float64 `yaml:"attack_ms"`
	ReleaseMS float64 `yaml:"release_ms"`
	Makeup    float64 `yaml:"makeup"`
}

// FilterConfig is one named entry in the {filters} section: Type selects
// which of the *Config fields below is populated, mirroring the way a
// YAML document tags a union by a sibling "type" field rather than Go's
// type system.
type FilterConfig struct {
	Type string `yaml:"type"` // biquad, biquad_combo, fir, conv, delay, gain, volume, dither, loudness, compressor, limiter

	Biquad      *BiquadFilterConfig      `yaml:"biquad,omitempty"`
	BiquadCombo *BiquadComboFilterConfig `yaml:"biquad_combo,omitempty"`
	FIR         *FIRFilterConfig         `yaml:"fir,omitempty"`
	Conv        *FIRFilterConfig         `yaml:"conv,omitempty"`
	Delay       *DelayFilterConfig       `yaml:"delay,omitempty"`
	Gain        *GainFilterConfig        `yaml:"gain,omitempty"`
	Volume      *VolumeFilterConfig      `yaml:"volume,omitempty"`
	Dither      *DitherFilterConfig      `yaml:"dither,omitempty"`
	Loudness    *LoudnessFilterConfig    `yaml:"loudness,omitempty"`
	Dynamics    *DynamicsFilterConfig    `yaml:"dynamics,omitempty"`
}

// MixerSourceConfig is one source contribution to a mixer output channel.
type MixerSourceConfig struct {
	Channel  int     `yaml:"channel"`
	Gain     float64 `yaml:"gain"`
	Inverted bool    `yaml:"inverted"`
	Mute     bool    `yaml:"mute"`
}

// MixerConfig is one named entry in the {mixers} section.
type MixerConfig struct {
	Outputs [][]MixerSourceConfig `yaml:"outputs"`
}

// PipelineStep is one entry in the {pipeline} section: either a mixer
// reference or a channel + ordered list of filter references.
type PipelineStep struct {
	Type    string   `yaml:"type"` // "mixer" or "filter"
	Mixer   string   `yaml:"mixer,omitempty"`
	Channel int      `yaml:"channel,omitempty"`
	Names   []string `yaml:"names,omitempty"`
}

// Document is the full in-memory configuration document, per spec.md §6's
// {devices, filters, mixers, pipeline, title, description} sections.
type Document struct {
	Title       string                  `yaml:"title"`
	Description string                  `yaml:"description"`
	Devices     DevicesConfig           `yaml:"devices"`
	Filters     map[string]FilterConfig `yaml:"filters"`
	Mixers      map[string]MixerConfig  `yaml:"mixers"`
	Pipeline    []PipelineStep          `yaml:"pipeline"`
}

// Load parses a YAML document into a Document and validates it.
func Load(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document's cross-references (pipeline steps naming
// real filters/mixers, device blocks carrying a known sample format)
// before anything in it is allowed to build a graph, per spec.md §7's "all
// unexpected conditions validated before any audio flows."
func (d *Document) Validate() error {
	if d.Devices.Capture.Channels <= 0 {
		return fmt.Errorf("config: devices.capture.channels must be positive")
	}
	if d.Devices.Playback.Channels <= 0 {
		return fmt.Errorf("config: devices.playback.channels must be positive")
	}
	if _, err := parseSampleFormat(d.Devices.Capture.Format); err != nil {
		return fmt.Errorf("config: devices.capture: %w", err)
	}
	if _, err := parseSampleFormat(d.Devices.Playback.Format); err != nil {
		return fmt.Errorf("config: devices.playback: %w", err)
	}

	for i, step := range d.Pipeline {
		switch step.Type {
		case "mixer":
			if _, ok := d.Mixers[step.Mixer]; !ok {
				return fmt.Errorf("config: pipeline step %d: unknown mixer %q", i, step.Mixer)
			}
		case "filter":
			for _, name := range step.Names {
				if _, ok := d.Filters[name]; !ok {
					return fmt.Errorf("config: pipeline step %d: unknown filter %q", i, name)
				}
			}
		default:
			return fmt.Errorf("config: pipeline step %d: unknown step type %q", i, step.Type)
		}
	}
	return nil
}
