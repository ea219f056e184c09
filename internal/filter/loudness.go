package filter

import (
	"github.com/vaeringr/cdsp/internal/status"
)

// Loudness-shaping constants, ported from original_source/src/loudness.rs.
const (
	lowShelfGainFactor     = 0.52
	loudnessEffectStrength = 1.0
)

// LoudnessParams configures a Loudness stage: which fader's volume it
// tracks, the reference level it's calibrated against, and whether to
// chain a mid-band attenuator, per spec.md §4.3.
type LoudnessParams struct {
	Fader          int
	ReferenceLevel float64 // dB, must be in [-100, 0], per validation below
	AttenuateMid   bool
}

func (LoudnessParams) isFilterConfig() {}

// ValidateLoudnessParams mirrors loudness.rs's validate_config.
func ValidateLoudnessParams(p LoudnessParams) error {
	if p.ReferenceLevel > 0.0 {
		return errLoudnessRange("reference level must be less than 0")
	}
	if p.ReferenceLevel < -100.0 {
		return errLoudnessRange("reference level must be higher than -100")
	}
	return nil
}

func errLoudnessRange(msg string) error { return errWrongConfigMsg(msg) }

func errWrongConfigMsg(msg string) error { return &loudnessConfigError{msg} }

type loudnessConfigError struct{ msg string }

func (e *loudnessConfigError) Error() string { return "loudness: " + e.msg }

// calcLoudnessGain is calc_loudness_gain from loudness.rs: the nonnegative
// dB boost driving the shaping filters, clamped to [0, 40] per the
// GLOSSARY's "Loudness gain" definition.
func calcLoudnessGain(currentVolume, referenceLevel float64) float64 {
	g := referenceLevel - currentVolume
	if g < 0 {
		return 0
	}
	if g > 40 {
		return 40
	}
	return g
}

func highshelfConf(loudnessGain float64) BiquadParams {
	return BiquadParams{
		Kind: Highshelf, Width: ByQ,
		FreqHz: 10620.0, Q: 1.38,
		GainDB: 0.1456 * loudnessEffectStrength * loudnessGain,
	}
}

func lowshelfConf(loudnessGain float64) BiquadParams {
	return BiquadParams{
		Kind: Lowshelf, Width: BySlope,
		FreqHz: 120.0, Slope: 6.0,
		GainDB: lowShelfGainFactor * loudnessEffectStrength * loudnessGain,
	}
}

func peakingConf1(loudnessGain float64) BiquadParams {
	return BiquadParams{Kind: Peaking, Width: ByQ, FreqHz: 2000.0, Q: 0.6, GainDB: -0.0312 * loudnessEffectStrength * loudnessGain}
}

func peakingConf2(loudnessGain float64) BiquadParams {
	return BiquadParams{Kind: Peaking, Width: ByQ, FreqHz: 4000.0, Q: 0.8, GainDB: -0.01404 * loudnessEffectStrength * loudnessGain}
}

func peakingConf3(loudnessGain float64) BiquadParams {
	return BiquadParams{Kind: Peaking, Width: ByQ, FreqHz: 8000.0, Q: 2.13, GainDB: 0.0364 * loudnessEffectStrength * loudnessGain}
}

// Loudness is a volume-dependent equalizer: it polls
// ProcessingParameters.CurrentVolume for its fader, and when that value
// moves by more than 0.01 dB it recomputes its child biquads' coefficients
// without clearing their history, per spec.md §4.3.
type Loudness struct {
	name   string
	shared *status.ProcessingParameters

	sampleRate     float64
	fader          int
	referenceLevel float64
	attenuateMid   bool

	currentVolume float64
	active        bool

	high, low               *Biquad
	peaking1, peaking2, peaking3 *Biquad
	mid                     *Gain // nil unless attenuateMid
}

// NewLoudness constructs a Loudness stage, deriving its initial biquad
// coefficients from the fader's current target volume.
func NewLoudness(name string, sampleRate float64, p LoudnessParams, shared *status.ProcessingParameters) *Loudness {
	currentVolume := shared.TargetVolume(p.Fader)
	gain := calcLoudnessGain(currentVolume, p.ReferenceLevel)

	l := &Loudness{
		name:           name,
		shared:         shared,
		sampleRate:     sampleRate,
		fader:          p.Fader,
		referenceLevel: p.ReferenceLevel,
		attenuateMid:   p.AttenuateMid,
		currentVolume:  currentVolume,
		active:         gain > 0.01,
		high:           NewBiquad(name+".highshelf", sampleRate, highshelfConf(gain)),
		low:            NewBiquad(name+".lowshelf", sampleRate, lowshelfConf(gain)),
		peaking1:       NewBiquad(name+".peaking1", sampleRate, peakingConf1(gain)),
		peaking2:       NewBiquad(name+".peaking2", sampleRate, peakingConf2(gain)),
		peaking3:       NewBiquad(name+".peaking3", sampleRate, peakingConf3(gain)),
	}
	if p.AttenuateMid {
		l.mid = NewGain(name+".midgain", GainParams{GainDB: -lowShelfGainFactor * gain})
	}
	return l
}

func (l *Loudness) Name() string { return l.name }

func (l *Loudness) recomputeBiquads(gain float64) {
	l.high.SetCoefficients(l.sampleRate, highshelfConf(gain))
	l.low.SetCoefficients(l.sampleRate, lowshelfConf(gain))
	l.peaking1.SetCoefficients(l.sampleRate, peakingConf1(gain))
	l.peaking2.SetCoefficients(l.sampleRate, peakingConf2(gain))
	l.peaking3.SetCoefficients(l.sampleRate, peakingConf3(gain))
	if l.attenuateMid {
		maxGain := -lowShelfGainFactor * gain
		if l.mid == nil {
			l.mid = NewGain(l.name+".midgain", GainParams{GainDB: maxGain})
		} else {
			l.mid.UpdateParameters(GainParams{GainDB: maxGain})
		}
	} else {
		l.mid = nil
	}
}

func (l *Loudness) ProcessWaveform(w []float64) error {
	sharedVol := l.shared.CurrentVolume(l.fader)
	if abs(sharedVol-l.currentVolume) > 0.01 {
		l.currentVolume = sharedVol
		gain := calcLoudnessGain(l.currentVolume, l.referenceLevel)
		l.active = gain > 0.001
		l.recomputeBiquads(gain)
	}
	if !l.active {
		return nil
	}
	for _, stage := range []Stage{l.high, l.low, l.peaking1, l.peaking2, l.peaking3} {
		if err := stage.ProcessWaveform(w); err != nil {
			return err
		}
	}
	if l.mid != nil {
		return l.mid.ProcessWaveform(w)
	}
	return nil
}

func (l *Loudness) UpdateParameters(cfg Config) error {
	p, ok := cfg.(LoudnessParams)
	if !ok {
		return errWrongConfig(l.name, cfg)
	}
	l.fader = p.Fader
	l.referenceLevel = p.ReferenceLevel
	l.attenuateMid = p.AttenuateMid

	currentVolume := l.shared.CurrentVolume(l.fader)
	gain := calcLoudnessGain(currentVolume, l.referenceLevel)
	l.active = gain > 0.001
	l.recomputeBiquads(gain)
	return nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
