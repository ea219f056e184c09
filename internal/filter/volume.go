package filter

import (
	"math"

	"github.com/vaeringr/cdsp/internal/status"
)

// VolumeParams configures a Volume stage: which fader it tracks and how
// fast it ramps towards a new target_volume, per spec.md §4.3.
type VolumeParams struct {
	Fader      int
	RampTimeMS float64 // 0 disables ramping: volume jumps immediately
}

func (VolumeParams) isFilterConfig() {}

// Volume ramps ProcessingParameters.CurrentVolume towards TargetVolume
// sample-by-sample, applying mute, and writes the smoothed value back so
// every stage reading CurrentVolume (notably Loudness) sees consistent
// state.
type Volume struct {
	name   string
	params VolumeParams
	shared *status.ProcessingParameters

	sampleRate  float64
	currentGain float64 // linear, applied this sample
}

// NewVolume constructs a Volume stage bound to shared ProcessingParameters.
func NewVolume(name string, sampleRate float64, p VolumeParams, shared *status.ProcessingParameters) *Volume {
	v := &Volume{name: name, params: p, shared: shared, sampleRate: sampleRate}
	v.currentGain = dbToLinear(shared.CurrentVolume(p.Fader))
	return v
}

func dbToLinear(db float64) float64 { return math.Pow(10, db/20) }

func (v *Volume) Name() string { return v.name }

// slewPerSample is the maximum linear-gain change allowed per sample, given
// RampTimeMS; RampTimeMS == 0 means "no limit" (immediate jump).
func (v *Volume) slewPerSample(fromLinear, toLinear float64) float64 {
	if v.params.RampTimeMS <= 0 {
		return math.Abs(toLinear - fromLinear)
	}
	rampSamples := v.params.RampTimeMS / 1000 * v.sampleRate
	if rampSamples < 1 {
		rampSamples = 1
	}
	return math.Abs(toLinear-fromLinear) / rampSamples
}

func (v *Volume) ProcessWaveform(w []float64) error {
	fader := v.params.Fader
	targetDB := v.shared.TargetVolume(fader)
	if v.shared.Mute(fader) {
		targetDB = status.VolumeMin
	}
	targetLinear := dbToLinear(targetDB)

	step := v.slewPerSample(v.currentGain, targetLinear)
	for i, x := range w {
		if v.currentGain < targetLinear {
			v.currentGain += step
			if v.currentGain > targetLinear {
				v.currentGain = targetLinear
			}
		} else if v.currentGain > targetLinear {
			v.currentGain -= step
			if v.currentGain < targetLinear {
				v.currentGain = targetLinear
			}
		}
		w[i] = x * v.currentGain
	}
	v.shared.SetCurrentVolume(fader, linearToDB(v.currentGain))
	return nil
}

func linearToDB(linear float64) float64 {
	if linear <= 0 {
		return status.VolumeMin
	}
	return 20 * math.Log10(linear)
}

func (v *Volume) UpdateParameters(cfg Config) error {
	p, ok := cfg.(VolumeParams)
	if !ok {
		return errWrongConfig(v.name, cfg)
	}
	v.params = p
	return nil
}
