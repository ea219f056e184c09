// Package filter implements the per-channel, stateful DSP stages that make
// up a processing graph: Biquad, FIR, Delay, Gain, Volume, Dither, Loudness,
// Compressor, Limiter and Conv, per spec.md §3/§4.3/§9.
//
// Stages are modeled as a capability set rather than a class hierarchy, per
// spec.md §9: a Stage is anything that can process a waveform in place,
// accept a new parameter set without losing history, and report its name.
package filter

// Stage is satisfied by every filter variant. Implementations are
// single-channel and stateful: history persists between ProcessWaveform
// calls.
type Stage interface {
	// ProcessWaveform mutates the slice in place.
	ProcessWaveform(w []float64) error
	// UpdateParameters installs a new parameter set without clearing
	// internal history (a "zippered" coefficient change), so that a
	// parameter-only reload produces no click. The exception is a change of
	// filter length: FIR and Conv reset their history when the tap count
	// changes, and BiquadCombo rebuilds its sections when their number
	// changes. cfg's concrete type must
	// match the stage; mismatches return an error rather than panicking.
	UpdateParameters(cfg Config) error
	// Name reports the configured name of this stage instance.
	Name() string
}

// Config is the common tag interface every per-stage configuration variant
// implements, forming the tagged union spec.md §9 calls for.
type Config interface {
	isFilterConfig()
}
