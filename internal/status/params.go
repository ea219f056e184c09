// Package status holds the shared, lifetime-managed state that the audio
// workers and the control surface read and write concurrently:
// ProcessingParameters (volumes/mutes), and the per-direction Capture/
// Playback status structs with their signal-statistics rings.
package status

import "sync"

// NumFaders is the number of independent (volume, mute) set-points; fader 0
// is the main, per the GLOSSARY.
const NumFaders = 5

// VolumeMin and VolumeMax bound every set_volume call, per spec.md §8.
const (
	VolumeMin = -150.0
	VolumeMax = 50.0
)

// ProcessingParameters is process-wide, shared, mutex-guarded state: fader
// volumes and mutes, and the current ramping volume applied this tick.
// Writers are the control surface and the processing thread's volume-ramp
// stage; readers are any stage that depends on volume or loudness.
type ProcessingParameters struct {
	mu sync.Mutex

	targetVolume  [NumFaders]float64
	currentVolume [NumFaders]float64
	mute          [NumFaders]bool
}

// NewProcessingParameters returns parameters with every fader at 0 dB,
// unmuted.
func NewProcessingParameters() *ProcessingParameters {
	return &ProcessingParameters{}
}

func clampVolume(db float64) float64 {
	if db < VolumeMin {
		return VolumeMin
	}
	if db > VolumeMax {
		return VolumeMax
	}
	return db
}

// SetVolume sets the target volume for a fader, clamped to
// [VolumeMin, VolumeMax].
func (p *ProcessingParameters) SetVolume(fader int, db float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targetVolume[fader] = clampVolume(db)
}

// TargetVolume returns the user set-point for a fader.
func (p *ProcessingParameters) TargetVolume(fader int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.targetVolume[fader]
}

// CurrentVolume returns what the graph applied on the most recent chunk,
// which may still be ramping towards TargetVolume.
func (p *ProcessingParameters) CurrentVolume(fader int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentVolume[fader]
}

// SetCurrentVolume is called by the Volume stage's smoothing logic after
// each chunk.
func (p *ProcessingParameters) SetCurrentVolume(fader int, db float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentVolume[fader] = db
}

// SetMute sets the mute flag for a fader.
func (p *ProcessingParameters) SetMute(fader int, mute bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mute[fader] = mute
}

// ToggleMute flips the mute flag for a fader and returns the new value.
func (p *ProcessingParameters) ToggleMute(fader int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mute[fader] = !p.mute[fader]
	return p.mute[fader]
}

// Mute reports whether a fader is muted.
func (p *ProcessingParameters) Mute(fader int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mute[fader]
}
