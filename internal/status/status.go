package status

import "sync"

// ProcessingState mirrors the per-direction Running/Paused/Starting/Stalled
// state named in spec.md §3.
type ProcessingState int

const (
	Starting ProcessingState = iota
	Running
	Paused
	Stalled
	Stopped
)

func (s ProcessingState) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Stalled:
		return "Stalled"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// StopReason is the terminal cause surfaced when the engine halts, per
// spec.md §6/§7.
type StopReason int

const (
	StopNone StopReason = iota
	StopDone
	StopCaptureError
	StopPlaybackError
	StopCaptureFormatChange
	StopPlaybackFormatChange
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "None"
	case StopDone:
		return "Done"
	case StopCaptureError:
		return "CaptureError"
	case StopPlaybackError:
		return "PlaybackError"
	case StopCaptureFormatChange:
		return "CaptureFormatChange"
	case StopPlaybackFormatChange:
		return "PlaybackFormatChange"
	default:
		return "Unknown"
	}
}

// DirectionStatus is the telemetry shared by CaptureStatus and
// PlaybackStatus: measured rate, rate-adjust factor, signal range,
// buffer-level, clipped-sample counter, processing state, and the peak/rms
// rings.
type DirectionStatus struct {
	mu sync.Mutex

	measuredRate  float64
	rateAdjust    float64
	signalRange   float64
	bufferLevel   int
	clippedTotal  int
	state         ProcessingState
	updateInterval float64

	Peak *Ring
	RMS  *Ring
}

// NewDirectionStatus allocates a status struct with peak/rms rings of the
// given capacity and channel width.
func NewDirectionStatus(ringCapacity, channels int) *DirectionStatus {
	return &DirectionStatus{
		rateAdjust:     1.0,
		updateInterval: 1.0,
		Peak:           NewRing(ringCapacity, channels),
		RMS:            NewRing(ringCapacity, channels),
	}
}

func (d *DirectionStatus) SetMeasuredRate(r float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.measuredRate = r
}

func (d *DirectionStatus) MeasuredRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.measuredRate
}

func (d *DirectionStatus) SetRateAdjust(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rateAdjust = v
}

func (d *DirectionStatus) RateAdjust() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rateAdjust
}

func (d *DirectionStatus) SetSignalRange(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signalRange = v
}

func (d *DirectionStatus) SignalRange() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.signalRange
}

func (d *DirectionStatus) SetBufferLevel(frames int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bufferLevel = frames
}

func (d *DirectionStatus) BufferLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bufferLevel
}

// AddClipped increments the clipped-sample counter by n.
func (d *DirectionStatus) AddClipped(n int) {
	if n == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clippedTotal += n
}

func (d *DirectionStatus) ClippedSamples() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clippedTotal
}

func (d *DirectionStatus) ResetClippedSamples() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clippedTotal = 0
}

func (d *DirectionStatus) SetState(s ProcessingState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}

func (d *DirectionStatus) State() ProcessingState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *DirectionStatus) SetUpdateInterval(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updateInterval = seconds
}

func (d *DirectionStatus) UpdateInterval() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateInterval
}

// CaptureStatus and PlaybackStatus are distinct types over the same shape so
// the supervisor and control surface can't mix them up at the type level.
type CaptureStatus struct{ *DirectionStatus }
type PlaybackStatus struct{ *DirectionStatus }

func NewCaptureStatus(ringCapacity, channels int) *CaptureStatus {
	return &CaptureStatus{DirectionStatus: NewDirectionStatus(ringCapacity, channels)}
}

func NewPlaybackStatus(ringCapacity, channels int) *PlaybackStatus {
	return &PlaybackStatus{DirectionStatus: NewDirectionStatus(ringCapacity, channels)}
}
