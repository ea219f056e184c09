// Package ratectrl implements the PI rate-matching controller described in
// spec.md §4.2, ported from original_source/src/helpers.rs's
// PIRateController.
package ratectrl

import "math"

const (
	// DefaultKP is the proportional gain.
	DefaultKP = 0.2
	// DefaultKI is the integral gain.
	DefaultKI = 0.004
	// DefaultRampSteps is the number of update() calls a set-point ramp
	// takes to complete.
	DefaultRampSteps = 20
	// DefaultRampTriggerLimit re-arms the ramp when the relative error
	// exceeds this fraction of the target level.
	DefaultRampTriggerLimit = 0.33

	clampLow  = -0.005
	clampHigh = 0.005
)

// Controller holds a target buffer fill level (in frames) and nudges a
// capture device's resampling ratio to hold the playback buffer there,
// smoothing large corrections with a quartic ramp to avoid audible pumping.
type Controller struct {
	targetLevel        float64
	interval           float64
	kP, kI             float64
	framesPerInterval  float64
	rampSteps          int
	rampTriggerLimit   float64

	accumulated float64
	rampStart   float64
	rampStep    int
}

// New constructs a controller with explicit gains and ramp parameters.
// fs is the sample rate, interval the seconds between Update calls,
// targetLevel the desired playback buffer fill in frames.
func New(fs float64, interval float64, targetLevel float64, kP, kI float64, rampSteps int, rampTriggerLimit float64) *Controller {
	return &Controller{
		targetLevel:       targetLevel,
		interval:          interval,
		kP:                kP,
		kI:                kI,
		framesPerInterval: interval * fs,
		rampSteps:         rampSteps,
		rampTriggerLimit:  rampTriggerLimit,
		rampStart:         targetLevel,
	}
}

// NewWithDefaults constructs a controller using the defaults from spec.md
// §4.2: k_p=0.2, k_i=0.004, ramp_steps=20, ramp_trigger_limit=0.33.
func NewWithDefaults(fs float64, interval float64, targetLevel float64) *Controller {
	return New(fs, interval, targetLevel, DefaultKP, DefaultKI, DefaultRampSteps, DefaultRampTriggerLimit)
}

// Update runs one control interval given the measured buffer fill `level`
// (frames) and returns the speed multiplier to apply to the capture
// device's resampling ratio. The result always lies in [0.995, 1.005].
func (c *Controller) Update(level float64) float64 {
	if c.rampStep >= c.rampSteps &&
		math.Abs((c.targetLevel-level)/c.targetLevel) > c.rampTriggerLimit {
		c.rampStart = level
		c.rampStep = 0
	}
	if c.rampStep == 0 {
		c.rampStart = level
	}

	var currentTarget float64
	if c.rampStep < c.rampSteps {
		c.rampStep++
		frac := float64(c.rampSteps-c.rampStep) / float64(c.rampSteps)
		currentTarget = c.rampStart + (c.targetLevel-c.rampStart)*(1-math.Pow(frac, 4))
	} else {
		currentTarget = c.targetLevel
	}

	err := level - currentTarget
	relErr := err / c.framesPerInterval
	c.accumulated += relErr * c.interval

	output := c.kP*relErr + c.kI*c.accumulated
	output = clamp(output, clampLow, clampHigh)
	return 1.0 - output
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
