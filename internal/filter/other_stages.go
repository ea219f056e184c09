package filter

import "math"

// This file holds the stage variants spec.md §4.3 names but leaves as
// "implementation concerns": Delay, FIR, Compressor, Limiter, Dither, Conv
// and BiquadCombo. Each satisfies the same three-method Stage contract as
// Biquad/Gain/Volume/Loudness.

// --- Delay ---------------------------------------------------------------

// DelayParams configures a Delay stage in integer samples.
type DelayParams struct {
	Samples int
}

func (DelayParams) isFilterConfig() {}

// Delay is a simple circular-buffer sample delay.
type Delay struct {
	name string
	buf  []float64
	pos  int
}

func NewDelay(name string, p DelayParams) *Delay {
	n := p.Samples
	if n < 0 {
		n = 0
	}
	return &Delay{name: name, buf: make([]float64, n)}
}

func (d *Delay) Name() string { return d.name }

func (d *Delay) ProcessWaveform(w []float64) error {
	if len(d.buf) == 0 {
		return nil
	}
	for i, x := range w {
		w[i] = d.buf[d.pos]
		d.buf[d.pos] = x
		d.pos = (d.pos + 1) % len(d.buf)
	}
	return nil
}

func (d *Delay) UpdateParameters(cfg Config) error {
	p, ok := cfg.(DelayParams)
	if !ok {
		return errWrongConfig(d.name, cfg)
	}
	n := p.Samples
	if n < 0 {
		n = 0
	}
	if n == len(d.buf) {
		return nil
	}
	// Reload that grows/shrinks the delay line reallocates; existing
	// history within the shared length is preserved in order.
	newBuf := make([]float64, n)
	for i := 0; i < n && i < len(d.buf); i++ {
		newBuf[i] = d.buf[(d.pos+i)%len(d.buf)]
	}
	d.buf = newBuf
	d.pos = 0
	return nil
}

// --- FIR -------------------------------------------------------------------

// FIRParams configures a direct-form FIR stage by its tap coefficients.
type FIRParams struct {
	Taps []float64
}

func (FIRParams) isFilterConfig() {}

// FIR is a direct-form FIR filter with a history ring the length of the
// tap count.
type FIR struct {
	name    string
	taps    []float64
	history []float64
	pos     int
}

func NewFIR(name string, p FIRParams) *FIR {
	return &FIR{name: name, taps: append([]float64(nil), p.Taps...), history: make([]float64, len(p.Taps))}
}

func (f *FIR) Name() string { return f.name }

func (f *FIR) ProcessWaveform(w []float64) error {
	n := len(f.taps)
	if n == 0 {
		return nil
	}
	for i, x := range w {
		f.history[f.pos] = x
		var acc float64
		idx := f.pos
		for _, tap := range f.taps {
			acc += tap * f.history[idx]
			idx--
			if idx < 0 {
				idx = n - 1
			}
		}
		f.pos = (f.pos + 1) % n
		w[i] = acc
	}
	return nil
}

func (f *FIR) UpdateParameters(cfg Config) error {
	p, ok := cfg.(FIRParams)
	if !ok {
		return errWrongConfig(f.name, cfg)
	}
	f.taps = append([]float64(nil), p.Taps...)
	if len(f.taps) != len(f.history) {
		f.history = make([]float64, len(f.taps))
		f.pos = 0
	}
	return nil
}

// --- Conv (FFT/overlap convolution placeholder) ----------------------------

// ConvParams configures a Conv stage by an impulse response. The spec
// treats FFT convolution kernels as an opaque stage implementation
// (spec.md §1); this direct-form convolution satisfies the same contract
// for correctness, trading efficiency on long impulse responses.
type ConvParams struct {
	Impulse []float64
}

func (ConvParams) isFilterConfig() {}

// Conv shares its implementation with FIR: both are direct-form
// convolutions against a fixed coefficient vector.
type Conv struct{ *FIR }

func NewConv(name string, p ConvParams) *Conv {
	return &Conv{FIR: NewFIR(name, FIRParams{Taps: p.Impulse})}
}

func (c *Conv) UpdateParameters(cfg Config) error {
	p, ok := cfg.(ConvParams)
	if !ok {
		return errWrongConfig(c.Name(), cfg)
	}
	return c.FIR.UpdateParameters(FIRParams{Taps: p.Impulse})
}

// --- BiquadCombo (cascaded fixed-purpose biquad stacks, e.g. Linkwitz-Riley) -

// BiquadComboParams configures a cascade of biquads sharing one identity,
// e.g. a 4th-order Linkwitz-Riley crossover built from two 2nd-order
// Butterworth sections.
type BiquadComboParams struct {
	Sections []BiquadParams
}

func (BiquadComboParams) isFilterConfig() {}

// BiquadCombo cascades a fixed number of Biquad stages.
type BiquadCombo struct {
	name       string
	sampleRate float64
	stages     []*Biquad
}

func NewBiquadCombo(name string, sampleRate float64, p BiquadComboParams) *BiquadCombo {
	c := &BiquadCombo{name: name, sampleRate: sampleRate}
	for i, sp := range p.Sections {
		c.stages = append(c.stages, NewBiquad(sectionName(name, i), sampleRate, sp))
	}
	return c
}

func sectionName(name string, i int) string {
	return name + ".section"
}

func (c *BiquadCombo) Name() string { return c.name }

func (c *BiquadCombo) ProcessWaveform(w []float64) error {
	for _, s := range c.stages {
		if err := s.ProcessWaveform(w); err != nil {
			return err
		}
	}
	return nil
}

func (c *BiquadCombo) UpdateParameters(cfg Config) error {
	p, ok := cfg.(BiquadComboParams)
	if !ok {
		return errWrongConfig(c.name, cfg)
	}
	if len(p.Sections) != len(c.stages) {
		// Topology changed (section count differs): rebuild with fresh
		// (zero) history, same as a graph-level topology rebuild.
		c.stages = c.stages[:0]
		for i, sp := range p.Sections {
			c.stages = append(c.stages, NewBiquad(sectionName(c.name, i), c.sampleRate, sp))
		}
		return nil
	}
	for i, sp := range p.Sections {
		c.stages[i].SetCoefficients(c.sampleRate, sp)
	}
	return nil
}

// --- Dither ------------------------------------------------------------

// DitherParams configures triangular-PDF dither ahead of an integer
// conversion at the given output bit depth.
type DitherParams struct {
	Bits int
}

func (DitherParams) isFilterConfig() {}

// Dither adds TPDF dither sized to one LSB of Bits, using a simple
// deterministic xorshift32 generator so the stage needs no
// external RNG dependency and stays reproducible in tests.
type Dither struct {
	name  string
	lsb   float64
	state uint32
}

func NewDither(name string, p DitherParams) *Dither {
	bits := p.Bits
	if bits <= 0 {
		bits = 16
	}
	return &Dither{name: name, lsb: 1.0 / math.Pow(2, float64(bits-1)), state: 0x2545F491}
}

func (d *Dither) Name() string { return d.name }

func (d *Dither) nextUniform() float64 {
	// xorshift32
	x := d.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	d.state = x
	return float64(x) / float64(math.MaxUint32)
}

func (d *Dither) ProcessWaveform(w []float64) error {
	for i := range w {
		tpdf := (d.nextUniform() - d.nextUniform()) * d.lsb
		w[i] += tpdf
	}
	return nil
}

func (d *Dither) UpdateParameters(cfg Config) error {
	p, ok := cfg.(DitherParams)
	if !ok {
		return errWrongConfig(d.name, cfg)
	}
	bits := p.Bits
	if bits <= 0 {
		bits = 16
	}
	d.lsb = 1.0 / math.Pow(2, float64(bits-1))
	return nil
}

// --- Compressor / Limiter -------------------------------------------------

// DynamicsParams configures a feed-forward peak compressor/limiter: a
// threshold, ratio (limiter uses an effectively infinite ratio), and
// attack/release time constants.
type DynamicsParams struct {
	ThresholdDB float64
	Ratio       float64 // Limiter ignores this; treated as infinite
	AttackMS    float64
	ReleaseMS   float64
	MakeupDB    float64
}

func (DynamicsParams) isFilterConfig() {}

type dynamicsCore struct {
	name       string
	sampleRate float64
	params     DynamicsParams
	envelope   float64 // linear, smoothed absolute sample value
	limiter    bool
}

func timeConstantCoeff(ms, sampleRate float64) float64 {
	if ms <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (ms / 1000 * sampleRate))
}

func (c *dynamicsCore) gainFor(x float64) float64 {
	ax := math.Abs(x)
	attack := timeConstantCoeff(c.params.AttackMS, c.sampleRate)
	release := timeConstantCoeff(c.params.ReleaseMS, c.sampleRate)
	if ax > c.envelope {
		c.envelope = attack*c.envelope + (1-attack)*ax
	} else {
		c.envelope = release*c.envelope + (1-release)*ax
	}
	envDB := -300.0
	if c.envelope > 0 {
		envDB = 20 * math.Log10(c.envelope)
	}
	over := envDB - c.params.ThresholdDB
	if over <= 0 {
		return dbToLinear(c.params.MakeupDB)
	}
	var reducedDB float64
	if c.limiter {
		reducedDB = c.params.ThresholdDB
	} else {
		ratio := c.params.Ratio
		if ratio < 1 {
			ratio = 1
		}
		reducedDB = c.params.ThresholdDB + over/ratio
	}
	gainDB := reducedDB - envDB + c.params.MakeupDB
	return dbToLinear(gainDB)
}

func (c *dynamicsCore) process(w []float64) {
	for i, x := range w {
		w[i] = x * c.gainFor(x)
	}
}

// Compressor is a feed-forward RMS-free peak compressor.
type Compressor struct{ dynamicsCore }

func NewCompressor(name string, sampleRate float64, p DynamicsParams) *Compressor {
	return &Compressor{dynamicsCore{name: name, sampleRate: sampleRate, params: p}}
}

func (c *Compressor) Name() string                    { return c.name }
func (c *Compressor) ProcessWaveform(w []float64) error { c.process(w); return nil }
func (c *Compressor) UpdateParameters(cfg Config) error {
	p, ok := cfg.(DynamicsParams)
	if !ok {
		return errWrongConfig(c.name, cfg)
	}
	c.params = p
	return nil
}

// Limiter is a Compressor with an effectively infinite ratio (brick-wall at
// ThresholdDB).
type Limiter struct{ dynamicsCore }

func NewLimiter(name string, sampleRate float64, p DynamicsParams) *Limiter {
	return &Limiter{dynamicsCore{name: name, sampleRate: sampleRate, params: p, limiter: true}}
}

func (l *Limiter) Name() string                      { return l.name }
func (l *Limiter) ProcessWaveform(w []float64) error { l.process(w); return nil }
func (l *Limiter) UpdateParameters(cfg Config) error {
	p, ok := cfg.(DynamicsParams)
	if !ok {
		return errWrongConfig(l.name, cfg)
	}
	l.params = p
	return nil
}
