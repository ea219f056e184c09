package filter

import "math"

// BiquadKind selects the classical RBJ Audio-EQ-Cookbook filter shape, per
// spec.md §4.3's enumerated Biquad parameter variants.
type BiquadKind int

const (
	Lowpass BiquadKind = iota
	Highpass
	Lowshelf
	Highshelf
	Peaking
	Notch
	Bandpass
	Allpass
)

// WidthKind selects how a shelf's steepness, or a peaking filter's width,
// is specified, per spec.md §9 ("shelf by slope-or-Q, peaking by Q or
// bandwidth").
type WidthKind int

const (
	ByQ WidthKind = iota
	BySlope
	ByBandwidth
)

// BiquadParams is the tagged-union configuration for one Biquad instance.
// It carries every numeric parameter needed to derive coefficients without
// re-consulting the configuration document, per spec.md §9.
type BiquadParams struct {
	Kind  BiquadKind
	Width WidthKind

	FreqHz float64
	Q      float64
	Slope  float64 // shelf, when Width == BySlope
	BWOct  float64 // peaking, when Width == ByBandwidth
	GainDB float64 // shelf / peaking
}

func (BiquadParams) isFilterConfig() {}

// BiquadCoefficients is the normalized (a0 == 1) direct-form-I coefficient
// set.
type BiquadCoefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// CoefficientsFromParams derives normalized biquad coefficients at the
// given sample rate, following the RBJ Audio EQ Cookbook formulas.
func CoefficientsFromParams(sampleRate float64, p BiquadParams) BiquadCoefficients {
	w0 := 2 * math.Pi * p.FreqHz / sampleRate
	cosw0 := math.Cos(w0)
	sinw0 := math.Sin(w0)

	var b0, b1, b2, a0, a1, a2 float64

	switch p.Kind {
	case Lowshelf, Highshelf:
		a := math.Pow(10, p.GainDB/40)
		var alpha float64
		if p.Width == BySlope {
			s := p.Slope
			if s <= 0 {
				s = 1
			}
			alpha = sinw0 / 2 * math.Sqrt((a+1/a)*(1/s-1)+2)
		} else {
			q := p.Q
			if q <= 0 {
				q = 0.707
			}
			alpha = sinw0 / (2 * q)
		}
		sqrtA := math.Sqrt(a)
		if p.Kind == Lowshelf {
			b0 = a * ((a + 1) - (a-1)*cosw0 + 2*sqrtA*alpha)
			b1 = 2 * a * ((a - 1) - (a+1)*cosw0)
			b2 = a * ((a + 1) - (a-1)*cosw0 - 2*sqrtA*alpha)
			a0 = (a + 1) + (a-1)*cosw0 + 2*sqrtA*alpha
			a1 = -2 * ((a - 1) + (a+1)*cosw0)
			a2 = (a + 1) + (a-1)*cosw0 - 2*sqrtA*alpha
		} else {
			b0 = a * ((a + 1) + (a-1)*cosw0 + 2*sqrtA*alpha)
			b1 = -2 * a * ((a - 1) + (a+1)*cosw0)
			b2 = a * ((a + 1) + (a-1)*cosw0 - 2*sqrtA*alpha)
			a0 = (a + 1) - (a-1)*cosw0 + 2*sqrtA*alpha
			a1 = 2 * ((a - 1) - (a+1)*cosw0)
			a2 = (a + 1) - (a-1)*cosw0 - 2*sqrtA*alpha
		}

	case Peaking:
		a := math.Pow(10, p.GainDB/40)
		var alpha float64
		if p.Width == ByBandwidth {
			bw := p.BWOct
			if bw <= 0 {
				bw = 1
			}
			alpha = sinw0 * math.Sinh(math.Ln2/2*bw*w0/sinw0)
		} else {
			q := p.Q
			if q <= 0 {
				q = 0.707
			}
			alpha = sinw0 / (2 * q)
		}
		b0 = 1 + alpha*a
		b1 = -2 * cosw0
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosw0
		a2 = 1 - alpha/a

	case Notch, Bandpass, Allpass:
		q := p.Q
		if q <= 0 {
			q = 0.707
		}
		alpha := sinw0 / (2 * q)
		switch p.Kind {
		case Notch:
			b0, b1, b2 = 1, -2*cosw0, 1
		case Bandpass:
			b0, b1, b2 = alpha, 0, -alpha
		case Allpass:
			b0, b1, b2 = 1-alpha, -2*cosw0, 1+alpha
		}
		a0, a1, a2 = 1+alpha, -2*cosw0, 1-alpha

	default: // Lowpass, Highpass
		q := p.Q
		if q <= 0 {
			q = 0.707
		}
		alpha := sinw0 / (2 * q)
		if p.Kind == Lowpass {
			b0 = (1 - cosw0) / 2
			b1 = 1 - cosw0
			b2 = (1 - cosw0) / 2
		} else {
			b0 = (1 + cosw0) / 2
			b1 = -(1 + cosw0)
			b2 = (1 + cosw0) / 2
		}
		a0, a1, a2 = 1+alpha, -2*cosw0, 1-alpha
	}

	return BiquadCoefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// Biquad is a direct-form-I biquad stage with two samples of input and
// output history. UpdateParameters recomputes coefficients in place
// without touching the history, so a parameter-only reload produces no
// discontinuity once the recomputed poles settle (spec.md §4.3/§8).
type Biquad struct {
	name   string
	coeffs BiquadCoefficients

	x1, x2 float64
	y1, y2 float64
}

// NewBiquad constructs a biquad stage with zeroed history.
func NewBiquad(name string, sampleRate float64, p BiquadParams) *Biquad {
	return &Biquad{name: name, coeffs: CoefficientsFromParams(sampleRate, p)}
}

func (b *Biquad) Name() string { return b.name }

func (b *Biquad) ProcessWaveform(w []float64) error {
	c := b.coeffs
	x1, x2, y1, y2 := b.x1, b.x2, b.y1, b.y2
	for i, x0 := range w {
		y0 := c.B0*x0 + c.B1*x1 + c.B2*x2 - c.A1*y1 - c.A2*y2
		x2, x1 = x1, x0
		y2, y1 = y1, y0
		w[i] = y0
	}
	b.x1, b.x2, b.y1, b.y2 = x1, x2, y1, y2
	return nil
}

func (b *Biquad) UpdateParameters(cfg Config) error {
	p, ok := cfg.(biquadParamsWithRate)
	if !ok {
		return errWrongConfig(b.name, cfg)
	}
	b.coeffs = CoefficientsFromParams(p.sampleRate, p.BiquadParams)
	return nil
}

// SetCoefficients installs freshly derived coefficients directly, used by
// callers (like Loudness) that recompute them inline rather than going
// through UpdateParameters.
func (b *Biquad) SetCoefficients(sampleRate float64, p BiquadParams) {
	b.coeffs = CoefficientsFromParams(sampleRate, p)
}

// biquadParamsWithRate lets UpdateParameters re-derive coefficients without
// the stage having to remember its own sample rate redundantly in Config.
type biquadParamsWithRate struct {
	BiquadParams
	sampleRate float64
}

func (biquadParamsWithRate) isFilterConfig() {}

// NewBiquadUpdate builds the Config value Biquad.UpdateParameters expects.
func NewBiquadUpdate(sampleRate float64, p BiquadParams) Config {
	return biquadParamsWithRate{BiquadParams: p, sampleRate: sampleRate}
}
