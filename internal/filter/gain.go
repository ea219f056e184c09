package filter

import "math"

// GainParams configures a Gain stage: dB level, polarity inversion, mute,
// and a raw linear scale multiplier applied in addition to GainDB.
type GainParams struct {
	GainDB   float64
	Inverted bool
	Mute     bool
	Scale    float64 // 0 means "unset", treated as 1.0
}

func (GainParams) isFilterConfig() {}

// Gain is a stateless scalar-multiply stage, per spec.md §4.3.
type Gain struct {
	name   string
	params GainParams
	mult   float64
}

// NewGain constructs a Gain stage from its parameters.
func NewGain(name string, p GainParams) *Gain {
	g := &Gain{name: name, params: p}
	g.recompute()
	return g
}

func (g *Gain) recompute() {
	scale := g.params.Scale
	if scale == 0 {
		scale = 1.0
	}
	mult := math.Pow(10, g.params.GainDB/20) * scale
	if g.params.Inverted {
		mult = -mult
	}
	if g.params.Mute {
		mult = 0
	}
	g.mult = mult
}

func (g *Gain) Name() string { return g.name }

func (g *Gain) ProcessWaveform(w []float64) error {
	if g.mult == 1 {
		return nil
	}
	for i := range w {
		w[i] *= g.mult
	}
	return nil
}

func (g *Gain) UpdateParameters(cfg Config) error {
	p, ok := cfg.(GainParams)
	if !ok {
		return errWrongConfig(g.name, cfg)
	}
	g.params = p
	g.recompute()
	return nil
}
