// Package graph implements the processing graph that stage P runs each
// chunk through: an ordered sequence of mixer and filter steps, built from
// a declarative spec and hot-reloadable without dropping or duplicating a
// sample, per spec.md §3/§4.3.
package graph

import (
	"fmt"

	"github.com/vaeringr/cdsp/internal/chunk"
	"github.com/vaeringr/cdsp/internal/filter"
	"github.com/vaeringr/cdsp/internal/status"
)

// FilterStep names a channel index and the ordered stage chain applied to
// that channel's waveform, per spec.md §3.
type FilterStep struct {
	Channel int
	Stages  []StageSpec
}

// StepKind distinguishes a mixer step from a filter step in a Step.
type StepKind int

const (
	KindMixer StepKind = iota
	KindFilter
)

// Step is one entry in a graph's declarative spec: either a MixerStep or a
// FilterStep, tagged by Kind.
type Step struct {
	Kind   StepKind
	Mixer  MixerStep
	Filter FilterStep
}

type builtStep struct {
	kind    StepKind
	mixer   MixerStep
	channel int
	specs   []StageSpec
	stages  []filter.Stage
}

// Graph is a built, runnable processing graph: MixerSteps and FilterSteps
// with their live, stateful filter.Stage instances.
type Graph struct {
	sampleRate float64
	shared     *status.ProcessingParameters
	channels   int // channel count entering the graph
	steps      []builtStep
}

// Validate checks that every FilterStep's Channel exists in the channel
// set at that point in the sequence, per spec.md §3's graph invariant.
// It returns the channel count the graph produces.
func Validate(steps []Step, inputChannels int) (int, error) {
	channels := inputChannels
	for i, step := range steps {
		switch step.Kind {
		case KindMixer:
			if max := step.Mixer.maxSourceChannel(); max >= channels {
				return 0, fmt.Errorf("graph: step %d: mixer references channel %d, only %d available", i, max, channels)
			}
			channels = step.Mixer.outChannels()
		case KindFilter:
			if step.Filter.Channel < 0 || step.Filter.Channel >= channels {
				return 0, fmt.Errorf("graph: step %d: filter step references channel %d, only %d available", i, step.Filter.Channel, channels)
			}
		default:
			return 0, fmt.Errorf("graph: step %d: unknown step kind %v", i, step.Kind)
		}
	}
	return channels, nil
}

// Build validates steps and constructs a fresh Graph with zero-initialized
// stage history.
func Build(steps []Step, sampleRate float64, inputChannels int, shared *status.ProcessingParameters) (*Graph, error) {
	if _, err := Validate(steps, inputChannels); err != nil {
		return nil, err
	}

	g := &Graph{sampleRate: sampleRate, shared: shared, channels: inputChannels}
	for i, step := range steps {
		bs, err := buildRuntimeStep(step, sampleRate, shared)
		if err != nil {
			return nil, fmt.Errorf("graph: step %d: %w", i, err)
		}
		g.steps = append(g.steps, bs)
	}
	return g, nil
}

func buildRuntimeStep(step Step, sampleRate float64, shared *status.ProcessingParameters) (builtStep, error) {
	if step.Kind == KindMixer {
		return builtStep{kind: KindMixer, mixer: step.Mixer}, nil
	}
	bs := builtStep{kind: KindFilter, channel: step.Filter.Channel, specs: step.Filter.Stages}
	for _, spec := range step.Filter.Stages {
		stage, err := buildStage(spec, sampleRate, shared)
		if err != nil {
			return builtStep{}, err
		}
		bs.stages = append(bs.stages, stage)
	}
	return bs, nil
}

// Process runs one chunk through every step in order. Mixer steps replace
// the chunk with a new one of the mapped channel count; filter steps
// mutate the named channel's waveform in place.
func (g *Graph) Process(c *chunk.Chunk) (*chunk.Chunk, error) {
	cur := c
	for i, step := range g.steps {
		switch step.kind {
		case KindMixer:
			next, err := step.mixer.apply(cur)
			if err != nil {
				return nil, fmt.Errorf("graph: step %d: %w", i, err)
			}
			cur = next
		case KindFilter:
			if step.channel >= cur.Channels() {
				return nil, fmt.Errorf("graph: step %d: channel %d out of range (%d channels)", i, step.channel, cur.Channels())
			}
			w := cur.Waveforms[step.channel]
			for _, stage := range step.stages {
				if err := stage.ProcessWaveform(w); err != nil {
					return nil, fmt.Errorf("graph: step %d stage %q: %w", i, stage.Name(), err)
				}
			}
		}
	}
	cur.MeasureRange()
	return cur, nil
}

// Reload attempts to install newSteps in place: per filter step, if the
// stage identity chain (Name+Kind, in order) is unchanged, it calls
// UpdateParameters on each existing stage (preserving history, per
// spec.md §4.3's "zippered coefficient change"). Any step whose identity
// chain, channel, or kind differs is rebuilt with zero-initialized state.
// Reload validates the new topology first; on validation failure the
// receiver is left completely untouched and an error is returned.
func (g *Graph) Reload(newSteps []Step) error {
	if _, err := Validate(newSteps, g.channels); err != nil {
		return err
	}

	next := make([]builtStep, 0, len(newSteps))
	for i, step := range newSteps {
		var old *builtStep
		if i < len(g.steps) {
			old = &g.steps[i]
		}
		bs, err := reconcileStep(old, step, g.sampleRate, g.shared)
		if err != nil {
			return fmt.Errorf("graph: step %d: %w", i, err)
		}
		next = append(next, bs)
	}
	g.steps = next
	return nil
}

func reconcileStep(old *builtStep, step Step, sampleRate float64, shared *status.ProcessingParameters) (builtStep, error) {
	if step.Kind == KindMixer {
		// Mixer steps are stateless; always just replace.
		return builtStep{kind: KindMixer, mixer: step.Mixer}, nil
	}
	if old == nil || old.kind != KindFilter || old.channel != step.Filter.Channel || !identicalIdentities(old.specs, step.Filter.Stages) {
		return buildRuntimeStep(step, sampleRate, shared)
	}

	bs := builtStep{kind: KindFilter, channel: step.Filter.Channel, specs: step.Filter.Stages, stages: old.stages}
	for i, spec := range step.Filter.Stages {
		if err := bs.stages[i].UpdateParameters(updateConfigFor(spec, sampleRate)); err != nil {
			return builtStep{}, fmt.Errorf("stage %q: %w", spec.Name, err)
		}
	}
	return bs, nil
}

func identicalIdentities(a, b []StageSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameIdentity(a[i], b[i]) {
			return false
		}
	}
	return true
}
