package policies

import (
	"github.com/zeu5/grid-rl-env/gymcompat"
	"github.com/zeu5/grid-rl-env/types"
	"golang.org/x/exp/rand"
)

// RandomPolicy samples the action space uniformly
type RandomPolicy struct {
	rand *rand.Rand
}

var _ types.Policy = &RandomPolicy{}

func NewRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{
		rand: rand.New(rand.NewSource(seed)),
	}
}

func (r *RandomPolicy) Reset() {}

func (r *RandomPolicy) UpdateIteration(_ int, _ *types.Trace) {}

func (r *RandomPolicy) NextAction(_ int, _ []float64, space gymcompat.Space) ([]float64, bool) {
	return space.Sample(r.rand), true
}

func (r *RandomPolicy) Update(_ int, _ []float64, _ []float64, _ *gymcompat.StepResult) {}

// DoNothingPolicy always plays the same action, usually the noop of the
// environment
type DoNothingPolicy struct {
	action []float64
}

var _ types.Policy = &DoNothingPolicy{}

func NewDoNothingPolicy(noop []float64) *DoNothingPolicy {
	return &DoNothingPolicy{action: append([]float64(nil), noop...)}
}

func (d *DoNothingPolicy) Reset() {}

func (d *DoNothingPolicy) UpdateIteration(_ int, _ *types.Trace) {}

func (d *DoNothingPolicy) NextAction(_ int, _ []float64, _ gymcompat.Space) ([]float64, bool) {
	return append([]float64(nil), d.action...), true
}

func (d *DoNothingPolicy) Update(_ int, _ []float64, _ []float64, _ *gymcompat.StepResult) {}
