package types

import "github.com/zeu5/grid-rl-env/gymcompat"

type Policy interface {
	// NextAction picks an action of the space, false stops the episode
	NextAction(step int, obs []float64, space gymcompat.Space) ([]float64, bool)
	Update(step int, obs []float64, action []float64, result *gymcompat.StepResult)
	UpdateIteration(episode int, trace *Trace)
	Reset()
}

// RecordablePolicy can persist what it learnt
type RecordablePolicy interface {
	Policy
	Record(path string) error
}

// PolicyConstructor builds the policy used by one worker
type PolicyConstructor func(worker int, env Environment) Policy
