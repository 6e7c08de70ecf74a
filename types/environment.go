package types

import "github.com/zeu5/grid-rl-env/gymcompat"

// Environment is the gym surface agents interact with. Observations and
// actions are vectors of the spaces it exposes.
type Environment interface {
	ObservationSpace() gymcompat.Space
	ActionSpace() gymcompat.Space
	// NoopAction is the action that leaves the grid untouched
	NoopAction() []float64
	Reset(seed *int64, options map[string]any) ([]float64, gymcompat.ResetInfo, error)
	Step(action []float64) (*gymcompat.StepResult, error)
	Close() error
}

// EnvConstructor builds the environment used by one worker
type EnvConstructor func(worker int) (Environment, error)
