package types

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/grid"
	"github.com/zeu5/grid-rl-env/gymcompat"
)

// countingEnv terminates after length steps and rewards every step with 1
type countingEnv struct {
	length    int
	step      int
	resetErr  error
	resets    []*int64
	closed    bool
	terminate bool
}

var _ Environment = &countingEnv{}

func (c *countingEnv) ObservationSpace() gymcompat.Space {
	b, _ := gymcompat.NewBox([]float64{0}, []float64{float64(c.length)})
	return b
}

func (c *countingEnv) ActionSpace() gymcompat.Space {
	d, _ := gymcompat.NewDiscrete(2)
	return d
}

func (c *countingEnv) NoopAction() []float64 { return []float64{0} }

func (c *countingEnv) Reset(seed *int64, _ map[string]any) ([]float64, gymcompat.ResetInfo, error) {
	c.resets = append(c.resets, seed)
	if c.resetErr != nil {
		return nil, gymcompat.ResetInfo{}, c.resetErr
	}
	c.step = 0
	return []float64{0}, gymcompat.ResetInfo{TimeSerieID: 7, MaxStep: c.length}, nil
}

func (c *countingEnv) Step(action []float64) (*gymcompat.StepResult, error) {
	if len(action) != 1 {
		return nil, errors.New("bad action")
	}
	c.step++
	res := &gymcompat.StepResult{
		Observation: []float64{float64(c.step)},
		Reward:      1,
		Info:        grid.StepInfo{DiscLines: []int{-1}},
	}
	if c.step >= c.length {
		if c.terminate {
			res.Terminated = true
			res.Info.Exception = []string{"game over"}
		} else {
			res.Truncated = true
		}
	}
	return res, nil
}

func (c *countingEnv) Close() error {
	c.closed = true
	return nil
}

type noopPolicy struct {
	updates    int
	iterations int
	resets     int
}

var _ Policy = &noopPolicy{}

func (p *noopPolicy) NextAction(_ int, _ []float64, _ gymcompat.Space) ([]float64, bool) {
	return []float64{0}, true
}

func (p *noopPolicy) Update(_ int, _ []float64, _ []float64, _ *gymcompat.StepResult) {
	p.updates++
}

func (p *noopPolicy) UpdateIteration(_ int, _ *Trace) { p.iterations++ }

func (p *noopPolicy) Reset() { p.resets++ }

type memoryRecorder struct {
	mu        sync.Mutex
	summaries []EpisodeSummary
}

func (m *memoryRecorder) Record(_ context.Context, s EpisodeSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return nil
}

func (m *memoryRecorder) Close() error { return nil }
