package types

// TraceStep is one transition of an episode
type TraceStep struct {
	Step       int       `json:"step"`
	Obs        []float64 `json:"obs"`
	Action     []float64 `json:"action"`
	NextObs    []float64 `json:"next_obs"`
	Reward     float64   `json:"reward"`
	Terminated bool      `json:"terminated,omitempty"`
	Truncated  bool      `json:"truncated,omitempty"`
}

// Trace of an episode as a sequence of transitions
type Trace struct {
	Steps []TraceStep `json:"steps"`
}

func NewTrace() *Trace {
	return &Trace{
		Steps: make([]TraceStep, 0),
	}
}

func (t *Trace) Append(step TraceStep) {
	t.Steps = append(t.Steps, step)
}

func (t *Trace) Len() int {
	return len(t.Steps)
}

func (t *Trace) Get(i int) (TraceStep, bool) {
	if i < 0 || i >= len(t.Steps) {
		return TraceStep{}, false
	}
	return t.Steps[i], true
}

func (t *Trace) Last() (TraceStep, bool) {
	return t.Get(len(t.Steps) - 1)
}

func (t *Trace) Slice(from, to int) *Trace {
	sliced := NewTrace()
	for i := from; i < to && i < len(t.Steps); i++ {
		step := t.Steps[i]
		step.Step = i - from
		sliced.Append(step)
	}
	return sliced
}

func (t *Trace) GetPrefix(i int) (*Trace, bool) {
	if i > len(t.Steps) {
		return nil, false
	}
	return &Trace{Steps: t.Steps[0:i]}, true
}

// Return is the undiscounted sum of rewards
func (t *Trace) Return() float64 {
	total := 0.0
	for _, s := range t.Steps {
		total += s.Reward
	}
	return total
}
