package policies

import (
	"math"
	"strconv"
	"strings"

	"github.com/zeu5/grid-rl-env/gymcompat"
	"github.com/zeu5/grid-rl-env/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Quantizer maps an observation to a table key
type Quantizer func(obs []float64) string

// RoundQuantizer rounds every value to the given number of decimals
func RoundQuantizer(decimals int) Quantizer {
	scale := math.Pow(10, float64(decimals))
	return func(obs []float64) string {
		parts := make([]string, len(obs))
		for i, v := range obs {
			parts[i] = strconv.FormatFloat(math.Round(v*scale)/scale, 'f', decimals, 64)
		}
		return strings.Join(parts, ",")
	}
}

// EpsilonGreedyPolicy is tabular Q-learning over a Discrete action space.
// Non discrete spaces are sampled uniformly.
type EpsilonGreedyPolicy struct {
	qTable   *QTable
	alpha    float64
	discount float64
	epsilon  float64
	quantize Quantizer
	rand     *rand.Rand
}

var _ types.RecordablePolicy = &EpsilonGreedyPolicy{}

func NewEpsilonGreedyPolicy(alpha, discount, epsilon float64, quantize Quantizer, seed uint64) *EpsilonGreedyPolicy {
	if quantize == nil {
		quantize = RoundQuantizer(1)
	}
	return &EpsilonGreedyPolicy{
		qTable:   NewQTable(),
		alpha:    alpha,
		discount: discount,
		epsilon:  epsilon,
		quantize: quantize,
		rand:     rand.New(rand.NewSource(seed)),
	}
}

func (e *EpsilonGreedyPolicy) QTable() *QTable { return e.qTable }

func (e *EpsilonGreedyPolicy) Record(path string) error {
	return e.qTable.Record(path)
}

func (e *EpsilonGreedyPolicy) Reset() {
	e.qTable = NewQTable()
}

func actionKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

func (e *EpsilonGreedyPolicy) NextAction(_ int, obs []float64, space gymcompat.Space) ([]float64, bool) {
	d, ok := space.(*gymcompat.Discrete)
	if !ok || e.rand.Float64() < e.epsilon {
		return space.Sample(e.rand), true
	}
	best, _ := e.qTable.MaxAmong(e.quantize(obs), actionKeys(d.N), 0)
	i, err := strconv.Atoi(best)
	if err != nil {
		return nil, false
	}
	return []float64{float64(i)}, true
}

func (e *EpsilonGreedyPolicy) Update(_ int, obs []float64, action []float64, result *gymcompat.StepResult) {
	if len(action) != 1 {
		return
	}
	state := e.quantize(obs)
	actionKey := strconv.Itoa(int(action[0]))

	next := 0.0
	if !result.Terminated {
		_, next = e.qTable.Max(e.quantize(result.Observation), 0)
	}
	cur := e.qTable.Get(state, actionKey, 0)
	e.qTable.Set(state, actionKey, (1-e.alpha)*cur+e.alpha*(result.Reward+e.discount*next))
}

func (e *EpsilonGreedyPolicy) UpdateIteration(_ int, _ *types.Trace) {}

// SoftmaxPolicy samples actions with probabilities proportional to
// exp(Q/temperature) and learns like EpsilonGreedyPolicy
type SoftmaxPolicy struct {
	*EpsilonGreedyPolicy
	temperature float64
	source      rand.Source
}

var _ types.RecordablePolicy = &SoftmaxPolicy{}

func NewSoftmaxPolicy(alpha, discount, temperature float64, quantize Quantizer, seed uint64) *SoftmaxPolicy {
	return &SoftmaxPolicy{
		EpsilonGreedyPolicy: NewEpsilonGreedyPolicy(alpha, discount, 0, quantize, seed),
		temperature:         temperature,
		source:              rand.NewSource(seed + 1),
	}
}

func (s *SoftmaxPolicy) NextAction(_ int, obs []float64, space gymcompat.Space) ([]float64, bool) {
	d, ok := space.(*gymcompat.Discrete)
	if !ok {
		return space.Sample(s.rand), true
	}
	state := s.quantize(obs)
	vals := make([]float64, d.N)
	maxVal := math.Inf(-1)
	for i, key := range actionKeys(d.N) {
		vals[i] = s.qTable.Get(state, key, 0) / s.temperature
		maxVal = math.Max(maxVal, vals[i])
	}
	sum := 0.0
	for i, v := range vals {
		vals[i] = math.Exp(v - maxVal)
		sum += vals[i]
	}
	for i := range vals {
		vals[i] /= sum
	}
	i, ok := sampleuv.NewWeighted(vals, s.source).Take()
	if !ok {
		return nil, false
	}
	return []float64{float64(i)}, true
}
