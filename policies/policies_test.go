package policies

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/grid-rl-env/envshim"
	"github.com/zeu5/grid-rl-env/grid"
	"github.com/zeu5/grid-rl-env/gymcompat"
)

func TestQTableSetOverwrites(t *testing.T) {
	q := NewQTable()
	assert.Equal(t, 1.0, q.Get("s", "a", 1))
	q.Set("s", "a", 5)
	assert.Equal(t, 5.0, q.Get("s", "a", 1))

	q.Set("s", "b", 7)
	best, val := q.Max("s", 0)
	assert.Equal(t, "b", best)
	assert.Equal(t, 7.0, val)

	best, val = q.Max("unknown", -1)
	assert.Equal(t, "", best)
	assert.Equal(t, -1.0, val)
	assert.False(t, q.HasState("unknown"))

	best, _ = q.MaxAmong("fresh", []string{"x", "y"}, 0)
	assert.Equal(t, "x", best)
	assert.True(t, q.HasState("fresh"))
}

func TestQTableRecord(t *testing.T) {
	q := NewQTable()
	q.Set("s", "a", 2)
	p := path.Join(t.TempDir(), "policies", "q.json")
	require.NoError(t, q.Record(p))
	bs, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":{"a":2}}`, string(bs))
}

func TestRoundQuantizer(t *testing.T) {
	q := RoundQuantizer(1)
	assert.Equal(t, "0.1,2.0", q([]float64{0.12, 1.96}))
	assert.Equal(t, q([]float64{0.51}), q([]float64{0.54}))
}

func TestRandomPolicySamplesSpace(t *testing.T) {
	space, err := gymcompat.NewMultiDiscrete([]int{3, 4})
	require.NoError(t, err)
	p := NewRandomPolicy(1)
	for i := 0; i < 20; i++ {
		a, ok := p.NextAction(i, nil, space)
		require.True(t, ok)
		assert.True(t, space.Contains(a))
	}
}

func TestDoNothingPolicy(t *testing.T) {
	p := NewDoNothingPolicy([]float64{0, 1})
	a, ok := p.NextAction(0, nil, nil)
	require.True(t, ok)
	a[0] = 9
	b, _ := p.NextAction(1, nil, nil)
	assert.Equal(t, []float64{0, 1}, b)
}

func TestEpsilonGreedyLearns(t *testing.T) {
	space, err := gymcompat.NewDiscrete(3)
	require.NoError(t, err)
	p := NewEpsilonGreedyPolicy(0.5, 0.9, 0, nil, 1)
	obs := []float64{0.5}

	p.Update(0, obs, []float64{2}, &gymcompat.StepResult{Observation: obs, Reward: 1})
	a, ok := p.NextAction(0, obs, space)
	require.True(t, ok)
	assert.Equal(t, []float64{2}, a)
	assert.InDelta(t, 0.5, p.QTable().Get("0.5", "2", 0), 1e-12)

	// terminal transitions do not bootstrap
	p.Update(0, obs, []float64{1}, &gymcompat.StepResult{Observation: obs, Reward: 4, Terminated: true})
	assert.InDelta(t, 2.0, p.QTable().Get("0.5", "1", 0), 1e-12)

	p.Reset()
	assert.Equal(t, 0, p.QTable().Len())
}

func TestEpsilonGreedyExploresOtherSpaces(t *testing.T) {
	box, err := gymcompat.NewBox([]float64{-1}, []float64{1})
	require.NoError(t, err)
	p := NewEpsilonGreedyPolicy(0.1, 0.9, 0, nil, 3)
	a, ok := p.NextAction(0, []float64{0}, box)
	require.True(t, ok)
	assert.True(t, box.Contains(a))
}

func TestSoftmaxPrefersBestAction(t *testing.T) {
	space, err := gymcompat.NewDiscrete(2)
	require.NoError(t, err)
	p := NewSoftmaxPolicy(0.5, 0.9, 0.01, nil, 5)
	p.QTable().Set("0.0", "1", 10)

	for i := 0; i < 20; i++ {
		a, ok := p.NextAction(i, []float64{0}, space)
		require.True(t, ok)
		assert.Equal(t, []float64{1}, a)
	}
}

func TestPoliciesAgainstShim(t *testing.T) {
	env, err := envshim.New(map[string]any{
		"env_name":    grid.Case5Name,
		"env_is_test": true,
		"seed":        1,
	})
	require.NoError(t, err)
	defer env.Close()

	p := NewEpsilonGreedyPolicy(0.1, 0.99, 0.2, nil, 1)
	obs, _, err := env.Reset(nil, map[string]any{"max_step": 5})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		a, ok := p.NextAction(i, obs, env.ActionSpace())
		require.True(t, ok)
		require.True(t, env.ActionSpace().Contains(a))
		res, err := env.Step(a)
		require.NoError(t, err)
		p.Update(i, obs, a, res)
		obs = res.Observation
		if res.Terminated || res.Truncated {
			break
		}
	}
	assert.Greater(t, p.QTable().Len(), 0)
}
