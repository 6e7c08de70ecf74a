package gymcompat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/grid-rl-env/grid"
)

func makeEnv(t *testing.T, name string) *grid.Environment {
	t.Helper()
	env, err := grid.Make(name, grid.WithTest(true))
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })
	return env
}

func seed(s int64) *int64 { return &s }

func TestBoxObsSpaceShape(t *testing.T) {
	env := makeEnv(t, grid.Case14Name)
	desc := env.Description()

	b, err := NewBoxGymObsSpace(env.ObservationSpace(), WithAttrToKeep("rho", "p_or", "gen_p", "load_p"))
	require.NoError(t, err)
	assert.Equal(t, []int{2*desc.NLine() + desc.NGen() + desc.NLoad()}, b.Space().Shape())
	assert.Equal(t, []string{"rho", "p_or", "gen_p", "load_p"}, b.AttrToKeep())

	obs, err := env.Reset(seed(0), grid.ResetOptions{})
	require.NoError(t, err)
	vec, err := b.ToGym(obs)
	require.NoError(t, err)
	require.Len(t, vec, b.Box().Len())
	assert.Equal(t, obs.Rho, vec[:desc.NLine()])
	assert.Equal(t, obs.LoadP, vec[len(vec)-desc.NLoad():])
}

func TestBoxObsSpaceAllAttributes(t *testing.T) {
	env := makeEnv(t, grid.Case5Name)
	b, err := NewBoxGymObsSpace(env.ObservationSpace())
	require.NoError(t, err)
	assert.Equal(t, env.ObservationSpace().AttrNames(), b.AttrToKeep())

	obs, err := env.Reset(seed(0), grid.ResetOptions{})
	require.NoError(t, err)
	vec, err := b.ToGym(obs)
	require.NoError(t, err)
	assert.Len(t, vec, b.Box().Len())
}

func TestBoxObsSpaceUnknownAttribute(t *testing.T) {
	env := makeEnv(t, grid.Case5Name)
	_, err := NewBoxGymObsSpace(env.ObservationSpace(), WithAttrToKeep("rho", "voltage"))
	assert.ErrorIs(t, err, grid.ErrUnknownAttribute)

	_, err = NewBoxGymObsSpace(env.ObservationSpace(), WithAttrToKeep("rho", "rho"))
	assert.ErrorIs(t, err, ErrInvalidSpace)
}

func TestBoxObsSpaceDivideSubtract(t *testing.T) {
	env := makeEnv(t, grid.Case5Name)
	desc := env.Description()
	pmax := make([]float64, desc.NGen())
	for i, g := range desc.Gens {
		pmax[i] = g.PMax
	}

	b, err := NewBoxGymObsSpace(env.ObservationSpace(),
		WithAttrToKeep("gen_p", "rho"),
		WithDivide(map[string][]float64{"gen_p": pmax}),
		WithSubtract(map[string][]float64{"rho": {0.5}}),
	)
	require.NoError(t, err)

	low, high := b.Box().Bounds()
	for i := 0; i < desc.NGen(); i++ {
		assert.Equal(t, 0.0, low[i])
		assert.Equal(t, 1.0, high[i])
	}
	assert.Equal(t, -0.5, low[desc.NGen()])

	obs, err := env.Reset(seed(0), grid.ResetOptions{})
	require.NoError(t, err)
	vec, err := b.ToGym(obs)
	require.NoError(t, err)
	for i := range pmax {
		assert.InDelta(t, obs.GenP[i]/pmax[i], vec[i], 1e-12)
	}
	for l := range obs.Rho {
		assert.InDelta(t, obs.Rho[l]-0.5, vec[desc.NGen()+l], 1e-12)
	}
}

func TestBoxObsSpaceBadTransforms(t *testing.T) {
	env := makeEnv(t, grid.Case5Name)
	space := env.ObservationSpace()

	_, err := NewBoxGymObsSpace(space, WithAttrToKeep("rho"),
		WithDivide(map[string][]float64{"gen_p": {1}}))
	assert.ErrorIs(t, err, ErrAttributeNotKept)

	_, err = NewBoxGymObsSpace(space, WithAttrToKeep("gen_p"),
		WithDivide(map[string][]float64{"gen_p": {0}}))
	assert.ErrorIs(t, err, ErrInvalidTransform)

	_, err = NewBoxGymObsSpace(space, WithAttrToKeep("gen_p"),
		WithSubtract(map[string][]float64{"gen_p": {1, 2, 3, 4}}))
	assert.ErrorIs(t, err, ErrInvalidTransform)
}

func TestNormalizeAttr(t *testing.T) {
	env := makeEnv(t, grid.Case5Name)
	b, err := NewBoxGymObsSpace(env.ObservationSpace(), WithAttrToKeep("gen_p", "rho", "topo_vect"))
	require.NoError(t, err)

	assert.ErrorIs(t, b.NormalizeAttr("rho"), ErrInfiniteBounds)
	assert.ErrorIs(t, b.NormalizeAttr("load_p"), ErrAttributeNotKept)

	require.NoError(t, b.NormalizeAttr("topo_vect"))
	div, ok := b.Divide("topo_vect")
	require.True(t, ok)
	sub, _ := b.Subtract("topo_vect")
	for i := range div {
		assert.Equal(t, 3.0, div[i])
		assert.Equal(t, -1.0, sub[i])
	}

	low, high := b.Box().Bounds()
	n := env.Description().NGen() + env.Description().NLine()
	for i := n; i < len(low); i++ {
		assert.Equal(t, 0.0, low[i])
		assert.Equal(t, 1.0, high[i])
	}
}

func TestNormalizeDoesNotLeakAcrossSpaces(t *testing.T) {
	env := makeEnv(t, grid.Case14Name)
	desc := env.Description()
	pmax := make([]float64, desc.NGen())
	for i, g := range desc.Gens {
		pmax[i] = g.PMax
	}
	build := func() *BoxGymObsSpace {
		b, err := NewBoxGymObsSpace(env.ObservationSpace().Copy(),
			WithAttrToKeep("gen_p", "actual_dispatch"),
			WithDivide(map[string][]float64{"gen_p": pmax}))
		require.NoError(t, err)
		return b
	}

	first := build()
	second := build()
	clone := first.Copy()

	require.NoError(t, first.NormalizeAttr("actual_dispatch"))
	_, ok := second.Divide("actual_dispatch")
	assert.False(t, ok)
	_, ok = clone.Divide("actual_dispatch")
	assert.False(t, ok)

	require.NoError(t, clone.NormalizeAttr("gen_p"))
	div, _ := first.Divide("gen_p")
	assert.Equal(t, pmax, div)
	_, ok = first.Subtract("gen_p")
	assert.False(t, ok)

	div, _ = second.Divide("gen_p")
	div[0] = 42
	again, _ := second.Divide("gen_p")
	assert.Equal(t, pmax[0], again[0])

	l1, _ := second.Box().Bounds()
	l2, _ := first.Box().Bounds()
	assert.NotEqual(t, l1, l2)
}
