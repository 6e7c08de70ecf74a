package remote

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/grid-rl-env/gymcompat"
)

func TestBoundInfinity(t *testing.T) {
	bs, err := json.Marshal([]Bound{Bound(math.Inf(-1)), 0.5, Bound(math.Inf(1))})
	require.NoError(t, err)
	assert.JSONEq(t, `["-inf", 0.5, "inf"]`, string(bs))

	var back []Bound
	require.NoError(t, json.Unmarshal(bs, &back))
	assert.True(t, math.IsInf(float64(back[0]), -1))
	assert.Equal(t, Bound(0.5), back[1])
	assert.True(t, math.IsInf(float64(back[2]), 1))

	_, err = json.Marshal(Bound(math.NaN()))
	assert.Error(t, err)

	var b Bound
	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &b))
}

func TestSpaceSpecRebuildsSpace(t *testing.T) {
	box, err := gymcompat.NewBox([]float64{0, math.Inf(-1)}, []float64{1, math.Inf(1)})
	require.NoError(t, err)
	discrete, err := gymcompat.NewDiscrete(5)
	require.NoError(t, err)
	multi, err := gymcompat.NewMultiDiscrete([]int{3, 2, 4})
	require.NoError(t, err)

	for _, space := range []gymcompat.Space{box, discrete, multi} {
		spec, err := EncodeSpace(space)
		require.NoError(t, err)
		bs, err := json.Marshal(spec)
		require.NoError(t, err)

		var decoded SpaceSpec
		require.NoError(t, json.Unmarshal(bs, &decoded))
		back, err := decoded.Space()
		require.NoError(t, err)
		assert.Equal(t, space.Kind(), back.Kind())
		assert.Equal(t, space.Shape(), back.Shape())
		assert.Equal(t, gymcompat.Cardinality(space), gymcompat.Cardinality(back))
	}

	spec, err := EncodeSpace(box)
	require.NoError(t, err)
	back, err := spec.Space()
	require.NoError(t, err)
	low, high := back.(*gymcompat.Box).Bounds()
	assert.Equal(t, 0.0, low[0])
	assert.True(t, math.IsInf(low[1], -1))
	assert.Equal(t, 1.0, high[0])
	assert.True(t, math.IsInf(high[1], 1))

	_, err = SpaceSpec{Kind: "tuple"}.Space()
	assert.ErrorIs(t, err, gymcompat.ErrInvalidSpace)
}
