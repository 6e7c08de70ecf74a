package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shapedObs(rho []float64, status []bool, maintenance, attack []int) *Observation {
	return &Observation{
		Rho:                 rho,
		LineStatus:          status,
		TimeNextMaintenance: maintenance,
		TimeSinceLastAttack: attack,
	}
}

func TestShapedRewardNoOverflow(t *testing.T) {
	obs := shapedObs(
		[]float64{0.2, 0.8, 0.4},
		[]bool{true, true, true},
		[]int{-1, -1, -1},
		[]int{-1, -1, -1},
	)
	assert.InDelta(t, math.Exp(-0.3), LineOverflowingSum(obs), 1e-12)

	low := shapedObs([]float64{0.1, 0.3}, []bool{true, true}, []int{-1, -1}, []int{-1, -1})
	assert.InDelta(t, 1.0, LineOverflowingSum(low), 1e-12)
}

func TestShapedRewardOverflow(t *testing.T) {
	obs := shapedObs(
		[]float64{1.2, 0.9, 1.5},
		[]bool{true, true, true},
		[]int{-1, -1, -1},
		[]int{-1, -1, -1},
	)
	// only the overflowing lines count: (1.2-0.5) + (1.5-0.5)
	assert.InDelta(t, math.Exp(-1.7), LineOverflowingSum(obs), 1e-12)
}

func TestShapedRewardOfflineLines(t *testing.T) {
	// line 1 in maintenance and line 2 tripped: only the trip is penalized
	obs := shapedObs(
		[]float64{0.5, 0, 0},
		[]bool{true, false, false},
		[]int{-1, 0, -1},
		[]int{-1, -1, -1},
	)
	assert.InDelta(t, math.Exp(-0.5), LineOverflowingSum(obs), 1e-12)

	attacked := shapedObs(
		[]float64{0.5, 0},
		[]bool{true, false},
		[]int{-1, -1},
		[]int{-1, 3},
	)
	assert.InDelta(t, 1.0, LineOverflowingSum(attacked), 1e-12)
}

func TestShapedRewardTerminal(t *testing.T) {
	r := &ShapedReward{}
	r.Initialize(nil)
	assert.Equal(t, 0.0, r.Compute(nil, nil, false, true, false, false))
	assert.Equal(t, 0.0, r.Compute(nil, nil, true, false, false, false))
	lo, hi := r.Range()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestNewReward(t *testing.T) {
	for _, name := range []string{"", RewardShaped, RewardFlat, RewardLinesCapacity} {
		r, err := NewReward(name)
		require.NoError(t, err)
		assert.NotNil(t, r)
	}
	_, err := NewReward("l2rpn")
	assert.ErrorIs(t, err, ErrUnknownReward)
}
