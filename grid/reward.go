package grid

import (
	"math"

	"github.com/pkg/errors"
)

// Reward scores the transition that produced the current observation of env
type Reward interface {
	Initialize(env *Environment)
	Compute(action *Action, env *Environment, hasError, isDone, isIllegal, isAmbiguous bool) float64
	// Range returns the minimum and maximum reward
	Range() (float64, float64)
}

const (
	RewardShaped        = "shaped"
	RewardFlat          = "flat"
	RewardLinesCapacity = "lines_capacity"
)

// NewReward returns the reward registered under name
func NewReward(name string) (Reward, error) {
	switch name {
	case "", RewardShaped:
		return &ShapedReward{}, nil
	case RewardFlat:
		return &FlatReward{}, nil
	case RewardLinesCapacity:
		return &LinesCapacityReward{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownReward, "%q", name)
}

// ShapedReward penalizes overloaded lines and lines taken out of service by
// overflows or by the agent. It decays exponentially with
//
//	u = max(rho_max-0.5, 0)            when no line is overflowing
//	u = sum(rho_i-0.5 for rho_i > 1)  otherwise
//
// and the number n_offline of disconnected lines that are neither in
// maintenance nor under attack: r = exp(-u - 0.5*n_offline).
type ShapedReward struct {
	rewardMin float64
	rewardMax float64
}

var _ Reward = &ShapedReward{}

func (r *ShapedReward) Initialize(_ *Environment) {
	r.rewardMin = 0.0
	r.rewardMax = 1.0
}

func (r *ShapedReward) Compute(_ *Action, env *Environment, hasError, isDone, _, _ bool) float64 {
	if isDone || hasError {
		return r.rewardMin
	}
	return LineOverflowingSum(env.CurrentObservation())
}

func (r *ShapedReward) Range() (float64, float64) {
	return r.rewardMin, r.rewardMax
}

// LineOverflowingSum is the shaped reward of a single observation
func LineOverflowingSum(obs *Observation) float64 {
	if obs == nil {
		return 0
	}
	rhoMax := obs.MaxRho()
	u := 0.0
	if rhoMax <= 1 {
		u = math.Max(rhoMax-0.5, 0)
	} else {
		for _, rho := range obs.Rho {
			if rho > 1 {
				u += rho - 0.5
			}
		}
	}

	disconnected, maintenance, attacked := 0, 0, 0
	for _, st := range obs.LineStatus {
		if !st {
			disconnected++
		}
	}
	for _, t := range obs.TimeNextMaintenance {
		if t == 0 {
			maintenance++
		}
	}
	for _, t := range obs.TimeSinceLastAttack {
		if t >= 0 {
			attacked++
		}
	}
	nOffline := float64(disconnected - maintenance - attacked)
	return math.Exp(-u - 0.5*nOffline)
}

// FlatReward gives 1 for every step survived
type FlatReward struct{}

var _ Reward = &FlatReward{}

func (r *FlatReward) Initialize(_ *Environment) {}

func (r *FlatReward) Compute(_ *Action, _ *Environment, hasError, isDone, _, _ bool) float64 {
	if hasError || isDone {
		return 0
	}
	return 1
}

func (r *FlatReward) Range() (float64, float64) {
	return 0, 1
}

// LinesCapacityReward is the mean free capacity over connected lines
type LinesCapacityReward struct{}

var _ Reward = &LinesCapacityReward{}

func (r *LinesCapacityReward) Initialize(_ *Environment) {}

func (r *LinesCapacityReward) Compute(_ *Action, env *Environment, hasError, _, _, _ bool) float64 {
	obs := env.CurrentObservation()
	if hasError || obs == nil {
		return 0
	}
	sum, n := 0.0, 0
	for l, st := range obs.LineStatus {
		if !st {
			continue
		}
		sum += math.Max(1-obs.Rho[l], 0)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (r *LinesCapacityReward) Range() (float64, float64) {
	return 0, 1
}
