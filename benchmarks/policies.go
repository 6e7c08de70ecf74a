package benchmarks

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/policies"
	"github.com/zeu5/grid-rl-env/types"
)

var ErrUnknownPolicy = errors.New("unknown policy")

var policyNames = []string{"random", "do-nothing", "epsilon-greedy", "softmax"}

// learning parameters shared by the tabular policies
var (
	alpha       float64
	discount    float64
	epsilon     float64
	temperature float64
	decimals    int
)

func newPolicy(name string, env types.Environment, seed uint64) (types.Policy, error) {
	switch name {
	case "random":
		return policies.NewRandomPolicy(seed), nil
	case "do-nothing":
		return policies.NewDoNothingPolicy(env.NoopAction()), nil
	case "epsilon-greedy":
		return policies.NewEpsilonGreedyPolicy(alpha, discount, epsilon, policies.RoundQuantizer(decimals), seed), nil
	case "softmax":
		return policies.NewSoftmaxPolicy(alpha, discount, temperature, policies.RoundQuantizer(decimals), seed), nil
	}
	return nil, checkPolicy(name)
}

func checkPolicy(name string) error {
	if !slices.Contains(policyNames, name) {
		return errors.Wrapf(ErrUnknownPolicy, "%q, expected one of %v", name, policyNames)
	}
	return nil
}
