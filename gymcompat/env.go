package gymcompat

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/grid"
	"go.uber.org/zap"
)

// ResetInfo is returned alongside the first observation of an episode
type ResetInfo struct {
	TimeSerieID int `json:"time_serie_id"`
	MaxStep     int `json:"max_step"`
}

// StepResult is the outcome of one gym step. Terminated marks a game over,
// Truncated the end of the scenario.
type StepResult struct {
	Observation []float64     `json:"observation"`
	Reward      float64       `json:"reward"`
	Terminated  bool          `json:"terminated"`
	Truncated   bool          `json:"truncated"`
	Info        grid.StepInfo `json:"info"`
}

// GymEnv wraps a grid environment with vector observation and action spaces
type GymEnv struct {
	env      *grid.Environment
	obsSpace ObservationConverter
	actSpace ActionConverter
	logger   *zap.Logger
}

// NewGymEnv uses a Box over every observation attribute and a Discrete
// action space over the default attributes
func NewGymEnv(env *grid.Environment, logger *zap.Logger) (*GymEnv, error) {
	obsSpace, err := NewBoxGymObsSpace(env.ObservationSpace())
	if err != nil {
		return nil, errors.Wrap(err, "default observation space")
	}
	actSpace, err := NewDiscreteActSpace(env.ActionSpace(), DefaultDiscreteAttrs, DefaultNbBins)
	if err != nil {
		return nil, errors.Wrap(err, "default action space")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GymEnv{
		env:      env,
		obsSpace: obsSpace,
		actSpace: actSpace,
		logger:   logger,
	}, nil
}

func (g *GymEnv) Env() *grid.Environment { return g.env }

func (g *GymEnv) ObservationSpace() ObservationConverter { return g.obsSpace }

func (g *GymEnv) ActionSpace() ActionConverter { return g.actSpace }

func (g *GymEnv) SetObservationSpace(c ObservationConverter) { g.obsSpace = c }

func (g *GymEnv) SetActionSpace(c ActionConverter) { g.actSpace = c }

// Reset starts a new episode. Options are decoded into grid.ResetOptions,
// unknown keys are rejected.
func (g *GymEnv) Reset(seed *int64, options map[string]any) ([]float64, ResetInfo, error) {
	var opts grid.ResetOptions
	if len(options) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &opts,
		})
		if err != nil {
			return nil, ResetInfo{}, err
		}
		if err := dec.Decode(options); err != nil {
			return nil, ResetInfo{}, errors.Wrap(err, "reset options")
		}
	}
	obs, err := g.env.Reset(seed, opts)
	if err != nil {
		return nil, ResetInfo{}, err
	}
	vec, err := g.obsSpace.ToGym(obs)
	if err != nil {
		return nil, ResetInfo{}, err
	}
	info := ResetInfo{TimeSerieID: g.env.TimeSerieID(), MaxStep: g.env.MaxStep()}
	g.logger.Debug("reset", zap.Int("time_serie_id", info.TimeSerieID), zap.Int("max_step", info.MaxStep))
	return vec, info, nil
}

// Step converts the vector to a grid action and plays it
func (g *GymEnv) Step(action []float64) (*StepResult, error) {
	a, err := g.actSpace.FromGym(action)
	if err != nil {
		return nil, err
	}
	obs, reward, done, info, err := g.env.Step(a)
	if err != nil {
		return nil, err
	}
	vec, err := g.obsSpace.ToGym(obs)
	if err != nil {
		return nil, err
	}
	res := &StepResult{
		Observation: vec,
		Reward:      reward,
		Info:        info,
	}
	if done {
		if info.HasError() {
			res.Terminated = true
		} else {
			res.Truncated = true
		}
		g.logger.Debug("episode over",
			zap.Int("step", g.env.CurrentStep()),
			zap.Bool("terminated", res.Terminated),
			zap.Strings("exception", info.Exception))
	}
	return res, nil
}

func (g *GymEnv) Close() error {
	return g.env.Close()
}
