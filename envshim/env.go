package envshim

import (
	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/grid"
	"github.com/zeu5/grid-rl-env/gymcompat"
	"go.uber.org/zap"
)

// Env exposes a grid environment through a gym interface selected by
// configuration
type Env struct {
	config Config
	gym    *gymcompat.GymEnv
	logger *zap.Logger
	seeded bool
}

type Option func(*options)

type options struct {
	logger  *zap.Logger
	backend grid.Backend
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithBackend bypasses backend_cls and backend_options
func WithBackend(b grid.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

func New(config map[string]any, opts ...Option) (*Env, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	cfg, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With(zap.String("env_name", cfg.EnvName), zap.String("act_type", cfg.ActType))

	backend := o.backend
	if backend == nil {
		backend, err = grid.NewBackend(cfg.BackendCls, cfg.BackendOptions)
		if err != nil {
			return nil, err
		}
	}
	reward, err := grid.NewReward(cfg.Reward)
	if err != nil {
		backend.Close()
		return nil, err
	}
	base, err := grid.Make(cfg.EnvName,
		grid.WithBackend(backend),
		grid.WithTest(cfg.EnvIsTest),
		grid.WithReward(reward),
		grid.WithLogger(logger),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	e, err := build(cfg, base, logger)
	if err != nil {
		base.Close()
		return nil, err
	}
	logger.Debug("environment ready",
		zap.Ints("observation_shape", e.ObservationSpace().Shape()),
		zap.Ints("action_shape", e.ActionSpace().Shape()))
	return e, nil
}

func build(cfg Config, base *grid.Environment, logger *zap.Logger) (*Env, error) {
	gym, err := gymcompat.NewGymEnv(base, logger)
	if err != nil {
		return nil, err
	}
	obsSpace, err := gymcompat.NewBoxGymObsSpace(base.ObservationSpace(),
		gymcompat.WithAttrToKeep(cfg.ObsAttrToKeep...))
	if err != nil {
		return nil, errors.Wrap(err, "observation space")
	}
	gym.SetObservationSpace(obsSpace)

	var actSpace gymcompat.ActionConverter
	switch cfg.ActType {
	case ActDiscrete:
		actSpace, err = gymcompat.NewDiscreteActSpace(base.ActionSpace(), cfg.ActAttrToKeep, cfg.NbBins)
	case ActBox:
		actSpace, err = gymcompat.NewBoxGymActSpace(base.ActionSpace(), cfg.ActAttrToKeep)
	case ActMultiDiscrete:
		actSpace, err = gymcompat.NewMultiDiscreteActSpace(base.ActionSpace(), cfg.ActAttrToKeep, cfg.NbBins)
	default:
		return nil, errors.Wrapf(ErrUnsupportedActType, "%q", cfg.ActType)
	}
	if err != nil {
		return nil, errors.Wrap(err, "action space")
	}
	gym.SetActionSpace(actSpace)

	return &Env{config: cfg, gym: gym, logger: logger}, nil
}

func (e *Env) Config() Config { return e.config }

func (e *Env) ObservationSpace() gymcompat.Space { return e.gym.ObservationSpace().Space() }

func (e *Env) ActionSpace() gymcompat.Space { return e.gym.ActionSpace().Space() }

// NoopAction is the action vector that leaves the grid untouched
func (e *Env) NoopAction() []float64 { return e.gym.ActionSpace().Noop() }

// Gym gives access to the adapters behind the shim
func (e *Env) Gym() *gymcompat.GymEnv { return e.gym }

func (e *Env) Reset(seed *int64, options map[string]any) ([]float64, gymcompat.ResetInfo, error) {
	if seed == nil && !e.seeded {
		seed = e.config.Seed
	}
	obs, info, err := e.gym.Reset(seed, options)
	if err != nil {
		return nil, info, err
	}
	// the configured seed is spent only by a reset that went through
	e.seeded = true
	return obs, info, nil
}

func (e *Env) Step(action []float64) (*gymcompat.StepResult, error) {
	return e.gym.Step(action)
}

func (e *Env) Close() error {
	return e.gym.Close()
}
