package types

import (
	"time"

	"github.com/pkg/errors"
)

type AgentConfig struct {
	Horizon     int
	Policy      Policy
	Environment Environment
}

// Agent runs a policy against an environment
type Agent struct {
	config      *AgentConfig
	policy      Policy
	environment Environment
}

func NewAgent(config *AgentConfig) *Agent {
	return &Agent{
		config:      config,
		policy:      config.Policy,
		environment: config.Environment,
	}
}

// RunEpisode plays one episode until it terminates, gets truncated, reaches
// the horizon or the context is done. Errors end the episode and are
// stored in the context.
func (a *Agent) RunEpisode(eCtx *EpisodeContext) {
	start := time.Now()
	obs, info, err := a.environment.Reset(eCtx.Seed, nil)
	eCtx.Report.AddTimeEntry(time.Since(start), "reset_time", "agent.RunEpisode")
	if err != nil {
		eCtx.SetError(errors.Wrap(err, "reset"))
		return
	}
	eCtx.TimeSerieID = info.TimeSerieID
	space := a.environment.ActionSpace()

	for i := 0; i < a.config.Horizon; i++ {
		select {
		case <-eCtx.Context.Done():
			return
		default:
		}
		eCtx.Report.setEpisodeStep(i)

		action, ok := a.policy.NextAction(i, obs, space)
		if !ok {
			break
		}
		stepStart := time.Now()
		res, err := a.environment.Step(action)
		eCtx.Report.AddTimeEntry(time.Since(stepStart), "step_time", "agent.RunEpisode")
		if err != nil {
			eCtx.SetError(errors.Wrapf(err, "step %d", i))
			break
		}
		a.policy.Update(i, obs, action, res)

		eCtx.Trace.Append(TraceStep{
			Step:       i,
			Obs:        obs,
			Action:     action,
			NextObs:    res.Observation,
			Reward:     res.Reward,
			Terminated: res.Terminated,
			Truncated:  res.Truncated,
		})
		eCtx.Timesteps += 1
		eCtx.Return += res.Reward
		obs = res.Observation

		if res.Terminated || res.Truncated {
			eCtx.Terminated = res.Terminated
			eCtx.Truncated = res.Truncated
			eCtx.Exception = res.Info.Exception
			break
		}
	}
	if eCtx.Timesteps == a.config.Horizon && !eCtx.Terminated && !eCtx.Truncated {
		eCtx.HorizonEnd = true
	}
	a.policy.UpdateIteration(eCtx.Episode, eCtx.Trace)
}
