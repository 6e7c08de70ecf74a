package types

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/util"
	"go.uber.org/zap"
)

type experimentRunConfig struct {
	CurrentRun int
	Episodes   int
	Horizon    int
	Analyzers  []Analyzer
	Timeout    time.Duration
	Context    context.Context
	Seed       *int64

	// thresholds to abort the experiment
	ConsecutiveTimeoutsAbort int
	ConsecutiveErrorsAbort   int

	// record flags
	RecordTraces bool
	RecordTimes  bool
	RecordPolicy bool

	ReportSavePath string
	Recorder       Recorder
	Logger         *zap.Logger

	LongestExpNameLen int
}

// Experiment pairs a policy with the environment it acts on
type Experiment struct {
	Name        string
	policy      Policy
	environment Environment
}

func NewExperiment(name string, policy Policy, environment Environment) *Experiment {
	return &Experiment{
		Name:        name,
		policy:      policy,
		environment: environment,
	}
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, trace *Trace) error {
	tracesFile := path.Join(rConfig.ReportSavePath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	bs, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	return util.AppendToFile(tracesFile, string(bs))
}

// episodeSeed derives a distinct seed per run and episode from the base seed
func episodeSeed(base *int64, run, episodes, episode int) *int64 {
	if base == nil {
		return nil
	}
	s := *base + int64(run*episodes+episode)
	return &s
}

// Run the experiment for the configured number of episodes
func (e *Experiment) Run(rConfig *experimentRunConfig) {
	select {
	case <-rConfig.Context.Done():
		return
	default:
	}
	logger := rConfig.Logger.With(zap.String("experiment", e.Name), zap.Int("run", rConfig.CurrentRun))

	totalTimeout := 0
	totalWithError := 0
	consecutiveTimeouts := 0
	consecutiveErrors := 0
	episodeTimes := make([]time.Duration, 0)

	totalTerminated := 0 // episodes ended with a game over
	totalTruncated := 0  // episodes ended with the scenario
	totalHorizon := 0
	totalEpisodes := 0
	totalValidEpisodes := 0
	totalValidTimesteps := 0
	executedTimesteps := 0

	agent := NewAgent(&AgentConfig{
		Horizon:     rConfig.Horizon,
		Policy:      e.policy,
		Environment: e.environment,
	})

	EPPadding := len(strconv.Itoa(rConfig.Episodes))
	NamePadding := rConfig.LongestExpNameLen
	printStatus := func() {
		fmt.Printf("\rExp:%*s, TSteps:%7d, Valid:%7d || Eps:%*d/%d, Valid:%*d, TOut:%*d, Err:%*d || Over:%*d, Trunc:%*d, Horizon:%*d",
			NamePadding, e.Name, executedTimesteps, totalValidTimesteps,
			EPPadding, totalEpisodes, rConfig.Episodes, EPPadding, totalValidEpisodes, EPPadding, totalTimeout, EPPadding, totalWithError,
			EPPadding, totalTerminated, EPPadding, totalTruncated, EPPadding, totalHorizon)
	}
	printStatus()

	for totalEpisodes < rConfig.Episodes {
		select {
		case <-rConfig.Context.Done():
			return
		default:
		}

		eCtx := NewEpisodeContext(rConfig.Context, e.Name, rConfig.CurrentRun, totalEpisodes, rConfig.Timeout)
		eCtx.Seed = episodeSeed(rConfig.Seed, rConfig.CurrentRun, rConfig.Episodes, totalEpisodes)

		e.runEpisode(eCtx, agent)
		episodeTimes = append(episodeTimes, eCtx.RunDuration)

		startingTimesteps := executedTimesteps
		executedTimesteps += eCtx.Timesteps
		totalEpisodes += 1

		if eCtx.TimedOut {
			totalTimeout += 1
			consecutiveTimeouts += 1
		} else {
			consecutiveTimeouts = 0
		}
		if eCtx.Err != nil {
			totalWithError += 1
			consecutiveErrors += 1
			logger.Debug("episode failed", zap.Int("episode", eCtx.Episode), zap.Error(eCtx.Err))
			util.WriteToFile(path.Join(rConfig.ReportSavePath, "epReports", fmt.Sprintf("%s_run%d_ep%d.txt", e.Name, rConfig.CurrentRun, eCtx.Episode)),
				eCtx.Report.StringTimeline())
		} else {
			consecutiveErrors = 0
		}

		if rConfig.RecordTraces {
			if err := e.recordTrace(rConfig, eCtx.Trace); err != nil {
				logger.Warn("recording trace", zap.Error(err))
			}
		}
		if rConfig.Recorder != nil {
			if err := rConfig.Recorder.Record(rConfig.Context, eCtx.Summary()); err != nil {
				logger.Warn("recording episode", zap.Error(err))
			}
		}

		// analyze the trace, even if the episode timed out or ended with an error
		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, totalEpisodes, startingTimesteps, e.Name, eCtx.Trace)
		}

		if eCtx.Valid() {
			totalValidEpisodes += 1
			totalValidTimesteps += eCtx.Timesteps
			switch {
			case eCtx.Terminated:
				totalTerminated += 1
			case eCtx.Truncated:
				totalTruncated += 1
			case eCtx.HorizonEnd:
				totalHorizon += 1
			}
		}

		if len(episodeTimes) == 10 {
			if rConfig.RecordTimes {
				e.printEpTimesMs(episodeTimes, rConfig.ReportSavePath)
			}
			episodeTimes = make([]time.Duration, 0)
		}

		if consecutiveTimeouts >= rConfig.ConsecutiveTimeoutsAbort {
			fmt.Printf("\n Aborting experiment %s : %d consecutive timeouts\n", e.Name, consecutiveTimeouts)
			break
		}
		if consecutiveErrors >= rConfig.ConsecutiveErrorsAbort {
			fmt.Printf("\n Aborting experiment %s : %d consecutive errors\n", e.Name, consecutiveErrors)
			break
		}
		printStatus()
	}

	if rConfig.RecordPolicy {
		if rp, ok := e.policy.(RecordablePolicy); ok {
			if err := rp.Record(path.Join(rConfig.ReportSavePath, "policies", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun))); err != nil {
				logger.Warn("recording policy", zap.Error(err))
			}
		}
	}
	fmt.Println("")
}

func (e *Experiment) runEpisode(eCtx *EpisodeContext, agent *Agent) {
	defer eCtx.Cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				eCtx.SetError(errors.Errorf("panic: %v", r))
			}
		}()
		start := time.Now()
		agent.RunEpisode(eCtx)
		eCtx.RunDuration = time.Since(start)
		eCtx.Report.AddTimeEntry(eCtx.RunDuration, "return_time", "experiment.runEpisode")
	}()

	select {
	case <-eCtx.Context.Done():
		if deadline, ok := eCtx.Context.Deadline(); ok && time.Now().After(deadline) {
			eCtx.SetTimedOut()
		}
		// the agent stops at the next step boundary
		<-done
	case <-done:
	}
}

func (e *Experiment) printEpTimesMs(epTimes []time.Duration, basePath string) {
	tMilliseconds := ""
	for _, tm := range epTimes {
		tMilliseconds = fmt.Sprintf("%s%7d, ", tMilliseconds, tm.Milliseconds())
	}
	util.AppendToFile(path.Join(basePath, "epTimes", e.Name+"_ms.txt"), tMilliseconds)
}

// Reset forgets what the policy learnt
func (e *Experiment) Reset() {
	e.policy.Reset()
}

// DataSet is whatever an analyzer extracts from the traces
type DataSet interface{}

// Analyzer compresses the information in the traces to a DataSet
type Analyzer interface {
	// run, episode, starting timestep, experiment, trace
	Analyze(int, int, int, string, *Trace)
	DataSet() DataSet
	Reset()
}

// Comparator differentiates between different datasets with associated names
// run, total episodes, experiment names, datasets
type Comparator func(int, int, []string, []DataSet)

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs     int
	Episodes int
	Horizon  int
	Seed     *int64

	RecordPath string
	Timeout    time.Duration

	// thresholds to abort the experiment
	ConsecutiveTimeoutsAbort int
	ConsecutiveErrorsAbort   int

	RecordTraces bool
	RecordTimes  bool
	RecordPolicy bool

	Recorder Recorder
	Logger   *zap.Logger
}

// Comparison runs several experiments, analyzes their traces and
// compares the resulting datasets
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
}

// NewComparison creates a comparison and empties its record path
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if _, err := os.Stat(config.RecordPath); err == nil {
		if err := util.RemoveContents(config.RecordPath); err != nil {
			return nil, err
		}
	}
	folders := []string{"epReports"}
	if config.RecordTraces {
		folders = append(folders, "traces")
	}
	if config.RecordTimes {
		folders = append(folders, "epTimes")
	}
	if config.RecordPolicy {
		folders = append(folders, "policies")
	}
	for _, f := range folders {
		if err := util.EnsureDir(path.Join(config.RecordPath, f)); err != nil {
			return nil, err
		}
	}

	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
	}, nil
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	out := make(map[string]interface{})
	out["runs"] = cfg.Runs
	out["episodes"] = cfg.Episodes
	out["horizon"] = cfg.Horizon
	out["record_traces"] = cfg.RecordTraces
	out["record_times"] = cfg.RecordTimes
	out["record_policy"] = cfg.RecordPolicy
	if cfg.Seed != nil {
		out["seed"] = *cfg.Seed
	}
	if cfg.Timeout != 0 {
		out["timeout"] = cfg.Timeout.String()
	}

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	analyzers := make([]string, 0)
	for name := range c.analyzers {
		analyzers = append(analyzers, name)
	}
	out["analyzers"] = analyzers

	bs, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return util.WriteToFile(path.Join(cfg.RecordPath, "comparison_config.json"), string(bs))
}

// Run the comparison
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil {
		return errors.Wrap(err, "recording comparison config")
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		if len(e.Name) > longestNameLen {
			longestNameLen = len(e.Name)
		}
	}

	for run := 0; run < c.cConfig.Runs; run++ {
		fmt.Printf("Run %d\n", run+1)
		datasets := make(map[string][]DataSet)
		for name := range c.analyzers {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			e.Run(c.prepareRunConfig(ctx, run, longestNameLen))
			for name, a := range c.analyzers {
				datasets[name][i] = a.DataSet()
				a.Reset()
			}
			names[i] = e.Name
			e.Reset()
		}
		for name, comp := range c.comparators {
			comp(run, c.cConfig.Episodes, names, datasets[name])
		}
	}
	return nil
}

func (c *Comparison) prepareRunConfig(ctx context.Context, run, longestExpNameLen int) *experimentRunConfig {
	rCfg := &experimentRunConfig{
		CurrentRun:               run,
		Episodes:                 c.cConfig.Episodes,
		Horizon:                  c.cConfig.Horizon,
		Analyzers:                make([]Analyzer, 0),
		RecordTraces:             c.cConfig.RecordTraces,
		RecordTimes:              c.cConfig.RecordTimes,
		RecordPolicy:             c.cConfig.RecordPolicy,
		ReportSavePath:           c.cConfig.RecordPath,
		Timeout:                  c.cConfig.Timeout,
		Context:                  ctx,
		Seed:                     c.cConfig.Seed,
		Recorder:                 c.cConfig.Recorder,
		Logger:                   c.cConfig.Logger,
		ConsecutiveErrorsAbort:   c.cConfig.ConsecutiveErrorsAbort,
		ConsecutiveTimeoutsAbort: c.cConfig.ConsecutiveTimeoutsAbort,
		LongestExpNameLen:        longestExpNameLen,
	}
	if rCfg.ConsecutiveErrorsAbort == 0 {
		rCfg.ConsecutiveErrorsAbort = 10
	}
	if rCfg.ConsecutiveTimeoutsAbort == 0 {
		rCfg.ConsecutiveTimeoutsAbort = 10
	}
	for _, a := range c.analyzers {
		rCfg.Analyzers = append(rCfg.Analyzers, a)
	}
	return rCfg
}
