package types

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RolloutConfig configures parallel rollouts. Every worker builds its own
// environment and policy and plays Episodes episodes.
type RolloutConfig struct {
	Name     string
	Workers  int
	Episodes int
	Horizon  int
	Timeout  time.Duration
	Seed     *int64

	Recorder Recorder
	Logger   *zap.Logger

	// progress is printed to Progress when set
	Progress       io.Writer
	PrintFrequency time.Duration
}

// RolloutWorkers run independent agents in parallel
type RolloutWorkers struct {
	config    *RolloutConfig
	newEnv    EnvConstructor
	newPolicy PolicyConstructor
}

func NewRolloutWorkers(config *RolloutConfig, newEnv EnvConstructor, newPolicy PolicyConstructor) *RolloutWorkers {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.PrintFrequency <= 0 {
		config.PrintFrequency = time.Second
	}
	return &RolloutWorkers{
		config:    config,
		newEnv:    newEnv,
		newPolicy: newPolicy,
	}
}

// Run blocks until every worker is done. The first worker error cancels
// the others. Summaries are ordered by worker then episode.
func (r *RolloutWorkers) Run(ctx context.Context) ([]EpisodeSummary, error) {
	cfg := r.config
	outputs := make([]*ParallelOutput, cfg.Workers)
	for i := range outputs {
		outputs[i] = NewParallelOutput()
	}
	if cfg.Progress != nil {
		printer := NewTerminalPrinter(ctx, outputs, cfg.PrintFrequency, cfg.Progress)
		printer.Start()
		defer printer.Stop()
	}

	summaries := make([][]EpisodeSummary, cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		w := w
		g.Go(func() error {
			out, err := r.runWorker(gctx, w, outputs[w])
			summaries[w] = out
			return err
		})
	}
	err := g.Wait()

	all := make([]EpisodeSummary, 0, cfg.Workers*cfg.Episodes)
	for _, s := range summaries {
		all = append(all, s...)
	}
	return all, err
}

func (r *RolloutWorkers) runWorker(ctx context.Context, worker int, output *ParallelOutput) ([]EpisodeSummary, error) {
	cfg := r.config
	logger := cfg.Logger.With(zap.Int("worker", worker))
	env, err := r.newEnv(worker)
	if err != nil {
		return nil, errors.Wrapf(err, "worker %d: building environment", worker)
	}
	defer env.Close()
	policy := r.newPolicy(worker, env)
	agent := NewAgent(&AgentConfig{Horizon: cfg.Horizon, Policy: policy, Environment: env})

	summaries := make([]EpisodeSummary, 0, cfg.Episodes)
	steps, failed := 0, 0
	for ep := 0; ep < cfg.Episodes; ep++ {
		select {
		case <-ctx.Done():
			return summaries, ctx.Err()
		default:
		}
		eCtx := NewEpisodeContext(ctx, cfg.Name, 0, ep, cfg.Timeout)
		eCtx.Worker = worker
		eCtx.Seed = episodeSeed(cfg.Seed, worker, cfg.Episodes, ep)

		start := time.Now()
		agent.RunEpisode(eCtx)
		eCtx.RunDuration = time.Since(start)
		if errors.Is(eCtx.Context.Err(), context.DeadlineExceeded) {
			eCtx.SetTimedOut()
		}
		eCtx.Cancel()

		summary := eCtx.Summary()
		summaries = append(summaries, summary)
		steps += summary.Steps
		if summary.Error != "" {
			failed++
			logger.Warn("episode failed", zap.Int("episode", ep), zap.String("error", summary.Error))
		}
		if cfg.Recorder != nil {
			if err := cfg.Recorder.Record(ctx, summary); err != nil {
				return summaries, errors.Wrapf(err, "worker %d: recording episode %d", worker, ep)
			}
		}
		output.Set(fmt.Sprintf("Worker:%3d, Eps:%5d/%d, TSteps:%8d, Err:%4d, LastReturn:%9.3f",
			worker, ep+1, cfg.Episodes, steps, failed, summary.Return))
	}
	logger.Debug("worker done", zap.Int("episodes", len(summaries)), zap.Int("steps", steps))
	return summaries, nil
}

// TERMINAL PRINTER

type TerminalPrinter struct {
	outputs       []*ParallelOutput
	ctx           context.Context
	printerCtx    context.Context
	printerCancel context.CancelFunc
	frequency     time.Duration
	stopped       chan struct{}

	writer  *uilive.Writer
	writers []io.Writer
}

func NewTerminalPrinter(ctx context.Context, outputs []*ParallelOutput, frequency time.Duration, out io.Writer) *TerminalPrinter {
	printerCtx, cancel := context.WithCancel(ctx)
	writer := uilive.New()
	writer.Out = out
	writers := make([]io.Writer, 0, len(outputs))
	for i := 0; i < len(outputs)-1; i++ {
		writers = append(writers, writer.Newline())
	}
	return &TerminalPrinter{
		outputs:       outputs,
		ctx:           ctx,
		printerCtx:    printerCtx,
		printerCancel: cancel,
		frequency:     frequency,
		stopped:       make(chan struct{}),
		writer:        writer,
		writers:       writers,
	}
}

func (p *TerminalPrinter) Start() {
	go func() {
		defer close(p.stopped)
		ticker := time.NewTicker(p.frequency)
		defer ticker.Stop()
		for {
			select {
			case <-p.printerCtx.Done():
				p.print()
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

// Stop prints a last time and waits for the printer to exit
func (p *TerminalPrinter) Stop() {
	p.printerCancel()
	<-p.stopped
}

func (p *TerminalPrinter) print() {
	for i, output := range p.outputs {
		s := output.Get()
		if s == "" {
			continue
		}
		if i == 0 {
			fmt.Fprint(p.writer, s+"\n")
		} else {
			fmt.Fprint(p.writers[i-1], s+"\n")
		}
	}
	p.writer.Flush()
}

// PARALLEL OUTPUT

// ParallelOutput holds the latest status line of a worker
type ParallelOutput struct {
	mu        sync.Mutex
	printable string
}

func NewParallelOutput() *ParallelOutput {
	return &ParallelOutput{}
}

// Set the output string (blocking)
func (p *ParallelOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

func (p *ParallelOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}
