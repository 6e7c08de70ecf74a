package types

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EpisodeContext carries what an episode needs and what it reports back
type EpisodeContext struct {
	Context context.Context
	Cancel  context.CancelFunc

	Run            int
	Episode        int
	Worker         int
	ExperimentName string
	// seed of the reset, nil lets the environment choose
	Seed *int64

	Trace  *Trace
	Report *EpisodeReport

	// outcome
	Timesteps   int
	Return      float64
	TimeSerieID int
	Terminated  bool
	Truncated   bool
	HorizonEnd  bool
	TimedOut    bool
	Err         error
	Exception   []string
	RunDuration time.Duration

	lock sync.Mutex
}

// NewEpisodeContext derives the episode context from parent, with a
// deadline when timeout is positive
func NewEpisodeContext(parent context.Context, experimentName string, run, episode int, timeout time.Duration) *EpisodeContext {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return &EpisodeContext{
		Context:        ctx,
		Cancel:         cancel,
		Run:            run,
		Episode:        episode,
		ExperimentName: experimentName,
		TimeSerieID:    -1,
		Trace:          NewTrace(),
		Report:         NewEpisodeReport(episode, experimentName),
	}
}

func (e *EpisodeContext) SetError(err error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.Err == nil {
		e.Err = err
		e.Report.AddLog(err.Error(), "error")
	}
}

func (e *EpisodeContext) SetTimedOut() {
	e.lock.Lock()
	defer e.lock.Unlock()
	if !e.TimedOut {
		e.Report.AddLog(context.DeadlineExceeded.Error(), "timeout")
	}
	e.TimedOut = true
}

// Valid reports whether the episode ended without error or timeout
func (e *EpisodeContext) Valid() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.Err == nil && !e.TimedOut
}

// Summary of the finished episode
func (e *EpisodeContext) Summary() EpisodeSummary {
	e.lock.Lock()
	defer e.lock.Unlock()
	s := EpisodeSummary{
		Experiment:  e.ExperimentName,
		Run:         e.Run,
		Worker:      e.Worker,
		Episode:     e.Episode,
		TimeSerieID: e.TimeSerieID,
		Steps:       e.Timesteps,
		Return:      e.Return,
		Terminated:  e.Terminated,
		Truncated:   e.Truncated,
		HorizonEnd:  e.HorizonEnd,
		TimedOut:    e.TimedOut,
		Duration:    e.RunDuration,
		Exception:   e.Exception,
	}
	if e.Err != nil {
		s.Error = e.Err.Error()
	}
	return s
}

// EPISODE REPORT

// EpisodeReport collects timings and logs of an episode
type EpisodeReport struct {
	EpisodeNumber  int
	ExperimentName string
	episodeStep    int

	nextIndex int
	startTime time.Time

	lock *sync.Mutex

	Timeline   []*EpisodeReportEntry
	TimeValues map[string][]*EpisodeReportEntry
	Logs       map[string]string
}

func NewEpisodeReport(episodeNumber int, experimentName string) *EpisodeReport {
	return &EpisodeReport{
		EpisodeNumber:  episodeNumber,
		ExperimentName: experimentName,
		startTime:      time.Now(),
		lock:           &sync.Mutex{},
		Timeline:       make([]*EpisodeReportEntry, 0),
		TimeValues:     make(map[string][]*EpisodeReportEntry),
		Logs:           make(map[string]string),
	}
}

func (e *EpisodeReport) setEpisodeStep(step int) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.episodeStep = step
}

// AddTimeEntry records a duration under entryType
func (e *EpisodeReport) AddTimeEntry(value time.Duration, entryType string, caller string) {
	e.lock.Lock()
	defer e.lock.Unlock()

	entry := &EpisodeReportEntry{
		Index:       e.nextIndex,
		Timestamp:   time.Since(e.startTime),
		EpisodeStep: e.episodeStep,
		EntryType:   entryType,
		Caller:      caller,
		Value:       value,
	}
	e.nextIndex += 1
	e.Timeline = append(e.Timeline, entry)
	e.TimeValues[entryType] = append(e.TimeValues[entryType], entry)
}

// AddLog stores value under key, replacing any earlier value
func (e *EpisodeReport) AddLog(value string, key string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.Logs[key] = value
}

// Mean duration of the entries of the given type, 0 if there are none
func (e *EpisodeReport) Mean(entryType string) time.Duration {
	e.lock.Lock()
	defer e.lock.Unlock()
	entries := e.TimeValues[entryType]
	if len(entries) == 0 {
		return 0
	}
	var total time.Duration
	for _, en := range entries {
		total += en.Value
	}
	return total / time.Duration(len(entries))
}

// StringTimeline returns a string representation of the report timeline
func (e *EpisodeReport) StringTimeline() string {
	e.lock.Lock()
	defer e.lock.Unlock()
	result := fmt.Sprintf("Episode %d of %s, entries: %d\n", e.EpisodeNumber, e.ExperimentName, len(e.Timeline))
	for _, entry := range e.Timeline {
		result = fmt.Sprintf("%s%s\n", result, entry.String())
	}
	for key, value := range e.Logs {
		result = fmt.Sprintf("%s\n%s :\n%s", result, key, value)
	}
	return result
}

// EpisodeReportEntry is one timing of the report
type EpisodeReportEntry struct {
	Index     int
	Timestamp time.Duration

	EpisodeStep int
	EntryType   string
	Caller      string
	Value       time.Duration
}

func (en *EpisodeReportEntry) String() string {
	return fmt.Sprintf("[ %6d | %5d | %4d ] %20s : %12s (%20s)", en.Index, en.Timestamp.Milliseconds(), en.EpisodeStep, en.EntryType, en.Value.String(), en.Caller)
}
