package types

import (
	"context"
	"time"
)

// EpisodeSummary is what gets recorded for every finished episode
type EpisodeSummary struct {
	Experiment  string        `json:"experiment"`
	Run         int           `json:"run"`
	Worker      int           `json:"worker"`
	Episode     int           `json:"episode"`
	TimeSerieID int           `json:"time_serie_id"`
	Steps       int           `json:"steps"`
	Return      float64       `json:"return"`
	Terminated  bool          `json:"terminated"`
	Truncated   bool          `json:"truncated"`
	HorizonEnd  bool          `json:"horizon_end"`
	TimedOut    bool          `json:"timed_out"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	Exception   []string      `json:"exception,omitempty"`
}

// Recorder persists episode summaries
type Recorder interface {
	Record(ctx context.Context, summary EpisodeSummary) error
	Close() error
}
