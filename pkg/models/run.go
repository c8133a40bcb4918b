package models

import "time"

// RunStats counts what happened to the rows of one batch run.
type RunStats struct {
	Rows         int `json:"rows"`
	CacheHits    int `json:"cache_hits"`
	Generated    int `json:"generated"`
	Placeholders int `json:"placeholders"`
	Failures     int `json:"failures"`
}

// Add counts one row by the source of its summary.
func (s *RunStats) Add(src SummarySource) {
	s.Rows++
	switch src {
	case SourceCache:
		s.CacheHits++
	case SourceGenerated:
		s.Generated++
	case SourcePlaceholder:
		s.Placeholders++
	case SourceError:
		s.Failures++
	}
}

// Run status values.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// RunRecord is a batch run as stored in the run ledger.
type RunRecord struct {
	ID         string    `json:"id"`
	InputPath  string    `json:"input_path"`
	OutputPath string    `json:"output_path"`
	Model      string    `json:"model"`
	Force      bool      `json:"force"`
	Limit      int       `json:"limit"`
	Stats      RunStats  `json:"stats"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunSummary aggregates finished runs per model.
type RunSummary struct {
	Model string   `json:"model"`
	Runs  int      `json:"runs"`
	Stats RunStats `json:"stats"`
}
