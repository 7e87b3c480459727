package model

import "time"

// RunStatus represents the current state of a stage run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Stage names a pipeline stage.
type Stage string

const (
	StagePrepare   Stage = "prepare"
	StageScrape    Stage = "scrape"
	StageFilter    Stage = "filter"
	StageRealPrice Stage = "realprice"
	StageCPIFetch  Stage = "cpi_fetch"
)

// Run records one invocation of a pipeline stage.
type Run struct {
	ID         string         `json:"id" yaml:"id"`
	Stage      Stage          `json:"stage" yaml:"stage"`
	Input      string         `json:"input" yaml:"input"`
	Output     string         `json:"output" yaml:"output"`
	Status     RunStatus      `json:"status" yaml:"status"`
	RowsIn     int            `json:"rows_in" yaml:"rows_in"`
	RowsOut    int            `json:"rows_out" yaml:"rows_out"`
	Counters   map[string]int `json:"counters,omitempty" yaml:"counters,omitempty"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageResult summarises what a stage did to its table.
type StageResult struct {
	RowsIn   int            `json:"rows_in"`
	RowsOut  int            `json:"rows_out"`
	Counters map[string]int `json:"counters,omitempty"`
}

// Inc increments a named counter.
func (r *StageResult) Inc(name string) {
	r.Add(name, 1)
}

// Add adds n to a named counter.
func (r *StageResult) Add(name string, n int) {
	if r.Counters == nil {
		r.Counters = make(map[string]int)
	}
	r.Counters[name] += n
}
