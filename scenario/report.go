package scenario

import (
	"time"

	"github.com/google/uuid"
)

// Report is the stored and printed form of a finished run.
type Report struct {
	RunID      uuid.UUID    `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Aborted    string       `json:"aborted,omitempty"`
	Steps      []StepResult `json:"steps"`
	Summary    Summary      `json:"summary"`
}

// NewReport builds the report of run.
func NewReport(run *Run) *Report {
	r := &Report{
		RunID:      run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Steps:      run.Results(),
		Summary:    run.Summary(),
	}
	if run.Abort != nil {
		r.Aborted = run.Abort.Error()
	}
	return r
}
