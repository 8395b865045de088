package testrun

import (
	"context"
	"sync"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/scenario"
)

// Recorder persists a scenario run and its step results as they happen.
// It is a scenario.Observer; write failures are logged and kept in Err so a
// broken database never interrupts the run itself.
type Recorder struct {
	runs          Store
	steps         StepResultStore
	serverCommand string
	logger        logger.Logger

	mu  sync.Mutex
	err error
}

// NewRecorder creates a recorder writing to runs and steps.
func NewRecorder(runs Store, steps StepResultStore, serverCommand string, log logger.Logger) *Recorder {
	return &Recorder{
		runs:          runs,
		steps:         steps,
		serverCommand: serverCommand,
		logger:        log,
	}
}

// RunStarted creates the run row and marks it running.
func (r *Recorder) RunStarted(ctx context.Context, run *scenario.Run) {
	ctx = context.WithoutCancel(ctx)
	tr := &TestRun{
		ID:            run.ID,
		Status:        StatusPending,
		ServerCommand: r.serverCommand,
		Total:         scenario.TotalSteps,
	}
	if err := r.runs.Create(ctx, tr); err != nil {
		r.fail(ctx, "failed to record run", run, err)
		return
	}
	if err := r.runs.Start(ctx, run.ID); err != nil {
		r.fail(ctx, "failed to mark run started", run, err)
	}
}

// StepCompleted stores one step result.
func (r *Recorder) StepCompleted(ctx context.Context, run *scenario.Run, result scenario.StepResult) {
	if r.Err() != nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	err := r.steps.Save(ctx, &StepResult{
		TestRunID:  run.ID,
		StepIndex:  result.Index,
		Name:       result.Name,
		Success:    result.Success,
		Error:      result.Error,
		DurationMS: result.Duration.Milliseconds(),
	})
	if err != nil {
		r.fail(ctx, "failed to record step", run, err)
	}
}

// RunFinished stores the counts and final status.
func (r *Recorder) RunFinished(ctx context.Context, run *scenario.Run, fatal error) {
	if r.Err() != nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	summary := run.Summary()
	if err := r.runs.Update(ctx, run.ID, SetCounts(summary.Total, summary.Passed, summary.Failed)); err != nil {
		r.fail(ctx, "failed to record counts", run, err)
		return
	}

	notes := ""
	if run.Abort != nil {
		notes = run.Abort.Error()
	}
	if err := r.runs.Complete(ctx, run.ID, FinalStatus(run), notes); err != nil {
		r.fail(ctx, "failed to complete run", run, err)
	}
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) fail(ctx context.Context, msg string, run *scenario.Run, err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
	r.logger.Error(ctx, msg, map[string]interface{}{
		"run_id": run.ID.String(),
		"error":  err.Error(),
	})
}

// FinalStatus maps a finished scenario run onto a stored status.
func FinalStatus(run *scenario.Run) Status {
	switch {
	case run.Abort != nil:
		return StatusAborted
	case run.Passed():
		return StatusPassed
	default:
		return StatusFailed
	}
}
