package testrun

import (
	"context"

	"github.com/google/uuid"
)

// StepResultStore defines the interface for step result persistence operations.
type StepResultStore interface {
	// Save creates or replaces the result for a given (test_run_id, step_index).
	Save(ctx context.Context, result *StepResult) error

	// ListByTestRun retrieves all step results for a test run, ordered by step_index.
	ListByTestRun(ctx context.Context, testRunID uuid.UUID) ([]*StepResult, error)

	// GetByRunAndStep retrieves the result of one step of a run.
	GetByRunAndStep(ctx context.Context, testRunID uuid.UUID, stepIndex int) (*StepResult, error)
}
