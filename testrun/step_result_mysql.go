package testrun

import (
	"context"
	"errors"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MySQLStepResultStore implements StepResultStore using GORM.
type MySQLStepResultStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStepResultStore creates a new GORM-backed step result store.
func NewMySQLStepResultStore(db *gorm.DB, log logger.Logger) *MySQLStepResultStore {
	return &MySQLStepResultStore{
		db:     db,
		logger: log,
	}
}

// Save creates or replaces the result for a given (test_run_id, step_index).
func (s *MySQLStepResultStore) Save(ctx context.Context, result *StepResult) error {
	if err := result.Validate(); err != nil {
		return err
	}

	existing, err := s.GetByRunAndStep(ctx, result.TestRunID, result.StepIndex)
	if err != nil && !errors.Is(err, ErrStepResultNotFound) {
		return err
	}

	if existing != nil {
		existing.Name = result.Name
		existing.Success = result.Success
		existing.Error = result.Error
		existing.DurationMS = result.DurationMS
		if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
			s.logger.Error(ctx, "failed to update step result", map[string]interface{}{
				"error":       err.Error(),
				"test_run_id": result.TestRunID.String(),
				"step_index":  result.StepIndex,
			})
			return err
		}
		*result = *existing
		return nil
	}

	if err := s.db.WithContext(ctx).Create(result).Error; err != nil {
		s.logger.Error(ctx, "failed to create step result", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": result.TestRunID.String(),
			"step_index":  result.StepIndex,
		})
		return err
	}

	return nil
}

// ListByTestRun retrieves all step results for a test run, ordered by step_index.
func (s *MySQLStepResultStore) ListByTestRun(ctx context.Context, testRunID uuid.UUID) ([]*StepResult, error) {
	var results []*StepResult
	err := s.db.WithContext(ctx).
		Where("test_run_id = ?", testRunID).
		Order("step_index ASC").
		Find(&results).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list step results by test run", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": testRunID.String(),
		})
		return nil, err
	}

	return results, nil
}

// GetByRunAndStep retrieves the result of one step of a run.
func (s *MySQLStepResultStore) GetByRunAndStep(ctx context.Context, testRunID uuid.UUID, stepIndex int) (*StepResult, error) {
	var result StepResult
	err := s.db.WithContext(ctx).
		Where("test_run_id = ? AND step_index = ?", testRunID, stepIndex).
		First(&result).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStepResultNotFound
		}
		s.logger.Error(ctx, "failed to get step result", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": testRunID.String(),
			"step_index":  stepIndex,
		})
		return nil, err
	}

	return &result, nil
}
