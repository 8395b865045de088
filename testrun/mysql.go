package testrun

import (
	"context"
	"errors"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MySQLStore implements the Store interface using GORM. It also runs against
// SQLite for local history.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new GORM-backed test run store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new test run in the database.
func (s *MySQLStore) Create(ctx context.Context, testRun *TestRun) error {
	// Ensure default status is set before validation
	if testRun.Status == "" {
		testRun.Status = StatusPending
	}

	if err := testRun.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(testRun).Error; err != nil {
		s.logger.Error(ctx, "failed to create test run", map[string]interface{}{
			"error":          err.Error(),
			"server_command": testRun.ServerCommand,
		})
		return err
	}

	s.logger.Info(ctx, "test run created", map[string]interface{}{
		"test_run_id": testRun.ID.String(),
	})

	return nil
}

// GetByID retrieves a test run by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*TestRun, error) {
	var testRun TestRun
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&testRun).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestRunNotFound
		}
		s.logger.Error(ctx, "failed to get test run by ID", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": id.String(),
		})
		return nil, err
	}

	return &testRun, nil
}

// Update updates a test run with the given setters.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	testRun, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(testRun); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(testRun).Error; err != nil {
		s.logger.Error(ctx, "failed to update test run", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": id.String(),
		})
		return err
	}

	s.logger.Debug(ctx, "test run updated", map[string]interface{}{
		"test_run_id": id.String(),
	})

	return nil
}

// List retrieves a page of test runs, newest first.
func (s *MySQLStore) List(ctx context.Context, limit, offset int) ([]*TestRun, error) {
	var testRuns []*TestRun
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&testRuns).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list test runs", map[string]interface{}{
			"error":  err.Error(),
			"limit":  limit,
			"offset": offset,
		})
		return nil, err
	}

	return testRuns, nil
}

// Count returns the number of stored test runs.
func (s *MySQLStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&TestRun{}).Count(&count).Error; err != nil {
		s.logger.Error(ctx, "failed to count test runs", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}
	return count, nil
}

// Start marks a test run as started (sets started_at, changes status to running).
func (s *MySQLStore) Start(ctx context.Context, id uuid.UUID) error {
	testRun, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := testRun.Start(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Save(testRun).Error; err != nil {
		s.logger.Error(ctx, "failed to start test run", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": id.String(),
		})
		return err
	}

	s.logger.Info(ctx, "test run started", map[string]interface{}{
		"test_run_id": id.String(),
	})

	return nil
}

// Complete marks a test run as completed (sets completed_at, final status, optional notes).
func (s *MySQLStore) Complete(ctx context.Context, id uuid.UUID, status Status, notes string) error {
	testRun, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := testRun.Complete(status, notes); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Save(testRun).Error; err != nil {
		s.logger.Error(ctx, "failed to complete test run", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": id.String(),
		})
		return err
	}

	s.logger.Info(ctx, "test run completed", map[string]interface{}{
		"test_run_id": id.String(),
		"status":      status,
	})

	return nil
}
