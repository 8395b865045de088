package testrun

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrStepResultNotFound is returned when a step result is not found.
	ErrStepResultNotFound = errors.New("step result not found")

	// ErrInvalidStepResult is returned when a step result lacks its run, index or name.
	ErrInvalidStepResult = errors.New("test_run_id, step_index and name are required")
)

// StepResult is the persisted outcome of one scenario step within a test run.
type StepResult struct {
	ID         uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	TestRunID  uuid.UUID `json:"test_run_id" gorm:"type:char(36);not null;uniqueIndex:idx_run_step"`
	StepIndex  int       `json:"step_index" gorm:"not null;uniqueIndex:idx_run_step"`
	Name       string    `json:"name" gorm:"type:varchar(100);not null"`
	Success    bool      `json:"success" gorm:"not null;default:false"`
	Error      string    `json:"error,omitempty" gorm:"type:text"`
	DurationMS int64     `json:"duration_ms" gorm:"column:duration_ms;not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate hook to generate UUID before creating a new step result.
func (sr *StepResult) BeforeCreate(tx *gorm.DB) error {
	if sr.ID == uuid.Nil {
		sr.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for GORM.
func (sr *StepResult) TableName() string {
	return "test_run_steps"
}

// Validate checks the identifying fields.
func (sr *StepResult) Validate() error {
	if sr.TestRunID == uuid.Nil || sr.StepIndex < 1 || sr.Name == "" {
		return ErrInvalidStepResult
	}
	return nil
}
