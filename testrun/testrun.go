package testrun

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrTestRunNotFound is returned when a test run is not found.
	ErrTestRunNotFound = errors.New("test run not found")

	// ErrInvalidServerCommand is returned when server_command is not set.
	ErrInvalidServerCommand = errors.New("server_command is required")

	// ErrInvalidStatus is returned when status is invalid.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidCounts is returned when the step counts are inconsistent.
	ErrInvalidCounts = errors.New("passed and failed must be non-negative and sum to at most total")

	// ErrTestRunNotRunning is returned when trying to complete a test run that's not running.
	ErrTestRunNotRunning = errors.New("test run is not running")

	// ErrTestRunAlreadyStarted is returned when trying to start an already started test run.
	ErrTestRunAlreadyStarted = errors.New("test run already started")
)

// Status represents the status of a test run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	// StatusAborted is a run stopped by a fatal error, such as a missing credential.
	StatusAborted Status = "aborted"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusPassed, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// IsFinal checks if the status is a final status (can't be changed).
func (s Status) IsFinal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusAborted
}

// TestRun is one recorded execution of the Dropbox scenario.
type TestRun struct {
	ID            uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Status        Status     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_status"`
	ServerCommand string     `json:"server_command" gorm:"type:varchar(512);not null"`
	Total         int        `json:"total" gorm:"not null;default:0"`
	Passed        int        `json:"passed" gorm:"not null;default:0"`
	Failed        int        `json:"failed" gorm:"not null;default:0"`
	Notes         string     `json:"notes" gorm:"type:text"`
	ReportKey     string     `json:"report_key,omitempty" gorm:"type:varchar(255);not null;default:''"`
	StartedAt     *time.Time `json:"started_at,omitempty" gorm:"index:idx_started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" gorm:"index:idx_created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating a new test run
func (tr *TestRun) BeforeCreate(tx *gorm.DB) error {
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	return nil
}

// Validate checks if the test run has valid required fields.
func (tr *TestRun) Validate() error {
	if tr.ServerCommand == "" {
		return ErrInvalidServerCommand
	}
	if !tr.Status.IsValid() {
		return ErrInvalidStatus
	}
	if tr.Passed < 0 || tr.Failed < 0 || tr.Passed+tr.Failed > tr.Total {
		return ErrInvalidCounts
	}
	return nil
}

// Start sets the started_at timestamp and changes status to running.
// Returns an error if the test run has already been started.
func (tr *TestRun) Start() error {
	if tr.StartedAt != nil {
		return ErrTestRunAlreadyStarted
	}
	now := time.Now().UTC()
	tr.StartedAt = &now
	tr.Status = StatusRunning
	return nil
}

// Complete sets the completed_at timestamp and final status.
// Returns an error if the test run is not currently running.
func (tr *TestRun) Complete(status Status, notes string) error {
	if tr.Status != StatusRunning {
		return ErrTestRunNotRunning
	}
	if !status.IsFinal() {
		return ErrInvalidStatus
	}
	now := time.Now().UTC()
	tr.CompletedAt = &now
	tr.Status = status
	if notes != "" {
		tr.Notes = notes
	}
	return nil
}

// SuccessRate is the percentage of passed steps out of the total.
func (tr *TestRun) SuccessRate() float64 {
	if tr.Total == 0 {
		return 0
	}
	return float64(tr.Passed) / float64(tr.Total) * 100
}
