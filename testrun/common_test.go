package testrun

import (
	"testing"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/testutil"
	"gorm.io/gorm"
)

// setupTestStore creates a test database with the run and step stores.
func setupTestStore(t *testing.T) (*gorm.DB, Store, StepResultStore) {
	db := testutil.SetupTestDB(t, &TestRun{}, &StepResult{})

	log := logger.NewTestLogger()
	store := NewMySQLStore(db, log)
	stepStore := NewMySQLStepResultStore(db, log)

	return db, store, stepStore
}

// createTestRun creates a test run with default values.
func createTestRun(status Status, notes string) *TestRun {
	return &TestRun{
		ServerCommand: "node build/index.js",
		Status:        status,
		Total:         15,
		Notes:         notes,
	}
}
