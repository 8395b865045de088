package testutil

import (
	"testing"

	"gorm.io/gorm"
)

// Seed inserts rows directly, skipping store validation, in one transaction.
func Seed(t *testing.T, db *gorm.DB, rows ...interface{}) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to seed fixtures: %v", err)
	}
}
