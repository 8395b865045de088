package main

import (
	"fmt"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/database"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/testrun"
	"gorm.io/gorm"
)

// history is the local run database, migrated on open.
type history struct {
	db    *gorm.DB
	runs  testrun.Store
	steps testrun.StepResultStore
}

func openHistory(dbCfg database.Config, log logger.Logger) (*history, error) {
	db, err := database.Connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := database.RunMigrations(sqlDB, dbCfg.Driver, ""); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate run history: %w", err)
	}

	return &history{
		db:    db,
		runs:  testrun.NewMySQLStore(db, log),
		steps: testrun.NewMySQLStepResultStore(db, log),
	}, nil
}

func (h *history) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
