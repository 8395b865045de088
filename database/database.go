// Package database opens the run history database and applies its schema
// migrations. MySQL backs the shared history server; SQLite backs local runs.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// ErrUnsupportedDriver is returned for a driver other than mysql or sqlite.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

//go:embed migrations
var migrationsFS embed.FS

// Config holds database connection configuration.
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Path is the SQLite database file.
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns the driver-specific data source name.
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Database), nil
	case DriverSQLite, "":
		if c.Path == "" {
			return "", errors.New("sqlite database path is required")
		}
		return c.Path + "?_foreign_keys=on&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
}

// Connect opens a GORM connection and applies the pool settings.
func Connect(cfg Config) (*gorm.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	if cfg.Driver == DriverMySQL {
		dialector = mysql.Open(dsn)
	} else {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.Driver == DriverMySQL {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// RunMigrations applies all pending migrations. An empty path uses the
// migrations embedded in the binary.
func RunMigrations(sqlDB *sql.DB, driver, path string) error {
	m, err := newMigrate(sqlDB, driver, path)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(sqlDB *sql.DB, driver, path string) error {
	m, err := newMigrate(sqlDB, driver, path)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// Version returns the applied schema version and whether it is dirty.
func Version(sqlDB *sql.DB, driver, path string) (uint, bool, error) {
	m, err := newMigrate(sqlDB, driver, path)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// newMigrate is not closed by callers: closing it would close sqlDB.
func newMigrate(sqlDB *sql.DB, driver, path string) (*migrate.Migrate, error) {
	var (
		instance migratedb.Driver
		dir      string
		err      error
	)
	switch driver {
	case DriverMySQL:
		instance, err = migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
		dir = "migrations/mysql"
	case DriverSQLite, "":
		driver = DriverSQLite
		instance, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
		dir = "migrations/sqlite"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	if path != "" {
		m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(path), driver, instance)
		if err != nil {
			return nil, fmt.Errorf("failed to load migrations from %s: %w", path, err)
		}
		return m, nil
	}

	var src source.Driver
	src, err = iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise migrations: %w", err)
	}
	return m, nil
}
