package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/database"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/storage"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database database.Config
	Storage  storage.Config
	Log      LogConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig holds API authentication configuration.
type AuthConfig struct {
	// APIKeyHash is a bcrypt hash; empty disables authentication.
	APIKeyHash string
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("MCPTEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.api_key_hash", "")

	v.SetDefault("database.driver", database.DriverSQLite)
	v.SetDefault("database.path", "./data/history.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "mcptest")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("storage.type", storage.TypeLocal)
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.presign_expiry", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	// Parse configuration
	var config Config

	config.Server.Host = v.GetString("http.host")
	config.Server.Port = v.GetInt("http.port")
	config.Server.ReadTimeout = v.GetDuration("http.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("http.write_timeout")

	config.Auth.APIKeyHash = v.GetString("http.api_key_hash")

	config.Database.Driver = v.GetString("database.driver")
	config.Database.Path = v.GetString("database.path")
	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.Bucket = v.GetString("storage.bucket")
	config.Storage.Region = v.GetString("storage.region")
	config.Storage.Endpoint = v.GetString("storage.endpoint")
	config.Storage.PresignExpiry = v.GetDuration("storage.presign_expiry")

	config.Log.Level = v.GetString("log.level")
	config.Log.Format = v.GetString("log.format")

	return &config, nil
}

// openDatabase connects to the configured database.
func openDatabase(cfg *Config) (*gorm.DB, *sql.DB, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	return db, sqlDB, nil
}
