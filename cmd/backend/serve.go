package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/cmd/backend/handlers"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/database"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/storage"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/testrun"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	autoMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLogger(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	db, sqlDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	log.Info(ctx, "database connected", map[string]interface{}{
		"driver":   cfg.Database.Driver,
		"host":     cfg.Database.Host,
		"database": cfg.Database.Database,
		"path":     cfg.Database.Path,
	})

	if autoMigrate {
		if err := database.RunMigrations(sqlDB, cfg.Database.Driver, ""); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info(ctx, "migrations applied", nil)
	}

	// Initialize report storage
	blobStorage, err := storage.NewBlobStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize stores
	runStore := testrun.NewMySQLStore(db, log)
	stepStore := testrun.NewMySQLStepResultStore(db, log)

	auth := handlers.NewAPIKeyMiddleware(cfg.Auth.APIKeyHash, log)
	if !auth.Enabled() {
		log.Warn(ctx, "no api key hash configured, history API is unauthenticated", nil)
	}

	// Setup router
	router := mux.NewRouter()
	handlers.RegisterRoutes(router, handlers.NewRunHandler(runStore, stepStore, blobStorage, log), auth, sqlDB)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}
