package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/credential"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/database"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/scenario"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/storage"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/toolclient"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configFileName = ".mcptest"

var cfg *viper.Viper

func initConfig() error {
	cfg = newViper(homeDir())

	if flagConfig != "" {
		cfg.SetConfigFile(flagConfig)
	}

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if flagConfig != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// CLI flags take highest priority
	if flagLogLevel != "" {
		cfg.Set("log.level", flagLogLevel)
	}

	return nil
}

// newViper returns a viper instance with every default set, looking for
// ~/.mcptest.yaml under home.
func newViper(home string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	if home != "" {
		v.AddConfigPath(home)
	}

	v.SetDefault("server.command", "node")
	v.SetDefault("server.args", []string{"build/index.js"})
	v.SetDefault("server.timeout", transport.DefaultTimeout)
	v.SetDefault("server.workdir", "")
	v.SetDefault("server.env", []string{})
	v.SetDefault("token_file", credential.DefaultTokenFile)
	v.SetDefault("auth.markers", toolclient.DefaultAuthMarkers)

	v.SetDefault("scenario.folder", scenario.DefaultFolder)
	v.SetDefault("scenario.file_name", scenario.DefaultFileName)
	v.SetDefault("scenario.content", scenario.DefaultContent)
	v.SetDefault("scenario.search_query", scenario.DefaultSearchQuery)
	v.SetDefault("scenario.max_results", scenario.DefaultMaxResults)

	dataDir := filepath.Join(home, ".mcptest")
	v.SetDefault("database.driver", database.DriverSQLite)
	v.SetDefault("database.path", filepath.Join(dataDir, "history.db"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "mcptest")

	v.SetDefault("storage.type", storage.TypeLocal)
	v.SetDefault("storage.base_dir", dataDir)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("MCPTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

func transportConfig(v *viper.Viper) transport.Config {
	return transport.Config{
		Command: v.GetString("server.command"),
		Args:    v.GetStringSlice("server.args"),
		Env:     v.GetStringSlice("server.env"),
		Dir:     v.GetString("server.workdir"),
		Timeout: v.GetDuration("server.timeout"),
	}
}

func scenarioConfig(v *viper.Viper) scenario.Config {
	return scenario.Config{
		Folder:      v.GetString("scenario.folder"),
		FileName:    v.GetString("scenario.file_name"),
		Content:     v.GetString("scenario.content"),
		SearchQuery: v.GetString("scenario.search_query"),
		MaxResults:  v.GetInt("scenario.max_results"),
	}
}

func databaseConfig(v *viper.Viper) database.Config {
	return database.Config{
		Driver:   v.GetString("database.driver"),
		Path:     v.GetString("database.path"),
		Host:     v.GetString("database.host"),
		Port:     v.GetInt("database.port"),
		User:     v.GetString("database.user"),
		Password: v.GetString("database.password"),
		Database: v.GetString("database.database"),
	}
}

func storageConfig(v *viper.Viper) storage.Config {
	return storage.Config{
		Type:          v.GetString("storage.type"),
		BaseDir:       v.GetString("storage.base_dir"),
		Bucket:        v.GetString("storage.bucket"),
		Region:        v.GetString("storage.region"),
		Endpoint:      v.GetString("storage.endpoint"),
		PresignExpiry: v.GetDuration("storage.presign_expiry"),
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mcptest configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

const configTemplate = `# mcptest configuration
server:
  command: node
  args:
    - build/index.js
  timeout: 60s
token_file: token
scenario:
  folder: /MCP Test Folder
  file_name: test_file.txt
log:
  level: warn
  format: text
database:
  driver: sqlite
storage:
  type: local
`

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a config file template at ~/.mcptest.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}

			configPath := filepath.Join(home, configFileName+".yaml")

			if _, err := os.Stat(configPath); err == nil {
				printMessage("Config file already exists at " + configPath)
				return nil
			}

			if err := os.WriteFile(configPath, []byte(configTemplate), 0600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			printMessage("Config file created at " + configPath)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			tc := transportConfig(cfg)
			sc := scenarioConfig(cfg)

			tokenFile := cfg.GetString("token_file")
			token, err := credential.NewFileSource(tokenFile).Token(cmd.Context())
			tokenState := credential.Mask(token)
			if err != nil {
				tokenState = "(unavailable: " + err.Error() + ")"
			}

			printMessage(fmt.Sprintf("Server:      %s %s", tc.Command, strings.Join(tc.Args, " ")))
			printMessage(fmt.Sprintf("Timeout:     %s", tc.Timeout))
			printMessage(fmt.Sprintf("Token file:  %s", tokenFile))
			printMessage(fmt.Sprintf("Token:       %s", tokenState))
			printMessage(fmt.Sprintf("Folder:      %s", sc.Folder))
			printMessage(fmt.Sprintf("File:        %s", sc.FileName))
			printMessage(fmt.Sprintf("History DB:  %s (%s)", cfg.GetString("database.path"), cfg.GetString("database.driver")))
			printMessage(fmt.Sprintf("Reports:     %s", cfg.GetString("storage.type")))

			if cfgFile := cfg.ConfigFileUsed(); cfgFile != "" {
				printMessage(fmt.Sprintf("Config file: %s", cfgFile))
			} else {
				printMessage("Config file: (none)")
			}

			return nil
		},
	}
}
