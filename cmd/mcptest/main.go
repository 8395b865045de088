package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	flagConfig   string
	flagJSON     bool
	flagLogLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mcptest",
		Short: "Exercise a Dropbox MCP server end to end",
		Long: "mcptest launches a Dropbox MCP server once per tool call, runs a fixed " +
			"file lifecycle scenario against it and reports which steps passed.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.mcptest.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (env: MCPTEST_LOG_LEVEL)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mcptest %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newRunsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
