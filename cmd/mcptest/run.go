package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/redact"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/scenario"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/storage"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/testrun"
	"github.com/spf13/cobra"
)

// errRunFailed makes the process exit non-zero after a summary was printed.
var errRunFailed = errors.New("scenario did not pass")

func newRunCmd() *cobra.Command {
	var server serverFlags
	var record, saveReports bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Dropbox file lifecycle scenario",
		Long: "Runs the 15 scenario steps in order against a fresh server process per call " +
			"and prints a pass/fail line per step followed by a summary.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := server.apply(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h, err := newHarness()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			var observers []scenario.Observer
			if !flagJSON {
				observers = append(observers, scenario.NewConsoleObserver(out))
			}

			var hist *history
			if record {
				hist, err = openHistory(databaseConfig(cfg), h.log)
				if err != nil {
					return err
				}
				defer hist.Close()
				observers = append(observers, testrun.NewRecorder(hist.runs, hist.steps, h.serverCmd, h.log))
			}

			driver := scenario.NewDriver(h.client, h.tokens, scenarioConfig(cfg), h.log, observers...)
			run, err := driver.Run(ctx)
			if err != nil {
				return fmt.Errorf("scenario aborted: %w", err)
			}

			report := scenario.NewReport(run)
			if flagJSON {
				printJSON(report)
			} else {
				fmt.Fprintln(out)
				scenario.PrintSummary(out, run)
			}

			var reportErr error
			if saveReports {
				reportErr = storeAndLinkReport(ctx, h, hist, report)
				if reportErr != nil {
					h.log.Error(ctx, "failed to store report", map[string]interface{}{
						"run_id": run.ID.String(),
						"error":  reportErr.Error(),
					})
				}
			}

			if !run.Passed() {
				return errors.Join(errRunFailed, reportErr)
			}
			return reportErr
		},
	}

	addServerFlags(cmd, &server)
	cmd.Flags().BoolVar(&record, "record", false, "Record the run in the history database")
	cmd.Flags().BoolVar(&saveReports, "report", false, "Store a redacted JSON report in the configured storage")
	return cmd
}

func addServerFlags(cmd *cobra.Command, f *serverFlags) {
	cmd.Flags().StringVar(&f.command, "server-cmd", "", "Server executable (default: node)")
	cmd.Flags().StringArrayVar(&f.args, "server-arg", nil, "Server argument, repeatable (default: build/index.js)")
	cmd.Flags().StringVar(&f.tokenFile, "token-file", "", "File holding the Dropbox access token (default: token)")
	cmd.Flags().StringVar(&f.timeout, "timeout", "", "Per-call timeout, e.g. 90s (default: 60s)")
}

// storeAndLinkReport stores report and, when the run is recorded, links the
// history entry to it.
func storeAndLinkReport(ctx context.Context, h *harness, hist *history, report *scenario.Report) error {
	key, err := storeRunReport(ctx, h, report)
	if err != nil {
		return err
	}
	if hist != nil {
		if err := hist.runs.Update(ctx, report.RunID, testrun.SetReportKey(key)); err != nil {
			return fmt.Errorf("failed to link report: %w", err)
		}
	}
	h.log.Info(ctx, "report stored", map[string]interface{}{"key": key})
	return nil
}

func storeRunReport(ctx context.Context, h *harness, report *scenario.Report) (string, error) {
	store, err := storage.NewBlobStorage(ctx, storageConfig(cfg))
	if err != nil {
		return "", err
	}

	// The token may be gone by now; pattern based redaction still applies.
	token, _ := h.tokens.Token(ctx)
	r, err := redact.New(token)
	if err != nil {
		return "", err
	}

	return saveReport(ctx, store, r, report)
}
