package main

import (
	"fmt"
	"strconv"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/testrun"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded scenario runs",
	}

	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsShowCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := openHistory(databaseConfig(cfg), newLogger())
			if err != nil {
				return err
			}
			defer hist.Close()

			runs, err := hist.runs.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			if flagJSON {
				printJSON(runs)
				return nil
			}

			headers := []string{"ID", "STATUS", "PASSED", "FAILED", "TOTAL", "STARTED AT", "COMPLETED AT"}
			var rows [][]string
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID.String(),
					string(r.Status),
					strconv.Itoa(r.Passed),
					strconv.Itoa(r.Failed),
					strconv.Itoa(r.Total),
					formatTime(r.StartedAt),
					formatTime(r.CompletedAt),
				})
			}
			printTable(headers, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of runs to skip")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run and its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id: %w", err)
			}

			hist, err := openHistory(databaseConfig(cfg), newLogger())
			if err != nil {
				return err
			}
			defer hist.Close()

			run, err := hist.runs.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			steps, err := hist.steps.ListByTestRun(cmd.Context(), id)
			if err != nil {
				return err
			}

			if flagJSON {
				printJSON(struct {
					*testrun.TestRun
					Steps []*testrun.StepResult `json:"steps"`
				}{run, steps})
				return nil
			}

			printMessage(fmt.Sprintf("Run:       %s", run.ID))
			printMessage(fmt.Sprintf("Status:    %s", run.Status))
			printMessage(fmt.Sprintf("Server:    %s", run.ServerCommand))
			printMessage(fmt.Sprintf("Result:    %d/%d passed (%.1f%%)", run.Passed, run.Total, run.SuccessRate()))
			printMessage(fmt.Sprintf("Started:   %s", formatTime(run.StartedAt)))
			printMessage(fmt.Sprintf("Completed: %s", formatTime(run.CompletedAt)))
			if run.ReportKey != "" {
				printMessage(fmt.Sprintf("Report:    %s", run.ReportKey))
			}
			if run.Notes != "" {
				printMessage(fmt.Sprintf("Notes:     %s", run.Notes))
			}
			printMessage("")

			headers := []string{"#", "STEP", "RESULT", "DURATION", "ERROR"}
			var rows [][]string
			for _, s := range steps {
				result := "pass"
				if !s.Success {
					result = "fail"
				}
				rows = append(rows, []string{
					strconv.Itoa(s.StepIndex),
					s.Name,
					result,
					fmt.Sprintf("%dms", s.DurationMS),
					s.Error,
				})
			}
			printTable(headers, rows)
			return nil
		},
	}
}
