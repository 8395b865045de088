package main

import (
	"context"
	"fmt"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/redact"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/scenario"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/storage"
)

func reportKey(report *scenario.Report) string {
	return fmt.Sprintf("reports/%s.json", report.RunID)
}

// redactReport returns a copy of report with secrets removed from every
// free-text field.
func redactReport(r *redact.Redactor, report *scenario.Report) *scenario.Report {
	out := *report
	out.Aborted = r.String(report.Aborted)
	out.Steps = make([]scenario.StepResult, len(report.Steps))
	for i, step := range report.Steps {
		step.Error = r.String(step.Error)
		out.Steps[i] = step
	}
	return &out
}

// saveReport redacts report and stores it, returning its key.
func saveReport(ctx context.Context, store storage.BlobStorage, r *redact.Redactor, report *scenario.Report) (string, error) {
	key := reportKey(report)
	if err := storage.PutJSON(ctx, store, key, redactReport(r, report)); err != nil {
		return "", fmt.Errorf("failed to store report: %w", err)
	}
	return key, nil
}
