package scenario

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ConsoleObserver prints a marker line for every step.
type ConsoleObserver struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleObserver creates an observer writing to out.
func NewConsoleObserver(out io.Writer) *ConsoleObserver {
	return &ConsoleObserver{out: out}
}

func (c *ConsoleObserver) RunStarted(ctx context.Context, run *Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Running Dropbox MCP scenario (run %s)\n\n", run.ID)
}

func (c *ConsoleObserver) StepCompleted(ctx context.Context, run *Run, result StepResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if result.Success {
		fmt.Fprintf(c.out, "✅ %s\n", result.Name)
		return
	}
	fmt.Fprintf(c.out, "❌ %s: %s\n", result.Name, result.Error)
}

func (c *ConsoleObserver) RunFinished(ctx context.Context, run *Run, err error) {}

// PrintSummary writes the totals and the failed steps of run.
func PrintSummary(w io.Writer, run *Run) {
	s := run.Summary()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Test Summary")
	fmt.Fprintln(w, "============")
	fmt.Fprintf(w, "Total tests: %d\n", s.Total)
	fmt.Fprintf(w, "Passed: %d\n", s.Passed)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "Success rate: %.1f%%\n", s.SuccessRate)

	if skipped := s.Total - s.Passed - s.Failed; skipped > 0 {
		fmt.Fprintf(w, "Not run: %d\n", skipped)
	}

	failures := run.Failures()
	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Failed tests:")
	for _, f := range failures {
		fmt.Fprintf(w, "  - %s: %s\n", f.Name, f.Error)
	}
}
