package scenario

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateStep is returned when a step name is recorded twice in a run.
var ErrDuplicateStep = errors.New("step already recorded")

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Summary aggregates the results of a run.
type Summary struct {
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// Run is the state of one scenario execution. Results are kept in the order
// they were recorded and each step name appears at most once.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	// Abort is set when a hard step failed and the remaining steps were skipped.
	Abort error

	mu      sync.Mutex
	results []StepResult
	seen    map[string]struct{}
}

// NewRun creates an empty run stamped with the current time.
func NewRun() *Run {
	return &Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		seen:      make(map[string]struct{}),
	}
}

// Record appends a step result.
func (r *Run) Record(res StepResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[res.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, res.Name)
	}
	r.seen[res.Name] = struct{}{}
	r.results = append(r.results, res)
	return nil
}

// Results returns a copy of the recorded results in order.
func (r *Run) Results() []StepResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StepResult, len(r.results))
	copy(out, r.results)
	return out
}

// Result returns the recorded result for the named step.
func (r *Run) Result(name string) (StepResult, bool) {
	for _, res := range r.Results() {
		if res.Name == name {
			return res, true
		}
	}
	return StepResult{}, false
}

// Failures returns the failed results in order.
func (r *Run) Failures() []StepResult {
	var failed []StepResult
	for _, res := range r.Results() {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}

// Summary counts passes and failures against the full step table, so an
// aborted run reports passed+failed below the total.
func (r *Run) Summary() Summary {
	s := Summary{Total: TotalSteps}
	for _, res := range r.Results() {
		if res.Success {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Passed) / float64(s.Total) * 100
	}
	return s
}

// Passed reports whether every step ran and succeeded.
func (r *Run) Passed() bool {
	s := r.Summary()
	return s.Passed == s.Total
}

// Duration is the wall time of the run, or the time so far if unfinished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
