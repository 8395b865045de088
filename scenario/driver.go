package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/credential"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/toolclient"
)

// Step names, in execution order.
const (
	StepUpdateToken       = "Update token"
	StepGetAccountInfo    = "Get account info"
	StepListRoot          = "List root"
	StepCreateFolder      = "Create test folder"
	StepUploadFile        = "Upload file"
	StepGetMetadata       = "Get metadata"
	StepDownloadFile      = "Download file"
	StepCreateSharingLink = "Create sharing link"
	StepListFolder        = "List folder"
	StepSearchFiles       = "Search files"
	StepCopyFile          = "Copy file"
	StepMoveFile          = "Move file"
	StepListAfterMove     = "List folder after move"
	StepDeleteFile        = "Delete file"
	StepVerifyDeletion    = "Verify deletion"
)

// TotalSteps is the number of steps in a complete run.
const TotalSteps = 15

// StepError is set as Run.Abort when a hard step fails.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Observer is notified as the run progresses. Implementations must not block
// for long; the driver calls them synchronously.
type Observer interface {
	RunStarted(ctx context.Context, run *Run)
	StepCompleted(ctx context.Context, run *Run, result StepResult)
	// RunFinished receives the fatal error that stopped the run, if any.
	RunFinished(ctx context.Context, run *Run, err error)
}

type step struct {
	name string
	// soft steps record their failure and let the run continue.
	soft bool
	run  func(d *Driver, ctx context.Context) error
}

var steps = []step{
	{name: StepUpdateToken, run: (*Driver).updateToken},
	{name: StepGetAccountInfo, run: (*Driver).getAccountInfo},
	{name: StepListRoot, run: (*Driver).listRoot},
	{name: StepCreateFolder, run: (*Driver).createFolder},
	{name: StepUploadFile, run: (*Driver).uploadFile},
	{name: StepGetMetadata, run: (*Driver).getMetadata},
	{name: StepDownloadFile, run: (*Driver).downloadFile},
	{name: StepCreateSharingLink, soft: true, run: (*Driver).createSharingLink},
	{name: StepListFolder, run: (*Driver).listFolder},
	{name: StepSearchFiles, run: (*Driver).searchFiles},
	{name: StepCopyFile, run: (*Driver).copyFile},
	{name: StepMoveFile, run: (*Driver).moveFile},
	{name: StepListAfterMove, run: (*Driver).listFolder},
	{name: StepDeleteFile, run: (*Driver).deleteFile},
	{name: StepVerifyDeletion, run: (*Driver).verifyDeletion},
}

// StepNames returns the step names in execution order.
func StepNames() []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.name
	}
	return names
}

// Driver executes the scenario steps in order.
type Driver struct {
	client    toolclient.Caller
	tokens    credential.Source
	cfg       Config
	logger    logger.Logger
	observers []Observer
}

// NewDriver creates a driver. Unset fields of cfg take their defaults.
func NewDriver(client toolclient.Caller, tokens credential.Source, cfg Config, log logger.Logger, observers ...Observer) *Driver {
	return &Driver{
		client:    client,
		tokens:    tokens,
		cfg:       cfg.withDefaults(),
		logger:    log,
		observers: observers,
	}
}

// Config returns the effective scenario parameters.
func (d *Driver) Config() Config {
	return d.cfg
}

// Run executes every step once. A hard step failure stops the run and is
// reported through Run.Abort with a nil error. Credential failures and context
// cancellation are fatal and returned as the error.
func (d *Driver) Run(ctx context.Context) (*Run, error) {
	run := NewRun()
	log := d.logger.WithField("run_id", run.ID.String())

	for _, o := range d.observers {
		o.RunStarted(ctx, run)
	}
	log.Info(ctx, "scenario started", map[string]interface{}{
		"folder": d.cfg.Folder,
		"file":   d.cfg.FileName,
	})

	var fatal error
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}

		start := time.Now()
		err := s.run(d, ctx)
		res := StepResult{
			Index:    i + 1,
			Name:     s.name,
			Success:  err == nil,
			Duration: time.Since(start),
		}
		if err != nil {
			res.Error = err.Error()
		}
		if recErr := run.Record(res); recErr != nil {
			fatal = recErr
			break
		}
		for _, o := range d.observers {
			o.StepCompleted(ctx, run, res)
		}

		if err == nil {
			log.Debug(ctx, "step passed", map[string]interface{}{
				"step":        s.name,
				"duration_ms": res.Duration.Milliseconds(),
			})
			continue
		}

		if isFatal(ctx, err) {
			fatal = fmt.Errorf("step %q: %w", s.name, err)
			break
		}
		if s.soft {
			log.Warn(ctx, "soft step failed, continuing", map[string]interface{}{
				"step":  s.name,
				"error": err.Error(),
			})
			continue
		}

		run.Abort = &StepError{Index: i + 1, Name: s.name, Err: err}
		log.Error(ctx, "step failed, aborting scenario", map[string]interface{}{
			"step":  s.name,
			"error": err.Error(),
		})
		break
	}

	run.FinishedAt = time.Now().UTC()
	if fatal != nil && run.Abort == nil {
		run.Abort = fatal
	}
	for _, o := range d.observers {
		o.RunFinished(ctx, run, fatal)
	}

	summary := run.Summary()
	log.Info(ctx, "scenario finished", map[string]interface{}{
		"passed":      summary.Passed,
		"failed":      summary.Failed,
		"total":       summary.Total,
		"duration_ms": run.Duration().Milliseconds(),
	})

	return run, fatal
}

// isFatal reports whether err must stop the run without a summary.
func isFatal(ctx context.Context, err error) bool {
	if errors.Is(err, credential.ErrTokenUnavailable) {
		return true
	}
	return ctx.Err() != nil
}
