package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/storage"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/testrun"
	"github.com/google/uuid"
)

// RunHandler serves recorded scenario runs.
type RunHandler struct {
	runStore  testrun.Store
	stepStore testrun.StepResultStore
	storage   storage.BlobStorage
	logger    logger.Logger
}

// NewRunHandler creates a new run handler.
func NewRunHandler(runStore testrun.Store, stepStore testrun.StepResultStore, storage storage.BlobStorage, log logger.Logger) *RunHandler {
	return &RunHandler{
		runStore:  runStore,
		stepStore: stepStore,
		storage:   storage,
		logger:    log,
	}
}

// RunDetailResponse is a run with its step results.
type RunDetailResponse struct {
	*testrun.TestRun
	SuccessRate float64               `json:"success_rate"`
	Steps       []*testrun.StepResult `json:"steps"`
}

// List handles listing runs, newest first.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	runs, err := h.runStore.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list test runs", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list test runs")
		return
	}

	total, err := h.runStore.Count(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to count test runs", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list test runs")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(runs, int(total), limit, offset))
}

// GetByID handles fetching one run with its steps.
func (h *RunHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "run_id", "test run")
	if !ok {
		return
	}

	tr, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	steps, err := h.stepStore.ListByTestRun(r.Context(), tr.ID)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list step results", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": tr.ID.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to get test run")
		return
	}

	respondJSON(w, http.StatusOK, RunDetailResponse{
		TestRun:     tr,
		SuccessRate: tr.SuccessRate(),
		Steps:       steps,
	})
}

// Report streams the stored JSON report of a run.
func (h *RunHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "run_id", "test run")
	if !ok {
		return
	}

	tr, ok := h.lookup(w, r, id)
	if !ok {
		return
	}
	if tr.ReportKey == "" {
		respondError(w, http.StatusNotFound, "no report stored for this run")
		return
	}

	reader, err := h.storage.Download(r.Context(), tr.ReportKey)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			respondError(w, http.StatusNotFound, "report not found in storage")
			return
		}
		h.logger.Error(r.Context(), "failed to download report", map[string]interface{}{
			"error": err.Error(),
			"key":   tr.ReportKey,
		})
		respondError(w, http.StatusInternalServerError, "failed to download report")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/json")
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error(r.Context(), "failed to stream report", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *RunHandler) lookup(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*testrun.TestRun, bool) {
	tr, err := h.runStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, testrun.ErrTestRunNotFound) {
			respondError(w, http.StatusNotFound, "test run not found")
			return nil, false
		}
		h.logger.Error(r.Context(), "failed to get test run", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to get test run")
		return nil, false
	}
	return tr, true
}
