package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/acadgrid/timetable-api/internal/dto"
	"github.com/acadgrid/timetable-api/internal/models"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
	"github.com/acadgrid/timetable-api/pkg/response"
)

// TimetableOrchestrator is the service surface the handler depends on.
type TimetableOrchestrator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*models.GenerationRun, error)
	GenerateAsync(ctx context.Context, req dto.GenerateTimetableRequest) (*models.GenerationRun, error)
	GetRun(ctx context.Context, id string) (*models.GenerationRun, error)
	DetectConflicts(ctx context.Context, req dto.DetectConflictsRequest) (*dto.ConflictReportResponse, error)
	SuggestResolutions(ctx context.Context, runID string) (*dto.ConflictReportResponse, error)
	Simulate(ctx context.Context, req dto.SimulateRequest) (*dto.SimulationResponse, error)
	Export(ctx context.Context, runID, format string) ([]byte, string, string, error)
}

// TimetableHandler exposes the scheduling endpoints.
type TimetableHandler struct {
	service TimetableOrchestrator
	logger  *zap.Logger
}

func NewTimetableHandler(service TimetableOrchestrator, logger *zap.Logger) *TimetableHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableHandler{service: service, logger: logger}
}

// Generate godoc
// @Summary      Generate a timetable
// @Description  Runs the constraint solver synchronously and returns the completed run.
// @Tags         timetable
// @Accept       json
// @Produce      json
// @Param        request body dto.GenerateTimetableRequest true "Generation parameters"
// @Success      201 {object} response.Envelope{data=dto.GenerationRunResponse}
// @Failure      400 {object} response.Envelope
// @Failure      404 {object} response.Envelope
// @Security     BearerAuth
// @Router       /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	run, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, runResponse(run))
}

// GenerateAsync godoc
// @Summary      Queue a timetable generation
// @Description  Registers a run and schedules it on the worker pool. Poll the run endpoint for progress.
// @Tags         timetable
// @Accept       json
// @Produce      json
// @Param        request body dto.GenerateTimetableRequest true "Generation parameters"
// @Success      202 {object} response.Envelope{data=dto.QueuedRunResponse}
// @Failure      400 {object} response.Envelope
// @Security     BearerAuth
// @Router       /timetable/generate/async [post]
func (h *TimetableHandler) GenerateAsync(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	run, err := h.service.GenerateAsync(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.QueuedRunResponse{RunID: run.ID, Status: run.Status})
}

// GetRun godoc
// @Summary      Fetch a generation run
// @Description  Returns run status, progress, and the result once completed.
// @Tags         timetable
// @Produce      json
// @Param        id path string true "Run ID"
// @Success      200 {object} response.Envelope{data=dto.GenerationRunResponse}
// @Failure      404 {object} response.Envelope
// @Security     BearerAuth
// @Router       /timetable/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runResponse(run))
}

// DetectConflicts godoc
// @Summary      Detect conflicts in a schedule
// @Description  Validates an externally supplied schedule and optionally attaches resolution proposals.
// @Tags         conflicts
// @Accept       json
// @Produce      json
// @Param        request body dto.DetectConflictsRequest true "Schedule to validate"
// @Success      200 {object} response.Envelope{data=dto.ConflictReportResponse}
// @Failure      400 {object} response.Envelope
// @Security     BearerAuth
// @Router       /timetable/conflicts/detect [post]
func (h *TimetableHandler) DetectConflicts(c *gin.Context) {
	var req dto.DetectConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	report, err := h.service.DetectConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// SuggestResolutions godoc
// @Summary      Suggest conflict resolutions for a run
// @Description  Recomputes conflicts for a completed run and proposes concrete fixes per conflict.
// @Tags         conflicts
// @Produce      json
// @Param        id path string true "Run ID"
// @Success      200 {object} response.Envelope{data=dto.ConflictReportResponse}
// @Failure      404 {object} response.Envelope
// @Failure      412 {object} response.Envelope
// @Security     BearerAuth
// @Router       /timetable/runs/{id}/resolutions [post]
func (h *TimetableHandler) SuggestResolutions(c *gin.Context) {
	report, err := h.service.SuggestResolutions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Simulate godoc
// @Summary      Simulate a what-if scenario
// @Description  Re-solves against a hypothetical change (faculty leave, room maintenance, course changes) and reports the delta from the baseline run. The baseline is not modified.
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Param        request body dto.SimulateRequest true "Scenario"
// @Success      200 {object} response.Envelope{data=dto.SimulationResponse}
// @Failure      400 {object} response.Envelope
// @Failure      404 {object} response.Envelope
// @Security     BearerAuth
// @Router       /timetable/simulate [post]
func (h *TimetableHandler) Simulate(c *gin.Context) {
	var req dto.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.Simulate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary      Export a run's timetable
// @Description  Renders the completed schedule as CSV or PDF.
// @Tags         timetable
// @Produce      text/csv
// @Produce      application/pdf
// @Param        id path string true "Run ID"
// @Param        format query string false "csv or pdf" default(csv)
// @Success      200 {file} file
// @Failure      404 {object} response.Envelope
// @Failure      412 {object} response.Envelope
// @Security     BearerAuth
// @Router       /timetable/runs/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	payload, contentType, filename, err := h.service.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}

func runResponse(run *models.GenerationRun) dto.GenerationRunResponse {
	resp := dto.GenerationRunResponse{
		ID:        run.ID,
		ProgramID: run.ProgramID,
		Semester:  run.Semester,
		Status:    run.Status,
		Progress:  run.Progress,
		Result:    run.Result,
		Error:     run.Errordetail,
		CreatedAt: run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
