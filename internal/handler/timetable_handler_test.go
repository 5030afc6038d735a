package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadgrid/timetable-api/internal/dto"
	"github.com/acadgrid/timetable-api/internal/models"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
	"github.com/acadgrid/timetable-api/pkg/response"
)

type stubOrchestrator struct {
	run       *models.GenerationRun
	report    *dto.ConflictReportResponse
	sim       *dto.SimulationResponse
	exportRaw []byte
	err       error
}

func (s *stubOrchestrator) Generate(_ context.Context, _ dto.GenerateTimetableRequest) (*models.GenerationRun, error) {
	return s.run, s.err
}

func (s *stubOrchestrator) GenerateAsync(_ context.Context, _ dto.GenerateTimetableRequest) (*models.GenerationRun, error) {
	return s.run, s.err
}

func (s *stubOrchestrator) GetRun(_ context.Context, _ string) (*models.GenerationRun, error) {
	return s.run, s.err
}

func (s *stubOrchestrator) DetectConflicts(_ context.Context, _ dto.DetectConflictsRequest) (*dto.ConflictReportResponse, error) {
	return s.report, s.err
}

func (s *stubOrchestrator) SuggestResolutions(_ context.Context, _ string) (*dto.ConflictReportResponse, error) {
	return s.report, s.err
}

func (s *stubOrchestrator) Simulate(_ context.Context, _ dto.SimulateRequest) (*dto.SimulationResponse, error) {
	return s.sim, s.err
}

func (s *stubOrchestrator) Export(_ context.Context, _ string, _ string) ([]byte, string, string, error) {
	if s.err != nil {
		return nil, "", "", s.err
	}
	return s.exportRaw, "text/csv", "timetable-run-1.csv", nil
}

func completedRun() *models.GenerationRun {
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	return &models.GenerationRun{
		ID:        "run-1",
		ProgramID: "prog-bsc-cs",
		Semester:  3,
		Level:     "balanced",
		Status:    models.RunCompleted,
		Progress:  models.RunProgress{Phase: "done", Scheduled: 3, Total: 3},
		Result: &models.GenerationResult{
			Schedule: models.Schedule{Assignments: []models.Assignment{
				{CourseID: "crs-calc", FacultyID: "fac-rao", RoomID: "room-a101", TimeSlotID: "d1s1", Enrolled: 50},
			}},
		},
		CreatedAt:   now,
		CompletedAt: &now,
	}
}

func newTestRouter(h *TimetableHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/timetable/generate", h.Generate)
	r.POST("/timetable/generate/async", h.GenerateAsync)
	r.GET("/timetable/runs/:id", h.GetRun)
	r.POST("/timetable/conflicts/detect", h.DetectConflicts)
	r.POST("/timetable/runs/:id/resolutions", h.SuggestResolutions)
	r.POST("/timetable/simulate", h.Simulate)
	r.GET("/timetable/runs/:id/export", h.Export)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateHandlerCreated(t *testing.T) {
	h := NewTimetableHandler(&stubOrchestrator{run: completedRun()}, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/timetable/generate", dto.GenerateTimetableRequest{
		ProgramID: "prog-bsc-cs", Semester: 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data dto.GenerationRunResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "run-1", envelope.Data.ID)
	assert.Equal(t, models.RunCompleted, envelope.Data.Status)
	require.NotNil(t, envelope.Data.Result)
	assert.Len(t, envelope.Data.Result.Schedule.Assignments, 1)
}

func TestGenerateHandlerBadBody(t *testing.T) {
	h := NewTimetableHandler(&stubOrchestrator{run: completedRun()}, nil)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestGenerateAsyncHandlerAccepted(t *testing.T) {
	run := completedRun()
	run.Status = models.RunPending
	h := NewTimetableHandler(&stubOrchestrator{run: run}, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/timetable/generate/async", dto.GenerateTimetableRequest{
		ProgramID: "prog-bsc-cs", Semester: 3,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var envelope struct {
		Data dto.QueuedRunResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "run-1", envelope.Data.RunID)
	assert.Equal(t, models.RunPending, envelope.Data.Status)
}

func TestGetRunHandlerNotFound(t *testing.T) {
	h := NewTimetableHandler(&stubOrchestrator{err: appErrors.ErrNotFound}, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/timetable/runs/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetectConflictsHandler(t *testing.T) {
	report := &dto.ConflictReportResponse{
		Conflicts: []models.Conflict{{Kind: models.ConflictFacultyDoubleBooking, Severity: models.SeverityHigh}},
		HardCount: 1,
	}
	h := NewTimetableHandler(&stubOrchestrator{report: report}, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/timetable/conflicts/detect", dto.DetectConflictsRequest{
		ProgramID: "prog-bsc-cs", Semester: 3,
		Assignments: []models.Assignment{{CourseID: "crs-calc", FacultyID: "fac-rao", RoomID: "room-a101", TimeSlotID: "d1s1"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.ConflictReportResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.HardCount)
	require.Len(t, envelope.Data.Conflicts, 1)
}

func TestSimulateHandler(t *testing.T) {
	sim := &dto.SimulationResponse{RunID: "run-1", FeasibilityScore: 66}
	h := NewTimetableHandler(&stubOrchestrator{sim: sim}, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/timetable/simulate", dto.SimulateRequest{RunID: "run-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.SimulationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 66, envelope.Data.FeasibilityScore)
}

func TestSuggestResolutionsHandlerPreconditionFailed(t *testing.T) {
	h := NewTimetableHandler(&stubOrchestrator{err: appErrors.ErrPreconditionFailed}, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/timetable/runs/run-1/resolutions", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestExportHandlerHeaders(t *testing.T) {
	h := NewTimetableHandler(&stubOrchestrator{exportRaw: []byte("Day,Time\n")}, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/timetable/runs/run-1/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timetable-run-1.csv")
	assert.Equal(t, "Day,Time\n", w.Body.String())
}
