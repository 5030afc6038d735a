package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acadgrid/timetable-api/internal/dto"
	"github.com/acadgrid/timetable-api/internal/engine"
	"github.com/acadgrid/timetable-api/internal/models"
	"github.com/acadgrid/timetable-api/pkg/config"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
	"github.com/acadgrid/timetable-api/pkg/export"
	"github.com/acadgrid/timetable-api/pkg/jobs"
)

// SnapshotLoader provides the scheduling world for one program and semester.
type SnapshotLoader interface {
	Load(ctx context.Context, programID string, semester int) (engine.Snapshot, error)
}

// RunMirror persists runs outside process memory. Implementations may be
// no-ops when no Redis is configured.
type RunMirror interface {
	Save(ctx context.Context, run *models.GenerationRun) error
	Get(ctx context.Context, id string) (*models.GenerationRun, error)
}

// generateJob is the queue payload for async runs.
type generateJob struct {
	RunID   string
	Request dto.GenerateTimetableRequest
}

// TimetableService orchestrates generation runs, conflict analysis, what-if
// simulation, and exports on top of the engine.
type TimetableService struct {
	snapshots SnapshotLoader
	mirror    RunMirror
	validate  *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService

	engineCfg config.EngineConfig
	runs      *runStore
	queue     *jobs.Queue

	csv *export.CSVExporter
	pdf *export.PDFExporter
}

func NewTimetableService(
	snapshots SnapshotLoader,
	mirror RunMirror,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	engineCfg config.EngineConfig,
	runsCfg config.RunsConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &TimetableService{
		snapshots: snapshots,
		mirror:    mirror,
		validate:  validate,
		logger:    logger,
		metrics:   metrics,
		engineCfg: engineCfg,
		runs:      newRunStore(runsCfg.TTL),
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
	s.queue = jobs.NewQueue("timetable-generation", s.handleJob, jobs.QueueConfig{
		Workers:    runsCfg.WorkerConcurrency,
		BufferSize: runsCfg.QueueBuffer,
		MaxRetries: 1,
		Logger:     logger,
	})
	return s
}

// Start launches the async workers.
func (s *TimetableService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the async workers.
func (s *TimetableService) Stop() {
	s.queue.Stop()
}

// Generate runs a synchronous generation and returns the completed run.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*models.GenerationRun, error) {
	run, err := s.newRun(req)
	if err != nil {
		return nil, err
	}
	if err := s.execute(ctx, run.ID, req); err != nil {
		return nil, err
	}
	final, _ := s.runs.get(run.ID)
	return final, nil
}

// GenerateAsync validates the request, registers a pending run, and queues
// the work. The caller polls GetRun for progress and the result.
func (s *TimetableService) GenerateAsync(ctx context.Context, req dto.GenerateTimetableRequest) (*models.GenerationRun, error) {
	run, err := s.newRun(req)
	if err != nil {
		return nil, err
	}
	err = s.queue.Enqueue(jobs.Job{
		ID:      run.ID,
		Type:    "generate",
		Payload: generateJob{RunID: run.ID, Request: req},
	})
	if err != nil {
		s.failRun(run.ID, "generation queue unavailable")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue generation run")
	}
	s.metrics.SetPendingRuns(s.runs.pendingCount())
	return run, nil
}

func (s *TimetableService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(generateJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	defer s.metrics.SetPendingRuns(s.runs.pendingCount())
	return s.execute(ctx, payload.RunID, payload.Request)
}

// GetRun returns a run by ID, consulting the external mirror when the local
// store has expired or the run finished on another instance.
func (s *TimetableService) GetRun(ctx context.Context, id string) (*models.GenerationRun, error) {
	if run, ok := s.runs.get(id); ok {
		return run, nil
	}
	if s.mirror != nil {
		if run, err := s.mirror.Get(ctx, id); err == nil {
			return run, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found or expired")
}

// newRun validates the request and registers a pending run.
func (s *TimetableService) newRun(req dto.GenerateTimetableRequest) (*models.GenerationRun, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	level, err := s.levelFor(req.OptimizationLevel)
	if err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	weights := s.weightsFor(req)
	run := &models.GenerationRun{
		ID:        uuid.NewString(),
		ProgramID: req.ProgramID,
		Semester:  req.Semester,
		Level:     string(level),
		Seed:      seed,
		Settings: models.SolverSettings{
			PreferredSlot:           weights.PreferredSlot,
			MinimizeGaps:            weights.MinimizeGaps,
			WorkloadBalance:         weights.WorkloadBalance,
			LabAfternoon:            weights.LabAfternoon,
			AvoidMorning:            weights.AvoidMorning,
			CapacityOverflowPercent: req.CapacityOverflowPercent,
		},
		Status:    models.RunPending,
		CreatedAt: time.Now().UTC(),
	}
	s.runs.put(run)
	registered := *run
	return &registered, nil
}

// execute performs the full generation pipeline for a registered run.
func (s *TimetableService) execute(ctx context.Context, runID string, req dto.GenerateTimetableRequest) error {
	run, ok := s.runs.get(runID)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "generation run not found or expired")
	}
	s.runs.update(runID, func(r *models.GenerationRun) {
		r.Status = models.RunRunning
		r.Progress = models.RunProgress{Phase: "loading_snapshot"}
	})

	snap, err := s.snapshots.Load(ctx, req.ProgramID, req.Semester)
	if err != nil {
		s.failRun(runID, appErrors.FromError(err).Message)
		return err
	}

	cfg := engine.Config{
		Level:                   engine.Level(run.Level),
		Seed:                    run.Seed,
		Weights:                 engineWeights(run.Settings),
		BacktrackMultiplier:     s.engineCfg.BacktrackMultiplier,
		Restarts:                s.engineCfg.ThoroughRestarts,
		CapacityOverflowPercent: run.Settings.CapacityOverflowPercent,
		Progress: func(p models.RunProgress) {
			s.runs.update(runID, func(r *models.GenerationRun) { r.Progress = p })
		},
	}

	started := time.Now()
	result, err := engine.Solve(ctx, snap, cfg)
	if err != nil {
		s.failRun(runID, appErrors.FromError(err).Message)
		s.metrics.ObserveGeneration(run.Level, "failed", time.Since(started), 0)
		return err
	}

	conflicts, err := s.auditSchedule(snap, result.Schedule, runID, run.Settings.CapacityOverflowPercent)
	if err != nil {
		s.metrics.ObserveGeneration(run.Level, "failed", time.Since(started), len(result.Unscheduled))
		return err
	}

	now := time.Now().UTC()
	s.runs.update(runID, func(r *models.GenerationRun) {
		r.Status = models.RunCompleted
		r.CompletedAt = &now
		r.Result = &models.GenerationResult{
			Schedule:    result.Schedule,
			Unscheduled: result.Unscheduled,
			Conflicts:   conflicts,
			Stats:       result.Stats,
		}
	})
	s.metrics.ObserveGeneration(run.Level, "completed", time.Since(started), len(result.Unscheduled))

	if final, ok := s.runs.get(runID); ok && s.mirror != nil {
		if err := s.mirror.Save(ctx, final); err != nil {
			s.logger.Warn("failed to mirror run", zap.String("run_id", runID), zap.Error(err))
		}
	}
	s.logger.Info("generation run completed",
		zap.String("run_id", runID),
		zap.String("level", run.Level),
		zap.Int("scheduled", len(result.Schedule.Assignments)),
		zap.Int("unscheduled", len(result.Unscheduled)),
		zap.Float64("penalty", result.Schedule.TotalPenalty),
	)
	return nil
}

// auditSchedule re-checks the finalized schedule under the run's own settings
// so an explicitly granted capacity overflow is not judged a violation. Hard
// conflicts between solver-placed assignments mean the solver broke its own
// invariant; that is surfaced as an internal failure, never silently returned
// as a timetable. Conflicts confined to caller-pinned assignments are
// reported instead.
func (s *TimetableService) auditSchedule(snap engine.Snapshot, schedule models.Schedule, runID string, overflowPct int) ([]models.Conflict, error) {
	pinned := make(map[string]bool, len(snap.Fixed))
	for _, a := range snap.Fixed {
		pinned[a.CourseID] = true
	}

	var reported []models.Conflict
	for _, c := range engine.DetectWithOverflow(snap, schedule, overflowPct) {
		s.metrics.ObserveConflict(string(c.Kind))
		if !c.IsHard() {
			reported = append(reported, c)
			continue
		}
		onlyPinned := true
		for _, a := range c.Assignments {
			if !pinned[a.CourseID] {
				onlyPinned = false
				break
			}
		}
		if onlyPinned {
			reported = append(reported, c)
			continue
		}
		s.logger.Error("generated schedule violates a hard constraint",
			zap.String("run_id", runID),
			zap.String("kind", string(c.Kind)),
			zap.String("description", c.Description),
		)
		s.failRun(runID, appErrors.ErrHardConstraintViolation.Message)
		return nil, appErrors.ErrHardConstraintViolation
	}
	if len(reported) > 0 {
		reported = engine.Suggest(snap, schedule, reported)
	}
	return reported, nil
}

func (s *TimetableService) failRun(runID, message string) {
	s.runs.update(runID, func(r *models.GenerationRun) {
		r.Status = models.RunFailed
		r.Errordetail = message
	})
}

func (s *TimetableService) levelFor(raw string) (engine.Level, error) {
	if raw == "" {
		raw = s.engineCfg.DefaultLevel
	}
	return engine.ParseLevel(raw)
}

// weightsFor folds configured defaults, request toggles, and explicit weight
// overrides into the engine weighting. A toggle switched off zeroes its term.
func (s *TimetableService) weightsFor(req dto.GenerateTimetableRequest) engine.Weights {
	w := engine.Weights{
		PreferredSlot:   s.engineCfg.Weights.PreferredSlot,
		MinimizeGaps:    s.engineCfg.Weights.MinimizeGaps,
		WorkloadBalance: s.engineCfg.Weights.WorkloadBalance,
		LabAfternoon:    s.engineCfg.Weights.LabAfternoon,
		AvoidMorning:    s.engineCfg.Weights.AvoidMorning,
	}
	if w == (engine.Weights{}) {
		w = engine.DefaultWeights()
	}

	if off(req.Constraints.PreferFacultySlots) {
		w.PreferredSlot = 0
	}
	if off(req.Constraints.MinimizeGaps) {
		w.MinimizeGaps = 0
	}
	if off(req.Constraints.BalanceWorkload) {
		w.WorkloadBalance = 0
	}
	if off(req.Constraints.PrioritizeLabSlots) {
		w.LabAfternoon = 0
	}
	if off(req.Constraints.AvoidMorningClasses) {
		w.AvoidMorning = 0
	}

	if o := req.Weights; o != nil {
		if o.PreferredSlot != nil {
			w.PreferredSlot = *o.PreferredSlot
		}
		if o.MinimizeGaps != nil {
			w.MinimizeGaps = *o.MinimizeGaps
		}
		if o.WorkloadBalance != nil {
			w.WorkloadBalance = *o.WorkloadBalance
		}
		if o.LabAfternoon != nil {
			w.LabAfternoon = *o.LabAfternoon
		}
		if o.AvoidMorning != nil {
			w.AvoidMorning = *o.AvoidMorning
		}
	}
	return w
}

// off reports whether an optional toggle was explicitly disabled.
func off(flag *bool) bool {
	return flag != nil && !*flag
}

// engineWeights restores the engine weighting a run was generated with.
func engineWeights(settings models.SolverSettings) engine.Weights {
	return engine.Weights{
		PreferredSlot:   settings.PreferredSlot,
		MinimizeGaps:    settings.MinimizeGaps,
		WorkloadBalance: settings.WorkloadBalance,
		LabAfternoon:    settings.LabAfternoon,
		AvoidMorning:    settings.AvoidMorning,
	}
}

// DetectConflicts validates an externally supplied schedule against the
// current snapshot.
func (s *TimetableService) DetectConflicts(ctx context.Context, req dto.DetectConflictsRequest) (*dto.ConflictReportResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	snap, err := s.snapshots.Load(ctx, req.ProgramID, req.Semester)
	if err != nil {
		return nil, err
	}

	schedule := models.Schedule{Assignments: req.Assignments}
	s.fillEnrollment(snap, schedule.Assignments)

	conflicts := engine.Detect(snap, schedule)
	for _, c := range conflicts {
		s.metrics.ObserveConflict(string(c.Kind))
	}
	if req.Suggest && len(conflicts) > 0 {
		conflicts = engine.Suggest(snap, schedule, conflicts)
	}
	return conflictReport(conflicts), nil
}

// SuggestResolutions recomputes conflicts for a completed run and attaches
// resolution proposals to each one.
func (s *TimetableService) SuggestResolutions(ctx context.Context, runID string) (*dto.ConflictReportResponse, error) {
	run, err := s.completedRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.Load(ctx, run.ProgramID, run.Semester)
	if err != nil {
		return nil, err
	}

	schedule := run.Result.Schedule
	conflicts := engine.DetectWithOverflow(snap, schedule, run.Settings.CapacityOverflowPercent)
	if len(conflicts) > 0 {
		conflicts = engine.Suggest(snap, schedule, conflicts)
	}
	return conflictReport(conflicts), nil
}

func conflictReport(conflicts []models.Conflict) *dto.ConflictReportResponse {
	report := &dto.ConflictReportResponse{Conflicts: conflicts}
	if report.Conflicts == nil {
		report.Conflicts = []models.Conflict{}
	}
	for _, c := range conflicts {
		if c.IsHard() {
			report.HardCount++
		} else {
			report.SoftCount++
		}
	}
	return report
}

// Simulate plays a what-if scenario against a completed run. The baseline
// run is never modified; the response carries the delta.
func (s *TimetableService) Simulate(ctx context.Context, req dto.SimulateRequest) (*dto.SimulationResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	run, err := s.completedRun(ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.Load(ctx, run.ProgramID, run.Semester)
	if err != nil {
		return nil, err
	}

	level := engine.Level(run.Level)
	if req.OptimizationLevel != "" {
		level, err = engine.ParseLevel(req.OptimizationLevel)
		if err != nil {
			return nil, err
		}
	}

	perturbation := engine.Perturbation{
		RemoveRooms:   req.RoomsOutOfService,
		AddCourses:    req.AddCourses,
		RemoveCourses: req.RemoveCourses,
	}
	if len(req.FacultyLeave) > 0 {
		perturbation.FacultyUnavailable = make(map[string][]string, len(req.FacultyLeave))
		for _, leave := range req.FacultyLeave {
			perturbation.FacultyUnavailable[leave.FacultyID] = leave.TimeSlotIDs
		}
	}

	// Replaying the baseline's seed and recorded settings keeps the diff
	// attributable to the perturbation rather than to search randomness or
	// configuration drift since the run was generated.
	cfg := engine.Config{
		Level:                   level,
		Seed:                    run.Seed,
		Weights:                 engineWeights(run.Settings),
		BacktrackMultiplier:     s.engineCfg.BacktrackMultiplier,
		Restarts:                s.engineCfg.ThoroughRestarts,
		CapacityOverflowPercent: run.Settings.CapacityOverflowPercent,
	}
	report, err := engine.Simulate(ctx, snap, run.Result.Schedule, perturbation, cfg)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSimulation()

	resp := &dto.SimulationResponse{
		RunID:            run.ID,
		Schedule:         report.Schedule,
		Added:            report.Diff.Added,
		Removed:          report.Diff.Removed,
		PenaltyDelta:     report.Diff.PenaltyDelta,
		Unscheduled:      report.Unscheduled,
		FeasibilityScore: report.FeasibilityScore,
	}
	for _, m := range report.Diff.Changed {
		resp.Changed = append(resp.Changed, dto.CourseMoveDTO{CourseID: m.CourseID, From: m.From, To: m.To})
	}
	return resp, nil
}

// Export renders a completed run's schedule as CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, runID, format string) ([]byte, string, string, error) {
	run, err := s.completedRun(ctx, runID)
	if err != nil {
		return nil, "", "", err
	}
	snap, err := s.snapshots.Load(ctx, run.ProgramID, run.Semester)
	if err != nil {
		return nil, "", "", err
	}
	data := scheduleDataset(snap, run.Result.Schedule)
	title := fmt.Sprintf("Timetable %s semester %d", run.ProgramID, run.Semester)

	switch strings.ToLower(format) {
	case "csv", "":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", fmt.Sprintf("timetable-%s.csv", run.ID), nil
	case "pdf":
		payload, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", fmt.Sprintf("timetable-%s.pdf", run.ID), nil
	}
	return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "export format must be csv or pdf")
}

func (s *TimetableService) completedRun(ctx context.Context, runID string) (*models.GenerationRun, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != models.RunCompleted || run.Result == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "generation run has not completed")
	}
	return run, nil
}

// fillEnrollment backfills missing enrolment counts from the course roster so
// capacity checks work on hand-written schedules.
func (s *TimetableService) fillEnrollment(snap engine.Snapshot, assignments []models.Assignment) {
	byID := make(map[string]int, len(snap.Courses))
	for _, c := range snap.Courses {
		byID[c.ID] = c.MaxStudents
	}
	for i := range assignments {
		if assignments[i].Enrolled == 0 {
			assignments[i].Enrolled = byID[assignments[i].CourseID]
		}
	}
}

// scheduleDataset flattens a schedule into export rows ordered by day, time,
// then course code.
func scheduleDataset(snap engine.Snapshot, schedule models.Schedule) export.Dataset {
	courseByID := make(map[string]models.Course, len(snap.Courses))
	for _, c := range snap.Courses {
		courseByID[c.ID] = c
	}
	facultyByID := make(map[string]models.Faculty, len(snap.Faculty))
	for _, f := range snap.Faculty {
		facultyByID[f.ID] = f
	}
	roomByID := make(map[string]models.Room, len(snap.Rooms))
	for _, r := range snap.Rooms {
		roomByID[r.ID] = r
	}
	slotByID := make(map[string]models.TimeSlot, len(snap.TimeSlots))
	for _, t := range snap.TimeSlots {
		slotByID[t.ID] = t
	}

	sorted := append([]models.Assignment(nil), schedule.Assignments...)
	sortAssignmentsForExport(sorted, slotByID, courseByID)

	data := export.Dataset{Headers: []string{"Day", "Time", "Code", "Course", "Faculty", "Room"}}
	for _, a := range sorted {
		slot := slotByID[a.TimeSlotID]
		course := courseByID[a.CourseID]
		data.Rows = append(data.Rows, map[string]string{
			"Day":     models.DayName(slot.Day),
			"Time":    slot.Start + "-" + slot.End,
			"Code":    course.Code,
			"Course":  course.Title,
			"Faculty": facultyByID[a.FacultyID].Name,
			"Room":    roomByID[a.RoomID].Name,
		})
	}
	return data
}

func sortAssignmentsForExport(list []models.Assignment, slots map[string]models.TimeSlot, courses map[string]models.Course) {
	sort.Slice(list, func(i, j int) bool {
		si, sj := slots[list[i].TimeSlotID], slots[list[j].TimeSlotID]
		if si.Day != sj.Day {
			return si.Day < sj.Day
		}
		if si.StartMinutes() != sj.StartMinutes() {
			return si.StartMinutes() < sj.StartMinutes()
		}
		return courses[list[i].CourseID].Code < courses[list[j].CourseID].Code
	})
}
