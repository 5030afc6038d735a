package dto

import (
	"github.com/acadgrid/timetable-api/internal/models"
)

// ConstraintToggles mirrors the generation form: each flag enables one soft
// constraint. Nil means "use the server default", which is on.
type ConstraintToggles struct {
	AvoidMorningClasses *bool `json:"avoid_morning_classes,omitempty"`
	BalanceWorkload     *bool `json:"balance_workload,omitempty"`
	PrioritizeLabSlots  *bool `json:"prioritize_lab_slots,omitempty"`
	MinimizeGaps        *bool `json:"minimize_gaps,omitempty"`
	PreferFacultySlots  *bool `json:"prefer_faculty_slots,omitempty"`
}

// WeightOverrides lets a request re-weight individual soft constraints.
// Omitted fields keep the configured default.
type WeightOverrides struct {
	PreferredSlot   *float64 `json:"preferred_slot,omitempty" validate:"omitempty,min=0,max=100"`
	MinimizeGaps    *float64 `json:"minimize_gaps,omitempty" validate:"omitempty,min=0,max=100"`
	WorkloadBalance *float64 `json:"workload_balance,omitempty" validate:"omitempty,min=0,max=100"`
	LabAfternoon    *float64 `json:"lab_afternoon,omitempty" validate:"omitempty,min=0,max=100"`
	AvoidMorning    *float64 `json:"avoid_morning,omitempty" validate:"omitempty,min=0,max=100"`
}

// GenerateTimetableRequest is the payload for both the synchronous and the
// queued generation endpoints.
type GenerateTimetableRequest struct {
	ProgramID         string            `json:"program_id" validate:"required"`
	Semester          int               `json:"semester" validate:"required,min=1,max=12"`
	OptimizationLevel string            `json:"optimization_level" validate:"omitempty,oneof=fast balanced thorough"`
	Seed              *int64            `json:"seed,omitempty"`
	Constraints       ConstraintToggles `json:"constraints"`
	Weights           *WeightOverrides  `json:"weights,omitempty"`
	// CapacityOverflowPercent explicitly opts in to oversubscribed rooms.
	CapacityOverflowPercent int `json:"capacity_overflow_percent" validate:"min=0,max=50"`
}

// GenerationRunResponse is the external view of a run.
type GenerationRunResponse struct {
	ID          string                   `json:"id"`
	ProgramID   string                   `json:"program_id"`
	Semester    int                      `json:"semester"`
	Status      models.RunStatus         `json:"status"`
	Progress    models.RunProgress       `json:"progress"`
	Result      *models.GenerationResult `json:"result,omitempty"`
	Error       string                   `json:"error,omitempty"`
	CreatedAt   string                   `json:"created_at"`
	CompletedAt string                   `json:"completed_at,omitempty"`
}

// QueuedRunResponse acknowledges an async generation request.
type QueuedRunResponse struct {
	RunID  string           `json:"run_id"`
	Status models.RunStatus `json:"status"`
}

// DetectConflictsRequest carries an externally supplied or manually edited
// schedule to validate against the current program snapshot.
type DetectConflictsRequest struct {
	ProgramID   string              `json:"program_id" validate:"required"`
	Semester    int                 `json:"semester" validate:"required,min=1,max=12"`
	Assignments []models.Assignment `json:"assignments" validate:"required,min=1,dive"`
	// Suggest, when true, attaches resolution proposals to each conflict.
	Suggest bool `json:"suggest"`
}

// ConflictReportResponse is the detector output.
type ConflictReportResponse struct {
	Conflicts []models.Conflict `json:"conflicts"`
	HardCount int               `json:"hard_count"`
	SoftCount int               `json:"soft_count"`
}

// FacultyLeave marks a faculty member unavailable for specific slots, or
// entirely when no slots are listed.
type FacultyLeave struct {
	FacultyID   string   `json:"faculty_id" validate:"required"`
	TimeSlotIDs []string `json:"time_slot_ids,omitempty"`
}

// SimulateRequest describes a what-if scenario against a completed run.
type SimulateRequest struct {
	RunID             string          `json:"run_id" validate:"required"`
	FacultyLeave      []FacultyLeave  `json:"faculty_leave,omitempty" validate:"omitempty,dive"`
	RoomsOutOfService []string        `json:"rooms_out_of_service,omitempty"`
	AddCourses        []models.Course `json:"add_courses,omitempty"`
	RemoveCourses     []string        `json:"remove_courses,omitempty"`
	OptimizationLevel string          `json:"optimization_level" validate:"omitempty,oneof=fast balanced thorough"`
}

// SimulationResponse reports the simulated schedule and its delta from the
// baseline run. The baseline is never modified.
type SimulationResponse struct {
	RunID            string                     `json:"run_id"`
	Schedule         models.Schedule            `json:"schedule"`
	Changed          []CourseMoveDTO            `json:"changed"`
	Added            []models.Assignment        `json:"added"`
	Removed          []models.Assignment        `json:"removed"`
	PenaltyDelta     float64                    `json:"penalty_delta"`
	Unscheduled      []models.UnscheduledCourse `json:"unscheduled_courses"`
	FeasibilityScore int                        `json:"feasibility_score"`
}

// CourseMoveDTO is one reassignment in a simulation diff.
type CourseMoveDTO struct {
	CourseID string            `json:"course_id"`
	From     models.Assignment `json:"from"`
	To       models.Assignment `json:"to"`
}
