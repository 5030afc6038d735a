package models

import "time"

// RunStatus tracks the lifecycle of a generation run.
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// UnscheduledReason explains why a course was left out of a schedule.
type UnscheduledReason string

const (
	// ReasonInputInfeasible: the candidate set was empty before search began.
	ReasonInputInfeasible UnscheduledReason = "INPUT_INFEASIBLE"
	// ReasonSearchExhausted: the backtracking budget ran out with no feasible
	// placement for the course.
	ReasonSearchExhausted UnscheduledReason = "PARTIAL_SCHEDULE"
)

// UnscheduledCourse is the structured report for a course a run could not
// place. Never a bare failure: the caller gets course, reason, and detail.
type UnscheduledCourse struct {
	CourseID string            `json:"course_id"`
	Reason   UnscheduledReason `json:"reason"`
	Detail   string            `json:"detail"`
}

// SolverSettings is the resolved solver configuration a run used. Follow-up
// calls replay it so audits and simulations judge the schedule by the rules
// it was generated under.
type SolverSettings struct {
	PreferredSlot           float64 `json:"preferred_slot"`
	MinimizeGaps            float64 `json:"minimize_gaps"`
	WorkloadBalance         float64 `json:"workload_balance"`
	LabAfternoon            float64 `json:"lab_afternoon"`
	AvoidMorning            float64 `json:"avoid_morning"`
	CapacityOverflowPercent int     `json:"capacity_overflow_percent,omitempty"`
}

// SolveStats summarises the work a solve performed.
type SolveStats struct {
	Level               string             `json:"level"`
	Seed                int64              `json:"seed"`
	Backtracks          int                `json:"backtracks"`
	Restarts            int                `json:"restarts"`
	CandidatesEvaluated int                `json:"candidates_evaluated"`
	PenaltyBreakdown    map[string]float64 `json:"penalty_breakdown"`
	Elapsed             time.Duration      `json:"elapsed_ns"`
}

// RunProgress reports real incremental progress for async runs: the current
// pipeline phase plus courses placed so far.
type RunProgress struct {
	Phase     string `json:"phase"`
	Scheduled int    `json:"scheduled"`
	Total     int    `json:"total"`
}

// GenerationResult bundles everything a finished run produced.
type GenerationResult struct {
	Schedule    Schedule            `json:"schedule"`
	Unscheduled []UnscheduledCourse `json:"unscheduled_courses"`
	Conflicts   []Conflict          `json:"conflicts"`
	Stats       SolveStats          `json:"stats"`
}

// GenerationRun is a stored generation request plus its outcome, addressable
// by ID for follow-up calls (resolutions, export, simulation baselines).
type GenerationRun struct {
	ID          string            `json:"id"`
	ProgramID   string            `json:"program_id"`
	Semester    int               `json:"semester"`
	Level       string            `json:"level"`
	Seed        int64             `json:"seed"`
	Settings    SolverSettings    `json:"settings"`
	Status      RunStatus         `json:"status"`
	Progress    RunProgress       `json:"progress"`
	Result      *GenerationResult `json:"result,omitempty"`
	Errordetail string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}
