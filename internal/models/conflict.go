package models

// ConflictKind enumerates hard-constraint violations and resource warnings a
// schedule can exhibit.
type ConflictKind string

const (
	ConflictFacultyDoubleBooking ConflictKind = "faculty_double_booking"
	ConflictRoomDoubleBooking    ConflictKind = "room_double_booking"
	ConflictRoomCapacityExceeded ConflictKind = "room_capacity_exceeded"
	ConflictFacultyOverload      ConflictKind = "faculty_overload"
	ConflictUnmetAvailability    ConflictKind = "unmet_availability"
	ConflictResourceShortage     ConflictKind = "resource_shortage"
)

// ConflictSeverity ranks how disruptive a conflict is.
type ConflictSeverity string

const (
	SeverityHigh   ConflictSeverity = "high"
	SeverityMedium ConflictSeverity = "medium"
	SeverityLow    ConflictSeverity = "low"
)

// Conflict is a structured description of one detected violation, with enough
// detail for the resolution advisor to propose fixes.
type Conflict struct {
	Kind        ConflictKind     `json:"kind"`
	Severity    ConflictSeverity `json:"severity"`
	Description string           `json:"description"`
	Assignments []Assignment     `json:"assignments"`
	FacultyID   string           `json:"faculty_id,omitempty"`
	RoomID      string           `json:"room_id,omitempty"`
	TimeSlotID  string           `json:"time_slot_id,omitempty"`
	Resolutions []Resolution     `json:"resolutions,omitempty"`
}

// IsHard reports whether the conflict breaks a hard constraint. Resource
// shortages are reported but do not invalidate a schedule.
func (c Conflict) IsHard() bool {
	return c.Kind != ConflictResourceShortage
}

// ResolutionField names the assignment field a resolution would change.
type ResolutionField string

const (
	ResolveFaculty  ResolutionField = "faculty"
	ResolveRoom     ResolutionField = "room"
	ResolveTimeSlot ResolutionField = "timeSlot"
	ResolveSplit    ResolutionField = "split"
)

// Resolution is a proposed local modification. It is advice only; applying it
// is the caller's decision.
type Resolution struct {
	CourseID    string          `json:"course_id"`
	Field       ResolutionField `json:"field"`
	NewValue    string          `json:"new_value"`
	Description string          `json:"description"`
	Feasibility int             `json:"feasibility"` // 0..100
	Affected    []string        `json:"affected"`
}
