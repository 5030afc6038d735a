package models

// Assignment binds a course to a faculty member, a room, and a time slot.
// Assignments are the only entities created during a generation run; a run
// retracts and recreates them freely until the schedule is finalized.
type Assignment struct {
	CourseID   string `db:"course_id" json:"course_id"`
	FacultyID  string `db:"faculty_id" json:"faculty_id"`
	RoomID     string `db:"room_id" json:"room_id"`
	TimeSlotID string `db:"time_slot_id" json:"time_slot_id"`
	Enrolled   int    `db:"enrolled" json:"enrolled"`
}

// Schedule is the finalized output of a run: one assignment per scheduled
// course, ordered deterministically by course ID.
type Schedule struct {
	Assignments  []Assignment `json:"assignments"`
	TotalPenalty float64      `json:"total_penalty"`
}

// Find returns the assignment for a course, or nil when the course is not in
// the schedule.
func (s Schedule) Find(courseID string) *Assignment {
	for i := range s.Assignments {
		if s.Assignments[i].CourseID == courseID {
			return &s.Assignments[i]
		}
	}
	return nil
}
