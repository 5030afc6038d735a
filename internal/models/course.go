package models

// CourseType distinguishes delivery formats; practicals must land in labs.
type CourseType string

const (
	CourseTheory          CourseType = "THEORY"
	CoursePractical       CourseType = "PRACTICAL"
	CourseTheoryPractical CourseType = "THEORY_PRACTICAL"
)

// Course is an immutable description of a course offering to be scheduled.
// Read-only once a generation run starts.
type Course struct {
	ID                 string     `db:"id" json:"id"`
	Code               string     `db:"code" json:"code"`
	Title              string     `db:"title" json:"title"`
	Credits            int        `db:"credits" json:"credits"`
	Type               CourseType `db:"type" json:"type"`
	NEPCategory        string     `db:"nep_category" json:"nep_category"`
	ProgramID          string     `db:"program_id" json:"program_id"`
	Semester           int        `db:"semester" json:"semester"`
	WeeklyHours        int        `db:"weekly_hours" json:"weekly_hours"`
	Elective           bool       `db:"elective" json:"elective"`
	MaxStudents        int        `db:"max_students" json:"max_students"`
	RequiredExpertise  []string   `json:"required_expertise"`
	RequiredFacilities []string   `json:"required_facilities"`
}

// NeedsLab reports whether the course must be placed in a laboratory room.
func (c Course) NeedsLab() bool {
	return c.Type == CoursePractical || c.Type == CourseTheoryPractical
}
