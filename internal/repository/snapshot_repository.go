package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/acadgrid/timetable-api/internal/engine"
	"github.com/acadgrid/timetable-api/internal/models"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
)

// tagSeparator delimits multi-valued text columns (expertise, facilities).
const tagSeparator = ","

// SnapshotRepository loads everything a generation run needs in one shot.
type SnapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

type courseRow struct {
	ID                 string            `db:"id"`
	Code               string            `db:"code"`
	Title              string            `db:"title"`
	Credits            int               `db:"credits"`
	Type               models.CourseType `db:"type"`
	NEPCategory        string            `db:"nep_category"`
	ProgramID          string            `db:"program_id"`
	Semester           int               `db:"semester"`
	WeeklyHours        int               `db:"weekly_hours"`
	Elective           bool              `db:"elective"`
	MaxStudents        int               `db:"max_students"`
	RequiredExpertise  sql.NullString    `db:"required_expertise"`
	RequiredFacilities sql.NullString    `db:"required_facilities"`
}

type facultyRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Department     string         `db:"department"`
	Expertise      sql.NullString `db:"expertise"`
	MaxWeeklyHours int            `db:"max_weekly_hours"`
}

type availabilityRow struct {
	FacultyID  string                   `db:"faculty_id"`
	TimeSlotID string                   `db:"time_slot_id"`
	State      models.AvailabilityState `db:"state"`
}

type roomRow struct {
	ID         string          `db:"id"`
	Name       string          `db:"name"`
	Type       models.RoomType `db:"type"`
	Capacity   int             `db:"capacity"`
	Facilities sql.NullString  `db:"facilities"`
	Building   string          `db:"building"`
}

// Load assembles the full scheduling snapshot for one program and semester.
func (r *SnapshotRepository) Load(ctx context.Context, programID string, semester int) (engine.Snapshot, error) {
	var snap engine.Snapshot

	var courses []courseRow
	err := r.db.SelectContext(ctx, &courses, `
		SELECT id, code, title, credits, type, nep_category, program_id, semester,
		       weekly_hours, elective, max_students, required_expertise, required_facilities
		FROM courses
		WHERE program_id = $1 AND semester = $2
		ORDER BY id`, programID, semester)
	if err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	if len(courses) == 0 {
		return snap, appErrors.Clone(appErrors.ErrNotFound, "no courses found for program and semester")
	}
	for _, row := range courses {
		snap.Courses = append(snap.Courses, models.Course{
			ID: row.ID, Code: row.Code, Title: row.Title, Credits: row.Credits,
			Type: row.Type, NEPCategory: row.NEPCategory, ProgramID: row.ProgramID,
			Semester: row.Semester, WeeklyHours: row.WeeklyHours, Elective: row.Elective,
			MaxStudents:        row.MaxStudents,
			RequiredExpertise:  splitTags(row.RequiredExpertise),
			RequiredFacilities: splitTags(row.RequiredFacilities),
		})
	}

	var faculty []facultyRow
	err = r.db.SelectContext(ctx, &faculty, `
		SELECT id, name, department, expertise, max_weekly_hours
		FROM faculty
		WHERE active = TRUE
		ORDER BY id`)
	if err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}

	var availability []availabilityRow
	err = r.db.SelectContext(ctx, &availability, `
		SELECT faculty_id, time_slot_id, state
		FROM faculty_availability
		ORDER BY faculty_id, time_slot_id`)
	if err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty availability")
	}
	availByFaculty := make(map[string][]models.AvailabilityEntry)
	for _, row := range availability {
		availByFaculty[row.FacultyID] = append(availByFaculty[row.FacultyID], models.AvailabilityEntry{
			TimeSlotID: row.TimeSlotID,
			State:      row.State,
		})
	}
	for _, row := range faculty {
		snap.Faculty = append(snap.Faculty, models.Faculty{
			ID: row.ID, Name: row.Name, Department: row.Department,
			Expertise:      splitTags(row.Expertise),
			MaxWeeklyHours: row.MaxWeeklyHours,
			Availability:   availByFaculty[row.ID],
		})
	}

	var rooms []roomRow
	err = r.db.SelectContext(ctx, &rooms, `
		SELECT id, name, type, capacity, facilities, building
		FROM rooms
		WHERE active = TRUE
		ORDER BY id`)
	if err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	for _, row := range rooms {
		snap.Rooms = append(snap.Rooms, models.Room{
			ID: row.ID, Name: row.Name, Type: row.Type, Capacity: row.Capacity,
			Facilities: splitTags(row.Facilities), Building: row.Building,
		})
	}

	err = r.db.SelectContext(ctx, &snap.TimeSlots, `
		SELECT id, day, start_time, end_time
		FROM time_slots
		ORDER BY day, start_time, id`)
	if err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}

	err = r.db.SelectContext(ctx, &snap.Fixed, `
		SELECT pa.course_id, pa.faculty_id, pa.room_id, pa.time_slot_id, pa.enrolled
		FROM pinned_assignments pa
		JOIN courses c ON c.id = pa.course_id
		WHERE c.program_id = $1 AND c.semester = $2
		ORDER BY pa.course_id`, programID, semester)
	if err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pinned assignments")
	}

	return snap, nil
}

func splitTags(raw sql.NullString) []string {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	parts := strings.Split(raw.String, tagSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
