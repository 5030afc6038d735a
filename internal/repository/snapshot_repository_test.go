package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadgrid/timetable-api/internal/models"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestSnapshotRepositoryLoad(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery("FROM courses").
		WithArgs("prog-bsc-cs", 3).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "title", "credits", "type", "nep_category", "program_id",
			"semester", "weekly_hours", "elective", "max_students", "required_expertise", "required_facilities",
		}).AddRow("crs-calc", "MAT201", "Calculus II", 4, "THEORY", "MAJOR", "prog-bsc-cs",
			3, 1, false, 50, "mathematics", nil).
			AddRow("crs-prog", "CSE105", "Programming Lab", 3, "THEORY_PRACTICAL", "MAJOR", "prog-bsc-cs",
				3, 1, false, 25, "computer_science", "computers, projector"))

	mock.ExpectQuery("FROM faculty\\s").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department", "expertise", "max_weekly_hours"}).
			AddRow("fac-rao", "Dr. Rao", "Mathematics", "mathematics,statistics", 12))

	mock.ExpectQuery("FROM faculty_availability").
		WillReturnRows(sqlmock.NewRows([]string{"faculty_id", "time_slot_id", "state"}).
			AddRow("fac-rao", "d1s2", "PREFERRED"))

	mock.ExpectQuery("FROM rooms").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "capacity", "facilities", "building"}).
			AddRow("room-a101", "A-101", "CLASSROOM", 60, "projector", "Block A"))

	mock.ExpectQuery("FROM time_slots").
		WillReturnRows(sqlmock.NewRows([]string{"id", "day", "start_time", "end_time"}).
			AddRow("d1s1", 1, "09:00", "10:00").
			AddRow("d1s2", 1, "10:00", "11:00"))

	mock.ExpectQuery("FROM pinned_assignments").
		WithArgs("prog-bsc-cs", 3).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "faculty_id", "room_id", "time_slot_id", "enrolled"}))

	snap, err := repo.Load(context.Background(), "prog-bsc-cs", 3)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, snap.Courses, 2)
	assert.Equal(t, []string{"mathematics"}, snap.Courses[0].RequiredExpertise)
	assert.Nil(t, snap.Courses[0].RequiredFacilities)
	assert.Equal(t, []string{"computers", "projector"}, snap.Courses[1].RequiredFacilities)

	require.Len(t, snap.Faculty, 1)
	assert.Equal(t, []string{"mathematics", "statistics"}, snap.Faculty[0].Expertise)
	require.Len(t, snap.Faculty[0].Availability, 1)
	assert.Equal(t, models.AvailabilityPreferred, snap.Faculty[0].Availability[0].State)

	require.Len(t, snap.Rooms, 1)
	require.Len(t, snap.TimeSlots, 2)
	assert.Empty(t, snap.Fixed)
}

func TestSnapshotRepositoryLoadNoCourses(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery("FROM courses").
		WithArgs("prog-unknown", 1).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "title", "credits", "type", "nep_category", "program_id",
			"semester", "weekly_hours", "elective", "max_students", "required_expertise", "required_facilities",
		}))

	_, err := repo.Load(context.Background(), "prog-unknown", 1)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSplitTags(t *testing.T) {
	assert.Nil(t, splitTags(sql.NullString{}))
	assert.Nil(t, splitTags(sql.NullString{Valid: true, String: "  "}))
	assert.Equal(t, []string{"a", "b"}, splitTags(sql.NullString{Valid: true, String: "a, b,"}))
}

func TestUserRepositoryGetByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users").
		WithArgs("ghost@example.edu").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.edu")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
