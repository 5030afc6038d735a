package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadgrid/timetable-api/internal/models"
)

func testTimeSlots() []models.TimeSlot {
	var slots []models.TimeSlot
	windows := [][2]string{{"09:00", "10:00"}, {"10:00", "11:00"}, {"12:00", "13:00"}, {"14:00", "15:00"}}
	ids := []string{"s1", "s2", "s3", "s4"}
	for day := 1; day <= 2; day++ {
		for i, w := range windows {
			slots = append(slots, models.TimeSlot{
				ID:    "d" + string(rune('0'+day)) + ids[i],
				Day:   day,
				Start: w[0],
				End:   w[1],
			})
		}
	}
	return slots
}

func testFaculty() []models.Faculty {
	return []models.Faculty{
		{
			ID:             "fac-rao",
			Name:           "Dr. Rao",
			Department:     "Mathematics",
			Expertise:      []string{"mathematics", "statistics"},
			MaxWeeklyHours: 12,
			Availability: []models.AvailabilityEntry{
				{TimeSlotID: "d1s2", State: models.AvailabilityPreferred},
			},
		},
		{
			ID:             "fac-iyer",
			Name:           "Prof. Iyer",
			Department:     "Computer Science",
			Expertise:      []string{"computer_science", "electronics"},
			MaxWeeklyHours: 12,
		},
	}
}

func testRooms() []models.Room {
	return []models.Room{
		{ID: "room-a101", Name: "A-101", Type: models.RoomClassroom, Capacity: 60, Facilities: []string{"projector"}, Building: "Block A"},
		{ID: "room-b201", Name: "B-201", Type: models.RoomClassroom, Capacity: 30, Facilities: []string{"projector", "smart_board"}, Building: "Block B"},
		{ID: "room-lab1", Name: "CS Lab 1", Type: models.RoomLab, Capacity: 30, Facilities: []string{"computers", "projector"}, Building: "Block B"},
	}
}

func testCourses() []models.Course {
	return []models.Course{
		{ID: "crs-calc", Code: "MAT201", Title: "Calculus II", Credits: 4, Type: models.CourseTheory,
			WeeklyHours: 1, MaxStudents: 50, RequiredExpertise: []string{"mathematics"}},
		{ID: "crs-prog", Code: "CSE105", Title: "Programming Lab", Credits: 3, Type: models.CourseTheoryPractical,
			WeeklyHours: 1, MaxStudents: 25, RequiredExpertise: []string{"computer_science"}, RequiredFacilities: []string{"computers"}},
		{ID: "crs-stats", Code: "STA110", Title: "Statistics I", Credits: 3, Type: models.CourseTheory,
			WeeklyHours: 1, MaxStudents: 28, RequiredExpertise: []string{"statistics"}},
	}
}

func testSnapshot() Snapshot {
	return Snapshot{
		Courses:   testCourses(),
		Faculty:   testFaculty(),
		Rooms:     testRooms(),
		TimeSlots: testTimeSlots(),
	}
}

func TestSolvePlacesAllCourses(t *testing.T) {
	result, err := Solve(context.Background(), testSnapshot(), Config{Level: LevelBalanced, Seed: 42})
	require.NoError(t, err)
	require.Empty(t, result.Unscheduled)
	require.Len(t, result.Schedule.Assignments, 3)

	// Output order is canonical.
	assert.Equal(t, "crs-calc", result.Schedule.Assignments[0].CourseID)
	assert.Equal(t, "crs-prog", result.Schedule.Assignments[1].CourseID)
	assert.Equal(t, "crs-stats", result.Schedule.Assignments[2].CourseID)

	// Practical course landed in the lab.
	prog := result.Schedule.Find("crs-prog")
	require.NotNil(t, prog)
	assert.Equal(t, "room-lab1", prog.RoomID)
	assert.Equal(t, "fac-iyer", prog.FacultyID)

	// Expertise routing held.
	assert.Equal(t, "fac-rao", result.Schedule.Find("crs-calc").FacultyID)
	assert.Equal(t, "fac-rao", result.Schedule.Find("crs-stats").FacultyID)
}

func TestSolveOutputHasNoHardConflicts(t *testing.T) {
	snap := testSnapshot()
	result, err := Solve(context.Background(), snap, Config{Level: LevelBalanced, Seed: 7})
	require.NoError(t, err)

	for _, c := range Detect(snap, result.Schedule) {
		assert.False(t, c.IsHard(), "generated schedule must be free of hard conflicts, got %s: %s", c.Kind, c.Description)
	}
}

func TestSolveDeterministic(t *testing.T) {
	for _, level := range []Level{LevelFast, LevelBalanced, LevelThorough} {
		cfg := Config{Level: level, Seed: 99}
		first, err := Solve(context.Background(), testSnapshot(), cfg)
		require.NoError(t, err)
		second, err := Solve(context.Background(), testSnapshot(), cfg)
		require.NoError(t, err)

		assert.Equal(t, first.Schedule, second.Schedule, "level %s must be deterministic", level)
		assert.Equal(t, first.Unscheduled, second.Unscheduled)
		assert.Equal(t, first.Stats.PenaltyBreakdown, second.Stats.PenaltyBreakdown)
	}
}

func TestOptimizationLevelsNeverRegress(t *testing.T) {
	ctx := context.Background()
	fast, err := Solve(ctx, testSnapshot(), Config{Level: LevelFast, Seed: 5})
	require.NoError(t, err)
	balanced, err := Solve(ctx, testSnapshot(), Config{Level: LevelBalanced, Seed: 5})
	require.NoError(t, err)
	thorough, err := Solve(ctx, testSnapshot(), Config{Level: LevelThorough, Seed: 5})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(balanced.Schedule.Assignments), len(fast.Schedule.Assignments))
	assert.GreaterOrEqual(t, len(thorough.Schedule.Assignments), len(balanced.Schedule.Assignments))
	if len(balanced.Schedule.Assignments) == len(fast.Schedule.Assignments) {
		assert.LessOrEqual(t, balanced.Schedule.TotalPenalty, fast.Schedule.TotalPenalty)
	}
	if len(thorough.Schedule.Assignments) == len(balanced.Schedule.Assignments) {
		assert.LessOrEqual(t, thorough.Schedule.TotalPenalty, balanced.Schedule.TotalPenalty)
	}
}

func TestSolveHonoursUnavailability(t *testing.T) {
	snap := testSnapshot()
	// Dr. Rao is out on day one.
	for _, slotID := range []string{"d1s1", "d1s2", "d1s3", "d1s4"} {
		snap.Faculty[0].Availability = append(snap.Faculty[0].Availability,
			models.AvailabilityEntry{TimeSlotID: slotID, State: models.AvailabilityUnavailable})
	}

	result, err := Solve(context.Background(), snap, Config{Seed: 1})
	require.NoError(t, err)

	slots := make(map[string]models.TimeSlot)
	for _, s := range snap.TimeSlots {
		slots[s.ID] = s
	}
	for _, a := range result.Schedule.Assignments {
		if a.FacultyID == "fac-rao" {
			assert.Equal(t, 2, slots[a.TimeSlotID].Day, "unavailable slots must never be assigned")
		}
	}
}

func TestSolveRespectsWeeklyHourLimit(t *testing.T) {
	snap := testSnapshot()
	snap.Faculty[0].MaxWeeklyHours = 1
	snap.Faculty[1].MaxWeeklyHours = 1

	result, err := Solve(context.Background(), snap, Config{Seed: 3})
	require.NoError(t, err)

	// Rao covers both math courses but only has one hour: one must be dropped.
	require.Len(t, result.Unscheduled, 1)
	assert.Equal(t, models.ReasonSearchExhausted, result.Unscheduled[0].Reason)

	minutes := make(map[string]int)
	for _, a := range result.Schedule.Assignments {
		minutes[a.FacultyID] += 60
	}
	for id, m := range minutes {
		assert.LessOrEqual(t, m, 60, "faculty %s over the weekly limit", id)
	}
}

func TestSolveReportsInfeasibleCourse(t *testing.T) {
	snap := testSnapshot()
	snap.Courses = append(snap.Courses, models.Course{
		ID: "crs-quant", Code: "PHY402", Title: "Quantum Mechanics", Type: models.CourseTheory,
		WeeklyHours: 1, MaxStudents: 20, RequiredExpertise: []string{"quantum_physics"},
	})

	result, err := Solve(context.Background(), snap, Config{Seed: 11})
	require.NoError(t, err)

	require.Len(t, result.Unscheduled, 1)
	assert.Equal(t, "crs-quant", result.Unscheduled[0].CourseID)
	assert.Equal(t, models.ReasonInputInfeasible, result.Unscheduled[0].Reason)
	assert.Contains(t, result.Unscheduled[0].Detail, "no_qualified_faculty")

	// The rest of the run is unaffected.
	assert.Len(t, result.Schedule.Assignments, 3)
}

func TestSolveReportsNoSuitableRoom(t *testing.T) {
	snap := testSnapshot()
	snap.Courses = append(snap.Courses, models.Course{
		ID: "crs-intro", Code: "GEN100", Title: "Orientation", Type: models.CourseTheory,
		WeeklyHours: 1, MaxStudents: 500, RequiredExpertise: []string{"mathematics"},
	})

	result, err := Solve(context.Background(), snap, Config{Seed: 11})
	require.NoError(t, err)

	require.Len(t, result.Unscheduled, 1)
	assert.Equal(t, "crs-intro", result.Unscheduled[0].CourseID)
	assert.Contains(t, result.Unscheduled[0].Detail, "no_suitable_room")
}

func TestSolveReportsNoFacultyCapacity(t *testing.T) {
	snap := testSnapshot()
	snap.Faculty = append(snap.Faculty, models.Faculty{
		ID: "fac-emeritus", Name: "Prof. Menon", Department: "Humanities",
		Expertise: []string{"philosophy"}, MaxWeeklyHours: 0,
	})
	snap.Courses = append(snap.Courses, models.Course{
		ID: "crs-ethics", Code: "HUM210", Title: "Ethics", Type: models.CourseTheory,
		WeeklyHours: 1, MaxStudents: 30, RequiredExpertise: []string{"philosophy"},
	})

	result, err := Solve(context.Background(), snap, Config{Seed: 6})
	require.NoError(t, err)

	// A sole qualified member with zero weekly hours is an input problem, not
	// a search failure.
	require.Len(t, result.Unscheduled, 1)
	assert.Equal(t, "crs-ethics", result.Unscheduled[0].CourseID)
	assert.Equal(t, models.ReasonInputInfeasible, result.Unscheduled[0].Reason)
	assert.Contains(t, result.Unscheduled[0].Detail, "no_faculty_capacity")

	assert.Len(t, result.Schedule.Assignments, 3)
}

func TestSolveSingleRoomContention(t *testing.T) {
	// Three courses compete for one room across two slots; faculty B can only
	// teach in the first.
	snap := Snapshot{
		TimeSlots: []models.TimeSlot{
			{ID: "mon-9", Day: 1, Start: "09:00", End: "10:00"},
			{ID: "mon-10", Day: 1, Start: "10:00", End: "11:00"},
		},
		Faculty: []models.Faculty{
			{ID: "fac-a", Name: "Dr. A", Expertise: []string{"algebra"}, MaxWeeklyHours: 4},
			{ID: "fac-b", Name: "Dr. B", Expertise: []string{"databases"}, MaxWeeklyHours: 4,
				Availability: []models.AvailabilityEntry{
					{TimeSlotID: "mon-10", State: models.AvailabilityUnavailable},
				}},
		},
		Rooms: []models.Room{
			{ID: "room-main", Name: "Main Hall", Type: models.RoomClassroom, Capacity: 60},
		},
		Courses: []models.Course{
			{ID: "crs-one", Code: "ALG101", Type: models.CourseTheory, WeeklyHours: 1, MaxStudents: 40, RequiredExpertise: []string{"algebra"}},
			{ID: "crs-two", Code: "ALG102", Type: models.CourseTheory, WeeklyHours: 1, MaxStudents: 40, RequiredExpertise: []string{"algebra"}},
			{ID: "crs-three", Code: "DBS101", Type: models.CourseTheory, WeeklyHours: 1, MaxStudents: 35, RequiredExpertise: []string{"databases"}},
		},
	}

	result, err := Solve(context.Background(), snap, Config{Level: LevelBalanced, Seed: 13})
	require.NoError(t, err)

	// Two room-slot pairs exist, so two courses fit at most. The constrained
	// course must win its only slot.
	require.Len(t, result.Schedule.Assignments, 2)
	three := result.Schedule.Find("crs-three")
	require.NotNil(t, three)
	assert.Equal(t, "mon-9", three.TimeSlotID)
	assert.Equal(t, "fac-b", three.FacultyID)

	require.Len(t, result.Unscheduled, 1)
	assert.Equal(t, models.ReasonSearchExhausted, result.Unscheduled[0].Reason)
	loser := result.Unscheduled[0].CourseID
	assert.Contains(t, []string{"crs-one", "crs-two"}, loser)
	for _, a := range result.Schedule.Assignments {
		if a.CourseID != "crs-three" {
			assert.Equal(t, "mon-10", a.TimeSlotID)
			assert.Equal(t, "fac-a", a.FacultyID)
		}
	}

	assert.Empty(t, Detect(snap, result.Schedule))
}

func TestSolveCapacityOverflowOptIn(t *testing.T) {
	snap := testSnapshot()
	snap.Courses = []models.Course{{
		ID: "crs-big", Code: "MAT301", Title: "Linear Algebra", Type: models.CourseTheory,
		WeeklyHours: 1, MaxStudents: 66, RequiredExpertise: []string{"mathematics"},
	}}

	strict, err := Solve(context.Background(), snap, Config{Seed: 2})
	require.NoError(t, err)
	require.Len(t, strict.Unscheduled, 1, "66 students must not fit a 60-seat room by default")

	relaxed, err := Solve(context.Background(), snap, Config{Seed: 2, CapacityOverflowPercent: 10})
	require.NoError(t, err)
	require.Empty(t, relaxed.Unscheduled)
	assert.Equal(t, "room-a101", relaxed.Schedule.Assignments[0].RoomID)
}

func TestSolveKeepsPinnedAssignments(t *testing.T) {
	snap := testSnapshot()
	pin := models.Assignment{CourseID: "crs-calc", FacultyID: "fac-rao", RoomID: "room-b201", TimeSlotID: "d2s3", Enrolled: 50}
	snap.Fixed = []models.Assignment{pin}

	result, err := Solve(context.Background(), snap, Config{Seed: 8})
	require.NoError(t, err)

	got := result.Schedule.Find("crs-calc")
	require.NotNil(t, got)
	assert.Equal(t, pin, *got)

	// Nothing else was allowed to collide with the pin.
	for _, c := range Detect(snap, result.Schedule) {
		if c.Kind == models.ConflictFacultyDoubleBooking || c.Kind == models.ConflictRoomDoubleBooking {
			t.Errorf("pinned assignment collided: %s", c.Description)
		}
	}
}

func TestSolveBlocksOverlappingSlots(t *testing.T) {
	// Two long slots on the same morning overlap without sharing an ID.
	snap := Snapshot{
		TimeSlots: []models.TimeSlot{
			{ID: "long-a", Day: 1, Start: "09:00", End: "11:00"},
			{ID: "long-b", Day: 1, Start: "10:00", End: "12:00"},
		},
		Faculty: []models.Faculty{
			{ID: "fac-solo", Name: "Dr. Solo", Expertise: []string{"mathematics"}, MaxWeeklyHours: 10},
		},
		Rooms: []models.Room{
			{ID: "room-1", Name: "R1", Type: models.RoomClassroom, Capacity: 40},
			{ID: "room-2", Name: "R2", Type: models.RoomClassroom, Capacity: 40},
		},
		Courses: []models.Course{
			{ID: "crs-a", Code: "A1", Type: models.CourseTheory, WeeklyHours: 2, MaxStudents: 30, RequiredExpertise: []string{"mathematics"}},
			{ID: "crs-b", Code: "B1", Type: models.CourseTheory, WeeklyHours: 2, MaxStudents: 30, RequiredExpertise: []string{"mathematics"}},
		},
	}

	result, err := Solve(context.Background(), snap, Config{Seed: 4})
	require.NoError(t, err)

	// Only one course fits: one faculty member cannot straddle overlapping slots.
	assert.Len(t, result.Schedule.Assignments, 1)
	require.Len(t, result.Unscheduled, 1)
	assert.Equal(t, models.ReasonSearchExhausted, result.Unscheduled[0].Reason)
}

func TestSolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Solve(ctx, testSnapshot(), Config{Seed: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestSolveReportsProgress(t *testing.T) {
	var phases []string
	cfg := Config{Seed: 1, Progress: func(p models.RunProgress) { phases = append(phases, p.Phase) }}

	_, err := Solve(context.Background(), testSnapshot(), cfg)
	require.NoError(t, err)

	require.NotEmpty(t, phases)
	assert.Equal(t, "building_candidates", phases[0])
	assert.Equal(t, "done", phases[len(phases)-1])
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelBalanced, level)

	level, err = ParseLevel("thorough")
	require.NoError(t, err)
	assert.Equal(t, LevelThorough, level)

	_, err = ParseLevel("extreme")
	require.Error(t, err)
}

func TestScheduleGapPenalty(t *testing.T) {
	snap := testSnapshot()
	idx := newSnapshotIndex(&snap)
	w := Weights{MinimizeGaps: 2.0}

	// 10:00-11:00 then 14:00-15:00 leaves a three hour gap.
	gappy := models.Schedule{Assignments: []models.Assignment{
		{CourseID: "crs-calc", FacultyID: "fac-rao", RoomID: "room-a101", TimeSlotID: "d1s2"},
		{CourseID: "crs-stats", FacultyID: "fac-rao", RoomID: "room-a101", TimeSlotID: "d1s4"},
	}}
	total, breakdown := schedulePenalty(idx, gappy, w)
	assert.InDelta(t, 6.0, total, 1e-9)
	assert.InDelta(t, 6.0, breakdown["minimize_gaps"], 1e-9)

	// Back to back classes carry no gap penalty.
	tight := models.Schedule{Assignments: []models.Assignment{
		{CourseID: "crs-calc", FacultyID: "fac-rao", RoomID: "room-a101", TimeSlotID: "d1s1"},
		{CourseID: "crs-stats", FacultyID: "fac-rao", RoomID: "room-a101", TimeSlotID: "d1s2"},
	}}
	total, _ = schedulePenalty(idx, tight, w)
	assert.Zero(t, total)
}
