package engine

import (
	"fmt"
	"sort"

	"github.com/acadgrid/timetable-api/internal/models"
)

const maxResolutionsPerConflict = 3

// Suggest proposes concrete local fixes for every conflict in the list and
// returns the conflicts with their Resolutions populated. Each resolution is
// a single-field change (or a split) verified feasible against the schedule
// as it stands; applying one is the caller's decision.
func Suggest(snap Snapshot, schedule models.Schedule, conflicts []models.Conflict) []models.Conflict {
	idx := newSnapshotIndex(&snap)
	st := occupancyFor(idx, schedule)

	out := make([]models.Conflict, len(conflicts))
	for i, c := range conflicts {
		c.Resolutions = suggestOne(idx, st, schedule, c)
		out[i] = c
	}
	return out
}

func suggestOne(idx *snapshotIndex, st *searchState, schedule models.Schedule, c models.Conflict) []models.Resolution {
	if len(c.Assignments) == 0 {
		return nil
	}
	// Move the later course of the pair; a single-assignment conflict moves
	// its only course.
	victim := c.Assignments[len(c.Assignments)-1]
	course := idx.courseByID[victim.CourseID]
	if course == nil {
		return nil
	}

	var res []models.Resolution
	switch c.Kind {
	case models.ConflictFacultyDoubleBooking, models.ConflictUnmetAvailability:
		res = append(res, slotMoves(idx, st, victim, course)...)
		res = append(res, facultySwaps(idx, st, victim, course)...)
	case models.ConflictRoomDoubleBooking:
		res = append(res, roomSwaps(idx, st, victim, course, 0)...)
		res = append(res, slotMoves(idx, st, victim, course)...)
	case models.ConflictRoomCapacityExceeded:
		res = append(res, roomSwaps(idx, st, victim, course, 0)...)
		if len(res) == 0 {
			res = append(res, models.Resolution{
				CourseID: victim.CourseID,
				Field:    models.ResolveSplit,
				NewValue: "2",
				Description: fmt.Sprintf("split %s into two sections; no single room seats %d students",
					course.Code, victim.Enrolled),
				Feasibility: 40,
				Affected:    []string{victim.CourseID},
			})
		}
	case models.ConflictFacultyOverload:
		res = append(res, facultySwaps(idx, st, victim, course)...)
	case models.ConflictResourceShortage:
		res = append(res, roomSwaps(idx, st, victim, course, 0)...)
	}

	sort.SliceStable(res, func(i, j int) bool { return res[i].Feasibility > res[j].Feasibility })
	if len(res) > maxResolutionsPerConflict {
		res = res[:maxResolutionsPerConflict]
	}
	return res
}

// occupancyFor rebuilds solver occupancy from an existing schedule so the
// advisor can test alternatives with the same feasibility rules the solver
// used. Conflicting entries overwrite each other in the busy maps, which is
// fine: the advisor only asks whether a target is free.
func occupancyFor(idx *snapshotIndex, schedule models.Schedule) *searchState {
	st := newSearchState(idx)
	for _, a := range schedule.Assignments {
		st.place(a)
	}
	return st
}

// without answers "is this target free if the victim's reservation were
// lifted" by temporarily unplacing the victim.
func without(st *searchState, victim models.Assignment, probe func() bool) bool {
	st.unplace(victim)
	ok := probe()
	st.place(victim)
	return ok
}

// slotMoves proposes moving the course to a different slot, keeping faculty
// and room.
func slotMoves(idx *snapshotIndex, st *searchState, victim models.Assignment, course *models.Course) []models.Resolution {
	var out []models.Resolution
	free := 0
	for _, slot := range idx.sortedSlots {
		if slot.ID == victim.TimeSlotID {
			continue
		}
		slot := slot
		ok := without(st, victim, func() bool {
			return st.canPlace(course, victim.FacultyID, victim.RoomID, slot.ID)
		})
		if !ok {
			continue
		}
		free++
		if len(out) < maxResolutionsPerConflict {
			out = append(out, models.Resolution{
				CourseID:    victim.CourseID,
				Field:       models.ResolveTimeSlot,
				NewValue:    slot.ID,
				Description: fmt.Sprintf("move %s to %s", course.Code, slot.Label()),
				Affected:    []string{victim.CourseID},
			})
		}
	}
	base := baseFeasibility(free, len(idx.sortedSlots))
	score := stressScore(base, idx, st, victim.FacultyID, 0, victim.RoomID, victim.Enrolled)
	for i := range out {
		out[i].Feasibility = score
	}
	return out
}

// facultySwaps proposes handing the course to another qualified faculty
// member free in the same slot.
func facultySwaps(idx *snapshotIndex, st *searchState, victim models.Assignment, course *models.Course) []models.Resolution {
	var out []models.Resolution
	free := 0
	for i := range idx.snap.Faculty {
		fac := &idx.snap.Faculty[i]
		if fac.ID == victim.FacultyID || !facultyQualified(course, fac) {
			continue
		}
		ok := without(st, victim, func() bool {
			return st.canPlace(course, fac.ID, victim.RoomID, victim.TimeSlotID)
		})
		if !ok {
			continue
		}
		free++
		if len(out) < maxResolutionsPerConflict {
			out = append(out, models.Resolution{
				CourseID:    victim.CourseID,
				Field:       models.ResolveFaculty,
				NewValue:    fac.ID,
				Description: fmt.Sprintf("reassign %s to %s", course.Code, fac.Name),
				Affected:    []string{victim.CourseID, fac.ID},
			})
		}
	}
	base := baseFeasibility(free, len(idx.snap.Faculty))
	extra := idx.slotDuration(victim.TimeSlotID)
	for i := range out {
		out[i].Feasibility = stressScore(base, idx, st, out[i].NewValue, extra, victim.RoomID, victim.Enrolled)
	}
	return out
}

// roomSwaps proposes relocating the course to another suitable room free in
// the same slot.
func roomSwaps(idx *snapshotIndex, st *searchState, victim models.Assignment, course *models.Course, overflowPct int) []models.Resolution {
	var out []models.Resolution
	free := 0
	for i := range idx.snap.Rooms {
		room := &idx.snap.Rooms[i]
		if room.ID == victim.RoomID || !roomSuits(course, room, overflowPct) {
			continue
		}
		ok := without(st, victim, func() bool {
			return st.canPlace(course, victim.FacultyID, room.ID, victim.TimeSlotID)
		})
		if !ok {
			continue
		}
		free++
		if len(out) < maxResolutionsPerConflict {
			out = append(out, models.Resolution{
				CourseID:    victim.CourseID,
				Field:       models.ResolveRoom,
				NewValue:    room.ID,
				Description: fmt.Sprintf("relocate %s to %s (%s, seats %d)", course.Code, room.Name, room.Building, room.Capacity),
				Affected:    []string{victim.CourseID},
			})
		}
	}
	base := baseFeasibility(free, len(idx.snap.Rooms))
	for i := range out {
		out[i].Feasibility = stressScore(base, idx, st, victim.FacultyID, 0, out[i].NewValue, victim.Enrolled)
	}
	return out
}

// baseFeasibility maps "how many alternatives exist" to 0..100. One escape
// hatch is workable but fragile; plenty of room scores high.
func baseFeasibility(free, total int) int {
	if free == 0 || total == 0 {
		return 0
	}
	score := 50 + 50*free/total
	if score > 100 {
		score = 100
	}
	return score
}

const utilizationStress = 0.9

// stressScore deducts from the base score when a resolution leaves its target
// resources close to their limits. A faculty member pushed past 90% of the
// weekly hours costs 20 points and a room filled past 90% of its seats costs
// 15, so alternatives with slack rank ahead of barely-workable ones.
func stressScore(base int, idx *snapshotIndex, st *searchState, facultyID string, extraMinutes int, roomID string, enrolled int) int {
	score := base
	if fac := idx.facultyByID[facultyID]; fac != nil && fac.MaxWeeklyHours > 0 {
		load := float64(st.facultyMinutes[facultyID] + extraMinutes)
		if load > utilizationStress*float64(fac.MaxWeeklyHours*60) {
			score -= 20
		}
	}
	if room := idx.roomByID[roomID]; room != nil && room.Capacity > 0 {
		if float64(enrolled) > utilizationStress*float64(room.Capacity) {
			score -= 15
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}
