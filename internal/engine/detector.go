package engine

import (
	"fmt"
	"sort"

	"github.com/acadgrid/timetable-api/internal/models"
)

// Detect inspects a schedule against the snapshot and reports every hard
// violation plus resource warnings. It is a pure read: running it twice on
// the same input yields the same conflicts in the same order. Schedules the
// solver finalizes come back clean of hard conflicts; external or manually
// edited schedules can report anything.
func Detect(snap Snapshot, schedule models.Schedule) []models.Conflict {
	return DetectWithOverflow(snap, schedule, 0)
}

// DetectWithOverflow validates like Detect but widens room capacity by the
// overflow percentage the schedule was generated under, so an explicitly
// granted overage is not reported back as a capacity violation.
func DetectWithOverflow(snap Snapshot, schedule models.Schedule, overflowPct int) []models.Conflict {
	idx := newSnapshotIndex(&snap)
	var out []models.Conflict

	out = append(out, detectDoubleBookings(idx, schedule)...)
	out = append(out, detectCapacity(idx, schedule, overflowPct)...)
	out = append(out, detectOverload(idx, schedule)...)
	out = append(out, detectAvailability(idx, schedule)...)
	out = append(out, detectResourceShortage(idx, schedule)...)

	sortConflicts(out)
	return out
}

var conflictKindRank = map[models.ConflictKind]int{
	models.ConflictFacultyDoubleBooking: 0,
	models.ConflictRoomDoubleBooking:    1,
	models.ConflictRoomCapacityExceeded: 2,
	models.ConflictFacultyOverload:      3,
	models.ConflictUnmetAvailability:    4,
	models.ConflictResourceShortage:     5,
}

func sortConflicts(list []models.Conflict) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if conflictKindRank[a.Kind] != conflictKindRank[b.Kind] {
			return conflictKindRank[a.Kind] < conflictKindRank[b.Kind]
		}
		if a.FacultyID != b.FacultyID {
			return a.FacultyID < b.FacultyID
		}
		if a.RoomID != b.RoomID {
			return a.RoomID < b.RoomID
		}
		if a.TimeSlotID != b.TimeSlotID {
			return a.TimeSlotID < b.TimeSlotID
		}
		return firstCourse(a) < firstCourse(b)
	})
}

func firstCourse(c models.Conflict) string {
	if len(c.Assignments) == 0 {
		return ""
	}
	return c.Assignments[0].CourseID
}

// detectDoubleBookings buckets assignments by the slots their reservation
// blocks, per faculty member and per room, so collisions surface without an
// all-pairs scan over the schedule. Assignments are sorted by course ID first
// so pair enumeration is deterministic.
func detectDoubleBookings(idx *snapshotIndex, schedule models.Schedule) []models.Conflict {
	sorted := append([]models.Assignment(nil), schedule.Assignments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CourseID < sorted[j].CourseID })

	var out []models.Conflict
	for _, p := range bucketPairs(idx, sorted, func(a models.Assignment) string { return a.FacultyID }) {
		a, b := sorted[p[0]], sorted[p[1]]
		slotA, slotB := idx.slotByID[a.TimeSlotID], idx.slotByID[b.TimeSlotID]
		out = append(out, models.Conflict{
			Kind:      models.ConflictFacultyDoubleBooking,
			Severity:  models.SeverityHigh,
			FacultyID: a.FacultyID,
			Description: fmt.Sprintf("faculty %s teaches %s and %s in overlapping slots (%s / %s)",
				a.FacultyID, a.CourseID, b.CourseID, slotA.Label(), slotB.Label()),
			Assignments: []models.Assignment{a, b},
		})
	}
	for _, p := range bucketPairs(idx, sorted, func(a models.Assignment) string { return a.RoomID }) {
		a, b := sorted[p[0]], sorted[p[1]]
		slotA, slotB := idx.slotByID[a.TimeSlotID], idx.slotByID[b.TimeSlotID]
		out = append(out, models.Conflict{
			Kind:     models.ConflictRoomDoubleBooking,
			Severity: models.SeverityHigh,
			RoomID:   a.RoomID,
			Description: fmt.Sprintf("room %s hosts %s and %s in overlapping slots (%s / %s)",
				a.RoomID, a.CourseID, b.CourseID, slotA.Label(), slotB.Label()),
			Assignments: []models.Assignment{a, b},
		})
	}
	return out
}

// bucketPairs files every assignment under each slot its window blocks, keyed
// by owner, and reads colliding pairs out of buckets holding more than one
// entry. A shared bucket only proves both windows touch the same slot; two
// windows can block a third without touching each other, so each candidate
// pair is confirmed against the actual time ranges before it is reported.
// Output pairs are sorted index pairs into the caller's assignment slice.
func bucketPairs(idx *snapshotIndex, sorted []models.Assignment, owner func(models.Assignment) string) [][2]int {
	buckets := make(map[string][]int)
	for i, a := range sorted {
		for _, blocked := range idx.overlapping[a.TimeSlotID] {
			key := owner(a) + "\x00" + blocked
			buckets[key] = append(buckets[key], i)
		}
	}

	seen := make(map[[2]int]bool)
	var pairs [][2]int
	for _, members := range buckets {
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				p := [2]int{members[x], members[y]}
				if p[0] > p[1] {
					p[0], p[1] = p[1], p[0]
				}
				if seen[p] {
					continue
				}
				seen[p] = true
				a, b := sorted[p[0]], sorted[p[1]]
				slotA, slotB := idx.slotByID[a.TimeSlotID], idx.slotByID[b.TimeSlotID]
				if slotA == nil || slotB == nil || !slotA.Overlaps(*slotB) {
					continue
				}
				pairs = append(pairs, p)
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

func detectCapacity(idx *snapshotIndex, schedule models.Schedule, overflowPct int) []models.Conflict {
	var out []models.Conflict
	for _, a := range schedule.Assignments {
		room := idx.roomByID[a.RoomID]
		if room == nil {
			continue
		}
		limit := room.Capacity + room.Capacity*overflowPct/100
		if a.Enrolled <= limit {
			continue
		}
		out = append(out, models.Conflict{
			Kind:     models.ConflictRoomCapacityExceeded,
			Severity: models.SeverityMedium,
			RoomID:   a.RoomID,
			Description: fmt.Sprintf("course %s enrols %d students but room %s seats %d",
				a.CourseID, a.Enrolled, room.Name, room.Capacity),
			Assignments: []models.Assignment{a},
		})
	}
	return out
}

func detectOverload(idx *snapshotIndex, schedule models.Schedule) []models.Conflict {
	minutes := make(map[string]int)
	byFaculty := make(map[string][]models.Assignment)
	for _, a := range schedule.Assignments {
		minutes[a.FacultyID] += idx.slotDuration(a.TimeSlotID)
		byFaculty[a.FacultyID] = append(byFaculty[a.FacultyID], a)
	}

	ids := make([]string, 0, len(minutes))
	for id := range minutes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []models.Conflict
	for _, id := range ids {
		fac := idx.facultyByID[id]
		if fac == nil || minutes[id] <= fac.MaxWeeklyHours*60 {
			continue
		}
		load := byFaculty[id]
		sort.Slice(load, func(i, j int) bool { return load[i].CourseID < load[j].CourseID })
		out = append(out, models.Conflict{
			Kind:      models.ConflictFacultyOverload,
			Severity:  models.SeverityMedium,
			FacultyID: id,
			Description: fmt.Sprintf("faculty %s is assigned %.1f hours against a weekly limit of %d",
				fac.Name, float64(minutes[id])/60.0, fac.MaxWeeklyHours),
			Assignments: load,
		})
	}
	return out
}

func detectAvailability(idx *snapshotIndex, schedule models.Schedule) []models.Conflict {
	var out []models.Conflict
	for _, a := range schedule.Assignments {
		fac := idx.facultyByID[a.FacultyID]
		slot := idx.slotByID[a.TimeSlotID]
		if fac == nil || slot == nil || fac.StateFor(a.TimeSlotID) != models.AvailabilityUnavailable {
			continue
		}
		out = append(out, models.Conflict{
			Kind:       models.ConflictUnmetAvailability,
			Severity:   models.SeverityMedium,
			FacultyID:  a.FacultyID,
			TimeSlotID: a.TimeSlotID,
			Description: fmt.Sprintf("faculty %s is marked unavailable for %s but teaches %s there",
				fac.Name, slot.Label(), a.CourseID),
			Assignments: []models.Assignment{a},
		})
	}
	return out
}

// detectResourceShortage flags rooms missing required facilities or of the
// wrong type. These are warnings: the class can physically run, degraded.
func detectResourceShortage(idx *snapshotIndex, schedule models.Schedule) []models.Conflict {
	var out []models.Conflict
	for _, a := range schedule.Assignments {
		course := idx.courseByID[a.CourseID]
		room := idx.roomByID[a.RoomID]
		if course == nil || room == nil {
			continue
		}
		switch {
		case course.NeedsLab() && room.Type != models.RoomLab:
			out = append(out, models.Conflict{
				Kind:     models.ConflictResourceShortage,
				Severity: models.SeverityLow,
				RoomID:   a.RoomID,
				Description: fmt.Sprintf("practical course %s is placed in %s which is not a lab",
					a.CourseID, room.Name),
				Assignments: []models.Assignment{a},
			})
		case !room.HasFacilities(course.RequiredFacilities):
			out = append(out, models.Conflict{
				Kind:     models.ConflictResourceShortage,
				Severity: models.SeverityLow,
				RoomID:   a.RoomID,
				Description: fmt.Sprintf("room %s lacks facilities required by course %s (%v)",
					room.Name, a.CourseID, course.RequiredFacilities),
				Assignments: []models.Assignment{a},
			})
		}
	}
	return out
}
