package engine

import (
	"fmt"
	"sort"

	"github.com/acadgrid/timetable-api/internal/models"
)

// candidate is one legal (faculty, room, slot) triple for a course, scored by
// desirability. Score ranks greedy order only; hard feasibility was already
// established when the candidate was built.
type candidate struct {
	FacultyID  string
	RoomID     string
	TimeSlotID string
	Score      float64
}

// courseCandidates holds the full ranked option list for one course, or the
// reason the list is empty.
type courseCandidates struct {
	Course     *models.Course
	Options    []candidate
	Infeasible *models.UnscheduledCourse
}

// buildCandidates enumerates every hard-feasible triple for each course. The
// enumeration is static: it ignores what other courses occupy, which the
// search layers on top. Courses with zero options get a structured
// infeasibility verdict naming the filter that emptied the set.
func buildCandidates(idx *snapshotIndex, w Weights, overflowPct int) []courseCandidates {
	out := make([]courseCandidates, 0, len(idx.snap.Courses))

	for i := range idx.snap.Courses {
		course := &idx.snap.Courses[i]

		var qualified []*models.Faculty
		for j := range idx.snap.Faculty {
			if facultyQualified(course, &idx.snap.Faculty[j]) {
				qualified = append(qualified, &idx.snap.Faculty[j])
			}
		}
		if len(qualified) == 0 {
			out = append(out, infeasible(course, "no_qualified_faculty",
				fmt.Sprintf("no faculty member covers expertise %v", course.RequiredExpertise)))
			continue
		}

		capable := make([]*models.Faculty, 0, len(qualified))
		for _, fac := range qualified {
			if facultyHasHeadroom(idx, fac) {
				capable = append(capable, fac)
			}
		}
		if len(capable) == 0 {
			out = append(out, infeasible(course, "no_faculty_capacity",
				"no qualified faculty member has weekly-hour headroom for another class"))
			continue
		}

		var rooms []*models.Room
		for j := range idx.snap.Rooms {
			if roomSuits(course, &idx.snap.Rooms[j], overflowPct) {
				rooms = append(rooms, &idx.snap.Rooms[j])
			}
		}
		if len(rooms) == 0 {
			out = append(out, infeasible(course, "no_suitable_room",
				fmt.Sprintf("no room satisfies type/capacity/facilities for %d students", enrollment(course))))
			continue
		}

		cc := courseCandidates{Course: course}
		for _, fac := range capable {
			for _, slot := range idx.sortedSlots {
				if fac.StateFor(slot.ID) == models.AvailabilityUnavailable {
					continue
				}
				for _, room := range rooms {
					cc.Options = append(cc.Options, candidate{
						FacultyID:  fac.ID,
						RoomID:     room.ID,
						TimeSlotID: slot.ID,
						Score:      desirability(course, fac, room, slot, w),
					})
				}
			}
		}
		if len(cc.Options) == 0 {
			out = append(out, infeasible(course, "no_open_slot",
				"every qualified faculty member is unavailable in every slot"))
			continue
		}

		sortCandidates(cc.Options)
		out = append(out, cc)
	}
	return out
}

func infeasible(course *models.Course, code, detail string) courseCandidates {
	return courseCandidates{
		Course: course,
		Infeasible: &models.UnscheduledCourse{
			CourseID: course.ID,
			Reason:   models.ReasonInputInfeasible,
			Detail:   code + ": " + detail,
		},
	}
}

// desirability scores how well a triple matches the soft preferences. The
// greedy pass tries high scores first, so the scoring mirrors the penalty
// terms with inverted sign.
func desirability(course *models.Course, fac *models.Faculty, room *models.Room, slot models.TimeSlot, w Weights) float64 {
	score := 0.0
	if fac.StateFor(slot.ID) == models.AvailabilityPreferred {
		score += w.PreferredSlot
	}
	if slot.StartMinutes() < morningCutoff {
		score -= w.AvoidMorning
	}
	if course.NeedsLab() && slot.StartMinutes() >= afternoonStart {
		score += w.LabAfternoon
	}
	// Tight rooms keep big rooms free for big courses.
	if room.Capacity > 0 {
		score += 0.5 * float64(enrollment(course)) / float64(room.Capacity)
	}
	return score
}

// sortCandidates orders by score descending with a full ID tie-break, which
// keeps identical inputs producing identical schedules.
func sortCandidates(opts []candidate) {
	sort.Slice(opts, func(i, j int) bool {
		a, b := opts[i], opts[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TimeSlotID != b.TimeSlotID {
			return a.TimeSlotID < b.TimeSlotID
		}
		if a.FacultyID != b.FacultyID {
			return a.FacultyID < b.FacultyID
		}
		return a.RoomID < b.RoomID
	})
}
