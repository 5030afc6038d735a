package engine

import (
	"sort"

	"github.com/acadgrid/timetable-api/internal/models"
)

// Weights tunes the soft scorer. A zero weight switches its term off, which
// is how request-level constraint toggles are expressed.
type Weights struct {
	PreferredSlot   float64 `json:"preferred_slot"`
	MinimizeGaps    float64 `json:"minimize_gaps"`
	WorkloadBalance float64 `json:"workload_balance"`
	LabAfternoon    float64 `json:"lab_afternoon"`
	AvoidMorning    float64 `json:"avoid_morning"`
}

// DefaultWeights returns the stock weighting used when the request does not
// override anything.
func DefaultWeights() Weights {
	return Weights{
		PreferredSlot:   2.0,
		MinimizeGaps:    1.5,
		WorkloadBalance: 1.0,
		LabAfternoon:    1.0,
		AvoidMorning:    1.0,
	}
}

const (
	// morningCutoff marks the end of the morning band for the avoid-morning
	// preference: slots starting before 10:00 count as morning.
	morningCutoff = 10 * 60
	// afternoonStart marks where the lab-afternoon preference begins.
	afternoonStart = 12 * 60
)

// facultyQualified reports whether the faculty member covers every expertise
// tag the course demands. A course with no required tags accepts anyone.
func facultyQualified(course *models.Course, faculty *models.Faculty) bool {
	for _, need := range course.RequiredExpertise {
		found := false
		for _, have := range faculty.Expertise {
			if have == need {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// roomSuits checks the room-side hard constraints: type, capacity, and
// required facilities. Capacity may be relaxed by an explicit overflow
// percentage; everything else is absolute.
func roomSuits(course *models.Course, room *models.Room, overflowPct int) bool {
	if course.NeedsLab() && room.Type != models.RoomLab {
		return false
	}
	limit := room.Capacity + room.Capacity*overflowPct/100
	if enrollment(course) > limit {
		return false
	}
	return room.HasFacilities(course.RequiredFacilities)
}

// facultyHasHeadroom reports whether the weekly-hour limit leaves room for at
// least one slot of the grid. A zero limit can never carry a class, so such a
// member is filtered before search rather than failing every placement.
func facultyHasHeadroom(idx *snapshotIndex, fac *models.Faculty) bool {
	limit := fac.MaxWeeklyHours * 60
	for _, slot := range idx.sortedSlots {
		if idx.slotDuration(slot.ID) <= limit {
			return true
		}
	}
	return false
}

// searchState is the mutable occupancy bookkeeping during a solve. Busy maps
// are keyed by every slot the reservation blocks, so a lookup is O(1) even
// when slots overlap without sharing an ID.
type searchState struct {
	idx            *snapshotIndex
	facultyBusy    map[string]map[string]string // facultyID -> blocked slotID -> courseID
	roomBusy       map[string]map[string]string
	facultyMinutes map[string]int
}

func newSearchState(idx *snapshotIndex) *searchState {
	return &searchState{
		idx:            idx,
		facultyBusy:    make(map[string]map[string]string),
		roomBusy:       make(map[string]map[string]string),
		facultyMinutes: make(map[string]int),
	}
}

// canPlace checks every hard constraint for a tentative assignment against
// the current occupancy.
func (st *searchState) canPlace(course *models.Course, facultyID, roomID, slotID string) bool {
	if blocked := st.facultyBusy[facultyID]; blocked != nil {
		if _, taken := blocked[slotID]; taken {
			return false
		}
	}
	if blocked := st.roomBusy[roomID]; blocked != nil {
		if _, taken := blocked[slotID]; taken {
			return false
		}
	}
	fac := st.idx.facultyByID[facultyID]
	if fac == nil || fac.StateFor(slotID) == models.AvailabilityUnavailable {
		return false
	}
	if st.facultyMinutes[facultyID]+st.idx.slotDuration(slotID) > fac.MaxWeeklyHours*60 {
		return false
	}
	return true
}

// place reserves faculty and room for the slot and every slot overlapping it.
func (st *searchState) place(a models.Assignment) {
	if st.facultyBusy[a.FacultyID] == nil {
		st.facultyBusy[a.FacultyID] = make(map[string]string)
	}
	if st.roomBusy[a.RoomID] == nil {
		st.roomBusy[a.RoomID] = make(map[string]string)
	}
	for _, blocked := range st.idx.overlapping[a.TimeSlotID] {
		st.facultyBusy[a.FacultyID][blocked] = a.CourseID
		st.roomBusy[a.RoomID][blocked] = a.CourseID
	}
	st.facultyMinutes[a.FacultyID] += st.idx.slotDuration(a.TimeSlotID)
}

// unplace releases a reservation made by place. Overlap releases are safe
// because canPlace forbids two reservations from ever sharing a blocked slot.
func (st *searchState) unplace(a models.Assignment) {
	for _, blocked := range st.idx.overlapping[a.TimeSlotID] {
		delete(st.facultyBusy[a.FacultyID], blocked)
		delete(st.roomBusy[a.RoomID], blocked)
	}
	st.facultyMinutes[a.FacultyID] -= st.idx.slotDuration(a.TimeSlotID)
}

// schedulePenalty scores a schedule against the soft constraints and returns
// the weighted total plus a per-term breakdown. Lower is better; a schedule
// violating no preferences scores zero.
func schedulePenalty(idx *snapshotIndex, schedule models.Schedule, w Weights) (float64, map[string]float64) {
	breakdown := map[string]float64{
		"preferred_slot":   0,
		"minimize_gaps":    0,
		"workload_balance": 0,
		"lab_afternoon":    0,
		"avoid_morning":    0,
	}

	perFacultyMinutes := make(map[string]int)
	perFacultyDay := make(map[string]map[int][][2]int) // facultyID -> day -> [start,end) minutes

	for _, a := range schedule.Assignments {
		slot := idx.slotByID[a.TimeSlotID]
		fac := idx.facultyByID[a.FacultyID]
		course := idx.courseByID[a.CourseID]
		if slot == nil || fac == nil || course == nil {
			continue
		}

		if w.PreferredSlot > 0 && fac.StateFor(slot.ID) != models.AvailabilityPreferred {
			breakdown["preferred_slot"] += w.PreferredSlot
		}
		if w.AvoidMorning > 0 && slot.StartMinutes() < morningCutoff {
			breakdown["avoid_morning"] += w.AvoidMorning
		}
		if w.LabAfternoon > 0 && course.NeedsLab() && slot.StartMinutes() < afternoonStart {
			breakdown["lab_afternoon"] += w.LabAfternoon
		}

		perFacultyMinutes[a.FacultyID] += slot.DurationMinutes()
		if perFacultyDay[a.FacultyID] == nil {
			perFacultyDay[a.FacultyID] = make(map[int][][2]int)
		}
		perFacultyDay[a.FacultyID][slot.Day] = append(
			perFacultyDay[a.FacultyID][slot.Day],
			[2]int{slot.StartMinutes(), slot.EndMinutes()},
		)
	}

	if w.MinimizeGaps > 0 {
		breakdown["minimize_gaps"] = w.MinimizeGaps * float64(totalGapMinutes(perFacultyDay)) / 60.0
	}
	if w.WorkloadBalance > 0 && len(perFacultyMinutes) > 1 {
		breakdown["workload_balance"] = w.WorkloadBalance * loadSpreadHours(perFacultyMinutes)
	}

	// Fixed summation order keeps totals bit-identical across runs.
	total := 0.0
	for _, term := range []string{"preferred_slot", "minimize_gaps", "workload_balance", "lab_afternoon", "avoid_morning"} {
		total += breakdown[term]
	}
	return total, breakdown
}

// totalGapMinutes sums idle minutes between consecutive classes per faculty
// member per day.
func totalGapMinutes(perFacultyDay map[string]map[int][][2]int) int {
	gap := 0
	for _, days := range perFacultyDay {
		for _, spans := range days {
			sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
			for i := 1; i < len(spans); i++ {
				if spans[i][0] > spans[i-1][1] {
					gap += spans[i][0] - spans[i-1][1]
				}
			}
		}
	}
	return gap
}

// loadSpreadHours measures workload imbalance as the hour spread between the
// most and least loaded faculty members carrying assignments.
func loadSpreadHours(perFacultyMinutes map[string]int) float64 {
	min, max := -1, 0
	for _, m := range perFacultyMinutes {
		if min < 0 || m < min {
			min = m
		}
		if m > max {
			max = m
		}
	}
	if min < 0 {
		return 0
	}
	return float64(max-min) / 60.0
}
