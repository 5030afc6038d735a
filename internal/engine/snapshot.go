package engine

import (
	"sort"

	"github.com/acadgrid/timetable-api/internal/models"
)

// Snapshot is the immutable input to a solve: every entity the engine may
// reference, loaded once up front. The engine never touches storage.
type Snapshot struct {
	Courses   []models.Course
	Faculty   []models.Faculty
	Rooms     []models.Room
	TimeSlots []models.TimeSlot
	// Fixed holds assignments pinned by the caller. The solver keeps them
	// verbatim and schedules the remaining courses around them.
	Fixed []models.Assignment
}

// Clone returns a deep copy so simulations can perturb freely.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Courses:   make([]models.Course, len(s.Courses)),
		Faculty:   make([]models.Faculty, len(s.Faculty)),
		Rooms:     make([]models.Room, len(s.Rooms)),
		TimeSlots: make([]models.TimeSlot, len(s.TimeSlots)),
		Fixed:     make([]models.Assignment, len(s.Fixed)),
	}
	copy(out.TimeSlots, s.TimeSlots)
	copy(out.Fixed, s.Fixed)
	for i, c := range s.Courses {
		c.RequiredExpertise = append([]string(nil), c.RequiredExpertise...)
		c.RequiredFacilities = append([]string(nil), c.RequiredFacilities...)
		out.Courses[i] = c
	}
	for i, f := range s.Faculty {
		f.Expertise = append([]string(nil), f.Expertise...)
		f.Availability = append([]models.AvailabilityEntry(nil), f.Availability...)
		out.Faculty[i] = f
	}
	for i, r := range s.Rooms {
		r.Facilities = append([]string(nil), r.Facilities...)
		out.Rooms[i] = r
	}
	return out
}

// snapshotIndex precomputes the lookups every hot path needs: ID maps, slot
// minute ranges, and the pairwise slot overlap sets. Built once per solve.
type snapshotIndex struct {
	snap *Snapshot

	courseByID  map[string]*models.Course
	facultyByID map[string]*models.Faculty
	roomByID    map[string]*models.Room
	slotByID    map[string]*models.TimeSlot

	// sortedSlots is the deterministic slot order: day, start minute, ID.
	sortedSlots []models.TimeSlot
	// overlapping maps a slot ID to every slot ID colliding with it on the
	// grid, itself included. Busy checks walk this set instead of comparing
	// minute ranges repeatedly.
	overlapping map[string][]string

	slotMinutes map[string]int
}

func newSnapshotIndex(snap *Snapshot) *snapshotIndex {
	idx := &snapshotIndex{
		snap:        snap,
		courseByID:  make(map[string]*models.Course, len(snap.Courses)),
		facultyByID: make(map[string]*models.Faculty, len(snap.Faculty)),
		roomByID:    make(map[string]*models.Room, len(snap.Rooms)),
		slotByID:    make(map[string]*models.TimeSlot, len(snap.TimeSlots)),
		overlapping: make(map[string][]string, len(snap.TimeSlots)),
		slotMinutes: make(map[string]int, len(snap.TimeSlots)),
	}
	for i := range snap.Courses {
		idx.courseByID[snap.Courses[i].ID] = &snap.Courses[i]
	}
	for i := range snap.Faculty {
		idx.facultyByID[snap.Faculty[i].ID] = &snap.Faculty[i]
	}
	for i := range snap.Rooms {
		idx.roomByID[snap.Rooms[i].ID] = &snap.Rooms[i]
	}
	for i := range snap.TimeSlots {
		slot := &snap.TimeSlots[i]
		idx.slotByID[slot.ID] = slot
		idx.slotMinutes[slot.ID] = slot.DurationMinutes()
	}

	idx.sortedSlots = append([]models.TimeSlot(nil), snap.TimeSlots...)
	sort.Slice(idx.sortedSlots, func(a, b int) bool {
		sa, sb := idx.sortedSlots[a], idx.sortedSlots[b]
		if sa.Day != sb.Day {
			return sa.Day < sb.Day
		}
		if sa.StartMinutes() != sb.StartMinutes() {
			return sa.StartMinutes() < sb.StartMinutes()
		}
		return sa.ID < sb.ID
	})

	for _, a := range idx.sortedSlots {
		for _, b := range idx.sortedSlots {
			if a.Overlaps(b) || a.ID == b.ID {
				idx.overlapping[a.ID] = append(idx.overlapping[a.ID], b.ID)
			}
		}
	}
	return idx
}

// slotDuration returns the cached slot length in minutes, 0 for unknown IDs.
func (idx *snapshotIndex) slotDuration(slotID string) int {
	return idx.slotMinutes[slotID]
}

// enrollment estimates class size for capacity checks. MaxStudents doubles as
// the projected enrolment until registration data exists.
func enrollment(c *models.Course) int {
	return c.MaxStudents
}
