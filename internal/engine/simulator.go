package engine

import (
	"context"
	"sort"

	"github.com/acadgrid/timetable-api/internal/models"
)

// Perturbation describes a hypothetical change to the scheduling world. All
// fields are optional and combine.
type Perturbation struct {
	// FacultyUnavailable marks slots unavailable per faculty member. An empty
	// slot list blocks the member entirely (leave of absence).
	FacultyUnavailable map[string][]string `json:"faculty_unavailable,omitempty"`
	// RemoveRooms takes rooms out of service (maintenance, reallocation).
	RemoveRooms []string `json:"remove_rooms,omitempty"`
	// AddCourses injects extra offerings; RemoveCourses withdraws existing ones.
	AddCourses    []models.Course `json:"add_courses,omitempty"`
	RemoveCourses []string        `json:"remove_courses,omitempty"`
}

// CourseMove records one course whose assignment changed between baseline and
// simulation.
type CourseMove struct {
	CourseID string            `json:"course_id"`
	From     models.Assignment `json:"from"`
	To       models.Assignment `json:"to"`
}

// Diff is the delta between a baseline schedule and a simulated one. It is
// lossless: ApplyDiff(baseline, diff) reconstructs the simulated schedule.
type Diff struct {
	Changed      []CourseMove        `json:"changed"`
	Added        []models.Assignment `json:"added"`
	Removed      []models.Assignment `json:"removed"`
	PenaltyDelta float64             `json:"penalty_delta"`
}

// Report is the full outcome of one simulation.
type Report struct {
	Schedule    models.Schedule            `json:"schedule"`
	Diff        Diff                       `json:"diff"`
	Unscheduled []models.UnscheduledCourse `json:"unscheduled_courses"`
	// FeasibilityScore is the percentage of courses the perturbed world could
	// still schedule.
	FeasibilityScore int               `json:"feasibility_score"`
	Stats            models.SolveStats `json:"stats"`
}

// Simulate applies the perturbation to a copy of the snapshot, re-solves with
// the same configuration, and reports the schedule alongside its delta from
// the baseline. The live snapshot and baseline are never modified.
func Simulate(ctx context.Context, snap Snapshot, baseline models.Schedule, p Perturbation, cfg Config) (Report, error) {
	world := perturbed(snap, p)

	result, err := Solve(ctx, world, cfg)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Schedule:    result.Schedule,
		Diff:        DiffSchedules(baseline, result.Schedule),
		Unscheduled: result.Unscheduled,
		Stats:       result.Stats,
	}
	if total := len(world.Courses); total > 0 {
		report.FeasibilityScore = 100 * len(result.Schedule.Assignments) / total
	}
	return report, nil
}

// perturbed builds the hypothetical world from a deep copy.
func perturbed(snap Snapshot, p Perturbation) Snapshot {
	world := snap.Clone()

	if len(p.RemoveRooms) > 0 {
		gone := make(map[string]bool, len(p.RemoveRooms))
		for _, id := range p.RemoveRooms {
			gone[id] = true
		}
		kept := world.Rooms[:0]
		for _, r := range world.Rooms {
			if !gone[r.ID] {
				kept = append(kept, r)
			}
		}
		world.Rooms = kept
	}

	if len(p.RemoveCourses) > 0 {
		gone := make(map[string]bool, len(p.RemoveCourses))
		for _, id := range p.RemoveCourses {
			gone[id] = true
		}
		kept := world.Courses[:0]
		for _, c := range world.Courses {
			if !gone[c.ID] {
				kept = append(kept, c)
			}
		}
		world.Courses = kept
		keptFixed := world.Fixed[:0]
		for _, a := range world.Fixed {
			if !gone[a.CourseID] {
				keptFixed = append(keptFixed, a)
			}
		}
		world.Fixed = keptFixed
	}
	world.Courses = append(world.Courses, p.AddCourses...)

	for i := range world.Faculty {
		fac := &world.Faculty[i]
		blocked, ok := p.FacultyUnavailable[fac.ID]
		if !ok {
			continue
		}
		if len(blocked) == 0 {
			// Full leave: overwrite the whole grid.
			fac.Availability = fac.Availability[:0]
			for _, slot := range world.TimeSlots {
				fac.Availability = append(fac.Availability, models.AvailabilityEntry{
					TimeSlotID: slot.ID,
					State:      models.AvailabilityUnavailable,
				})
			}
			continue
		}
		for _, slotID := range blocked {
			fac.Availability = setAvailability(fac.Availability, slotID, models.AvailabilityUnavailable)
		}
	}
	return world
}

func setAvailability(entries []models.AvailabilityEntry, slotID string, state models.AvailabilityState) []models.AvailabilityEntry {
	for i := range entries {
		if entries[i].TimeSlotID == slotID {
			entries[i].State = state
			return entries
		}
	}
	return append(entries, models.AvailabilityEntry{TimeSlotID: slotID, State: state})
}

// DiffSchedules computes the per-course delta from prev to next. Output
// slices are sorted by course ID.
func DiffSchedules(prev, next models.Schedule) Diff {
	oldByCourse := make(map[string]models.Assignment, len(prev.Assignments))
	for _, a := range prev.Assignments {
		oldByCourse[a.CourseID] = a
	}
	newByCourse := make(map[string]models.Assignment, len(next.Assignments))
	for _, a := range next.Assignments {
		newByCourse[a.CourseID] = a
	}

	d := Diff{PenaltyDelta: next.TotalPenalty - prev.TotalPenalty}
	for id, na := range newByCourse {
		oa, existed := oldByCourse[id]
		switch {
		case !existed:
			d.Added = append(d.Added, na)
		case oa != na:
			d.Changed = append(d.Changed, CourseMove{CourseID: id, From: oa, To: na})
		}
	}
	for id, oa := range oldByCourse {
		if _, kept := newByCourse[id]; !kept {
			d.Removed = append(d.Removed, oa)
		}
	}

	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].CourseID < d.Added[j].CourseID })
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].CourseID < d.Removed[j].CourseID })
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].CourseID < d.Changed[j].CourseID })
	return d
}

// ApplyDiff replays a diff onto a baseline and returns the resulting
// schedule. DiffSchedules and ApplyDiff round-trip:
// ApplyDiff(base, DiffSchedules(base, next)) == next.
func ApplyDiff(base models.Schedule, d Diff) models.Schedule {
	byCourse := make(map[string]models.Assignment, len(base.Assignments))
	for _, a := range base.Assignments {
		byCourse[a.CourseID] = a
	}
	for _, a := range d.Removed {
		delete(byCourse, a.CourseID)
	}
	for _, m := range d.Changed {
		byCourse[m.CourseID] = m.To
	}
	for _, a := range d.Added {
		byCourse[a.CourseID] = a
	}

	out := models.Schedule{
		Assignments:  make([]models.Assignment, 0, len(byCourse)),
		TotalPenalty: base.TotalPenalty + d.PenaltyDelta,
	}
	for _, a := range byCourse {
		out.Assignments = append(out.Assignments, a)
	}
	sort.Slice(out.Assignments, func(i, j int) bool {
		return out.Assignments[i].CourseID < out.Assignments[j].CourseID
	})
	return out
}
