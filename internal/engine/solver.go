package engine

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/acadgrid/timetable-api/internal/models"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
)

// Level selects how much search effort a solve spends. Each level runs
// everything the cheaper level runs and keeps the best outcome found, so a
// higher level never returns a worse schedule for the same input and seed.
type Level string

const (
	LevelFast     Level = "fast"
	LevelBalanced Level = "balanced"
	LevelThorough Level = "thorough"
)

// ParseLevel validates a request-supplied level string.
func ParseLevel(raw string) (Level, error) {
	switch Level(raw) {
	case LevelFast, LevelBalanced, LevelThorough:
		return Level(raw), nil
	case "":
		return LevelBalanced, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "optimization level must be fast, balanced, or thorough")
}

// Config carries everything tunable about a solve. Zero values fall back to
// sane defaults so callers only set what they care about.
type Config struct {
	Level Level
	// Seed drives every randomized decision. Identical snapshot + config +
	// seed yields a byte-identical result.
	Seed    int64
	Weights Weights
	// BacktrackMultiplier bounds the search: budget = courses x multiplier.
	BacktrackMultiplier int
	// Restarts is the number of extra seeded attempts at thorough level.
	Restarts int
	// CapacityOverflowPercent relaxes room capacity by the given percentage.
	// Zero means strict capacity, which is the default.
	CapacityOverflowPercent int
	// Progress, when set, receives phase updates during the solve.
	Progress func(models.RunProgress)
}

func (c Config) withDefaults() Config {
	if c.Level == "" {
		c.Level = LevelBalanced
	}
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
	if c.BacktrackMultiplier <= 0 {
		c.BacktrackMultiplier = 3
	}
	if c.Restarts <= 0 {
		c.Restarts = 5
	}
	return c
}

// Result is a solve outcome. A solve only errors on cancellation; courses
// that could not be placed come back in Unscheduled with a reason instead of
// failing the whole run.
type Result struct {
	Schedule    models.Schedule
	Unscheduled []models.UnscheduledCourse
	Stats       models.SolveStats
}

// Solve produces a timetable for the snapshot. Pinned assignments in
// snap.Fixed are kept verbatim and the remaining courses are scheduled around
// them.
func Solve(ctx context.Context, snap Snapshot, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	started := time.Now()

	idx := newSnapshotIndex(&snap)
	sv := &solver{idx: idx, cfg: cfg}

	sv.report("building_candidates", 0, len(snap.Courses))
	all := buildCandidates(idx, cfg.Weights, cfg.CapacityOverflowPercent)

	pinned := make(map[string]bool, len(snap.Fixed))
	for _, a := range snap.Fixed {
		pinned[a.CourseID] = true
	}

	var order []courseCandidates
	var unscheduled []models.UnscheduledCourse
	for _, cc := range all {
		if pinned[cc.Course.ID] {
			continue
		}
		if cc.Infeasible != nil {
			unscheduled = append(unscheduled, *cc.Infeasible)
			continue
		}
		order = append(order, cc)
	}

	// Most constrained first: fewest options, then course ID for stability.
	sort.Slice(order, func(i, j int) bool {
		if len(order[i].Options) != len(order[j].Options) {
			return len(order[i].Options) < len(order[j].Options)
		}
		return order[i].Course.ID < order[j].Course.ID
	})

	sv.report("searching", 0, len(order))
	best, err := sv.greedy(ctx, order)
	if err != nil {
		return Result{}, err
	}

	if cfg.Level != LevelFast {
		sv.report("optimizing", len(best.assignments), len(order))
		bt, err := sv.backtrack(ctx, order, cfg.BacktrackMultiplier*len(order))
		if err != nil {
			return Result{}, err
		}
		best = sv.better(best, bt)
	}

	if cfg.Level == LevelThorough {
		for r := 1; r <= cfg.Restarts; r++ {
			shuffled := sv.perturb(order, cfg.Seed+int64(r))
			bt, err := sv.backtrack(ctx, shuffled, cfg.BacktrackMultiplier*len(order))
			if err != nil {
				return Result{}, err
			}
			sv.stats.Restarts++
			best = sv.better(best, bt)
		}
	}

	sv.report("scoring", len(best.assignments), len(order))

	schedule := models.Schedule{Assignments: append(append([]models.Assignment(nil), snap.Fixed...), best.assignments...)}
	sort.Slice(schedule.Assignments, func(i, j int) bool {
		return schedule.Assignments[i].CourseID < schedule.Assignments[j].CourseID
	})
	total, breakdown := schedulePenalty(idx, schedule, cfg.Weights)
	schedule.TotalPenalty = total

	unscheduled = append(unscheduled, best.unscheduled...)
	sort.Slice(unscheduled, func(i, j int) bool { return unscheduled[i].CourseID < unscheduled[j].CourseID })

	sv.stats.Level = string(cfg.Level)
	sv.stats.Seed = cfg.Seed
	sv.stats.PenaltyBreakdown = breakdown
	sv.stats.Elapsed = time.Since(started)
	sv.report("done", len(schedule.Assignments), len(order)+len(snap.Fixed))

	return Result{Schedule: schedule, Unscheduled: unscheduled, Stats: sv.stats}, nil
}

type solver struct {
	idx   *snapshotIndex
	cfg   Config
	stats models.SolveStats
}

func (sv *solver) report(phase string, scheduled, total int) {
	if sv.cfg.Progress != nil {
		sv.cfg.Progress(models.RunProgress{Phase: phase, Scheduled: scheduled, Total: total})
	}
}

// attempt is one candidate schedule produced by a search pass.
type attempt struct {
	assignments []models.Assignment
	unscheduled []models.UnscheduledCourse
	penalty     float64
}

func (sv *solver) finish(assignments []models.Assignment, skipped []models.UnscheduledCourse) attempt {
	sorted := append([]models.Assignment(nil), assignments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CourseID < sorted[j].CourseID })
	full := models.Schedule{Assignments: append(append([]models.Assignment(nil), sv.idx.snap.Fixed...), sorted...)}
	penalty, _ := schedulePenalty(sv.idx, full, sv.cfg.Weights)
	return attempt{assignments: sorted, unscheduled: skipped, penalty: penalty}
}

// better prefers more courses scheduled, then lower penalty, then the earlier
// attempt. The last rule keeps level escalation monotonic and deterministic.
func (sv *solver) better(a, b attempt) attempt {
	if len(b.assignments) != len(a.assignments) {
		if len(b.assignments) > len(a.assignments) {
			return b
		}
		return a
	}
	if b.penalty < a.penalty {
		return b
	}
	return a
}

// newBaseState seeds occupancy with the pinned assignments so search never
// collides with them.
func (sv *solver) newBaseState() *searchState {
	st := newSearchState(sv.idx)
	for _, a := range sv.idx.snap.Fixed {
		st.place(a)
	}
	return st
}

// greedy places each course at its best currently-feasible candidate and
// skips courses with none. Linear in candidates, no backtracking.
func (sv *solver) greedy(ctx context.Context, order []courseCandidates) (attempt, error) {
	st := sv.newBaseState()
	var placed []models.Assignment
	var skipped []models.UnscheduledCourse

	for _, cc := range order {
		if err := ctx.Err(); err != nil {
			return attempt{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generation cancelled")
		}
		a, ok := sv.firstFeasible(st, cc, 0)
		if !ok {
			skipped = append(skipped, models.UnscheduledCourse{
				CourseID: cc.Course.ID,
				Reason:   models.ReasonSearchExhausted,
				Detail:   "every candidate clashes with already placed courses",
			})
			continue
		}
		st.place(a)
		placed = append(placed, a)
		sv.report("searching", len(placed), len(order))
	}
	return sv.finish(placed, skipped), nil
}

func (sv *solver) firstFeasible(st *searchState, cc courseCandidates, from int) (models.Assignment, bool) {
	for _, opt := range cc.Options[from:] {
		sv.stats.CandidatesEvaluated++
		if st.canPlace(cc.Course, opt.FacultyID, opt.RoomID, opt.TimeSlotID) {
			return models.Assignment{
				CourseID:   cc.Course.ID,
				FacultyID:  opt.FacultyID,
				RoomID:     opt.RoomID,
				TimeSlotID: opt.TimeSlotID,
				Enrolled:   enrollment(cc.Course),
			}, true
		}
	}
	return models.Assignment{}, false
}

// backtrack runs a bounded depth-first search over the course order. A dead
// end undoes the previous placement and tries its next option; budget counts
// those undos. If the search completes, every course is placed. If the budget
// runs out first, the deepest prefix reached is kept and the remaining
// courses are finished greedily, so the caller always gets a usable schedule.
func (sv *solver) backtrack(ctx context.Context, order []courseCandidates, budget int) (attempt, error) {
	st := sv.newBaseState()
	n := len(order)
	placed := make([]models.Assignment, 0, n)
	var bestPrefix []models.Assignment
	exhausted := false

	var dfs func(depth int) (bool, error)
	dfs = func(depth int) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generation cancelled")
		}
		if depth == n {
			return true, nil
		}
		if len(placed) > len(bestPrefix) {
			bestPrefix = append(bestPrefix[:0], placed...)
		}
		cc := order[depth]
		for _, opt := range cc.Options {
			sv.stats.CandidatesEvaluated++
			if !st.canPlace(cc.Course, opt.FacultyID, opt.RoomID, opt.TimeSlotID) {
				continue
			}
			a := models.Assignment{
				CourseID:   cc.Course.ID,
				FacultyID:  opt.FacultyID,
				RoomID:     opt.RoomID,
				TimeSlotID: opt.TimeSlotID,
				Enrolled:   enrollment(cc.Course),
			}
			st.place(a)
			placed = append(placed, a)
			done, err := dfs(depth + 1)
			if done || err != nil {
				return done, err
			}
			st.unplace(a)
			placed = placed[:len(placed)-1]
			sv.stats.Backtracks++
			budget--
			if budget < 0 {
				exhausted = true
				return false, nil
			}
			if exhausted {
				return false, nil
			}
		}
		return false, nil
	}

	done, err := dfs(0)
	if err != nil {
		return attempt{}, err
	}
	if done {
		return sv.finish(placed, nil), nil
	}
	if len(placed) > len(bestPrefix) {
		bestPrefix = append(bestPrefix[:0], placed...)
	}
	return sv.finishPartial(ctx, order, bestPrefix)
}

// finishPartial replays a search prefix onto fresh occupancy and greedily
// places whatever courses the prefix left out, skipping the ones that no
// longer fit.
func (sv *solver) finishPartial(ctx context.Context, order []courseCandidates, prefix []models.Assignment) (attempt, error) {
	st := sv.newBaseState()
	covered := make(map[string]bool, len(prefix))
	placed := append([]models.Assignment(nil), prefix...)
	for _, a := range prefix {
		st.place(a)
		covered[a.CourseID] = true
	}
	var skipped []models.UnscheduledCourse
	for _, cc := range order {
		if covered[cc.Course.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return attempt{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generation cancelled")
		}
		a, ok := sv.firstFeasible(st, cc, 0)
		if !ok {
			skipped = append(skipped, models.UnscheduledCourse{
				CourseID: cc.Course.ID,
				Reason:   models.ReasonSearchExhausted,
				Detail:   "search budget exhausted before a feasible placement was found",
			})
			continue
		}
		st.place(a)
		placed = append(placed, a)
	}
	return sv.finish(placed, skipped), nil
}

// perturb deep-copies the course order with each option list reshuffled by a
// restart-specific seed. Restart zero is the unshuffled balanced pass, so the
// shuffles only ever add attempts on top of it.
func (sv *solver) perturb(order []courseCandidates, seed int64) []courseCandidates {
	rng := rand.New(rand.NewSource(seed))
	out := make([]courseCandidates, len(order))
	for i, cc := range order {
		opts := append([]candidate(nil), cc.Options...)
		rng.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		out[i] = courseCandidates{Course: cc.Course, Options: opts}
	}
	return out
}
